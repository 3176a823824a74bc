// Package api exposes the OSS helper actions over HTTP: object metadata
// lookup by URL, direct upload URL issuing, domain classification and URL
// rule validation.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/objectkey"
)

// DefaultUploadTTL is the lifetime of upload URLs issued without a timeout.
const DefaultUploadTTL = 60 * time.Second

// MaxUploadTTL caps the requested upload URL lifetime.
const MaxUploadTTL = 24 * time.Hour

// Response is the envelope of every action response.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// MetaRequest asks for the metadata of the object behind a URL.
type MetaRequest struct {
	URL    string `json:"url" form:"url"`
	Client string `json:"client,omitempty" form:"client"`
}

// MetaData is the metadata of an object. MimeType and Size are null when the
// lookup failed; Status carries the storage HTTP status.
type MetaData struct {
	MimeType *string `json:"mimetype"`
	Size     *int64  `json:"size"`
	Status   int     `json:"status"`
}

// UploadURLRequest asks for a signed direct upload URL.
type UploadURLRequest struct {
	Prefix  string `json:"prefix,omitempty" form:"prefix"`
	Suffix  string `json:"suffix,omitempty" form:"suffix"`
	Timeout int    `json:"timeout,omitempty" form:"timeout"`
	Client  string `json:"client,omitempty" form:"client"`
}

// UploadURLData tells a client where and how to upload.
type UploadURLData struct {
	Path    string            `json:"path"`
	URL     string            `json:"url"`
	Action  string            `json:"action"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
}

// ClassifyData is the domain classification of a URL.
type ClassifyData struct {
	DomainType  string `json:"domain_type"`
	IsBucketURL bool   `json:"is_bucket_url"`
}

// Handlers serves the actions for the disks of a registry.
type Handlers struct {
	registry *simpleoss.Registry
	keys     objectkey.Generator
	logger   *slog.Logger
}

// Option configures Handlers.
type Option func(*Handlers)

// WithKeyGenerator sets the generator for upload keys.
func WithKeyGenerator(g objectkey.Generator) Option {
	return func(h *Handlers) {
		if g != nil {
			h.keys = g
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handlers) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHandlers returns the OSS actions backed by the disks in registry.
func NewHandlers(registry *simpleoss.Registry, opts ...Option) *Handlers {
	h := &Handlers{
		registry: registry,
		keys:     objectkey.NewRecommendedGenerator(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the router for the actions
func (h *Handlers) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/meta", h.Meta)
	r.Post("/upload-url", h.UploadURL)
	r.Get("/classify", h.Classify)
	r.Post("/validate", h.Validate)
	return r
}

func (h *Handlers) client(name string) (*simpleoss.Adapter, bool) {
	a, err := h.registry.Client(name)
	if err != nil {
		h.logger.Warn("unknown client", "client", name, "err", err)
		return nil, false
	}
	return a, true
}

func respond(w http.ResponseWriter, r *http.Request, status int, message string, data any) {
	render.Status(r, status)
	render.JSON(w, r, Response{Code: status, Message: message, Data: data})
}

func badRequest(w http.ResponseWriter, r *http.Request, message string) {
	respond(w, r, http.StatusBadRequest, message, nil)
}

// Meta returns the mime type and size of the object a URL points at.
// Storage failures are reported in data.status, not as an HTTP error.
func (h *Handlers) Meta(w http.ResponseWriter, r *http.Request) {
	var req MetaRequest
	if err := render.Decode(r, &req); err != nil {
		badRequest(w, r, "Invalid request body")
		return
	}

	u, ok := simpleoss.ParseURL(req.URL)
	if !ok {
		badRequest(w, r, "Url must be a correct URL string!")
		return
	}
	adapter, ok := h.client(req.Client)
	if !ok {
		badRequest(w, r, "The client is not recognized!")
		return
	}

	data := MetaData{Status: http.StatusOK}
	attrs, err := adapter.GetFileAttributes(r.Context(), u.Path, simpleoss.WithoutPrefix())
	if err != nil {
		data.Status = simpleoss.StatusCode(err)
		if data.Status == 0 {
			data.Status = http.StatusInternalServerError
		}
		h.logger.Debug("meta lookup failed", "url", req.URL, "status", data.Status, "err", err)
	} else {
		mt := attrs.MimeType
		data.MimeType = &mt
		if size, ok := attrs.Size(); ok {
			data.Size = &size
		}
	}

	respond(w, r, http.StatusOK, "ok", data)
}

// UploadURL issues a new object key and a signed PUT URL for it. The URL
// forbids overwriting, so every issued key can be written once.
func (h *Handlers) UploadURL(w http.ResponseWriter, r *http.Request) {
	var req UploadURLRequest
	if err := render.Decode(r, &req); err != nil {
		badRequest(w, r, "Invalid request body")
		return
	}
	if req.Timeout < 0 {
		badRequest(w, r, "The timeout must not be negative!")
		return
	}
	adapter, ok := h.client(req.Client)
	if !ok {
		badRequest(w, r, "The client is not recognized!")
		return
	}

	ttl := DefaultUploadTTL
	if req.Timeout > 0 {
		ttl = time.Duration(req.Timeout) * time.Second
	}
	if ttl > MaxUploadTTL {
		ttl = MaxUploadTTL
	}

	path := h.keys.GenerateKey(&objectkey.KeyMetadata{Prefix: req.Prefix, Suffix: req.Suffix})

	url, err := adapter.CanonicalURL(r.Context(), path)
	if err != nil {
		h.serverError(w, r, "failed to build url", err)
		return
	}

	forbid := simpleoss.ForbidOverwriteOptions()
	action, err := adapter.AuthUploadURL(r.Context(), path, ttl, http.MethodPut, simpleoss.WithObjectOptions(forbid))
	if err != nil {
		h.serverError(w, r, "failed to sign upload url", err)
		return
	}

	respond(w, r, http.StatusOK, "ok", UploadURLData{
		Path:    path,
		URL:     url,
		Action:  action,
		Method:  http.MethodPut,
		Headers: forbid.Headers,
	})
}

// Classify reports which bucket domain a URL is on.
func (h *Handlers) Classify(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("url")
	if raw == "" {
		badRequest(w, r, "The url parameter is required!")
		return
	}
	adapter, ok := h.client(r.URL.Query().Get("client"))
	if !ok {
		badRequest(w, r, "The client is not recognized!")
		return
	}

	kind := adapter.Classify(raw)
	respond(w, r, http.StatusOK, "ok", ClassifyData{
		DomainType:  kind.String(),
		IsBucketURL: kind != simpleoss.DomainNone,
	})
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "request_id", RequestIDFromContext(r.Context()), "err", err)
	status := simpleoss.StatusCode(err)
	if status == 0 || errors.Is(err, simpleoss.ErrNotImplemented) {
		status = http.StatusInternalServerError
	}
	respond(w, r, status, msg, nil)
}
