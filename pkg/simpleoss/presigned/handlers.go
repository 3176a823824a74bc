package presigned

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-oss/pkg/simpleoss"
)

// Handlers serves objects of an ObjectStore over path-style signed URLs
// (/{bucket}/{key}), the way OSS serves them on its bucket domain. It lets
// URLs signed by the memory store be fetched in development and tests.
type Handlers struct {
	store  simpleoss.ObjectStore
	signer *Signer
	logger *slog.Logger
}

// NewHandlers creates handlers for store validating signatures with signer.
func NewHandlers(store simpleoss.ObjectStore, signer *Signer) *Handlers {
	return &Handlers{
		store:  store,
		signer: signer,
		logger: slog.Default(),
	}
}

// Mount mounts GET, HEAD and PUT on /{bucket}/*.
func (h *Handlers) Mount(r chi.Router) {
	validate := ValidateMiddleware(h.signer, h.allowAnonymous)
	r.With(validate).Get("/{bucket}/*", h.HandleGet)
	r.With(validate).Head("/{bucket}/*", h.HandleHead)
	r.With(validate).Put("/{bucket}/*", h.HandlePut)
}

// allowAnonymous grants unsigned reads on public objects and unsigned
// writes on public-read-write buckets.
func (h *Handlers) allowAnonymous(r *http.Request, bucket, key string) bool {
	ctx := r.Context()
	bucketACL, err := h.store.GetBucketACL(ctx, bucket)
	if err != nil {
		return false
	}
	if r.Method == http.MethodPut {
		return bucketACL == simpleoss.ACLPublicReadWrite
	}

	acl, err := h.store.GetObjectACL(ctx, bucket, key)
	if err != nil {
		// let the handler report a missing object
		return simpleoss.IsNotFound(err) && simpleoss.ToVisibility(bucketACL) == simpleoss.VisibilityPublic
	}
	if acl == simpleoss.ACLDefault {
		acl = bucketACL
	}
	return simpleoss.ToVisibility(acl) == simpleoss.VisibilityPublic
}

// HandleGet streams an object.
func (h *Handlers) HandleGet(w http.ResponseWriter, r *http.Request) {
	bucket, key := BucketFromContext(r.Context()), ObjectKeyFromContext(r.Context())

	meta, err := h.store.HeadMeta(r.Context(), bucket, key)
	if err != nil {
		h.storeError(w, "get", key, err)
		return
	}
	rc, err := h.store.Get(r.Context(), bucket, key, nil)
	if err != nil {
		h.storeError(w, "get", key, err)
		return
	}
	defer rc.Close()

	writeMetaHeaders(w, meta)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Error("presigned: copy error", "key", key, "err", err)
	}
}

// HandleHead returns object metadata headers.
func (h *Handlers) HandleHead(w http.ResponseWriter, r *http.Request) {
	bucket, key := BucketFromContext(r.Context()), ObjectKeyFromContext(r.Context())

	meta, err := h.store.HeadMeta(r.Context(), bucket, key)
	if err != nil {
		status := http.StatusInternalServerError
		if simpleoss.IsNotFound(err) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		return
	}
	writeMetaHeaders(w, meta)
	w.WriteHeader(http.StatusOK)
}

// HandlePut stores the request body. Content-Type and x-oss-* headers are
// passed to the store.
func (h *Handlers) HandlePut(w http.ResponseWriter, r *http.Request) {
	bucket, key := BucketFromContext(r.Context()), ObjectKeyFromContext(r.Context())

	opts := &simpleoss.ObjectOptions{
		ContentType: r.Header.Get("Content-Type"),
		Headers:     map[string]string{},
	}
	for k := range r.Header {
		if lk := strings.ToLower(k); strings.HasPrefix(lk, "x-oss-") {
			opts.Headers[lk] = r.Header.Get(k)
		}
	}

	if err := h.store.Put(r.Context(), bucket, key, r.Body, opts); err != nil {
		h.storeError(w, "put", key, err)
		return
	}
	if meta, err := h.store.HeadMeta(r.Context(), bucket, key); err == nil && meta.ETag != "" {
		w.Header().Set("ETag", `"`+meta.ETag+`"`)
	}
	h.logger.Debug("presigned: put object", "bucket", bucket, "key", key)
	w.WriteHeader(http.StatusOK)
}

func (h *Handlers) storeError(w http.ResponseWriter, op, key string, err error) {
	status := simpleoss.StatusCode(err)
	switch {
	case simpleoss.IsNotFound(err):
		writeError(w, http.StatusNotFound, "NoSuchKey", "The specified key does not exist.")
	case status == http.StatusConflict:
		writeError(w, http.StatusConflict, "FileAlreadyExists", "The object you specified already exists and can not be overwritten.")
	default:
		h.logger.Error("presigned: store error", "op", op, "key", key, "err", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "storage error")
	}
}

func writeMetaHeaders(w http.ResponseWriter, meta *simpleoss.ObjectMeta) {
	if meta.ContentType != "" {
		w.Header().Set("Content-Type", meta.ContentType)
	}
	w.Header().Set("Content-Length", strconv.FormatInt(meta.Size, 10))
	if !meta.LastModified.IsZero() {
		w.Header().Set("Last-Modified", meta.LastModified.UTC().Format(http.TimeFormat))
	}
	if meta.ETag != "" {
		w.Header().Set("ETag", `"`+meta.ETag+`"`)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
	})
}
