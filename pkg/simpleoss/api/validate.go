package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/render"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/rules"
)

// ValidateRequest describes a URL rule to check a value against. Omitted
// constraints are not applied. CheckExists defaults to true.
type ValidateRequest struct {
	URL               string   `json:"url"`
	Client            string   `json:"client,omitempty"`
	CheckExists       *bool    `json:"check_exists,omitempty"`
	Domains           []string `json:"domains,omitempty"`
	MinSize           *int64   `json:"min_size,omitempty"`
	MaxSize           *int64   `json:"max_size,omitempty"`
	Preset            string   `json:"preset,omitempty"`
	MimeTypes         []string `json:"mime_types,omitempty"`
	Extensions        []string `json:"extensions,omitempty"`
	ExceptExtensions  []string `json:"except_extensions,omitempty"`
	Directories       []string `json:"directories,omitempty"`
	ExceptDirectories []string `json:"except_directories,omitempty"`
	FilenameMaxLength *int     `json:"filename_max_length,omitempty"`
}

// ValidateData is the outcome of a validation. Reason and Message are empty
// when the value passed.
type ValidateData struct {
	Passes     bool    `json:"passes"`
	Reason     string  `json:"reason,omitempty"`
	Message    string  `json:"message,omitempty"`
	DomainType string  `json:"domain_type"`
	Path       string  `json:"path,omitempty"`
	MimeType   *string `json:"mimetype"`
	Size       *int64  `json:"size"`
}

var presets = map[string][]string{
	"image":    rules.ImageTypes,
	"video":    rules.VideoTypes,
	"audio":    rules.AudioTypes,
	"media":    rules.MediaTypes,
	"document": rules.DocumentTypes,
	"pdf":      rules.PDFTypes,
	"excel":    rules.ExcelTypes,
	"word":     rules.WordTypes,
	"ppt":      rules.PPTTypes,
	"archive":  rules.ArchiveTypes,
	"text":     rules.TextTypes,
	"json":     rules.JSONTypes,
	"xml":      rules.XMLTypes,
}

// BuildRule turns a request into a rule against clients.
func (req ValidateRequest) BuildRule(clients rules.ClientResolver) (*rules.URLRule, error) {
	rule := rules.New(clients, req.Client)
	if req.CheckExists != nil {
		rule.CheckExists(*req.CheckExists)
	}
	if len(req.Domains) > 0 {
		types := make([]simpleoss.DomainType, 0, len(req.Domains))
		for _, d := range req.Domains {
			t, ok := simpleoss.ParseDomainType(d)
			if !ok {
				return nil, fmt.Errorf("unknown domain type %q", d)
			}
			types = append(types, t)
		}
		rule.AllowedDomains(types...)
	}
	if req.MinSize != nil {
		rule.MinSize(*req.MinSize)
	}
	if req.MaxSize != nil {
		rule.MaxSize(*req.MaxSize)
	}
	mimeTypes := req.MimeTypes
	if req.Preset != "" {
		preset, ok := presets[req.Preset]
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", req.Preset)
		}
		mimeTypes = append(append([]string{}, preset...), mimeTypes...)
	}
	if len(mimeTypes) > 0 {
		rule.MimeTypes(mimeTypes...)
	}
	if len(req.Extensions) > 0 {
		rule.Extensions(req.Extensions...)
	}
	if len(req.ExceptExtensions) > 0 {
		rule.ExceptExtensions(req.ExceptExtensions...)
	}
	if len(req.Directories) > 0 {
		rule.Directories(req.Directories...)
	}
	if len(req.ExceptDirectories) > 0 {
		rule.ExceptDirectories(req.ExceptDirectories...)
	}
	if req.FilenameMaxLength != nil {
		rule.FilenameMaxLength(*req.FilenameMaxLength)
	}
	return rule, nil
}

// Validate checks a URL against the rule described by the request. A failed
// rule is a normal 200 response with passes=false.
func (h *Handlers) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if err := render.Decode(r, &req); err != nil {
		badRequest(w, r, "Invalid request body")
		return
	}
	rule, err := req.BuildRule(h.registry)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}

	var message string
	err = rule.Validate(r.Context(), "url", req.URL, func(msg string) { message = msg })
	if err != nil {
		h.serverError(w, r, "failed to validate url", err)
		return
	}

	data := ValidateData{
		Passes:     rule.FailedReason() == rules.ReasonNone,
		Reason:     rule.FailedReason().String(),
		Message:    message,
		DomainType: rule.DetectedDomainType().String(),
		Path:       rule.Path(),
	}
	if attrs, ok := rule.FileAttributes(); ok {
		mt := attrs.MimeType
		data.MimeType = &mt
		if size, ok := attrs.Size(); ok {
			data.Size = &size
		}
	}
	respond(w, r, http.StatusOK, "ok", data)
}
