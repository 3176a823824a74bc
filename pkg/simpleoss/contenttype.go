package simpleoss

import (
	"mime"
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DetectContentType guesses the media type of an object from its key
// extension, falling back to sniffing the content. Parameters such as
// charset are dropped.
func DetectContentType(key string, data []byte) string {
	if ext := path.Ext(key); ext != "" {
		if ct := mime.TypeByExtension(strings.ToLower(ext)); ct != "" {
			return baseMediaType(ct)
		}
	}
	return baseMediaType(mimetype.Detect(data).String())
}

func baseMediaType(ct string) string {
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		return strings.TrimSpace(ct[:i])
	}
	return ct
}
