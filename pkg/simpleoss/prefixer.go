package simpleoss

import "strings"

// Prefixer joins a fixed root prefix with relative object paths.
type Prefixer struct {
	prefix string // normalized, no leading or trailing '/'
}

// NewPrefixer returns a Prefixer for prefix. An empty prefix is a passthrough.
func NewPrefixer(prefix string) Prefixer {
	return Prefixer{prefix: strings.Trim(prefix, "/")}
}

// Prefix returns the normalized prefix without separators.
func (p Prefixer) Prefix() string {
	return p.prefix
}

// PrefixPath joins the prefix and path with a single '/'.
// PrefixPath("") returns the prefix followed by '/'. A path already rooted at
// the prefix is returned unchanged.
func (p Prefixer) PrefixPath(path string) string {
	path = strings.TrimLeft(path, "/")
	if p.prefix == "" {
		return path
	}
	if path == p.prefix || strings.HasPrefix(path, p.prefix+"/") {
		return path
	}
	return p.prefix + "/" + path
}

// StripPrefix removes the prefix from a prefixed path.
func (p Prefixer) StripPrefix(path string) string {
	path = strings.TrimLeft(path, "/")
	if p.prefix == "" {
		return path
	}
	if path == p.prefix {
		return ""
	}
	return strings.TrimPrefix(path, p.prefix+"/")
}
