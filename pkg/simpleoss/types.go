package simpleoss

import (
	"strings"
	"time"
)

// Visibility is the generic access level of a stored file.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// ACL is an object or bucket access-control value as understood by OSS.
type ACL string

const (
	ACLPrivate         ACL = "private"
	ACLPublicRead      ACL = "public-read"
	ACLPublicReadWrite ACL = "public-read-write"
	// ACLDefault marks an object that inherits the bucket ACL.
	ACLDefault ACL = "default"
)

// DomainType identifies which domain family a URL host belongs to.
type DomainType string

const (
	DomainNone        DomainType = ""
	DomainCDN         DomainType = "cdn"
	DomainUpload      DomainType = "upload"
	DomainOSS         DomainType = "oss"
	DomainOSSInternal DomainType = "oss_internal"
)

// String returns the stable name of the domain type, "none" for DomainNone.
func (d DomainType) String() string {
	if d == DomainNone {
		return "none"
	}
	return string(d)
}

// ParseDomainType returns the bucket domain type with the given name.
func ParseDomainType(name string) (DomainType, bool) {
	switch d := DomainType(strings.ToLower(strings.TrimSpace(name))); d {
	case DomainCDN, DomainUpload, DomainOSS, DomainOSSInternal:
		return d, true
	}
	return DomainNone, false
}

// ForbidOverwriteHeader rejects a PUT when an object already exists at the key.
const ForbidOverwriteHeader = "x-oss-forbid-overwrite"

// ObjectOptions carries per-request vendor options.
type ObjectOptions struct {
	Headers     map[string]string
	Query       map[string]string
	ContentType string
}

// Clone returns a deep copy of the options, nil stays nil.
func (o *ObjectOptions) Clone() *ObjectOptions {
	if o == nil {
		return nil
	}
	c := &ObjectOptions{ContentType: o.ContentType}
	if o.Headers != nil {
		c.Headers = make(map[string]string, len(o.Headers))
		for k, v := range o.Headers {
			c.Headers[k] = v
		}
	}
	if o.Query != nil {
		c.Query = make(map[string]string, len(o.Query))
		for k, v := range o.Query {
			c.Query[k] = v
		}
	}
	return c
}

// Header returns the value of a header, matched case-insensitively.
func (o *ObjectOptions) Header(name string) (string, bool) {
	if o == nil {
		return "", false
	}
	for k, v := range o.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}

// ForbidOverwrite reports whether the options carry the forbid-overwrite header.
func (o *ObjectOptions) ForbidOverwrite() bool {
	v, ok := o.Header(ForbidOverwriteHeader)
	return ok && v == "true"
}

// ObjectMeta is the metadata returned by a HEAD on an object.
type ObjectMeta struct {
	Key          string
	Size         int64
	ContentType  string
	LastModified time.Time
	ETag         string
}

// FileAttributes describes a file as seen through the adapter.
// Optional fields are nil or empty when unknown.
type FileAttributes struct {
	Path         string
	FileSize     *int64
	LastModified *time.Time
	MimeType     string
	Visibility   Visibility
}

// Size returns the file size and whether it is known.
func (a FileAttributes) Size() (int64, bool) {
	if a.FileSize == nil {
		return 0, false
	}
	return *a.FileSize, true
}

func attributesFromMeta(path string, meta *ObjectMeta) FileAttributes {
	size := meta.Size
	attrs := FileAttributes{
		Path:     path,
		FileSize: &size,
		MimeType: meta.ContentType,
	}
	if !meta.LastModified.IsZero() {
		lm := meta.LastModified
		attrs.LastModified = &lm
	}
	return attrs
}
