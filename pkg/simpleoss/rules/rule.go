package rules

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/tendant/simple-oss/pkg/simpleoss"
)

// ClientResolver resolves a disk name to an OSS adapter. *simpleoss.Registry
// implements it.
type ClientResolver interface {
	Client(name string) (*simpleoss.Adapter, error)
}

// URLRule validates that a value is a URL of an object on a configured OSS
// disk, optionally checking domain, path, extension, size and mime type.
//
// A URLRule is a mutable builder and keeps the result of the last Validate
// call. It is not safe for concurrent use; build one per validation.
type URLRule struct {
	clients ClientResolver
	disk    string

	checkExists          bool
	allowedDomainTypes   []simpleoss.DomainType
	minSize              *int64
	maxSize              *int64
	allowedMimeTypes     []string
	allowedExtensions    []string
	forbiddenExtensions  []string
	allowedDirectories   []string
	forbiddenDirectories []string
	pathPattern          *regexp.Regexp
	filenamePattern      *regexp.Regexp
	filenameMaxLength    *int

	// result of the last Validate
	failedReason       Reason
	fileAttributes     *simpleoss.FileAttributes
	detectedDomainType simpleoss.DomainType
	parsedPath         *string
}

// New creates a rule against disk. An empty disk is resolved by clients to
// its default disk, "oss" for a Registry created without one. Existence
// checking is on by default.
func New(clients ClientResolver, disk string) *URLRule {
	return &URLRule{
		clients:     clients,
		disk:        disk,
		checkExists: true,
	}
}

// CheckExists toggles the object existence check.
func (r *URLRule) CheckExists(check bool) *URLRule {
	r.checkExists = check
	return r
}

// DomainOnly disables the existence check.
func (r *URLRule) DomainOnly() *URLRule {
	return r.CheckExists(false)
}

// CDNDomain only accepts URLs on the CDN domain.
func (r *URLRule) CDNDomain() *URLRule {
	return r.AllowedDomains(simpleoss.DomainCDN)
}

// UploadDomain only accepts URLs on the upload domain.
func (r *URLRule) UploadDomain() *URLRule {
	return r.AllowedDomains(simpleoss.DomainUpload)
}

// OSSDomain only accepts URLs on the bucket's OSS domain, and its internal
// domain when includeInternal is set.
func (r *URLRule) OSSDomain(includeInternal bool) *URLRule {
	if includeInternal {
		return r.AllowedDomains(simpleoss.DomainOSS, simpleoss.DomainOSSInternal)
	}
	return r.AllowedDomains(simpleoss.DomainOSS)
}

// AllowedDomains sets the accepted domain types.
func (r *URLRule) AllowedDomains(types ...simpleoss.DomainType) *URLRule {
	r.allowedDomainTypes = append([]simpleoss.DomainType{}, types...)
	return r
}

// AnyDomain accepts every configured domain type.
func (r *URLRule) AnyDomain() *URLRule {
	return r.AllowedDomains(simpleoss.DomainCDN, simpleoss.DomainUpload, simpleoss.DomainOSS, simpleoss.DomainOSSInternal)
}

// MinSize sets the minimum object size in bytes.
func (r *URLRule) MinSize(bytes int64) *URLRule {
	r.minSize = &bytes
	return r
}

// MaxSize sets the maximum object size in bytes.
func (r *URLRule) MaxSize(bytes int64) *URLRule {
	r.maxSize = &bytes
	return r
}

// SizeBetween sets both size bounds, inclusive.
func (r *URLRule) SizeBetween(min, max int64) *URLRule {
	return r.MinSize(min).MaxSize(max)
}

// MimeTypes sets the accepted mime types. "image/*" style wildcards match
// any subtype.
func (r *URLRule) MimeTypes(types ...string) *URLRule {
	r.allowedMimeTypes = append([]string{}, types...)
	return r
}

// Extensions sets the accepted extensions, without the dot, case-insensitive.
func (r *URLRule) Extensions(exts ...string) *URLRule {
	r.allowedExtensions = lowerAll(exts)
	return r
}

// ExceptExtensions sets the rejected extensions.
func (r *URLRule) ExceptExtensions(exts ...string) *URLRule {
	r.forbiddenExtensions = lowerAll(exts)
	return r
}

// Directory requires the object to be under dir. "" is the bucket root.
func (r *URLRule) Directory(dir string) *URLRule {
	return r.Directories(dir)
}

// Directories requires the object to be under one of dirs.
func (r *URLRule) Directories(dirs ...string) *URLRule {
	r.allowedDirectories = trimAll(dirs)
	return r
}

// ExceptDirectory rejects objects under dir.
func (r *URLRule) ExceptDirectory(dir string) *URLRule {
	return r.ExceptDirectories(dir)
}

// ExceptDirectories rejects objects under any of dirs. "" entries are ignored.
func (r *URLRule) ExceptDirectories(dirs ...string) *URLRule {
	r.forbiddenDirectories = trimAll(dirs)
	return r
}

// PathMatches requires the object path to match re.
func (r *URLRule) PathMatches(re *regexp.Regexp) *URLRule {
	r.pathPattern = re
	return r
}

// FilenameMatches requires the base name of the object to match re.
func (r *URLRule) FilenameMatches(re *regexp.Regexp) *URLRule {
	r.filenamePattern = re
	return r
}

// FilenameMaxLength limits the base name to n characters.
func (r *URLRule) FilenameMaxLength(n int) *URLRule {
	r.filenameMaxLength = &n
	return r
}

func lowerAll(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = strings.ToLower(v)
	}
	return out
}

func trimAll(dirs []string) []string {
	out := make([]string, len(dirs))
	for i, d := range dirs {
		out[i] = strings.Trim(d, "/")
	}
	return out
}

func (r *URLRule) reset() {
	r.failedReason = ReasonNone
	r.fileAttributes = nil
	r.detectedDomainType = simpleoss.DomainNone
	r.parsedPath = nil
}

// Validate checks value and calls fail with the message of the first failed
// check. Checks run in a fixed order and stop at the first failure. The
// returned error is reserved for storage failures other than not-found.
func (r *URLRule) Validate(ctx context.Context, attribute string, value any, fail func(string)) error {
	r.reset()

	failWith := func(reason Reason) error {
		r.failedReason = reason
		if fail != nil {
			fail(reason.Message(attribute))
		}
		return nil
	}

	raw, ok := value.(string)
	if !ok {
		return failWith(ReasonInvalidURL)
	}
	u, ok := simpleoss.ParseURL(raw)
	if !ok {
		return failWith(ReasonInvalidURL)
	}

	if r.clients == nil {
		return failWith(ReasonInvalidDisk)
	}
	adapter, err := r.clients.Client(r.disk)
	if err != nil {
		return failWith(ReasonInvalidDisk)
	}

	r.detectedDomainType = adapter.Classify(raw)
	if r.allowedDomainTypes != nil {
		if r.detectedDomainType == simpleoss.DomainNone {
			return failWith(ReasonDomainMismatch)
		}
		if !slices.Contains(r.allowedDomainTypes, r.detectedDomainType) {
			return failWith(ReasonDomainTypeNotAllowed)
		}
	} else if !adapter.IsBucketURL(raw) {
		return failWith(ReasonDomainMismatch)
	}

	p := strings.TrimLeft(u.Path, "/")
	r.parsedPath = &p
	if p == "" {
		return failWith(ReasonInvalidPath)
	}

	ext := strings.ToLower(r.Extension())
	if r.allowedExtensions != nil && !slices.Contains(r.allowedExtensions, ext) {
		return failWith(ReasonExtensionNotAllowed)
	}
	if r.forbiddenExtensions != nil && slices.Contains(r.forbiddenExtensions, ext) {
		return failWith(ReasonExtensionForbidden)
	}

	if r.allowedDirectories != nil && !inAnyDirectory(p, r.allowedDirectories, true) {
		return failWith(ReasonDirectoryNotAllowed)
	}
	if r.forbiddenDirectories != nil && inAnyDirectory(p, r.forbiddenDirectories, false) {
		return failWith(ReasonDirectoryForbidden)
	}

	if r.pathPattern != nil && !r.pathPattern.MatchString(p) {
		return failWith(ReasonPathPatternMismatch)
	}

	filename := r.Filename()
	if r.filenamePattern != nil && !r.filenamePattern.MatchString(filename) {
		return failWith(ReasonFilenamePatternMismatch)
	}
	if r.filenameMaxLength != nil && utf8.RuneCountInString(filename) > *r.filenameMaxLength {
		return failWith(ReasonFilenameTooLong)
	}

	if !r.checkExists && r.minSize == nil && r.maxSize == nil && r.allowedMimeTypes == nil {
		return nil
	}

	attrs, err := adapter.GetFileAttributes(ctx, p, simpleoss.WithoutPrefix())
	if err != nil {
		if simpleoss.IsNotFound(err) {
			return failWith(ReasonFileNotFound)
		}
		return fmt.Errorf("failed to validate %s: %w", attribute, err)
	}
	r.fileAttributes = &attrs

	if size, known := attrs.Size(); known {
		if r.minSize != nil && size < *r.minSize {
			return failWith(ReasonFileTooSmall)
		}
		if r.maxSize != nil && size > *r.maxSize {
			return failWith(ReasonFileTooLarge)
		}
	}

	if r.allowedMimeTypes != nil && (attrs.MimeType == "" || !matchMimeType(attrs.MimeType, r.allowedMimeTypes)) {
		return failWith(ReasonMimeTypeNotAllowed)
	}
	return nil
}

// Passes runs Validate and reports whether value passed.
func (r *URLRule) Passes(ctx context.Context, value any) (bool, error) {
	if err := r.Validate(ctx, "url", value, nil); err != nil {
		return false, err
	}
	return r.failedReason == ReasonNone, nil
}

// inAnyDirectory reports whether p is dir itself or below it for any dir.
// An empty dir is the root and matches everything when rootMatches is set,
// and is skipped otherwise.
func inAnyDirectory(p string, dirs []string, rootMatches bool) bool {
	for _, dir := range dirs {
		if dir == "" {
			if rootMatches {
				return true
			}
			continue
		}
		if p == dir || strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

func matchMimeType(mimeType string, allowed []string) bool {
	for _, a := range allowed {
		if mimeType == a {
			return true
		}
		if prefix, ok := strings.CutSuffix(a, "*"); ok && strings.HasSuffix(prefix, "/") && strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}

// FailedReason returns the reason of the last failed Validate, ReasonNone
// when it passed.
func (r *URLRule) FailedReason() Reason {
	return r.failedReason
}

// FileAttributes returns the attributes fetched by the last Validate, if any.
func (r *URLRule) FileAttributes() (simpleoss.FileAttributes, bool) {
	if r.fileAttributes == nil {
		return simpleoss.FileAttributes{}, false
	}
	return *r.fileAttributes, true
}

// FileSize returns the object size seen by the last Validate.
func (r *URLRule) FileSize() (int64, bool) {
	if r.fileAttributes == nil {
		return 0, false
	}
	return r.fileAttributes.Size()
}

// MimeType returns the object mime type seen by the last Validate.
func (r *URLRule) MimeType() string {
	if r.fileAttributes == nil {
		return ""
	}
	return r.fileAttributes.MimeType
}

// DetectedDomainType returns the domain family seen by the last Validate.
func (r *URLRule) DetectedDomainType() simpleoss.DomainType { return r.detectedDomainType }

// IsCDNDomain reports whether the last validated URL was on the CDN domain.
func (r *URLRule) IsCDNDomain() bool { return r.detectedDomainType == simpleoss.DomainCDN }

// IsUploadDomain reports whether the last validated URL was on the upload domain.
func (r *URLRule) IsUploadDomain() bool { return r.detectedDomainType == simpleoss.DomainUpload }

// IsOSSDomain reports whether the last validated URL was on the public bucket domain.
func (r *URLRule) IsOSSDomain() bool { return r.detectedDomainType == simpleoss.DomainOSS }

// IsOSSInternalDomain reports whether the last validated URL was on the internal bucket domain.
func (r *URLRule) IsOSSInternalDomain() bool {
	return r.detectedDomainType == simpleoss.DomainOSSInternal
}

// Path returns the object path parsed by the last Validate, without the
// leading "/". It is "" before the path was parsed.
func (r *URLRule) Path() string {
	if r.parsedPath == nil {
		return ""
	}
	return *r.parsedPath
}

// Filename returns the base name of Path.
func (r *URLRule) Filename() string {
	if r.parsedPath == nil {
		return ""
	}
	return path.Base(*r.parsedPath)
}

// Extension returns the extension of Path without the dot.
func (r *URLRule) Extension() string {
	if r.parsedPath == nil {
		return ""
	}
	return strings.TrimPrefix(path.Ext(r.Filename()), ".")
}

// Dirname returns the directory of Path, "." for root objects.
func (r *URLRule) Dirname() string {
	if r.parsedPath == nil {
		return ""
	}
	return path.Dir(*r.parsedPath)
}
