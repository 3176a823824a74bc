package simpleoss

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SignURL returns a signed URL for method on pathOrURL, valid for ttl.
//
// A bare path is prefixed and signed against the bucket. An absolute URL is
// signed for its path as-is and the signature parameters are merged into
// that URL, keeping its scheme and host.
func (a *Adapter) SignURL(ctx context.Context, pathOrURL string, ttl time.Duration, method string, opts ...CallOption) (string, error) {
	co := collectCallOptions(opts)
	if ttl <= 0 {
		ttl = a.defaultTTL
	}
	if method == "" {
		method = http.MethodGet
	}

	origin, isURL := ParseURL(pathOrURL)
	var key string
	if isURL {
		key = strings.TrimLeft(origin.Path, "/")
	} else {
		key = a.key(pathOrURL, co)
	}

	signed, err := a.store.SignURL(ctx, a.config.Bucket, key, ttl, method, co.object)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s %s: %w", method, key, err)
	}
	a.logger.Debug("signed url", "method", method, "key", key, "ttl", ttl)

	if !isURL {
		return signed, nil
	}

	su, err := url.Parse(signed)
	if err != nil {
		return "", fmt.Errorf("failed to parse signed url: %w", err)
	}
	query := origin.Query()
	for k, vs := range su.Query() {
		query[k] = vs
	}
	out := *origin
	out.RawQuery = query.Encode()
	return out.String(), nil
}

// URL returns the direct link to path: a GET signature with the query
// removed. It only works for objects that are publicly readable.
func (a *Adapter) URL(ctx context.Context, path string, opts ...CallOption) (string, error) {
	signed, err := a.SignURL(ctx, path, a.defaultTTL, http.MethodGet, opts...)
	if err != nil {
		return "", err
	}
	u, err := url.Parse(signed)
	if err != nil {
		return "", fmt.Errorf("failed to parse signed url: %w", err)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// AuthURL returns a signed GET URL for pathOrURL.
func (a *Adapter) AuthURL(ctx context.Context, pathOrURL string, ttl time.Duration, opts ...CallOption) (string, error) {
	return a.SignURL(ctx, pathOrURL, ttl, http.MethodGet, opts...)
}

// AuthUploadURL returns a signed upload URL. A bare path is moved onto the
// upload domain when one is configured.
func (a *Adapter) AuthUploadURL(ctx context.Context, pathOrURL string, ttl time.Duration, method string, opts ...CallOption) (string, error) {
	if method == "" {
		method = http.MethodPut
	}
	if _, ok := ParseURL(pathOrURL); ok {
		return a.SignURL(ctx, pathOrURL, ttl, method, opts...)
	}
	if upload, ok := a.UploadURL(pathOrURL, opts...); ok {
		return a.SignURL(ctx, upload, ttl, method, opts...)
	}
	return a.SignURL(ctx, pathOrURL, ttl, method, opts...)
}

// CDNURL returns path on the CDN domain. An absolute URL has its scheme and
// host replaced. It reports false when no CDN is configured.
func (a *Adapter) CDNURL(path string, opts ...CallOption) (string, bool) {
	return a.rehost(a.config.CDNBaseURL, path, opts)
}

// UploadURL returns path on the upload domain. It reports false when no
// upload domain is configured.
func (a *Adapter) UploadURL(path string, opts ...CallOption) (string, bool) {
	return a.rehost(a.config.UploadBaseURL, path, opts)
}

func (a *Adapter) rehost(base, path string, opts []CallOption) (string, bool) {
	b, ok := parseBaseURL(base)
	if !ok {
		return "", false
	}
	if u, ok := ParseURL(path); ok {
		out := *u
		out.Scheme = b.Scheme
		out.Host = b.Host
		return out.String(), true
	}
	co := collectCallOptions(opts)
	return strings.TrimSuffix(b.String(), "/") + "/" + EscapeKey(a.key(path, co)), true
}

// EscapeKey percent-encodes an object key for use as a URL path, keeping '/'.
func EscapeKey(key string) string {
	return (&url.URL{Path: key}).EscapedPath()
}
