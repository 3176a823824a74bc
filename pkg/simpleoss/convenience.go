package simpleoss

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PutURL downloads rawURL and stores the body at path.
func (a *Adapter) PutURL(ctx context.Context, rawURL, path string, opts ...CallOption) error {
	if _, ok := ParseURL(rawURL); !ok {
		return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	data, err := a.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	return a.Write(ctx, path, data, opts...)
}

// PutURLIfChanged copies candidateURL into the bucket under prefix unless
// previousURL already points at it.
//
// An empty or invalid candidate (or one without a path), or a previous URL whose path contains the
// candidate's path, returns previousURL without fetching anything. Otherwise
// the candidate is fetched, written to prefix/<candidate path> and the
// canonical URL of the new object is returned.
func (a *Adapter) PutURLIfChanged(ctx context.Context, candidateURL, previousURL, prefix string) (string, error) {
	candidate, ok := ParseURL(candidateURL)
	if !ok {
		return previousURL, nil
	}
	candidatePath := strings.TrimLeft(candidate.Path, "/")
	if candidatePath == "" {
		return previousURL, nil
	}

	if previousURL != "" {
		if previous, ok := ParseURL(previousURL); ok && strings.Contains(previous.Path, candidatePath) {
			return previousURL, nil
		}
	}

	path := candidatePath
	if p := strings.Trim(prefix, "/"); p != "" {
		path = p + "/" + candidatePath
	}
	if err := a.PutURL(ctx, candidateURL, path); err != nil {
		return "", err
	}
	return a.CanonicalURL(ctx, path)
}

// CanonicalURL returns the CDN URL of path when a CDN is configured, else its direct URL.
func (a *Adapter) CanonicalURL(ctx context.Context, path string, opts ...CallOption) (string, error) {
	if u, ok := a.CDNURL(path, opts...); ok {
		return u, nil
	}
	return a.URL(ctx, path, opts...)
}

// PutFile uploads a local file to path.
func (a *Adapter) PutFile(ctx context.Context, localFile, path string, opts ...CallOption) error {
	f, err := os.Open(localFile)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", localFile, err)
	}
	defer f.Close()
	return a.WriteStream(ctx, path, f, opts...)
}

// PutFileAndReturnURL uploads a local file to path and returns its canonical URL.
func (a *Adapter) PutFileAndReturnURL(ctx context.Context, localFile, path string, opts ...CallOption) (string, error) {
	if err := a.PutFile(ctx, localFile, path, opts...); err != nil {
		return "", err
	}
	return a.CanonicalURL(ctx, path, opts...)
}

// Download writes the object at path to localFile, creating parent directories.
func (a *Adapter) Download(ctx context.Context, path, localFile string, opts ...CallOption) error {
	data, err := a.Read(ctx, path, opts...)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localFile), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", localFile, err)
	}
	if err := os.WriteFile(localFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", localFile, err)
	}
	return nil
}

// HasURL reports whether the object addressed by rawURL's path exists.
// The path is used as the object key without prefixing.
func (a *Adapter) HasURL(ctx context.Context, rawURL string) (bool, error) {
	u, ok := ParseURL(rawURL)
	if !ok {
		return false, nil
	}
	key := strings.TrimLeft(u.Path, "/")
	if key == "" {
		return false, nil
	}
	return a.store.Exists(ctx, a.config.Bucket, key)
}

// IsValidURL reports whether value is a URL string, optionally on one of
// the bucket domains and optionally pointing at an existing object.
func (a *Adapter) IsValidURL(ctx context.Context, value any, checkDomain, checkExists bool) (bool, error) {
	s, ok := value.(string)
	if !ok {
		return false, nil
	}
	if _, ok := ParseURL(s); !ok {
		return false, nil
	}
	if checkDomain && !a.IsBucketURL(s) {
		return false, nil
	}
	if checkExists {
		return a.HasURL(ctx, s)
	}
	return true, nil
}

// Base64EncodeWatermarkText encodes text for the image watermark process
// parameter (URL-safe base64 without padding).
func Base64EncodeWatermarkText(text string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(text))
}
