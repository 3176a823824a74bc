package simpleoss

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/tendant/simple-oss/pkg/simpleoss/httpfetch"
)

// DefaultURLTTL is the lifetime of URLs signed without an explicit ttl.
const DefaultURLTTL = 60 * time.Second

// Adapter exposes an OSS bucket through the FilesystemAdapter contract and
// adds URL signing, CDN and upload domain rewriting, and domain classification.
//
// An Adapter is safe for concurrent use. Its Config never changes; WithConfig
// and WithBucket return new adapters.
type Adapter struct {
	config     Config
	prefixer   Prefixer
	store      ObjectStore
	factory    StoreFactory
	fetcher    Fetcher
	logger     *slog.Logger
	defaultTTL time.Duration
}

var _ FilesystemAdapter = (*Adapter)(nil)

// New creates an Adapter for cfg backed by store. A nil store is built with
// the factory supplied through WithStoreFactory.
func New(cfg Config, store ObjectStore, opts ...Option) (*Adapter, error) {
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	a := &Adapter{
		config:     cfg,
		prefixer:   NewPrefixer(cfg.Prefix),
		store:      store,
		logger:     slog.Default(),
		defaultTTL: DefaultURLTTL,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.store == nil {
		if a.factory == nil {
			return nil, ErrMissingStore
		}
		s, err := a.factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
		a.store = s
	}
	if a.fetcher == nil {
		a.fetcher = httpfetch.NewClient()
	}

	return a, nil
}

// Config returns a copy of the adapter configuration.
func (a *Adapter) Config() Config {
	return a.config
}

// Bucket returns the bucket name.
func (a *Adapter) Bucket() string {
	return a.config.Bucket
}

// Prefixer returns the path prefixer of the adapter.
func (a *Adapter) Prefixer() Prefixer {
	return a.prefixer
}

// Store returns the underlying object store.
func (a *Adapter) Store() ObjectStore {
	return a.store
}

// WithConfig returns a new Adapter whose configuration is a copy of this one
// modified by fn. The store is shared unless connection settings changed and
// a StoreFactory is available.
func (a *Adapter) WithConfig(fn func(*Config)) (*Adapter, error) {
	cfg := a.config
	if fn != nil {
		fn(&cfg)
	}
	if cfg.Bucket == "" {
		return nil, ErrMissingBucket
	}

	b := *a
	b.config = cfg
	b.prefixer = NewPrefixer(cfg.Prefix)

	if a.factory != nil && !cfg.sameConnection(a.config) {
		store, err := a.factory(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create object store: %w", err)
		}
		b.store = store
	}
	return &b, nil
}

// WithBucket returns a new Adapter for another bucket on the same connection.
func (a *Adapter) WithBucket(bucket string) *Adapter {
	b := *a
	b.config.Bucket = bucket
	return &b
}

func (a *Adapter) key(path string, co *callOptions) string {
	if co != nil && co.withoutPrefix {
		return strings.TrimLeft(path, "/")
	}
	return a.prefixer.PrefixPath(path)
}

// FileExists reports whether an object exists at path.
func (a *Adapter) FileExists(ctx context.Context, path string, opts ...CallOption) (bool, error) {
	co := collectCallOptions(opts)
	return a.store.Exists(ctx, a.config.Bucket, a.key(path, co))
}

// DirectoryExists always reports true; OSS has no real directories.
func (a *Adapter) DirectoryExists(ctx context.Context, path string) (bool, error) {
	return true, nil
}

// Write stores contents at path. Without an explicit content type one is
// detected from the key and data.
func (a *Adapter) Write(ctx context.Context, path string, contents []byte, opts ...CallOption) error {
	co := collectCallOptions(opts)
	key := a.key(path, co)
	obj := co.object.Clone()
	if obj == nil {
		obj = &ObjectOptions{}
	}
	if obj.ContentType == "" {
		obj.ContentType = DetectContentType(key, contents)
	}

	a.logger.Debug("writing object", "bucket", a.config.Bucket, "key", key, "size", len(contents))
	if err := a.store.Put(ctx, a.config.Bucket, key, bytes.NewReader(contents), obj); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

// WriteStream reads r to the end and stores it at path.
func (a *Adapter) WriteStream(ctx context.Context, path string, r io.Reader, opts ...CallOption) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stream for %s: %w", path, err)
	}
	return a.Write(ctx, path, data, opts...)
}

// Read returns the contents of the object at path.
func (a *Adapter) Read(ctx context.Context, path string, opts ...CallOption) ([]byte, error) {
	rc, err := a.ReadStream(ctx, path, opts...)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

// ReadStream opens the object at path for reading.
func (a *Adapter) ReadStream(ctx context.Context, path string, opts ...CallOption) (io.ReadCloser, error) {
	co := collectCallOptions(opts)
	key := a.key(path, co)
	rc, err := a.store.Get(ctx, a.config.Bucket, key, co.object)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return rc, nil
}

// Delete removes the object at path.
func (a *Adapter) Delete(ctx context.Context, path string, opts ...CallOption) error {
	co := collectCallOptions(opts)
	key := a.key(path, co)
	if err := a.store.Delete(ctx, a.config.Bucket, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// DeleteDirectory is a no-op; OSS has no real directories.
func (a *Adapter) DeleteDirectory(ctx context.Context, path string) error {
	return nil
}

// CreateDirectory writes an empty "path/" marker object.
func (a *Adapter) CreateDirectory(ctx context.Context, path string, opts ...CallOption) error {
	co := collectCallOptions(opts)
	key := strings.TrimSuffix(a.key(path, co), "/") + "/"
	if err := a.store.CreateDir(ctx, a.config.Bucket, key, co.object); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", key, err)
	}
	return nil
}

// SetVisibility sets the object ACL matching visibility.
func (a *Adapter) SetVisibility(ctx context.Context, path string, visibility Visibility) error {
	key := a.prefixer.PrefixPath(path)
	if err := a.store.PutObjectACL(ctx, a.config.Bucket, key, ToACL(visibility)); err != nil {
		return fmt.Errorf("failed to set visibility of %s: %w", key, err)
	}
	return nil
}

// Visibility returns the visibility of the object at path. An object that
// inherits the bucket ACL resolves through the configured ACL, else the live
// bucket ACL.
func (a *Adapter) Visibility(ctx context.Context, path string) (FileAttributes, error) {
	key := a.prefixer.PrefixPath(path)
	acl, err := a.store.GetObjectACL(ctx, a.config.Bucket, key)
	if err != nil {
		return FileAttributes{}, fmt.Errorf("failed to get visibility of %s: %w", key, err)
	}
	if acl == ACLDefault {
		acl, err = a.defaultACL(ctx)
		if err != nil {
			return FileAttributes{}, err
		}
	}
	return FileAttributes{Path: path, Visibility: ToVisibility(acl)}, nil
}

func (a *Adapter) defaultACL(ctx context.Context) (ACL, error) {
	if a.config.ACL != "" && a.config.ACL != ACLDefault {
		return a.config.ACL, nil
	}
	acl, err := a.store.GetBucketACL(ctx, a.config.Bucket)
	if err != nil {
		return "", fmt.Errorf("failed to get bucket ACL: %w", err)
	}
	return acl, nil
}

// GetFileAttributes fetches the metadata of the object at path.
func (a *Adapter) GetFileAttributes(ctx context.Context, path string, opts ...CallOption) (FileAttributes, error) {
	co := collectCallOptions(opts)
	key := a.key(path, co)
	meta, err := a.store.HeadMeta(ctx, a.config.Bucket, key)
	if err != nil {
		return FileAttributes{}, fmt.Errorf("failed to get metadata of %s: %w", key, err)
	}
	return attributesFromMeta(path, meta), nil
}

// MimeType returns the attributes of path with the mime type populated.
func (a *Adapter) MimeType(ctx context.Context, path string) (FileAttributes, error) {
	return a.GetFileAttributes(ctx, path)
}

// LastModified returns the attributes of path with the modification time populated.
func (a *Adapter) LastModified(ctx context.Context, path string) (FileAttributes, error) {
	return a.GetFileAttributes(ctx, path)
}

// FileSize returns the attributes of path with the size populated.
func (a *Adapter) FileSize(ctx context.Context, path string) (FileAttributes, error) {
	return a.GetFileAttributes(ctx, path)
}

// ListContents is not supported.
func (a *Adapter) ListContents(ctx context.Context, path string, deep bool) ([]FileAttributes, error) {
	return nil, fmt.Errorf("list contents of %q: %w", path, ErrNotImplemented)
}

// Copy copies source to destination within the bucket.
func (a *Adapter) Copy(ctx context.Context, source, destination string, opts ...CallOption) error {
	co := collectCallOptions(opts)
	src, dst := a.key(source, co), a.key(destination, co)
	if err := a.store.Copy(ctx, a.config.Bucket, src, a.config.Bucket, dst, co.object); err != nil {
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return nil
}

// Move copies source to destination and then deletes source. If the delete
// fails the object exists at both paths and the error is returned.
func (a *Adapter) Move(ctx context.Context, source, destination string, opts ...CallOption) error {
	if err := a.Copy(ctx, source, destination, opts...); err != nil {
		return err
	}
	if err := a.Delete(ctx, source, opts...); err != nil {
		a.logger.Warn("move left source in place", "source", source, "destination", destination, "err", err)
		return fmt.Errorf("failed to move %s to %s: %w", source, destination, err)
	}
	return nil
}
