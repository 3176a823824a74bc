package simpleoss

import (
	"context"
	"io"
	"time"
)

// ObjectStore is the object storage transport an Adapter forwards to.
// Every operation the adapter needs from the vendor SDK is listed here.
//
// Not-found failures must satisfy errors.Is(err, ErrObjectNotFound).
type ObjectStore interface {
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Put(ctx context.Context, bucket, key string, body io.Reader, opts *ObjectOptions) error
	Get(ctx context.Context, bucket, key string, opts *ObjectOptions) (io.ReadCloser, error)
	Delete(ctx context.Context, bucket, key string) error
	Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts *ObjectOptions) error
	HeadMeta(ctx context.Context, bucket, key string) (*ObjectMeta, error)
	PutObjectACL(ctx context.Context, bucket, key string, acl ACL) error
	GetObjectACL(ctx context.Context, bucket, key string) (ACL, error)
	GetBucketACL(ctx context.Context, bucket string) (ACL, error)
	CreateDir(ctx context.Context, bucket, key string, opts *ObjectOptions) error
	// SignURL returns an absolute URL for method on bucket/key, valid for ttl.
	SignURL(ctx context.Context, bucket, key string, ttl time.Duration, method string, opts *ObjectOptions) (string, error)
}

// StoreFactory builds an ObjectStore for a configuration.
type StoreFactory func(cfg Config) (ObjectStore, error)

// Fetcher downloads the body of a remote URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// FilesystemAdapter is the generic filesystem contract implemented by Adapter.
type FilesystemAdapter interface {
	FileExists(ctx context.Context, path string, opts ...CallOption) (bool, error)
	DirectoryExists(ctx context.Context, path string) (bool, error)
	Write(ctx context.Context, path string, contents []byte, opts ...CallOption) error
	WriteStream(ctx context.Context, path string, r io.Reader, opts ...CallOption) error
	Read(ctx context.Context, path string, opts ...CallOption) ([]byte, error)
	ReadStream(ctx context.Context, path string, opts ...CallOption) (io.ReadCloser, error)
	Delete(ctx context.Context, path string, opts ...CallOption) error
	DeleteDirectory(ctx context.Context, path string) error
	CreateDirectory(ctx context.Context, path string, opts ...CallOption) error
	SetVisibility(ctx context.Context, path string, visibility Visibility) error
	Visibility(ctx context.Context, path string) (FileAttributes, error)
	MimeType(ctx context.Context, path string) (FileAttributes, error)
	LastModified(ctx context.Context, path string) (FileAttributes, error)
	FileSize(ctx context.Context, path string) (FileAttributes, error)
	ListContents(ctx context.Context, path string, deep bool) ([]FileAttributes, error)
	Copy(ctx context.Context, source, destination string, opts ...CallOption) error
	Move(ctx context.Context, source, destination string, opts ...CallOption) error
}
