// Package aliyun implements simpleoss.ObjectStore on the Aliyun OSS Go SDK.
package aliyun

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/tendant/simple-oss/pkg/simpleoss"
)

const backendName = "aliyun"

// Config options for the Aliyun OSS backend
type Config struct {
	Endpoint        string // e.g. oss-cn-hangzhou.aliyuncs.com
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string // optional STS token
	IsCName         bool   // endpoint is a custom domain bound to the bucket
	RequestProxy    string // optional HTTP proxy
	ConnectTimeout  int64  // seconds, default 10
	ReadTimeout     int64  // seconds, default 20
}

// Backend is an Aliyun OSS implementation of simpleoss.ObjectStore
type Backend struct {
	client *oss.Client

	mu      sync.Mutex
	buckets map[string]*oss.Bucket
}

var _ simpleoss.ObjectStore = (*Backend)(nil)

// New creates an OSS client. No request is made until the first operation.
func New(config Config) (*Backend, error) {
	if config.Endpoint == "" {
		return nil, errors.New("endpoint is required")
	}
	if config.ConnectTimeout == 0 {
		config.ConnectTimeout = 10
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = 20
	}

	options := []oss.ClientOption{
		oss.UseCname(config.IsCName),
		oss.Timeout(config.ConnectTimeout, config.ReadTimeout),
	}
	if config.SecurityToken != "" {
		options = append(options, oss.SecurityToken(config.SecurityToken))
	}
	if config.RequestProxy != "" {
		options = append(options, oss.Proxy(config.RequestProxy))
	}

	client, err := oss.New(config.Endpoint, config.AccessKeyID, config.AccessKeySecret, options...)
	if err != nil {
		return nil, fmt.Errorf("oss init client failed: %w", err)
	}

	return &Backend{
		client:  client,
		buckets: make(map[string]*oss.Bucket),
	}, nil
}

// NewFromConfig is a simpleoss.StoreFactory.
func NewFromConfig(cfg simpleoss.Config) (simpleoss.ObjectStore, error) {
	return New(Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
		SecurityToken:   cfg.SecurityToken,
		IsCName:         cfg.IsCName,
		RequestProxy:    cfg.RequestProxy,
	})
}

// Client returns the underlying SDK client.
func (b *Backend) Client() *oss.Client {
	return b.client
}

func (b *Backend) bucket(op, name, key string) (*oss.Bucket, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if bkt, ok := b.buckets[name]; ok {
		return bkt, nil
	}
	bkt, err := b.client.Bucket(name)
	if err != nil {
		return nil, wrapError(op, name, key, err)
	}
	b.buckets[name] = bkt
	return bkt, nil
}

// wrapError turns an SDK error into a *simpleoss.StorageError carrying the
// OSS status code. A 404 also matches simpleoss.ErrObjectNotFound.
func wrapError(op, bucket, key string, err error) error {
	serr := &simpleoss.StorageError{Backend: backendName, Bucket: bucket, Key: key, Op: op, Err: err}

	var svc oss.ServiceError
	if errors.As(err, &svc) {
		serr.StatusCode = svc.StatusCode
		if svc.StatusCode == http.StatusNotFound {
			serr.Err = fmt.Errorf("%w: %w", simpleoss.ErrObjectNotFound, err)
		}
	}
	return serr
}

// requestOptions converts object options into SDK options.
func requestOptions(ctx context.Context, opts *simpleoss.ObjectOptions) []oss.Option {
	options := []oss.Option{oss.WithContext(ctx)}
	if opts == nil {
		return options
	}
	if opts.ContentType != "" {
		options = append(options, oss.ContentType(opts.ContentType))
	}
	for k, v := range opts.Headers {
		options = append(options, oss.SetHeader(k, v))
	}
	for k, v := range opts.Query {
		options = append(options, oss.AddParam(k, v))
	}
	return options
}

// Exists reports whether the object exists
func (b *Backend) Exists(ctx context.Context, bucket, key string) (bool, error) {
	bkt, err := b.bucket("exists", bucket, key)
	if err != nil {
		return false, err
	}
	ok, err := bkt.IsObjectExist(key, oss.WithContext(ctx))
	if err != nil {
		return false, wrapError("exists", bucket, key, err)
	}
	return ok, nil
}

// Put uploads body. A forbid-overwrite header on an existing key fails with 409.
func (b *Backend) Put(ctx context.Context, bucket, key string, body io.Reader, opts *simpleoss.ObjectOptions) error {
	bkt, err := b.bucket("put", bucket, key)
	if err != nil {
		return err
	}
	if err := bkt.PutObject(key, body, requestOptions(ctx, opts)...); err != nil {
		return wrapError("put", bucket, key, err)
	}
	return nil
}

// Get returns the object body
func (b *Backend) Get(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) (io.ReadCloser, error) {
	bkt, err := b.bucket("get", bucket, key)
	if err != nil {
		return nil, err
	}
	rc, err := bkt.GetObject(key, requestOptions(ctx, opts)...)
	if err != nil {
		return nil, wrapError("get", bucket, key, err)
	}
	return rc, nil
}

// Delete deletes the object
func (b *Backend) Delete(ctx context.Context, bucket, key string) error {
	bkt, err := b.bucket("delete", bucket, key)
	if err != nil {
		return err
	}
	if err := bkt.DeleteObject(key, oss.WithContext(ctx)); err != nil {
		return wrapError("delete", bucket, key, err)
	}
	return nil
}

// Copy copies srcBucket/srcKey to dstBucket/dstKey
func (b *Backend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts *simpleoss.ObjectOptions) error {
	dst, err := b.bucket("copy", dstBucket, dstKey)
	if err != nil {
		return err
	}
	options := requestOptions(ctx, opts)
	if srcBucket == dstBucket {
		_, err = dst.CopyObject(srcKey, dstKey, options...)
	} else {
		_, err = dst.CopyObjectFrom(srcBucket, srcKey, dstKey, options...)
	}
	if err != nil {
		return wrapError("copy", srcBucket, srcKey, err)
	}
	return nil
}

// HeadMeta returns object metadata from a HEAD request
func (b *Backend) HeadMeta(ctx context.Context, bucket, key string) (*simpleoss.ObjectMeta, error) {
	bkt, err := b.bucket("head", bucket, key)
	if err != nil {
		return nil, err
	}
	header, err := bkt.GetObjectDetailedMeta(key, oss.WithContext(ctx))
	if err != nil {
		return nil, wrapError("head", bucket, key, err)
	}
	return metaFromHeader(key, header), nil
}

func metaFromHeader(key string, header http.Header) *simpleoss.ObjectMeta {
	meta := &simpleoss.ObjectMeta{
		Key:         key,
		ContentType: header.Get("Content-Type"),
		ETag:        strings.Trim(header.Get("ETag"), `"`),
	}
	if size, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64); err == nil {
		meta.Size = size
	}
	if t, err := http.ParseTime(header.Get("Last-Modified")); err == nil {
		meta.LastModified = t
	}
	return meta
}

// PutObjectACL sets the object ACL
func (b *Backend) PutObjectACL(ctx context.Context, bucket, key string, acl simpleoss.ACL) error {
	bkt, err := b.bucket("put_acl", bucket, key)
	if err != nil {
		return err
	}
	if err := bkt.SetObjectACL(key, oss.ACLType(acl), oss.WithContext(ctx)); err != nil {
		return wrapError("put_acl", bucket, key, err)
	}
	return nil
}

// GetObjectACL returns the object ACL, "default" when it inherits the bucket ACL
func (b *Backend) GetObjectACL(ctx context.Context, bucket, key string) (simpleoss.ACL, error) {
	bkt, err := b.bucket("get_acl", bucket, key)
	if err != nil {
		return "", err
	}
	result, err := bkt.GetObjectACL(key, oss.WithContext(ctx))
	if err != nil {
		return "", wrapError("get_acl", bucket, key, err)
	}
	return simpleoss.ACL(result.ACL), nil
}

// GetBucketACL returns the bucket ACL
func (b *Backend) GetBucketACL(ctx context.Context, bucket string) (simpleoss.ACL, error) {
	result, err := b.client.GetBucketACL(bucket, oss.WithContext(ctx))
	if err != nil {
		return "", wrapError("get_bucket_acl", bucket, "", err)
	}
	return simpleoss.ACL(result.ACL), nil
}

// CreateDir puts an empty object at key, which should end with "/"
func (b *Backend) CreateDir(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) error {
	return b.Put(ctx, bucket, key, strings.NewReader(""), opts)
}

// SignURL signs a URL locally; no request is made.
func (b *Backend) SignURL(ctx context.Context, bucket, key string, ttl time.Duration, method string, opts *simpleoss.ObjectOptions) (string, error) {
	bkt, err := b.bucket("sign", bucket, key)
	if err != nil {
		return "", err
	}
	expires := int64(ttl / time.Second)
	if expires <= 0 {
		expires = 1
	}

	var options []oss.Option
	if opts != nil {
		if opts.ContentType != "" {
			options = append(options, oss.ContentType(opts.ContentType))
		}
		for k, v := range opts.Headers {
			options = append(options, oss.SetHeader(k, v))
		}
		for k, v := range opts.Query {
			options = append(options, oss.AddParam(k, v))
		}
	}

	signed, err := bkt.SignURL(key, oss.HTTPMethod(strings.ToUpper(method)), expires, options...)
	if err != nil {
		return "", wrapError("sign", bucket, key, err)
	}
	return signed, nil
}
