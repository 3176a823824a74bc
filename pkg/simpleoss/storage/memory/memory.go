package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/presigned"
)

const backendName = "memory"

// ErrObjectExists is returned by a forbid-overwrite PUT on an existing key.
var ErrObjectExists = errors.New("object already exists")

// Config options for the memory backend
type Config struct {
	// Endpoint is the OSS endpoint the signed URLs pretend to use,
	// e.g. "oss-cn-hangzhou.aliyuncs.com".
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	// BaseURL switches signed URLs to path style: {BaseURL}/{bucket}/{key}.
	// Point it at a server mounting presigned.Handlers for this backend.
	BaseURL string
	// BucketACL is the ACL of buckets without an explicit one. Default private.
	BucketACL simpleoss.ACL
}

type object struct {
	data        []byte
	contentType string
	acl         simpleoss.ACL
	modified    time.Time
	etag        string
}

// Backend is an in-memory simpleoss.ObjectStore with OSS V1 URL signing.
type Backend struct {
	mu         sync.RWMutex
	buckets    map[string]map[string]*object
	bucketACLs map[string]simpleoss.ACL
	config     Config
	signer     *presigned.Signer
	now        func() time.Time
}

var _ simpleoss.ObjectStore = (*Backend)(nil)

// New creates a new in-memory storage backend
func New(config Config) *Backend {
	if config.Endpoint == "" {
		config.Endpoint = "oss-cn-hangzhou.aliyuncs.com"
	}
	if config.AccessKeyID == "" {
		config.AccessKeyID = "memory"
	}
	if config.AccessKeySecret == "" {
		config.AccessKeySecret = "memory-secret"
	}
	if config.BucketACL == "" {
		config.BucketACL = simpleoss.ACLPrivate
	}

	return &Backend{
		buckets:    make(map[string]map[string]*object),
		bucketACLs: make(map[string]simpleoss.ACL),
		config:     config,
		signer: presigned.New(
			presigned.WithCredentials(config.AccessKeyID, config.AccessKeySecret),
			presigned.WithSecurityToken(config.SecurityToken),
		),
		now: time.Now,
	}
}

// NewFromConfig is a simpleoss.StoreFactory building a memory backend from
// adapter credentials.
func NewFromConfig(cfg simpleoss.Config) (simpleoss.ObjectStore, error) {
	return New(Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
		SecurityToken:   cfg.SecurityToken,
	}), nil
}

// Signer returns the signer used for URLs, to validate them when serving.
func (b *Backend) Signer() *presigned.Signer {
	return b.signer
}

// SetBucketACL sets the ACL of a bucket.
func (b *Backend) SetBucketACL(bucket string, acl simpleoss.ACL) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.bucketACLs[bucket] = acl
}

func notFound(op, bucket, key string) error {
	return &simpleoss.StorageError{
		Backend:    backendName,
		Bucket:     bucket,
		Key:        key,
		Op:         op,
		StatusCode: http.StatusNotFound,
		Err:        simpleoss.ErrObjectNotFound,
	}
}

func (b *Backend) lookup(bucket, key string) (*object, bool) {
	objs, ok := b.buckets[bucket]
	if !ok {
		return nil, false
	}
	obj, ok := objs[key]
	return obj, ok
}

func (b *Backend) store(bucket, key string, obj *object) {
	objs, ok := b.buckets[bucket]
	if !ok {
		objs = make(map[string]*object)
		b.buckets[bucket] = objs
	}
	objs[key] = obj
}

// Exists reports whether the object exists
func (b *Backend) Exists(ctx context.Context, bucket, key string) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.lookup(bucket, key)
	return ok, nil
}

// Put stores the content of body
func (b *Backend) Put(ctx context.Context, bucket, key string, body io.Reader, opts *simpleoss.ObjectOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return &simpleoss.StorageError{Backend: backendName, Bucket: bucket, Key: key, Op: "put", Err: err}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.lookup(bucket, key); exists && opts.ForbidOverwrite() {
		return &simpleoss.StorageError{
			Backend:    backendName,
			Bucket:     bucket,
			Key:        key,
			Op:         "put",
			StatusCode: http.StatusConflict,
			Err:        ErrObjectExists,
		}
	}

	b.store(bucket, key, b.newObject(data, opts))
	return nil
}

func (b *Backend) newObject(data []byte, opts *simpleoss.ObjectOptions) *object {
	contentType := "application/octet-stream"
	acl := simpleoss.ACLDefault
	if opts != nil {
		if opts.ContentType != "" {
			contentType = opts.ContentType
		}
		if v, ok := opts.Header("x-oss-object-acl"); ok && v != "" {
			acl = simpleoss.ACL(v)
		}
	}
	sum := md5.Sum(data)
	return &object{
		data:        data,
		contentType: contentType,
		acl:         acl,
		modified:    b.now().UTC().Truncate(time.Second),
		etag:        strings.ToUpper(hex.EncodeToString(sum[:])),
	}
}

// Get returns a reader over a copy of the object content
func (b *Backend) Get(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) (io.ReadCloser, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.lookup(bucket, key)
	if !ok {
		return nil, notFound("get", bucket, key)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(obj.data))), nil
}

// Delete deletes the object. Deleting a missing object is not an error.
func (b *Backend) Delete(ctx context.Context, bucket, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if objs, ok := b.buckets[bucket]; ok {
		delete(objs, key)
	}
	return nil
}

// Copy copies an object, possibly across buckets
func (b *Backend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts *simpleoss.ObjectOptions) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	src, ok := b.lookup(srcBucket, srcKey)
	if !ok {
		return notFound("copy", srcBucket, srcKey)
	}
	if _, exists := b.lookup(dstBucket, dstKey); exists && opts.ForbidOverwrite() {
		return &simpleoss.StorageError{
			Backend:    backendName,
			Bucket:     dstBucket,
			Key:        dstKey,
			Op:         "copy",
			StatusCode: http.StatusConflict,
			Err:        ErrObjectExists,
		}
	}

	copyOpts := opts.Clone()
	if copyOpts == nil {
		copyOpts = &simpleoss.ObjectOptions{}
	}
	if copyOpts.ContentType == "" {
		copyOpts.ContentType = src.contentType
	}
	b.store(dstBucket, dstKey, b.newObject(bytes.Clone(src.data), copyOpts))
	return nil
}

// HeadMeta returns object metadata
func (b *Backend) HeadMeta(ctx context.Context, bucket, key string) (*simpleoss.ObjectMeta, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.lookup(bucket, key)
	if !ok {
		return nil, notFound("head", bucket, key)
	}
	return &simpleoss.ObjectMeta{
		Key:          key,
		Size:         int64(len(obj.data)),
		ContentType:  obj.contentType,
		LastModified: obj.modified,
		ETag:         obj.etag,
	}, nil
}

// PutObjectACL sets the ACL of an existing object
func (b *Backend) PutObjectACL(ctx context.Context, bucket, key string, acl simpleoss.ACL) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	obj, ok := b.lookup(bucket, key)
	if !ok {
		return notFound("put_acl", bucket, key)
	}
	obj.acl = acl
	return nil
}

// GetObjectACL returns the ACL of an object, "default" when it inherits the bucket ACL
func (b *Backend) GetObjectACL(ctx context.Context, bucket, key string) (simpleoss.ACL, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, ok := b.lookup(bucket, key)
	if !ok {
		return "", notFound("get_acl", bucket, key)
	}
	return obj.acl, nil
}

// GetBucketACL returns the ACL of a bucket
func (b *Backend) GetBucketACL(ctx context.Context, bucket string) (simpleoss.ACL, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if acl, ok := b.bucketACLs[bucket]; ok {
		return acl, nil
	}
	return b.config.BucketACL, nil
}

// CreateDir stores an empty directory marker object
func (b *Backend) CreateDir(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) error {
	return b.Put(ctx, bucket, key, bytes.NewReader(nil), opts)
}

// SignURL signs method on bucket/key. URLs are virtual-hosted on the
// endpoint unless Config.BaseURL is set.
func (b *Backend) SignURL(ctx context.Context, bucket, key string, ttl time.Duration, method string, opts *simpleoss.ObjectOptions) (string, error) {
	headers := map[string]string{}
	var extra url.Values
	if opts != nil {
		if opts.ContentType != "" {
			headers["Content-Type"] = opts.ContentType
		}
		for k, v := range opts.Headers {
			headers[k] = v
		}
		if len(opts.Query) > 0 {
			extra = url.Values{}
			for k, v := range opts.Query {
				extra.Set(k, v)
			}
		}
	}

	signed, err := b.signer.SignURL(b.bucketURL(bucket), method, bucket, key, ttl, headers)
	if err != nil {
		return "", &simpleoss.StorageError{Backend: backendName, Bucket: bucket, Key: key, Op: "sign", Err: err}
	}
	if extra != nil {
		signed += "&" + extra.Encode()
	}
	return signed, nil
}

func (b *Backend) bucketURL(bucket string) string {
	if b.config.BaseURL != "" {
		return strings.TrimSuffix(b.config.BaseURL, "/") + "/" + bucket
	}
	scheme, host := "https", b.config.Endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		scheme, host = host[:i], host[i+3:]
	}
	return scheme + "://" + bucket + "." + strings.TrimSuffix(host, "/")
}
