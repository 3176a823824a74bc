// Package s3 implements simpleoss.ObjectStore on S3-compatible services
// (AWS S3, MinIO), mapping OSS ACLs and forbid-overwrite onto S3 features.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"github.com/tendant/simple-oss/pkg/simpleoss"
)

const (
	backendName   = "s3"
	allUsersURI   = "http://acs.amazonaws.com/groups/global/AllUsers"
	ossMetaPrefix = "x-oss-meta-"
)

// Config options for the S3 backend
type Config struct {
	Region          string // AWS region
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	SessionToken    string // Optional STS session token
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (default: false)

	// Server-side encryption options
	EnableSSE    bool   // Enable server-side encryption
	SSEAlgorithm string // SSE algorithm (AES256 or aws:kms)
	SSEKMSKeyID  string // Optional KMS key ID for aws:kms algorithm

	// MinIO/S3-compatible service options
	CreateBucketIfNotExist string // Bucket to create on startup if it doesn't exist
}

// Backend is an S3-compatible implementation of simpleoss.ObjectStore
type Backend struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	uploader      *manager.Uploader
	config        Config
}

var _ simpleoss.ObjectStore = (*Backend)(nil)

// New creates a new S3-compatible storage backend
func New(config Config) (*Backend, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(config.Region)}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, config.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Options...)
	backend := &Backend{
		client:        client,
		presignClient: s3.NewPresignClient(client),
		uploader:      manager.NewUploader(client),
		config:        config,
	}

	if config.CreateBucketIfNotExist != "" {
		if err := backend.createBucketIfNotExists(context.Background(), config.CreateBucketIfNotExist); err != nil {
			return nil, fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	return backend, nil
}

// NewFromConfig is a simpleoss.StoreFactory. A custom endpoint without a
// scheme gets https and path-style addressing.
func NewFromConfig(cfg simpleoss.Config) (simpleoss.ObjectStore, error) {
	endpoint := cfg.Endpoint
	if endpoint != "" && !strings.Contains(endpoint, "://") {
		endpoint = "https://" + endpoint
	}
	return New(Config{
		Region:          cfg.Region(),
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.AccessKeySecret,
		SessionToken:    cfg.SecurityToken,
		Endpoint:        endpoint,
		UsePathStyle:    endpoint != "",
	})
}

func (b *Backend) createBucketIfNotExists(ctx context.Context, bucket string) error {
	_, err := b.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(bucket)})
	if err == nil {
		return nil
	}
	if httpStatus(err) != http.StatusNotFound && !hasCode(err, "NoSuchBucket", "NotFound") {
		return fmt.Errorf("failed to check bucket: %w", err)
	}

	input := &s3.CreateBucketInput{Bucket: aws.String(bucket)}
	if b.config.Region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.config.Region),
		}
	}
	if _, err := b.client.CreateBucket(ctx, input); err != nil {
		if hasCode(err, "BucketAlreadyExists", "BucketAlreadyOwnedByYou") {
			return nil
		}
		return err
	}
	return nil
}

func httpStatus(err error) int {
	var re interface{ HTTPStatusCode() int }
	if errors.As(err, &re) {
		return re.HTTPStatusCode()
	}
	return 0
}

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}

// wrapError maps SDK errors onto *simpleoss.StorageError. A failed
// If-None-Match precondition becomes 409, matching OSS forbid-overwrite.
func wrapError(op, bucket, key string, err error) error {
	serr := &simpleoss.StorageError{Backend: backendName, Bucket: bucket, Key: key, Op: op, Err: err, StatusCode: httpStatus(err)}

	var noSuchKey *types.NoSuchKey
	var notFound *types.NotFound
	switch {
	case errors.As(err, &noSuchKey), errors.As(err, &notFound), serr.StatusCode == http.StatusNotFound:
		serr.StatusCode = http.StatusNotFound
		serr.Err = fmt.Errorf("%w: %w", simpleoss.ErrObjectNotFound, err)
	case serr.StatusCode == http.StatusPreconditionFailed, hasCode(err, "PreconditionFailed"):
		serr.StatusCode = http.StatusConflict
	}
	return serr
}

func (b *Backend) applySSE(input *s3.PutObjectInput) {
	if !b.config.EnableSSE {
		return
	}
	switch b.config.SSEAlgorithm {
	case "AES256":
		input.ServerSideEncryption = types.ServerSideEncryptionAes256
	case "aws:kms":
		input.ServerSideEncryption = types.ServerSideEncryptionAwsKms
		if b.config.SSEKMSKeyID != "" {
			input.SSEKMSKeyId = aws.String(b.config.SSEKMSKeyID)
		}
	}
}

// cannedACL maps an OSS ACL onto an S3 canned ACL. S3 objects have no
// inherit-from-bucket ACL, so default becomes private.
func cannedACL(acl simpleoss.ACL) types.ObjectCannedACL {
	switch acl {
	case simpleoss.ACLPublicRead:
		return types.ObjectCannedACLPublicRead
	case simpleoss.ACLPublicReadWrite:
		return types.ObjectCannedACLPublicReadWrite
	default:
		return types.ObjectCannedACLPrivate
	}
}

// aclFromGrants reads AllUsers grants back into an OSS ACL.
func aclFromGrants(grants []types.Grant) simpleoss.ACL {
	read, write := false, false
	for _, g := range grants {
		if g.Grantee == nil || aws.ToString(g.Grantee.URI) != allUsersURI {
			continue
		}
		switch g.Permission {
		case types.PermissionRead:
			read = true
		case types.PermissionWrite:
			write = true
		case types.PermissionFullControl:
			read, write = true, true
		}
	}
	switch {
	case read && write:
		return simpleoss.ACLPublicReadWrite
	case read:
		return simpleoss.ACLPublicRead
	default:
		return simpleoss.ACLPrivate
	}
}

func (b *Backend) putInput(bucket, key string, body io.Reader, opts *simpleoss.ObjectOptions) *s3.PutObjectInput {
	input := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	b.applySSE(input)
	if opts == nil {
		return input
	}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if v, ok := opts.Header("x-oss-object-acl"); ok && v != "" {
		input.ACL = cannedACL(simpleoss.ACL(v))
	}
	if opts.ForbidOverwrite() {
		input.IfNoneMatch = aws.String("*")
	}
	for k, v := range opts.Headers {
		if lk := strings.ToLower(k); strings.HasPrefix(lk, ossMetaPrefix) {
			if input.Metadata == nil {
				input.Metadata = map[string]string{}
			}
			input.Metadata[strings.TrimPrefix(lk, ossMetaPrefix)] = v
		}
	}
	return input
}

// Exists reports whether the object exists
func (b *Backend) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := b.HeadMeta(ctx, bucket, key)
	if err == nil {
		return true, nil
	}
	if simpleoss.IsNotFound(err) {
		return false, nil
	}
	return false, err
}

// Put uploads content with the s3 manager uploader
func (b *Backend) Put(ctx context.Context, bucket, key string, body io.Reader, opts *simpleoss.ObjectOptions) error {
	if _, err := b.uploader.Upload(ctx, b.putInput(bucket, key, body, opts)); err != nil {
		return wrapError("put", bucket, key, err)
	}
	return nil
}

// Get downloads content directly from S3
func (b *Backend) Get(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) (io.ReadCloser, error) {
	result, err := b.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError("get", bucket, key, err)
	}
	return result.Body, nil
}

// Delete deletes the object. S3 deletes are idempotent.
func (b *Backend) Delete(ctx context.Context, bucket, key string) error {
	_, err := b.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return wrapError("delete", bucket, key, err)
	}
	return nil
}

// Copy performs a server-side copy
func (b *Backend) Copy(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string, opts *simpleoss.ObjectOptions) error {
	input := &s3.CopyObjectInput{
		Bucket:     aws.String(dstBucket),
		Key:        aws.String(dstKey),
		CopySource: aws.String(srcBucket + "/" + (&url.URL{Path: srcKey}).EscapedPath()),
	}
	if opts != nil && opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
		input.MetadataDirective = types.MetadataDirectiveReplace
	}
	if _, err := b.client.CopyObject(ctx, input); err != nil {
		return wrapError("copy", srcBucket, srcKey, err)
	}
	return nil
}

// HeadMeta retrieves metadata for an object
func (b *Backend) HeadMeta(ctx context.Context, bucket, key string) (*simpleoss.ObjectMeta, error) {
	result, err := b.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, wrapError("head", bucket, key, err)
	}

	meta := &simpleoss.ObjectMeta{
		Key:         key,
		Size:        aws.ToInt64(result.ContentLength),
		ContentType: aws.ToString(result.ContentType),
		ETag:        strings.Trim(aws.ToString(result.ETag), `"`),
	}
	if result.LastModified != nil {
		meta.LastModified = *result.LastModified
	}
	return meta, nil
}

// PutObjectACL applies the canned ACL matching acl
func (b *Backend) PutObjectACL(ctx context.Context, bucket, key string, acl simpleoss.ACL) error {
	_, err := b.client.PutObjectAcl(ctx, &s3.PutObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		ACL:    cannedACL(acl),
	})
	if err != nil {
		return wrapError("put_acl", bucket, key, err)
	}
	return nil
}

// GetObjectACL derives the OSS ACL from the object's AllUsers grants
func (b *Backend) GetObjectACL(ctx context.Context, bucket, key string) (simpleoss.ACL, error) {
	result, err := b.client.GetObjectAcl(ctx, &s3.GetObjectAclInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", wrapError("get_acl", bucket, key, err)
	}
	return aclFromGrants(result.Grants), nil
}

// GetBucketACL derives the OSS ACL from the bucket's AllUsers grants
func (b *Backend) GetBucketACL(ctx context.Context, bucket string) (simpleoss.ACL, error) {
	result, err := b.client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: aws.String(bucket)})
	if err != nil {
		return "", wrapError("get_bucket_acl", bucket, "", err)
	}
	return aclFromGrants(result.Grants), nil
}

// CreateDir puts an empty object at key
func (b *Backend) CreateDir(ctx context.Context, bucket, key string, opts *simpleoss.ObjectOptions) error {
	input := b.putInput(bucket, key, strings.NewReader(""), opts)
	if _, err := b.client.PutObject(ctx, input); err != nil {
		return wrapError("create_dir", bucket, key, err)
	}
	return nil
}

// SignURL returns a SigV4 presigned URL for GET, HEAD, PUT or DELETE.
// Query options such as x-oss-process have no S3 equivalent and are ignored.
func (b *Backend) SignURL(ctx context.Context, bucket, key string, ttl time.Duration, method string, opts *simpleoss.ObjectOptions) (string, error) {
	expires := func(o *s3.PresignOptions) { o.Expires = ttl }

	var (
		req *v4.PresignedHTTPRequest
		err error
	)
	switch strings.ToUpper(method) {
	case http.MethodGet:
		req, err = b.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}, expires)
	case http.MethodHead:
		req, err = b.presignClient.PresignHeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}, expires)
	case http.MethodPut:
		req, err = b.presignClient.PresignPutObject(ctx, b.putInput(bucket, key, nil, opts), expires)
	case http.MethodDelete:
		req, err = b.presignClient.PresignDeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucket), Key: aws.String(key)}, expires)
	default:
		err = fmt.Errorf("%w: method %s", simpleoss.ErrNotImplemented, method)
	}
	if err != nil {
		return "", wrapError("sign", bucket, key, err)
	}
	return req.URL, nil
}
