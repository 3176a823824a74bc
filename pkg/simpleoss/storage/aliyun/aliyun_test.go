package aliyun

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/presigned"
)

func TestNew_RequiresEndpoint(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestWrapError(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		err := wrapError("head", "b", "k", oss.ServiceError{StatusCode: http.StatusNotFound, Code: "NoSuchKey"})
		assert.True(t, simpleoss.IsNotFound(err))
		assert.ErrorIs(t, err, simpleoss.ErrObjectNotFound)
		assert.Equal(t, http.StatusNotFound, simpleoss.StatusCode(err))
	})

	t.Run("conflict", func(t *testing.T) {
		err := wrapError("put", "b", "k", oss.ServiceError{StatusCode: http.StatusConflict, Code: "FileAlreadyExists"})
		assert.False(t, simpleoss.IsNotFound(err))
		assert.Equal(t, http.StatusConflict, simpleoss.StatusCode(err))
	})

	t.Run("transport", func(t *testing.T) {
		err := wrapError("get", "b", "k", fmt.Errorf("dial tcp: timeout"))
		assert.False(t, simpleoss.IsNotFound(err))
		assert.Equal(t, 0, simpleoss.StatusCode(err))
	})
}

func TestMetaFromHeader(t *testing.T) {
	header := http.Header{}
	header.Set("Content-Type", "image/png")
	header.Set("Content-Length", "1234")
	header.Set("ETag", `"ABC"`)
	header.Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")

	meta := metaFromHeader("a.png", header)
	assert.Equal(t, "a.png", meta.Key)
	assert.Equal(t, "image/png", meta.ContentType)
	assert.Equal(t, int64(1234), meta.Size)
	assert.Equal(t, "ABC", meta.ETag)
	assert.Equal(t, 2006, meta.LastModified.Year())
}

// Signing is local, so the SDK URL can be checked against the presigned
// package without network access.
func TestSignURL_MatchesPresignedSigner(t *testing.T) {
	backend, err := New(Config{
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
	})
	require.NoError(t, err)

	signed, err := backend.SignURL(context.Background(), "test-bucket", "dir/file.txt", time.Minute, http.MethodGet, nil)
	require.NoError(t, err)

	u, err := url.Parse(signed)
	require.NoError(t, err)
	assert.Equal(t, "test-bucket.oss-cn-hangzhou.aliyuncs.com", u.Host)
	assert.Equal(t, "/dir/file.txt", u.Path)
	assert.Equal(t, "ak", u.Query().Get(presigned.ParamAccessKeyID))

	signer := presigned.New(presigned.WithCredentials("ak", "sk"))
	assert.NoError(t, signer.Validate(http.MethodGet, "test-bucket", "dir/file.txt", u.Query(), http.Header{}))
}

func liveBackend(t *testing.T) (*Backend, string) {
	t.Helper()
	id, secret := os.Getenv("ALIOSS_ACCESS_KEY_ID"), os.Getenv("ALIOSS_ACCESS_KEY_SECRET")
	endpoint, bucket := os.Getenv("ALIOSS_ENDPOINT"), os.Getenv("ALIOSS_BUCKET")
	if id == "" || secret == "" || endpoint == "" || bucket == "" {
		t.Skip("ALIOSS_ACCESS_KEY_ID, ALIOSS_ACCESS_KEY_SECRET, ALIOSS_ENDPOINT and ALIOSS_BUCKET are required")
	}
	backend, err := New(Config{Endpoint: endpoint, AccessKeyID: id, AccessKeySecret: secret, SecurityToken: os.Getenv("ALIOSS_SECURITY_TOKEN")})
	require.NoError(t, err)
	return backend, bucket
}

func TestBackend_Live(t *testing.T) {
	backend, bucket := liveBackend(t)
	ctx := context.Background()
	key := fmt.Sprintf("simple-oss-test/%d.txt", time.Now().UnixNano())
	t.Cleanup(func() { _ = backend.Delete(ctx, bucket, key) })

	require.NoError(t, backend.Put(ctx, bucket, key, strings.NewReader("hello"), &simpleoss.ObjectOptions{ContentType: "text/plain"}))

	ok, err := backend.Exists(ctx, bucket, key)
	require.NoError(t, err)
	assert.True(t, ok)

	meta, err := backend.HeadMeta(ctx, bucket, key)
	require.NoError(t, err)
	assert.Equal(t, int64(5), meta.Size)

	rc, err := backend.Get(ctx, bucket, key, nil)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	rc.Close()
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	err = backend.Put(ctx, bucket, key, strings.NewReader("again"), simpleoss.ForbidOverwriteOptions())
	assert.Equal(t, http.StatusConflict, simpleoss.StatusCode(err))

	_, err = backend.HeadMeta(ctx, bucket, key+".missing")
	assert.True(t, simpleoss.IsNotFound(err))
}
