package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	"github.com/tendant/simple-oss/pkg/simpleoss/objectkey"
	memorystorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/memory"
)

func setupRegistry(t *testing.T) (*simpleoss.Registry, *simpleoss.Adapter) {
	t.Helper()
	store := memorystorage.New(memorystorage.Config{
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
	})
	adapter, err := simpleoss.New(simpleoss.Config{
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		Bucket:          "test-bucket",
		CDNBaseURL:      "https://cdn.example.com",
		UploadBaseURL:   "https://upload.example.com",
	}, store)
	require.NoError(t, err)
	require.NoError(t, adapter.Write(context.Background(), "test/abc.txt", []byte("hello")))

	registry := simpleoss.NewRegistry("")
	registry.Register("oss", adapter)
	return registry, adapter
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, target string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var req *http.Request
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	return rr, env
}

func TestMeta(t *testing.T) {
	registry, _ := setupRegistry(t)
	h := NewHandlers(registry).Routes()

	t.Run("existing object", func(t *testing.T) {
		rr, env := do(t, h, http.MethodPost, "/meta", MetaRequest{URL: "https://cdn.example.com/test/abc.txt"})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 200, env.Code)
		assert.Equal(t, "ok", env.Message)

		var data MetaData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		require.NotNil(t, data.MimeType)
		assert.Equal(t, "text/plain", *data.MimeType)
		require.NotNil(t, data.Size)
		assert.Equal(t, int64(5), *data.Size)
		assert.Equal(t, 200, data.Status)
	})

	t.Run("missing object", func(t *testing.T) {
		rr, env := do(t, h, http.MethodPost, "/meta", MetaRequest{URL: "https://cdn.example.com/nope.txt", Client: "oss"})
		require.Equal(t, http.StatusOK, rr.Code)

		var data MetaData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Nil(t, data.MimeType)
		assert.Nil(t, data.Size)
		assert.Equal(t, 404, data.Status)
	})

	t.Run("form body", func(t *testing.T) {
		form := url.Values{"url": {"https://cdn.example.com/test/abc.txt"}}
		req := httptest.NewRequest(http.MethodPost, "/meta", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Body.String(), `"size":5`)
	})

	t.Run("invalid url", func(t *testing.T) {
		rr, env := do(t, h, http.MethodPost, "/meta", MetaRequest{URL: "not a url"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, 400, env.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		rr, env := do(t, h, http.MethodPost, "/meta", MetaRequest{URL: "https://cdn.example.com/a.txt", Client: "nope"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "The client is not recognized!", env.Message)
	})
}

func TestUploadURL(t *testing.T) {
	registry, adapter := setupRegistry(t)
	gen := objectkey.FuncGenerator(func(m *objectkey.KeyMetadata) string {
		return m.Prefix + "/ab/cdef/" + m.Suffix
	})
	h := NewHandlers(registry, WithKeyGenerator(gen)).Routes()

	rr, env := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Prefix: "avatars", Suffix: "a.jpg", Timeout: 300})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var data UploadURLData
	require.NoError(t, json.Unmarshal(env.Data, &data))
	assert.Equal(t, "avatars/ab/cdef/a.jpg", data.Path)
	assert.Equal(t, "https://cdn.example.com/avatars/ab/cdef/a.jpg", data.URL)
	assert.Equal(t, http.MethodPut, data.Method)
	assert.Equal(t, map[string]string{"x-oss-forbid-overwrite": "true"}, data.Headers)

	action, err := url.Parse(data.Action)
	require.NoError(t, err)
	assert.Equal(t, "upload.example.com", action.Host)
	assert.Equal(t, "/avatars/ab/cdef/a.jpg", action.Path)
	assert.NotEmpty(t, action.Query().Get("Signature"))

	t.Run("without cdn the direct url is returned", func(t *testing.T) {
		direct, err := adapter.WithConfig(func(c *simpleoss.Config) { c.CDNBaseURL = "" })
		require.NoError(t, err)
		registry.Register("direct", direct)

		_, env := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Prefix: "p", Suffix: "s", Client: "direct"})
		var data UploadURLData
		require.NoError(t, json.Unmarshal(env.Data, &data))
		assert.Equal(t, "https://test-bucket.oss-cn-hangzhou.aliyuncs.com/p/ab/cdef/s", data.URL)
	})

	t.Run("negative timeout", func(t *testing.T) {
		rr, _ := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Timeout: -1})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("unknown client", func(t *testing.T) {
		rr, _ := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Client: "nope"})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("generated keys differ", func(t *testing.T) {
		h := NewHandlers(registry).Routes()
		_, first := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Prefix: "p", Suffix: "s"})
		_, second := do(t, h, http.MethodPost, "/upload-url", UploadURLRequest{Prefix: "p", Suffix: "s"})
		var a, b UploadURLData
		require.NoError(t, json.Unmarshal(first.Data, &a))
		require.NoError(t, json.Unmarshal(second.Data, &b))
		assert.NotEqual(t, a.Path, b.Path)
		assert.True(t, strings.HasPrefix(a.Path, "p/"))
		assert.True(t, strings.HasSuffix(a.Path, "/s"))
	})
}

func TestClassify(t *testing.T) {
	registry, _ := setupRegistry(t)
	h := NewHandlers(registry).Routes()

	tests := []struct {
		url      string
		expected string
		bucket   bool
	}{
		{"https://cdn.example.com/a.jpg", "cdn", true},
		{"https://upload.example.com/a.jpg", "upload", true},
		{"https://test-bucket.oss-cn-hangzhou.aliyuncs.com/a.jpg", "oss", true},
		{"https://test-bucket.oss-cn-hangzhou-internal.aliyuncs.com/a.jpg", "oss_internal", true},
		{"https://example.org/a.jpg", "none", false},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			rr, env := do(t, h, http.MethodGet, "/classify?url="+url.QueryEscape(tt.url), nil)
			require.Equal(t, http.StatusOK, rr.Code)
			var data ClassifyData
			require.NoError(t, json.Unmarshal(env.Data, &data))
			assert.Equal(t, tt.expected, data.DomainType)
			assert.Equal(t, tt.bucket, data.IsBucketURL)
		})
	}

	t.Run("missing url", func(t *testing.T) {
		rr, _ := do(t, h, http.MethodGet, "/classify", nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}
