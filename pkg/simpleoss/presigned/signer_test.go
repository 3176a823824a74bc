package presigned_test

import (
	"net/http"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss/presigned"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestStringToSign(t *testing.T) {
	headers := http.Header{}
	headers.Set("Content-Type", "image/png")
	headers.Set("X-Oss-Meta-B", " two ")
	headers.Set("X-Oss-Forbid-Overwrite", "true")

	got := presigned.StringToSign("put", "bkt", "a/b.png", 1700000000, headers, "")
	want := "PUT\n\nimage/png\n1700000000\n" +
		"x-oss-forbid-overwrite:true\n" +
		"x-oss-meta-b:two\n" +
		"/bkt/a/b.png"
	assert.Equal(t, want, got)

	withToken := presigned.StringToSign("GET", "bkt", "k", 1, http.Header{}, "tok")
	assert.Equal(t, "GET\n\n\n1\n/bkt/k?security-token=tok", withToken)
}

func TestSigner(t *testing.T) {
	now := time.Unix(1700000000, 0)
	signer := presigned.New(
		presigned.WithCredentials("ak", "sk"),
		presigned.WithClock(fixedClock(now)),
	)

	t.Run("disabled without secret", func(t *testing.T) {
		_, err := presigned.New().SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		assert.ErrorIs(t, err, presigned.ErrNoSecretKey)
	})

	t.Run("query parameters", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		require.NoError(t, err)
		assert.Equal(t, "ak", q.Get(presigned.ParamAccessKeyID))
		assert.Equal(t, strconv.FormatInt(now.Add(time.Minute).Unix(), 10), q.Get(presigned.ParamExpires))
		assert.NotEmpty(t, q.Get(presigned.ParamSignature))
		assert.Empty(t, q.Get(presigned.ParamSecurityToken))
	})

	t.Run("default expiration", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodGet, "b", "k", 0, nil)
		require.NoError(t, err)
		assert.Equal(t, strconv.FormatInt(now.Add(time.Hour).Unix(), 10), q.Get(presigned.ParamExpires))
	})

	t.Run("SignURL escapes key", func(t *testing.T) {
		signed, err := signer.SignURL("https://b.oss-cn-hangzhou.aliyuncs.com/", http.MethodGet, "b", "dir/my file.txt", time.Minute, nil)
		require.NoError(t, err)
		u, err := url.Parse(signed)
		require.NoError(t, err)
		assert.Equal(t, "b.oss-cn-hangzhou.aliyuncs.com", u.Host)
		assert.Equal(t, "/dir/my%20file.txt", u.EscapedPath())
	})

	t.Run("round trip", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		require.NoError(t, err)
		assert.NoError(t, signer.Validate(http.MethodGet, "b", "k", q, http.Header{}))
	})

	t.Run("signed headers must be sent", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodPut, "b", "k", time.Minute, map[string]string{"x-oss-forbid-overwrite": "true"})
		require.NoError(t, err)

		assert.ErrorIs(t, signer.Validate(http.MethodPut, "b", "k", q, http.Header{}), presigned.ErrInvalidSignature)

		h := http.Header{}
		h.Set("x-oss-forbid-overwrite", "true")
		assert.NoError(t, signer.Validate(http.MethodPut, "b", "k", q, h))
	})

	t.Run("validation failures", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		require.NoError(t, err)

		tests := []struct {
			name   string
			mutate func(url.Values)
			method string
			key    string
			want   error
		}{
			{"missing signature", func(v url.Values) { v.Del(presigned.ParamSignature) }, http.MethodGet, "k", presigned.ErrMissingSignature},
			{"missing expires", func(v url.Values) { v.Del(presigned.ParamExpires) }, http.MethodGet, "k", presigned.ErrMissingExpiration},
			{"invalid expires", func(v url.Values) { v.Set(presigned.ParamExpires, "soon") }, http.MethodGet, "k", presigned.ErrInvalidExpiration},
			{"wrong key id", func(v url.Values) { v.Set(presigned.ParamAccessKeyID, "other") }, http.MethodGet, "k", presigned.ErrAccessKeyMismatch},
			{"tampered expires", func(v url.Values) { v.Set(presigned.ParamExpires, "1700009999") }, http.MethodGet, "k", presigned.ErrInvalidSignature},
			{"wrong method", func(url.Values) {}, http.MethodPut, "k", presigned.ErrInvalidSignature},
			{"wrong key", func(url.Values) {}, http.MethodGet, "other", presigned.ErrInvalidSignature},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				v := url.Values{}
				for k, vals := range q {
					v[k] = append([]string(nil), vals...)
				}
				tt.mutate(v)
				err := signer.Validate(tt.method, "b", tt.key, v, http.Header{})
				assert.ErrorIs(t, err, tt.want)
				assert.True(t, presigned.IsAuthError(err))
			})
		}
	})

	t.Run("expired", func(t *testing.T) {
		q, err := signer.SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		require.NoError(t, err)

		later := presigned.New(
			presigned.WithCredentials("ak", "sk"),
			presigned.WithClock(fixedClock(now.Add(2*time.Minute))),
		)
		assert.ErrorIs(t, later.Validate(http.MethodGet, "b", "k", q, http.Header{}), presigned.ErrExpired)
	})

	t.Run("security token is signed", func(t *testing.T) {
		sts := presigned.New(
			presigned.WithCredentials("ak", "sk"),
			presigned.WithSecurityToken("tok"),
			presigned.WithClock(fixedClock(now)),
		)
		q, err := sts.SignQuery(http.MethodGet, "b", "k", time.Minute, nil)
		require.NoError(t, err)
		assert.Equal(t, "tok", q.Get(presigned.ParamSecurityToken))
		assert.NoError(t, sts.Validate(http.MethodGet, "b", "k", q, http.Header{}))

		q.Set(presigned.ParamSecurityToken, "forged")
		assert.ErrorIs(t, sts.Validate(http.MethodGet, "b", "k", q, http.Header{}), presigned.ErrInvalidSignature)
	})
}
