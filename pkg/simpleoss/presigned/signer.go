package presigned

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Query parameter names of an OSS V1 signed URL.
const (
	ParamAccessKeyID   = "OSSAccessKeyId"
	ParamExpires       = "Expires"
	ParamSignature     = "Signature"
	ParamSecurityToken = "security-token"
)

// Signer produces and checks OSS V1 style query signatures:
// Signature = base64(HMAC-SHA1(secret, StringToSign)).
type Signer struct {
	accessKeyID       string
	secretKey         []byte
	securityToken     string
	defaultExpiration time.Duration
	now               func() time.Time
}

// New creates a new Signer with the given options
func New(opts ...Option) *Signer {
	s := &Signer{
		defaultExpiration: 1 * time.Hour,
		now:               time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// IsEnabled returns true if a secret key is configured
func (s *Signer) IsEnabled() bool {
	return len(s.secretKey) > 0
}

// AccessKeyID returns the access key id embedded in signed URLs.
func (s *Signer) AccessKeyID() string {
	return s.accessKeyID
}

// SignQuery returns the signature query parameters for method on bucket/key.
// headers holds request headers the client will send; Content-Type,
// Content-MD5 and x-oss-* headers take part in the signature.
func (s *Signer) SignQuery(method, bucket, key string, expiresIn time.Duration, headers map[string]string) (url.Values, error) {
	if !s.IsEnabled() {
		return nil, ErrNoSecretKey
	}
	if expiresIn <= 0 {
		expiresIn = s.defaultExpiration
	}

	expiresAt := s.now().Add(expiresIn).Unix()
	h := make(http.Header, len(headers))
	for k, v := range headers {
		h.Set(k, v)
	}

	q := url.Values{}
	q.Set(ParamAccessKeyID, s.accessKeyID)
	q.Set(ParamExpires, strconv.FormatInt(expiresAt, 10))
	if s.securityToken != "" {
		q.Set(ParamSecurityToken, s.securityToken)
	}
	q.Set(ParamSignature, s.signature(method, bucket, key, expiresAt, h, s.securityToken))
	return q, nil
}

// SignURL returns baseURL/key with signature parameters appended.
//
// Example:
//
//	url, err := signer.SignURL("https://b.oss-cn-hangzhou.aliyuncs.com", "GET", "b", "a.txt", time.Minute, nil)
//	// https://b.oss-cn-hangzhou.aliyuncs.com/a.txt?Expires=...&OSSAccessKeyId=...&Signature=...
func (s *Signer) SignURL(baseURL, method, bucket, key string, expiresIn time.Duration, headers map[string]string) (string, error) {
	q, err := s.SignQuery(method, bucket, key, expiresIn, headers)
	if err != nil {
		return "", err
	}
	path := (&url.URL{Path: key}).EscapedPath()
	return strings.TrimSuffix(baseURL, "/") + "/" + path + "?" + q.Encode(), nil
}

// ValidateRequest checks the signature of r against bucket/key.
func (s *Signer) ValidateRequest(r *http.Request, bucket, key string) error {
	return s.Validate(r.Method, bucket, key, r.URL.Query(), r.Header)
}

// Validate checks signature query parameters for method on bucket/key.
func (s *Signer) Validate(method, bucket, key string, query url.Values, headers http.Header) error {
	signature := query.Get(ParamSignature)
	expiresStr := query.Get(ParamExpires)

	if signature == "" {
		return ErrMissingSignature
	}
	if expiresStr == "" {
		return ErrMissingExpiration
	}
	expiresAt, err := strconv.ParseInt(expiresStr, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidExpiration, err)
	}
	if query.Get(ParamAccessKeyID) != s.accessKeyID {
		return ErrAccessKeyMismatch
	}
	if s.now().Unix() > expiresAt {
		return ErrExpired
	}

	expected := s.signature(method, bucket, key, expiresAt, headers, query.Get(ParamSecurityToken))
	if !hmac.Equal([]byte(signature), []byte(expected)) {
		return ErrInvalidSignature
	}
	return nil
}

// StringToSign builds the canonical string signed for a request:
// VERB \n Content-MD5 \n Content-Type \n Expires \n CanonicalizedOSSHeaders CanonicalizedResource
func StringToSign(method, bucket, key string, expiresAt int64, headers http.Header, securityToken string) string {
	var b strings.Builder
	b.WriteString(strings.ToUpper(method))
	b.WriteByte('\n')
	b.WriteString(headers.Get("Content-MD5"))
	b.WriteByte('\n')
	b.WriteString(headers.Get("Content-Type"))
	b.WriteByte('\n')
	b.WriteString(strconv.FormatInt(expiresAt, 10))
	b.WriteByte('\n')

	var ossHeaders []string
	for k := range headers {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "x-oss-") {
			ossHeaders = append(ossHeaders, lk)
		}
	}
	sort.Strings(ossHeaders)
	for _, k := range ossHeaders {
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(strings.TrimSpace(headers.Get(k)))
		b.WriteByte('\n')
	}

	b.WriteString("/" + bucket + "/" + key)
	if securityToken != "" {
		b.WriteString("?" + ParamSecurityToken + "=" + securityToken)
	}
	return b.String()
}

func (s *Signer) signature(method, bucket, key string, expiresAt int64, headers http.Header, securityToken string) string {
	h := hmac.New(sha1.New, s.secretKey)
	h.Write([]byte(StringToSign(method, bucket, key, expiresAt, headers, securityToken)))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
