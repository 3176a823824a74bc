package simpleoss_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-oss/pkg/simpleoss"
	memorystorage "github.com/tendant/simple-oss/pkg/simpleoss/storage/memory"
)

func testConfig() simpleoss.Config {
	return simpleoss.Config{
		AccessKeyID:     "ak",
		AccessKeySecret: "sk",
		Endpoint:        "oss-cn-hangzhou.aliyuncs.com",
		Bucket:          "test-bucket",
		CDNBaseURL:      "https://cdn.example.com",
		UploadBaseURL:   "https://upload.example.com",
	}
}

func newTestAdapter(t *testing.T, mutate func(*simpleoss.Config), opts ...simpleoss.Option) (*simpleoss.Adapter, *memorystorage.Backend) {
	t.Helper()
	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	backend := memorystorage.New(memorystorage.Config{
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		AccessKeySecret: cfg.AccessKeySecret,
	})
	adapter, err := simpleoss.New(cfg, backend, opts...)
	require.NoError(t, err)
	return adapter, backend
}

func TestConfig_Region(t *testing.T) {
	tests := []struct {
		cfg  simpleoss.Config
		want string
	}{
		{simpleoss.Config{RegionID: "cn-beijing", Endpoint: "oss-cn-hangzhou.aliyuncs.com"}, "cn-beijing"},
		{simpleoss.Config{Endpoint: "oss-cn-hangzhou.aliyuncs.com"}, "cn-hangzhou"},
		{simpleoss.Config{Endpoint: "https://oss-cn-shanghai-internal.aliyuncs.com/"}, "cn-shanghai"},
		{simpleoss.Config{Endpoint: "files.example.com"}, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.Region(), tt.cfg.Endpoint)
	}
}

func TestAdapter_Domains(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)

	assert.Equal(t, "cdn.example.com", adapter.CDNDomain())
	assert.Equal(t, "upload.example.com", adapter.UploadDomain())
	assert.Equal(t, "test-bucket.oss-cn-hangzhou.aliyuncs.com", adapter.OSSOriginalDomain(false))
	assert.Equal(t, "test-bucket.oss-cn-hangzhou-internal.aliyuncs.com", adapter.OSSOriginalDomain(true))
}

func TestAdapter_Classify(t *testing.T) {
	adapter, _ := newTestAdapter(t, nil)

	tests := []struct {
		url  string
		want simpleoss.DomainType
	}{
		{"https://cdn.example.com/a.jpg", simpleoss.DomainCDN},
		{"http://CDN.EXAMPLE.COM/a.jpg", simpleoss.DomainCDN},
		{"https://upload.example.com/a.jpg", simpleoss.DomainUpload},
		{"https://test-bucket.oss-cn-hangzhou.aliyuncs.com/a.jpg", simpleoss.DomainOSS},
		{"https://test-bucket.oss-cn-hangzhou-internal.aliyuncs.com/a.jpg", simpleoss.DomainOSSInternal},
		{"https://cdn.example.com:443/x.png", simpleoss.DomainCDN},
		{"https://test-bucket.oss-cn-hangzhou.aliyuncs.com:443/x.png", simpleoss.DomainOSS},
		{"http://upload.example.com:8080/x.png", simpleoss.DomainUpload},
		{"https://other.example.com/a.jpg", simpleoss.DomainNone},
		{"cdn.example.com/a.jpg", simpleoss.DomainNone},
		{"", simpleoss.DomainNone},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, adapter.Classify(tt.url))
			assert.Equal(t, tt.want != simpleoss.DomainNone, adapter.IsBucketURL(tt.url))
		})
	}

	assert.Equal(t, "none", simpleoss.DomainNone.String())
	assert.Equal(t, "oss_internal", simpleoss.DomainOSSInternal.String())
}

func TestAdapter_ClassifyPriority(t *testing.T) {
	// cdn and upload share a host; cdn wins
	adapter, _ := newTestAdapter(t, func(c *simpleoss.Config) {
		c.UploadBaseURL = "https://cdn.example.com"
	})
	assert.Equal(t, simpleoss.DomainCDN, adapter.Classify("https://cdn.example.com/a.jpg"))
}

func TestAdapter_ClassifyWithoutDomains(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(c *simpleoss.Config) {
		c.CDNBaseURL = ""
		c.UploadBaseURL = ""
		c.Endpoint = "files.example.com"
	})
	assert.Equal(t, "", adapter.CDNDomain())
	assert.Equal(t, "", adapter.OSSOriginalDomain(false))
	assert.Equal(t, simpleoss.DomainNone, adapter.Classify("https://files.example.com/a.jpg"))
}

func TestAdapter_DomainsIgnorePort(t *testing.T) {
	adapter, _ := newTestAdapter(t, func(c *simpleoss.Config) {
		c.CDNBaseURL = "http://localhost:8080/storage/oss"
		c.UploadBaseURL = "upload.example.com:9000"
	})

	assert.Equal(t, "localhost", adapter.CDNDomain())
	assert.Equal(t, "upload.example.com", adapter.UploadDomain())
	assert.Equal(t, simpleoss.DomainCDN, adapter.Classify("http://localhost:8080/storage/oss/a.jpg"))
	assert.Equal(t, simpleoss.DomainCDN, adapter.Classify("http://localhost/a.jpg"))
	assert.Equal(t, simpleoss.DomainUpload, adapter.Classify("https://upload.example.com/a.jpg"))
}
