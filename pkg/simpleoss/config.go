package simpleoss

import (
	"regexp"
	"strings"
)

// Config is the connection and URL configuration of an Adapter.
// It is treated as an immutable value; use Adapter.WithConfig to derive a
// differently configured adapter.
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	Endpoint        string
	Bucket          string
	RegionID        string
	IsCName         bool
	SecurityToken   string
	RequestProxy    string
	Prefix          string
	ACL             ACL
	CDNBaseURL      string
	UploadBaseURL   string
}

var endpointRegion = regexp.MustCompile(`^oss-([a-z0-9-]+?)(-internal)?\.aliyuncs\.com$`)

// Region returns the configured region id, or the one encoded in an
// oss-<region>.aliyuncs.com endpoint.
func (c Config) Region() string {
	if c.RegionID != "" {
		return c.RegionID
	}
	host := c.Endpoint
	if i := strings.Index(host, "://"); i >= 0 {
		host = host[i+3:]
	}
	host = strings.TrimSuffix(host, "/")
	if m := endpointRegion.FindStringSubmatch(strings.ToLower(host)); m != nil {
		return m[1]
	}
	return ""
}

// sameConnection reports whether two configs can share one ObjectStore.
func (c Config) sameConnection(o Config) bool {
	return c.AccessKeyID == o.AccessKeyID &&
		c.AccessKeySecret == o.AccessKeySecret &&
		c.Endpoint == o.Endpoint &&
		c.RegionID == o.RegionID &&
		c.IsCName == o.IsCName &&
		c.SecurityToken == o.SecurityToken &&
		c.RequestProxy == o.RequestProxy
}
