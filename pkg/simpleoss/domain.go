package simpleoss

import (
	"fmt"
	"net/url"
	"strings"
)

// ParseURL parses raw as an absolute http or https URL with a host.
func ParseURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return u, true
	}
	return nil, false
}

// parseBaseURL parses a configured base URL, assuming https when the scheme is missing.
func parseBaseURL(raw string) (*url.URL, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, false
	}
	if u, ok := ParseURL(raw); ok {
		return u, true
	}
	if !strings.Contains(raw, "://") {
		return ParseURL("https://" + raw)
	}
	return nil, false
}

// hostOf returns the lower-cased host of a base URL without its port.
func hostOf(base string) string {
	u, ok := parseBaseURL(base)
	if !ok {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// CDNDomain returns the host of the configured CDN base URL, or "".
func (a *Adapter) CDNDomain() string {
	return hostOf(a.config.CDNBaseURL)
}

// UploadDomain returns the host of the configured upload base URL, or "".
func (a *Adapter) UploadDomain() string {
	return hostOf(a.config.UploadBaseURL)
}

// OSSOriginalDomain returns the bucket host, {bucket}.oss-{region}.aliyuncs.com,
// or its -internal variant. It is "" when the region cannot be determined.
func (a *Adapter) OSSOriginalDomain(internal bool) string {
	region := a.config.Region()
	if region == "" || a.config.Bucket == "" {
		return ""
	}
	if internal {
		return strings.ToLower(fmt.Sprintf("%s.oss-%s-internal.aliyuncs.com", a.config.Bucket, region))
	}
	return strings.ToLower(fmt.Sprintf("%s.oss-%s.aliyuncs.com", a.config.Bucket, region))
}

// Classify returns the domain family of rawURL's host, ignoring any port.
// The first match in the order cdn, upload, oss, oss_internal wins.
func (a *Adapter) Classify(rawURL string) DomainType {
	u, ok := ParseURL(rawURL)
	if !ok {
		return DomainNone
	}
	host := strings.ToLower(u.Hostname())

	candidates := []struct {
		host string
		kind DomainType
	}{
		{a.CDNDomain(), DomainCDN},
		{a.UploadDomain(), DomainUpload},
		{a.OSSOriginalDomain(false), DomainOSS},
		{a.OSSOriginalDomain(true), DomainOSSInternal},
	}
	for _, c := range candidates {
		if c.host != "" && c.host == host {
			return c.kind
		}
	}
	return DomainNone
}

// IsBucketURL reports whether rawURL is on any domain of the bucket.
func (a *Adapter) IsBucketURL(rawURL string) bool {
	return a.Classify(rawURL) != DomainNone
}
