package simpleoss

import (
	"log/slog"
	"time"
)

// Option configures an Adapter at construction.
type Option func(*Adapter)

// WithLogger sets the logger used by the adapter.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Adapter) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithFetcher sets the HTTP fetcher used by PutURL and PutURLIfChanged.
func WithFetcher(f Fetcher) Option {
	return func(a *Adapter) {
		a.fetcher = f
	}
}

// WithStoreFactory lets WithConfig rebuild the store when connection settings change.
// When New is given a nil store the factory also builds the initial one.
func WithStoreFactory(f StoreFactory) Option {
	return func(a *Adapter) {
		a.factory = f
	}
}

// WithDefaultTTL sets the lifetime of URLs signed without an explicit ttl.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(a *Adapter) {
		if ttl > 0 {
			a.defaultTTL = ttl
		}
	}
}

type callOptions struct {
	withoutPrefix bool
	object        *ObjectOptions
}

// CallOption adjusts a single adapter call.
type CallOption func(*callOptions)

// WithoutPrefix uses the path as the object key verbatim.
func WithoutPrefix() CallOption {
	return func(o *callOptions) {
		o.withoutPrefix = true
	}
}

// WithObjectOptions merges vendor request options into the call.
func WithObjectOptions(opts *ObjectOptions) CallOption {
	return func(o *callOptions) {
		if opts == nil {
			return
		}
		if opts.ContentType != "" {
			o.objectOptions().ContentType = opts.ContentType
		}
		for k, v := range opts.Headers {
			o.setHeader(k, v)
		}
		for k, v := range opts.Query {
			obj := o.objectOptions()
			if obj.Query == nil {
				obj.Query = make(map[string]string)
			}
			obj.Query[k] = v
		}
	}
}

// WithHeader adds a vendor request header.
func WithHeader(key, value string) CallOption {
	return func(o *callOptions) {
		o.setHeader(key, value)
	}
}

// WithContentType sets the Content-Type stored with the object.
func WithContentType(contentType string) CallOption {
	return func(o *callOptions) {
		o.objectOptions().ContentType = contentType
	}
}

// WithVisibility applies an object ACL on write.
func WithVisibility(v Visibility) CallOption {
	return WithHeader("x-oss-object-acl", string(ToACL(v)))
}

// ForbidOverwrite makes a PUT fail if the key already exists.
func ForbidOverwrite() CallOption {
	return WithObjectOptions(ForbidOverwriteOptions())
}

// ForbidOverwriteOptions returns the request options that reject overwriting an existing object.
func ForbidOverwriteOptions() *ObjectOptions {
	return &ObjectOptions{Headers: map[string]string{ForbidOverwriteHeader: "true"}}
}

func (o *callOptions) objectOptions() *ObjectOptions {
	if o.object == nil {
		o.object = &ObjectOptions{}
	}
	return o.object
}

func (o *callOptions) setHeader(key, value string) {
	obj := o.objectOptions()
	if obj.Headers == nil {
		obj.Headers = make(map[string]string)
	}
	obj.Headers[key] = value
}

func collectCallOptions(opts []CallOption) *callOptions {
	co := &callOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(co)
		}
	}
	return co
}
