// Package httpfetch downloads remote resources and uploads to signed URLs
// with bounded retries.
package httpfetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxBodySize caps the size of a fetched body.
const DefaultMaxBodySize = 512 << 20

// ErrBodyTooLarge is returned when a fetched body exceeds the configured limit.
var ErrBodyTooLarge = errors.New("httpfetch: response body too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s failed with status: %s", e.Method, e.URL, e.Status)
}

// IsNotFound reports whether err is a 404 response.
func IsNotFound(err error) bool {
	var serr *StatusError
	return errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound
}

// Client fetches and uploads over HTTP. 5xx responses and transport errors
// are retried; 4xx responses are not.
type Client struct {
	httpClient    *http.Client
	retryAttempts int
	retryDelay    time.Duration
	maxBodySize   int64
	progressFunc  ProgressFunc
}

// ProgressFunc receives the number of bytes uploaded so far.
type ProgressFunc func(bytesUploaded int64)

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a Client with a 5 minute timeout and 3 attempts.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		retryAttempts: 3,
		retryDelay:    1 * time.Second,
		maxBodySize:   DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithRetry configures retry behavior
func WithRetry(attempts int, delay time.Duration) ClientOption {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithMaxBodySize limits how many bytes Fetch accepts.
func WithMaxBodySize(n int64) ClientOption {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithProgress sets an upload progress callback
func WithProgress(fn ProgressFunc) ClientOption {
	return func(c *Client) {
		c.progressFunc = fn
	}
}

// Fetch GETs rawURL and returns the response body.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	var body []byte
	err := c.do(ctx, func() (*http.Request, error) {
		return http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	}, func(resp *http.Response) error {
		data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
		if err != nil {
			return fmt.Errorf("failed to read response body: %w", err)
		}
		if int64(len(data)) > c.maxBodySize {
			return ErrBodyTooLarge
		}
		body = data
		return nil
	})
	return body, err
}

// Upload PUTs data to a signed URL. The data is buffered so it can be retried.
func (c *Client) Upload(ctx context.Context, signedURL string, data io.Reader, opts ...UploadOption) error {
	uploadOpts := &uploadOptions{}
	for _, opt := range opts {
		opt(uploadOpts)
	}

	payload, err := io.ReadAll(data)
	if err != nil {
		return fmt.Errorf("failed to read upload body: %w", err)
	}

	return c.do(ctx, func() (*http.Request, error) {
		var reader io.Reader = bytes.NewReader(payload)
		if c.progressFunc != nil {
			reader = &progressReader{reader: reader, callback: c.progressFunc}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPut, signedURL, reader)
		if err != nil {
			return nil, err
		}
		req.ContentLength = int64(len(payload))
		if uploadOpts.contentType != "" {
			req.Header.Set("Content-Type", uploadOpts.contentType)
		}
		for k, v := range uploadOpts.headers {
			req.Header.Set(k, v)
		}
		return req, nil
	}, nil)
}

func (c *Client) do(ctx context.Context, newRequest func() (*http.Request, error), handle func(*http.Response) error) error {
	var lastErr error
	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryDelay * time.Duration(attempt)):
			}
		}

		req, err := newRequest()
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s %s: %w", req.Method, req.URL.Redacted(), err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			var herr error
			if handle != nil {
				herr = handle(resp)
			}
			resp.Body.Close()
			return herr
		}
		resp.Body.Close()

		lastErr = &StatusError{
			Method:     req.Method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return lastErr
		}
	}

	return fmt.Errorf("request failed after %d attempts: %w", c.retryAttempts, lastErr)
}

type uploadOptions struct {
	contentType string
	headers     map[string]string
}

// UploadOption configures a single Upload call.
type UploadOption func(*uploadOptions)

// WithContentType sets the Content-Type header for the upload
func WithContentType(contentType string) UploadOption {
	return func(o *uploadOptions) {
		o.contentType = contentType
	}
}

// WithHeader adds a custom header to the upload request
func WithHeader(key, value string) UploadOption {
	return func(o *uploadOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[key] = value
	}
}

// WithHeaders adds all headers, e.g. the headers issued with an upload URL.
func WithHeaders(headers map[string]string) UploadOption {
	return func(o *uploadOptions) {
		for k, v := range headers {
			WithHeader(k, v)(o)
		}
	}
}

type progressReader struct {
	reader    io.Reader
	bytesRead int64
	callback  ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	pr.bytesRead += int64(n)
	if pr.callback != nil && n > 0 {
		pr.callback(pr.bytesRead)
	}
	return n, err
}
