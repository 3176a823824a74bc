package simpleoss

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrObjectNotFound indicates the object does not exist in the store
	ErrObjectNotFound = errors.New("object not found")

	// ErrNotImplemented is returned by operations the object store cannot support
	ErrNotImplemented = errors.New("not implemented")

	// ErrDiskNotFound indicates no disk is registered under the requested name
	ErrDiskNotFound = errors.New("disk not found")

	// ErrInvalidDisk indicates the disk is not backed by an OSS Adapter
	ErrInvalidDisk = errors.New("invalid OSS disk")

	// ErrInvalidURL indicates a value is not an absolute http(s) URL
	ErrInvalidURL = errors.New("invalid URL")

	// ErrMissingBucket indicates the configuration has no bucket
	ErrMissingBucket = errors.New("bucket is required")

	// ErrMissingStore indicates an adapter was built without an object store
	ErrMissingStore = errors.New("object store is required")
)

// StorageError represents a failed object store call.
type StorageError struct {
	Backend    string
	Bucket     string
	Key        string
	Op         string
	StatusCode int
	Err        error
}

func (e *StorageError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("storage operation %s failed for %s/%s on backend %s (status %d): %v",
			e.Op, e.Bucket, e.Key, e.Backend, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("storage operation %s failed for %s/%s on backend %s: %v", e.Op, e.Bucket, e.Key, e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrObjectNotFound) {
		return true
	}
	return StatusCode(err) == http.StatusNotFound
}

// StatusCode returns the HTTP status carried by a StorageError in the chain, or 0.
func StatusCode(err error) int {
	var serr *StorageError
	if errors.As(err, &serr) {
		return serr.StatusCode
	}
	return 0
}
