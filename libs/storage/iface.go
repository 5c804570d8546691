// Package storage abstracts blob storage (S3, local disk, in-memory for tests).
package storage

import (
	"errors"
	"io"
	"net/http"
	"time"
)

// ErrNoObject is returned when the requested object does not exist.
var ErrNoObject = errors.New("storage: no object")

// ObjectInfo describes a stored object without fetching its content.
type ObjectInfo struct {
	Size         int64
	ContentType  string
	LastModified time.Time
}

// Store is the interface for blob storage backends. Objects are addressed by
// an opaque ID returned from Put or derivable through IDFromName.
type Store interface {
	Put(name string, data []byte, contentType string, meta map[string]string) (string, error)
	PutReader(name string, r io.ReadSeeker, size int64, contentType string, meta map[string]string) (string, error)
	Get(id string) ([]byte, http.Header, error)
	GetReader(id string) (io.ReadCloser, http.Header, error)
	// Head returns object metadata without fetching content. It returns
	// ErrNoObject when the object does not exist (including after the
	// bucket's retention policy removed it).
	Head(id string) (*ObjectInfo, error)
	Delete(id string) error
	// ExpiringURL returns a time-limited read URL for the object.
	ExpiringURL(id string, expiration time.Duration) (string, error)
	// ExpiringPutURL returns a time-limited write URL for a named object along
	// with the ID the object will have once written.
	ExpiringPutURL(name, contentType string, expiration time.Duration) (string, string, error)
	// IDFromName returns the deterministic ID for a name.
	IDFromName(name string) string
}
