// Package objectstore provides the shared object storage boundary used for
// the knowledge base artifact and its rate-limit marker.
//
// The canonical knowledge base lives in shared storage, not in process
// memory. Implementations must keep Put atomic at the single-object level;
// multi-object transitions (write temp, copy, delete temp) are composed by
// callers.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a bucket/key pair has no object.
var ErrNotFound = errors.New("object not found")

// Metadata describes an object without its content.
type Metadata struct {
	Size         int64
	LastModified time.Time
}

// Store is a minimal get/put/head object storage contract.
type Store interface {
	// Get returns the object content, or ErrNotFound.
	Get(ctx context.Context, bucket, key string) ([]byte, error)

	// Put stores the object, overwriting any prior version.
	Put(ctx context.Context, bucket, key string, data []byte) error

	// Head returns object metadata without content, or ErrNotFound.
	Head(ctx context.Context, bucket, key string) (*Metadata, error)

	// Copy duplicates srcKey to dstKey within the bucket.
	Copy(ctx context.Context, bucket, srcKey, dstKey string) error

	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}
