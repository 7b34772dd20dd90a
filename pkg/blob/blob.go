// Package blob stores opaque files such as evaluation attachments and signature images.
package blob

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when deleting a key the store does not hold.
var ErrNotFound = errors.New("blob not found")

// Object describes a stored file.
type Object struct {
	Key  string
	URL  string
	Size int64
}

// Store persists and removes blobs by key.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader) (Object, error)
	Delete(ctx context.Context, key string) error
}
