package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// ErrInvalidKey is returned for keys that escape the store root.
var ErrInvalidKey = errors.New("invalid storage key")

// Info describes a stored object.
type Info struct {
	Key         string
	Size        int64
	ContentType string
	ModifiedAt  time.Time
}

// Store defines the contract for saving and retrieving binary objects by key.
// Keys are slash separated and relative to the store root.
type Store interface {
	Put(ctx context.Context, key string, contentType string, r io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Stat(ctx context.Context, key string) (Info, error)
	// List returns the objects directly or transitively under prefix.
	List(ctx context.Context, prefix string) ([]Info, error)
	Move(ctx context.Context, src, dst string) error
	Delete(ctx context.Context, key string) error
}

// Presigner is implemented by stores that can hand out temporary download URLs.
type Presigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration, downloadName string) (string, error)
}
