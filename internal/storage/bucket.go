package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo is one entry of a bucket listing.
type ObjectInfo struct {
	Key       string    `json:"key" yaml:"key"`
	Size      int64     `json:"size" yaml:"size"`
	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}

// Bucket is the single external object store holding every asset.
// Delete and Open return a not found StorageError when the key is absent.
type Bucket interface {
	Name() string
	Put(ctx context.Context, key string, body []byte, contentType string) error
	MakePublic(ctx context.Context, key string) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context) ([]ObjectInfo, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}
