package storage

import (
	"context"
	"fmt"

	"github.com/localnerve/jam-build-crm/internal/config"
)

// Open builds the bucket selected by STORAGE_DRIVER.
func Open(ctx context.Context, cfg *config.Config) (Bucket, error) {
	switch cfg.StorageDriver {
	case "memory":
		name := cfg.StorageBucket
		if name == "" {
			name = "local"
		}
		return NewMemoryBucket(name), nil
	case "s3", "":
		bucket, err := NewS3Bucket(ctx, S3Config{
			Region:          cfg.StorageRegion,
			Bucket:          cfg.StorageBucket,
			Endpoint:        cfg.StorageEndpoint,
			AccessKeyID:     cfg.StorageAccessKey,
			SecretAccessKey: cfg.StorageSecretKey,
			PathStyle:       cfg.StoragePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return bucket, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
