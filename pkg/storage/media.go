// Package storage removes observation media from S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/Mewnot-jar/ocean-observer/pkg/config"
)

// MediaStore deletes stored media objects by key.
type MediaStore interface {
	RemoveObjects(ctx context.Context, paths []string) error
}

// objectRemover is the subset of *minio.Client used by MinioStore.
type objectRemover interface {
	RemoveObjects(ctx context.Context, bucketName string, objectsCh <-chan minio.ObjectInfo, opts minio.RemoveObjectsOptions) <-chan minio.RemoveObjectError
}

// MinioStore removes objects from a single bucket.
type MinioStore struct {
	client objectRemover
	bucket string
	logger *zap.Logger
}

// NewMediaStore returns a MinIO-backed store, or a no-op store when no
// endpoint is configured.
func NewMediaStore(cfg *config.StorageConfig, logger *zap.Logger) (MediaStore, error) {
	if !cfg.Enabled() {
		logger.Info("Object storage not configured; media removal disabled")
		return NoopStore{}, nil
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	logger.Info("Object storage configured",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket))

	return newMinioStore(client, cfg.Bucket, logger), nil
}

func newMinioStore(client objectRemover, bucket string, logger *zap.Logger) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, logger: logger.Named("storage")}
}

// RemoveObjects deletes every key in paths. Per-object failures are joined
// into the returned error; keys that were removed stay removed.
func (s *MinioStore) RemoveObjects(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	objects := make(chan minio.ObjectInfo, len(paths))
	for _, path := range paths {
		objects <- minio.ObjectInfo{Key: path}
	}
	close(objects)

	var errs []error
	for removeErr := range s.client.RemoveObjects(ctx, s.bucket, objects, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", removeErr.ObjectName, removeErr.Err))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	s.logger.Debug("Removed media objects", zap.Int("count", len(paths)))
	return nil
}

// NoopStore is used when object storage is disabled.
type NoopStore struct{}

// RemoveObjects does nothing.
func (NoopStore) RemoveObjects(ctx context.Context, paths []string) error {
	return nil
}

var (
	_ MediaStore = (*MinioStore)(nil)
	_ MediaStore = NoopStore{}
)
