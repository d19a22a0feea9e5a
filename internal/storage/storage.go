// Package storage connects the app to the object storage with retries
package storage

import (
	"context"
	"time"

	"github.com/UnendingLoop/TextWatermark/internal/storage/miniostorage"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

// NewJobStorage retries until minio answers or ctx is done.
func NewJobStorage(ctx context.Context, cfg *config.Config, delay time.Duration) (*miniostorage.MinioJobStorage, error) {
	opts := miniostorage.OptionsFromConfig(cfg)

	for {
		zlog.Logger.Info().Str("endpoint", opts.Endpoint).Msg("Connecting to job storage...")
		client, err := miniostorage.NewMinioClient(ctx, opts)
		if err == nil {
			zlog.Logger.Info().Str("bucket", opts.Bucket).Msg("Successfully connected job storage!")
			return client, nil
		}
		zlog.Logger.Warn().Err(err).Dur("retry_in", delay).Msg("Failed to init connection to job storage")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
}
