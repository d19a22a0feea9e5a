// Package miniostorage provides structure to work with minio-storage
package miniostorage

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/zlog"
)

const (
	defaultBucket = "watermarks"
	defaultPort   = "9000"
)

var errNilReader = errors.New("nil reader passed to storage.Put")

// Options - параметры подключения, собираются из конфига
type Options struct {
	Endpoint string
	User     string
	Pass     string
	Bucket   string
	Secure   bool
}

// OptionsFromConfig reads BUCKET_NAME, MINIO_USER, MINIO_PASS and MINIO_CONTAINER_NAME.
// A container name without a port gets the default minio port.
func OptionsFromConfig(cfg *config.Config) Options {
	return normalize(Options{
		Endpoint: cfg.GetString("MINIO_CONTAINER_NAME"),
		User:     cfg.GetString("MINIO_USER"),
		Pass:     cfg.GetString("MINIO_PASS"),
		Bucket:   cfg.GetString("BUCKET_NAME"),
	})
}

func normalize(o Options) Options {
	if o.Bucket == "" {
		o.Bucket = defaultBucket
		zlog.Logger.Warn().Str("bucket", o.Bucket).Msg("Bucket name is empty. Using default value")
	}
	if o.Endpoint != "" && !strings.Contains(o.Endpoint, ":") {
		o.Endpoint += ":" + defaultPort
	}
	return o
}

// MinioJobStorage keeps source images and rendered results of watermark jobs.
type MinioJobStorage struct {
	bucket string
	client *minio.Client
}

func NewMinioClient(ctx context.Context, opts Options) (*MinioJobStorage, error) {
	opts = normalize(opts)

	// подключаемся к минио - создаем клиента
	strg, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.User, opts.Pass, ""),
		Secure: opts.Secure,
	})
	if err != nil {
		return nil, err
	}

	// создаем бакет если его нет
	if err := ensureBucket(ctx, strg, opts.Bucket); err != nil {
		return nil, err
	}

	return &MinioJobStorage{bucket: opts.Bucket, client: strg}, nil
}

func (s *MinioJobStorage) Put(ctx context.Context, key string, size int64, contentType string, r io.Reader) error {
	if r == nil {
		return errNilReader
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	}); err != nil {
		return err
	}

	return nil
}

func (s *MinioJobStorage) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	return s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{})
}

func (s *MinioJobStorage) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	res, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", err
	}

	// GetObject ленивый: отсутствие объекта всплывает только на Stat
	resStat, err := res.Stat()
	if err != nil {
		if cErr := res.Close(); cErr != nil {
			zlog.Logger.Error().Err(cErr).Str("key", key).Msg("Failed to close object after failed stat")
		}
		return nil, "", err
	}

	return res, resStat.ContentType, nil
}

func ensureBucket(ctx context.Context, client *minio.Client, bucket string) error {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}

	if exists {
		return nil
	}

	return client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{})
}
