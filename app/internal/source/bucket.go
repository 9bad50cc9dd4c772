package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketConfig locates "<prefix><key>_report.log" objects in S3-compatible storage.
type BucketConfig struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Prefix    string
}

// Bucket reads logs from an S3-compatible object store.
type Bucket struct {
	client *minio.Client
	config BucketConfig
}

// NewBucket creates a client for cfg. No request is made until Fetch.
func NewBucket(cfg BucketConfig) (*Bucket, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket source needs endpoint and bucket")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &Bucket{client: client, config: cfg}, nil
}

func (b *Bucket) Name() string { return "s3" }

func (b *Bucket) Fetch(ctx context.Context, key string) (string, error) {
	name := b.config.Prefix + ObjectName(key)
	obj, err := b.client.GetObject(ctx, b.config.Bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return "", b.translate(key, err)
	}
	defer obj.Close()

	text, err := readLog(obj, maxLogBytes)
	if errors.Is(err, ErrTooLarge) {
		return "", fmt.Errorf("fetch %s from bucket %s: %w", key, b.config.Bucket, err)
	}
	if err != nil {
		return "", b.translate(key, err)
	}
	return text, nil
}

func (b *Bucket) translate(key string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return ErrNotFound
	}
	return fmt.Errorf("fetch %s from bucket %s: %w", key, b.config.Bucket, err)
}
