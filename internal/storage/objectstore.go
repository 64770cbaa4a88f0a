package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"gestion-backend/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores backup files off-site.
type Uploader interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ObjectStore uploads to any S3-compatible bucket (AWS, R2, MinIO).
type ObjectStore struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewObjectStore returns nil when no bucket is configured.
func NewObjectStore(ctx context.Context, cfg *config.Config) (*ObjectStore, error) {
	if !cfg.BackupEnabled() {
		return nil, nil
	}
	region := cfg.Backup.Region
	if region == "" {
		region = "auto"
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.Backup.AccessKey,
			cfg.Backup.SecretKey,
			"",
		)),
		awsconfig.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("configure object storage: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Backup.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Backup.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &ObjectStore{client: client, bucket: cfg.Backup.Bucket, prefix: cfg.Backup.Prefix}, nil
}

// Key is the object key a file name is stored under.
func (o *ObjectStore) Key(name string) string {
	if o.prefix == "" {
		return name
	}
	return path.Join(o.prefix, name)
}

func (o *ObjectStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	key := o.Key(name)
	_, err := o.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(o.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", o.bucket, key), nil
}

// NewUploader is NewObjectStore as an Uploader. It returns a nil interface,
// not a nil *ObjectStore, when storage is disabled.
func NewUploader(ctx context.Context, cfg *config.Config) (Uploader, error) {
	store, err := NewObjectStore(ctx, cfg)
	if err != nil || store == nil {
		return nil, err
	}
	return store, nil
}
