package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/observability/tracing"
)

// ObjectStorage abstracts the bucket backend so handlers and tests do not
// depend on a live S3 endpoint.
type ObjectStorage interface {
	Put(ctx context.Context, bucket, key, contentType string, body []byte) error
	PublicURL(bucket, key string) string
}

type s3Storage struct {
	cfg    config.StorageConfig
	client *s3.Client
	log    *zap.Logger
}

// NewS3Storage builds an S3-backed ObjectStorage. The endpoint override makes
// MinIO and other S3-compatible stores work in development.
func NewS3Storage(cfg config.Config, log *zap.Logger) (ObjectStorage, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Storage.Region),
		awsconfig.WithHTTPClient(tracing.WrapHTTPClient(nil)),
	}
	if cfg.Storage.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKeyID, cfg.Storage.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &s3Storage{
		cfg:    cfg.Storage,
		client: client,
		log:    log.Named("storage.s3"),
	}, nil
}

func (s *s3Storage) Put(ctx context.Context, bucket, key, contentType string, body []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
		Body:        bytes.NewReader(body),
	})
	if err != nil {
		return fmt.Errorf("put object %s/%s: %w", bucket, key, err)
	}
	s.log.Debug("object stored", zap.String("bucket", bucket), zap.String("key", key))
	return nil
}

func (s *s3Storage) PublicURL(bucket, key string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	if base == "" {
		base = strings.TrimRight(s.cfg.Endpoint, "/")
	}
	return fmt.Sprintf("%s/%s/%s", base, bucket, key)
}
