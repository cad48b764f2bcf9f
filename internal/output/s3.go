package output

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config contains S3 storage configuration
type S3Config struct {
	Endpoint        string // Optional: custom endpoint for MinIO and other S3 compatible stores
	Region          string
	AccessKeyID     string // Optional: falls back to the default credential chain
	SecretAccessKey string
	UsePathStyle    bool // Use path-style addressing (required for MinIO)
}

// S3Sink uploads the export to an S3 object.
type S3Sink struct {
	uploader *manager.Uploader
	bucket   string
	key      string
}

// NewS3Sink creates a sink writing to bucket/key.
func NewS3Sink(ctx context.Context, cfg S3Config, bucket, key string) (*S3Sink, error) {
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("S3 destination needs a bucket and a key")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Sink{
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		key:      key,
	}, nil
}

func (s *S3Sink) Write(ctx context.Context, data []byte) error {
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("text/html; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("failed to upload bookmarks to S3: %w", err)
	}

	slog.Info("uploaded bookmarks file", "bucket", s.bucket, "key", s.key, "bytes", len(data))
	return nil
}

func (s *S3Sink) String() string {
	return "s3://" + s.bucket + "/" + s.key
}
