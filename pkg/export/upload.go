package export

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores a finished export file under key.
type Uploader interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// S3Config configures the S3 uploader. Credentials come from the default chain.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // optional, for S3-compatible stores
	PathStyle bool
}

// S3Uploader puts export files into one bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

// NewS3Uploader loads the default AWS configuration and creates an uploader.
func NewS3Uploader(ctx context.Context, cfg S3Config) (*S3Uploader, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket required")
	}

	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.PathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})
	return &S3Uploader{client: client, bucket: cfg.Bucket}, nil
}

// Put implements Uploader.
func (u *S3Uploader) Put(ctx context.Context, key, contentType string, data []byte) error {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", u.bucket, key, err)
	}
	return nil
}

// ObjectKey names an export file covering ids first..last: "pokemon/1_151.parquet".
func ObjectKey(prefix string, first, last int, format Format) string {
	return path.Join(prefix, fmt.Sprintf("%d_%d.%s", first, last, format))
}

// ContentType returns the MIME type of a format.
func ContentType(format Format) string {
	switch format {
	case FormatCSV:
		return "text/csv"
	default:
		return "application/vnd.apache.parquet"
	}
}
