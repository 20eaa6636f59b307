// Package storage uploads product images to Amazon S3 (or compatible APIs).
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader stores a single object and returns its public URL.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// S3Service uploads objects through the S3 transfer manager.
type S3Service struct {
	uploader      *manager.Uploader
	bucket        string
	region        string
	publicBaseURL string
}

// Options configure the target bucket and how public URLs are built.
type Options struct {
	Bucket        string
	Region        string
	Endpoint      string // optional, for S3-compatible stores
	PublicBaseURL string // optional, overrides the default object URL
}

// NewS3Service builds a client from the default AWS credential chain.
func NewS3Service(ctx context.Context, opts Options) (*S3Service, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is required")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Service{
		uploader:      manager.NewUploader(client),
		bucket:        opts.Bucket,
		region:        opts.Region,
		publicBaseURL: strings.TrimSuffix(opts.PublicBaseURL, "/"),
	}, nil
}

// Upload stores the object and returns the URL clients can fetch it from.
func (s *S3Service) Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return "", fmt.Errorf("object key is required")
	}

	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}

	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}
