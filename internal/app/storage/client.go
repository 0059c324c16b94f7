package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/rs/zerolog"

	"chatyni/internal/pkg/logx"
)

// s3Client implements the StorageService interface, handling interactions with S3-compatible storage.
type s3Client struct {
	cfg      ServiceConfig
	s3Client *s3.Client
	uploader *manager.Uploader
	logger   zerolog.Logger
}

// newS3Client initializes the S3 client using a custom configuration that supports S3-compatible endpoints.
func newS3Client(ctx context.Context, cfg ServiceConfig) (*s3Client, error) {
	logger := logx.Component("Storage", "bucket", cfg.S3BucketName)

	// Load Configuration
	sdkCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.S3AccessKeyID,
			cfg.S3SecretAccessKey,
			"",
		)),
		config.WithRegion("auto"),
	)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load AWS SDK config")
		return nil, errors.New("failed to initialize S3 client configuration")
	}

	// Create S3 Client with Custom Endpoint Resolver.
	client := s3.NewFromConfig(sdkCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.S3Endpoint)
		o.UsePathStyle = true
	})

	return &s3Client{
		cfg:      cfg,
		s3Client: client,
		uploader: manager.NewUploader(client),
		logger:   logger,
	}, nil
}

// Upload stores body under key. Objects are served read-only through PublicURL.
func (c *s3Client) Upload(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := c.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(c.cfg.S3BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		c.logger.Error().Err(err).Str("key", key).Msg("S3 upload failed")
		return "", fmt.Errorf("upload %q: %w", key, err)
	}

	c.logger.Info().Str("key", key).Int("size", len(body)).Msg("Object uploaded.")
	return publicURL(c.cfg.PublicURL, key), nil
}

// Delete removes the file specified by the given key from the bucket.
func (c *s3Client) Delete(ctx context.Context, key string) error {
	_, err := c.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.cfg.S3BucketName),
		Key:    aws.String(key),
	})

	if err != nil {
		var nf *types.NoSuchKey
		if errors.As(err, &nf) {
			return nil
		}
		c.logger.Warn().Err(err).Str("key", key).Msg("S3 delete failed")
		return fmt.Errorf("delete %q: %w", key, err)
	}

	return nil
}

func (c *s3Client) KeyFromURL(url string) (string, bool) {
	return keyFromURL(c.cfg.PublicURL, url)
}
