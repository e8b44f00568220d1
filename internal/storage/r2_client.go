package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Tiagocys/gamehub/pkg/logging"
)

// R2Config holds configuration for the Cloudflare R2 client. R2 speaks the
// S3 API, so this is an S3 client pointed at the account endpoint.
type R2Config struct {
	Bucket    string // R2 bucket name
	Endpoint  string // https://<account-id>.r2.cloudflarestorage.com
	AccessKey string
	SecretKey string
	PublicURL string // Public base URL for serving uploaded objects
}

// R2Client provides object storage operations for listing images and report
// evidence. Clients never see credentials; they receive presigned URLs.
type R2Client struct {
	client        *s3.Client
	presignClient *s3.PresignClient
	config        R2Config
	logger        logging.Logger
}

// NewR2Client creates a new R2 client with the given configuration.
func NewR2Client(cfg R2Config, logger logging.Logger) (*R2Client, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("R2 bucket is required")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("R2 endpoint is required")
	}

	var opts []func(*config.LoadOptions) error
	// R2 ignores the region but the SDK requires one
	opts = append(opts, config.WithRegion("auto"))
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.Endpoint)
		o.UsePathStyle = true
	})
	presignClient := s3.NewPresignClient(client)

	logger.WithFields(logging.Fields{
		"bucket":   cfg.Bucket,
		"endpoint": cfg.Endpoint,
	}).Info("R2 client initialized")

	return &R2Client{
		client:        client,
		presignClient: presignClient,
		config:        cfg,
		logger:        logger,
	}, nil
}

// GeneratePresignedPUT generates a presigned URL for uploading an object.
// The URL is time-limited and scoped to this specific object.
func (c *R2Client) GeneratePresignedPUT(key, contentType string, expiry time.Duration) (string, error) {
	if expiry == 0 {
		expiry = 10 * time.Minute
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	req, err := c.presignClient.PresignPutObject(context.Background(), input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned PUT URL: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"bucket": c.config.Bucket,
		"key":    key,
		"expiry": expiry,
	}).Info("Generated presigned PUT URL")

	return req.URL, nil
}

// Delete removes an object from the bucket.
func (c *R2Client) Delete(ctx context.Context, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.config.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete from R2: %w", err)
	}

	c.logger.WithFields(logging.Fields{
		"bucket": c.config.Bucket,
		"key":    key,
	}).Info("Deleted object from R2")

	return nil
}

// PublicURL returns the public serving URL for an object key.
func (c *R2Client) PublicURL(key string) string {
	return strings.TrimSuffix(c.config.PublicURL, "/") + "/" + strings.TrimPrefix(key, "/")
}

// ParseKey extracts the object key from a public URL, or returns the input
// unchanged when it already is a bare key.
func (c *R2Client) ParseKey(urlOrKey string) string {
	base := strings.TrimSuffix(c.config.PublicURL, "/") + "/"
	if strings.HasPrefix(urlOrKey, base) {
		return strings.TrimPrefix(urlOrKey, base)
	}
	return strings.TrimPrefix(urlOrKey, "/")
}

// BuildListingImageKey builds the object key for a listing image upload.
func BuildListingImageKey(userID, uniqueID, ext string) string {
	return fmt.Sprintf("listings/%s/%s.%s", userID, uniqueID, strings.ToLower(ext))
}
