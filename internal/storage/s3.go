package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/prn-tf/jmrh-portal/internal/config"
)

// S3Presigner presigns requests against an S3-compatible endpoint.
type S3Presigner struct {
	client *s3.PresignClient
}

// NewS3Presigner builds a presign client from the storage settings.
// Static credentials are used when configured, otherwise the default AWS chain.
func NewS3Presigner(ctx context.Context, cfg config.S3StorageConfig) (*S3Presigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Presigner{client: s3.NewPresignClient(client)}, nil
}

// PresignGet returns a presigned GET URL.
func (p *S3Presigner) PresignGet(ctx context.Context, bucket, key string, expires time.Duration) (string, error) {
	req, err := p.client.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign get %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// PresignPut returns a presigned PUT URL.
func (p *S3Presigner) PresignPut(ctx context.Context, bucket, key, contentType string, expires time.Duration) (string, error) {
	req, err := p.client.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", fmt.Errorf("presign put %s/%s: %w", bucket, key, err)
	}
	return req.URL, nil
}

// Ensure S3Presigner implements Presigner.
var _ Presigner = (*S3Presigner)(nil)
