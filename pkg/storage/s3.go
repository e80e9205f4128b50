package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/citavers/citavers-api/pkg/config"
)

// PresignAPI is the subset of the S3 presign client used for PDF transfers.
type PresignAPI interface {
	PresignPutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
	PresignGetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// S3Storage issues presigned upload and download URLs against an
// S3-compatible object store (AWS S3 or MinIO).
type S3Storage struct {
	presign PresignAPI
	bucket  string
	ttl     time.Duration
}

// NewS3Storage builds the presign client from static credentials. The base
// endpoint override supports MinIO and other self-hosted stores.
func NewS3Storage(ctx context.Context, cfg config.S3Config) (*S3Storage, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return NewS3StorageWithClient(s3.NewPresignClient(client), cfg.Bucket, cfg.PresignTTL), nil
}

// NewS3StorageWithClient wires an existing presign client, used by tests.
func NewS3StorageWithClient(presign PresignAPI, bucket string, ttl time.Duration) *S3Storage {
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &S3Storage{presign: presign, bucket: bucket, ttl: ttl}
}

// PresignUpload returns a presigned PUT URL for the given object key.
func (s *S3Storage) PresignUpload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignDownload returns a presigned GET URL for the given object key.
func (s *S3Storage) PresignDownload(ctx context.Context, key string) (string, error) {
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// ObjectKey produces a collision-free storage key for a user's PDF.
func ObjectKey(userID string) string {
	now := time.Now().UTC()
	return fmt.Sprintf("pdfs/%s/%d/%02d/%s.pdf", userID, now.Year(), now.Month(), uuid.NewString())
}
