package repositories

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/collabforge/collabforge/internal/config"
)

// S3Store wraps the S3 client with the small content-store surface the file
// services need: put, idempotent delete, presigned download URL and existence.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store initializes the S3 client using static credentials and an
// optional custom endpoint for S3-compatible stores.
func NewS3Store(cfg config.S3Config) *S3Store {
	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	log.Info().Str("bucket", cfg.BucketName).Msg("Successfully initialized S3 client")

	return &S3Store{client: client, bucket: cfg.BucketName}
}

// Bucket returns the bucket this store writes to, recorded on file records so
// deletes keep working if the configured bucket ever changes.
func (s *S3Store) Bucket() string {
	return s.bucket
}

// GenerateObjectKey derives the content-store key for an upload. Keys are
// namespaced by uploader and project; the uuid plus timestamp keeps concurrent
// uploads of the same filename from colliding.
func GenerateObjectKey(userID, projectID uuid.UUID, originalName string) string {
	ext := filepath.Ext(originalName)
	return fmt.Sprintf("users/%s/projects/%s/files/%s_%d%s",
		userID, projectID, uuid.New(), time.Now().UnixMilli(), ext)
}

// Put uploads a file body under the given key.
func (s *S3Store) Put(ctx context.Context, key string, body []byte, contentType string, metadata map[string]string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
		Metadata:    metadata,
	})
	return err
}

// Delete removes an object. A missing object is treated as success so that
// retried deletes stay idempotent.
func (s *S3Store) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return err
	}
	return nil
}

// PresignDownload creates a time-boxed download URL. The content-disposition
// override makes browsers save the file under its original name rather than
// the opaque stored name.
func (s *S3Store) PresignDownload(ctx context.Context, key string, expires time.Duration, downloadName string) (string, error) {
	presigner := s3.NewPresignClient(s.client)
	req, err := presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:                     aws.String(s.bucket),
		Key:                        aws.String(key),
		ResponseContentDisposition: aws.String(fmt.Sprintf("attachment; filename=%q", downloadName)),
	}, s3.WithPresignExpires(expires))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// Exists checks whether a given object key exists in the bucket.
func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nf *s3types.NotFound
		if errors.As(err, &nf) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
