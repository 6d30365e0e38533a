package storage

import (
	"context"
	"fmt"

	"immigration-portal/internal/common/aws"
)

// S3Storage stores documents in a single S3 bucket.
type S3Storage struct {
	client *aws.S3Client
}

func NewS3Storage(client *aws.S3Client) *S3Storage {
	return &S3Storage{client: client}
}

func (s *S3Storage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	if err := s.client.Put(ctx, objectPath, contentType, data); err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", s.client.Bucket(), objectPath, err)
	}
	return nil
}
