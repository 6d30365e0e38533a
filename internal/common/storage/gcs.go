package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSStorage stores documents in a Google Cloud Storage bucket.
type GCSStorage struct {
	client     *storage.Client
	ProjectID  string
	BucketName string
}

// NewGCSStorage uses the service account key at credentialsFile, or application
// default credentials when it is empty.
func NewGCSStorage(ctx context.Context, projectID, bucketName, credentialsFile string, opts ...option.ClientOption) (*GCSStorage, error) {
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS storage client: %w", err)
	}

	return &GCSStorage{
		client:     client,
		ProjectID:  projectID,
		BucketName: bucketName,
	}, nil
}

func (g *GCSStorage) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	writer := g.client.Bucket(g.BucketName).Object(objectPath).NewWriter(ctx)
	writer.ContentType = contentType
	writer.CacheControl = "no-cache, no-store, must-revalidate"

	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write GCS object %s: %w", objectPath, err)
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer for %s: %w", objectPath, err)
	}
	return nil
}

func (g *GCSStorage) Close() error {
	return g.client.Close()
}
