// Package storage uploads application documents to object storage.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"

	"immigration-portal/internal/common/aws"
	"immigration-portal/internal/common/config"
)

// Storage writes an object at a path. Writing the same path twice replaces the object.
type Storage interface {
	Upload(ctx context.Context, objectPath, contentType string, data []byte) error
}

var contentTypes = map[string]string{
	"pdf":  "application/pdf",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
}

// Extension returns the lower-cased extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
}

// IsAllowedExtension reports whether filename is a pdf, jpg, jpeg or png file.
func IsAllowedExtension(filename string) bool {
	_, ok := contentTypes[Extension(filename)]
	return ok
}

// ContentType maps an allowed extension to its MIME type.
func ContentType(filename string) string {
	if ct, ok := contentTypes[Extension(filename)]; ok {
		return ct
	}
	return "application/octet-stream"
}

// DocumentPath builds {userId}/{applicationId}/{documentType}.{extension}.
func DocumentPath(userID, applicationID, documentType, filename string) string {
	return fmt.Sprintf("%s/%s/%s.%s", userID, applicationID, documentType, Extension(filename))
}

// New builds the backend selected by cfg.Provider.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	switch cfg.Provider {
	case "s3":
		client, err := aws.NewS3Client(ctx, cfg.S3.Region, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("create s3 client: %w", err)
		}
		return NewS3Storage(client), nil
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCS.ProjectID, cfg.Bucket, cfg.GCS.CredentialsFile)
	default:
		return nil, fmt.Errorf("unknown storage provider %q", cfg.Provider)
	}
}
