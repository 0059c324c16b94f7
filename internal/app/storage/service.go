/*
Package storage uploads user avatars to S3-compatible object storage.

The bucket is expected to be publicly readable through ServiceConfig.PublicURL, so a stored
object is addressed by a plain URL that can be placed in a profile.
*/
package storage

import (
	"context"
	"strings"
)

// ServiceConfig holds the configuration required to connect to the storage service.
type ServiceConfig struct {
	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// PublicURL is the base URL under which objects are served, without a trailing slash.
	PublicURL string
}

// StorageService defines the public interface for the file storage service.
type StorageService interface {
	// Upload stores body under key and returns the public URL of the object.
	Upload(ctx context.Context, key, contentType string, body []byte) (string, error)

	// Delete removes the file specified by the given key.
	Delete(ctx context.Context, key string) error

	// KeyFromURL returns the object key of a URL produced by Upload, or false when the
	// URL points somewhere else.
	KeyFromURL(url string) (string, bool)
}

// NewStorageService is the factory function for StorageService.
// It initializes and returns a concrete implementation based on the provided configuration.
func NewStorageService(ctx context.Context, cfg ServiceConfig) (StorageService, error) {
	// Currently, only S3 compatible implementations are supported.
	return newS3Client(ctx, cfg)
}

func publicURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}

func keyFromURL(base, url string) (string, bool) {
	prefix := strings.TrimRight(base, "/") + "/"
	if base == "" || !strings.HasPrefix(url, prefix) {
		return "", false
	}

	key := strings.TrimPrefix(url, prefix)
	return key, key != ""
}
