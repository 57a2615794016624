// Package blob stores uploaded property photos. The filesystem driver is the
// default; the s3 driver targets AWS S3 or any S3-compatible endpoint.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/pis-platform/pis/internal/config"
)

// Driver names
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

// ErrNotFound is returned when a key has no object
var ErrNotFound = errors.New("blob not found")

// Store is the minimal surface the photo handlers need
type Store interface {
	Driver() string
	// Put writes an object and returns the URL clients use to fetch it.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	// KeyFromURL maps a URL returned by Put back to its key.
	KeyFromURL(url string) (string, bool)
}

// Open builds the store selected by BLOB_DRIVER
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.BlobDriver {
	case "", DriverFS:
		return NewFilesystem(cfg.UploadDir, cfg.UploadURLBase)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			PathStyle: cfg.S3PathStyle,
		})
	}
	return nil, fmt.Errorf("unsupported blob driver: %s", cfg.BlobDriver)
}

// PhotoKey builds a collision free object key for an uploaded file, keeping
// the original extension.
func PhotoKey(filename string) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 10 {
		ext = ""
	}
	return "photos/" + uuid.NewString() + ext
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid blob key %q", key)
	}
	return nil
}
