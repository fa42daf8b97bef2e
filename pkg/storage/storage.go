// Package storage persists uploaded images and hands back their public URL.
package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/muxdry/storefront-backend/pkg/config"
	pkgerrors "github.com/muxdry/storefront-backend/pkg/errors"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/storage/gcs"
)

// Store is the upload surface used by services.
type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}

// Image is an upload that passed ValidateImage.
type Image struct {
	Data        []byte
	ContentType string
	Extension   string
}

var allowedImages = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
}

// ValidateImage sniffs data and accepts only PNG or JPEG up to maxBytes.
// The client supplied content type is never trusted.
func ValidateImage(data []byte, maxBytes int64) (*Image, error) {
	if len(data) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "image is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "image exceeds %d MB", maxBytes>>20).
			WithDetails(map[string]any{"max_bytes": maxBytes, "size": len(data)})
	}
	detected := mimetype.Detect(data)
	for mime, ext := range allowedImages {
		if detected.Is(mime) {
			return &Image{Data: data, ContentType: mime, Extension: ext}, nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "only PNG or JPEG images are allowed").
		WithDetails(map[string]any{"detected": detected.String()})
}

// ObjectKey builds a date partitioned, collision free key such as
// orders/<id>/2026/03/01/<uuid>.png.
func ObjectKey(prefix string, now time.Time, ext string) string {
	prefix = strings.Trim(prefix, "/")
	return path.Join(prefix, now.UTC().Format("2006/01/02"), uuid.NewString()+ext)
}

// New selects the configured backend.
func New(ctx context.Context, cfg *config.Config, logg *logger.Logger) (Store, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverLocal:
		return NewLocal(cfg.Storage.LocalDir, cfg.Storage.PublicBaseURL)
	case config.StorageDriverGCS:
		client, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return nil, err
		}
		return NewGCS(client, cfg.GCS.PublicBaseURL), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Storage.Driver)
	}
}
