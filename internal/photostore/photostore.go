// Package photostore persists initiative photos under opaque keys.
package photostore

import (
	"context"
	"errors"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("photo not found")

type PhotoStore interface {
	// Put writes size bytes from r under key. size may be -1 when unknown.
	Put(ctx context.Context, key, mimeType string, r io.Reader, size int64) error
	Get(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
	// URL returns the public, retrievable address of key.
	URL(key string) string
}

// NewKey returns a fresh storage key of the form <folder>/<uuid>.<ext>.
func NewKey(folder, mimeType string) string {
	name := uuid.NewString() + ExtForMIME(mimeType)
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

func ExtForMIME(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

func MIMEForKey(key string) string {
	switch strings.ToLower(filepath.Ext(key)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
