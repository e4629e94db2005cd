package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/semanadefe/semanadefe/internal/photostore"
)

// FallbackPolicy decides the photo URL of a submission without a usable
// photo.
type FallbackPolicy string

const (
	FallbackPlaceholder FallbackPolicy = "placeholder"
	FallbackNone        FallbackPolicy = "none"
)

// ParseFallbackPolicy accepts "placeholder", "none", or "" for the default.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch p := FallbackPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return FallbackPlaceholder, nil
	case FallbackPlaceholder, FallbackNone:
		return p, nil
	default:
		return "", fmt.Errorf("unknown photo fallback policy %q", s)
	}
}

const placeholderURL = "https://picsum.photos/seed/ev%d/600/400"

var errNoPhotoStore = errors.New("no photo store configured")

// Photo is an uploaded image and its declared content type.
type Photo struct {
	Data        []byte
	ContentType string
}

type IngestOptions struct {
	Folder   string
	Fallback FallbackPolicy
	Seed     int64
	// Inline embeds photos in the record as data URIs instead of uploading.
	Inline bool
}

// ImageIngestor turns an optional photo into a URL. Uploading is best
// effort: a failure is logged and replaced by the fallback URL so that a
// storage outage never costs the user their testimony.
type ImageIngestor struct {
	store    photostore.PhotoStore
	folder   string
	fallback FallbackPolicy
	inline   bool
	logger   *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewImageIngestor builds an ingestor. store may be nil when opts.Inline is
// set or when only fallbacks are wanted.
func NewImageIngestor(store photostore.PhotoStore, opts IngestOptions, logger *slog.Logger) *ImageIngestor {
	if opts.Folder == "" {
		opts.Folder = "initiatives"
	}
	if opts.Fallback == "" {
		opts.Fallback = FallbackPlaceholder
	}
	return &ImageIngestor{
		store:    store,
		folder:   opts.Folder,
		fallback: opts.Fallback,
		inline:   opts.Inline,
		logger:   logger,
		rng:      rand.New(rand.NewSource(opts.Seed)),
	}
}

type uploadResult struct {
	url string
	key string
	err error
}

// StoredPhoto is where a submission's photo ended up. Key is set only when
// the photo was written to the photo store.
type StoredPhoto struct {
	URL string
	Key string
}

// Place turns an optional photo into a URL and never fails. It also reports
// the storage key so that the caller can Discard the object if the
// submission is abandoned.
func (i *ImageIngestor) Place(ctx context.Context, photo *Photo) StoredPhoto {
	if photo == nil || len(photo.Data) == 0 {
		return StoredPhoto{URL: i.fallbackURL()}
	}

	res := i.upload(ctx, photo)
	if res.err != nil {
		i.logger.Error("photo upload failed, using fallback",
			"content_type", photo.ContentType, "bytes", len(photo.Data),
			"fallback", string(i.fallback), "error", res.err)
		return StoredPhoto{URL: i.fallbackURL()}
	}
	return StoredPhoto{URL: res.url, Key: res.key}
}

// Discard deletes a photo written by Place. Failures are logged only.
func (i *ImageIngestor) Discard(ctx context.Context, key string) {
	if key == "" || i.store == nil {
		return
	}
	if err := i.store.Delete(ctx, key); err != nil && !errors.Is(err, photostore.ErrNotFound) {
		i.logger.Error("failed to delete orphaned photo", "key", key, "error", err)
		return
	}
	i.logger.Info("orphaned photo deleted", "key", key)
}

func (i *ImageIngestor) upload(ctx context.Context, photo *Photo) uploadResult {
	if i.inline {
		return uploadResult{url: fmt.Sprintf("data:%s;base64,%s",
			photo.ContentType, base64.StdEncoding.EncodeToString(photo.Data))}
	}
	if i.store == nil {
		return uploadResult{err: errNoPhotoStore}
	}

	key := photostore.NewKey(i.folder, photo.ContentType)
	if err := i.store.Put(ctx, key, photo.ContentType, bytes.NewReader(photo.Data), int64(len(photo.Data))); err != nil {
		return uploadResult{err: err}
	}
	i.logger.Debug("photo stored", "key", key)
	return uploadResult{url: i.store.URL(key), key: key}
}

func (i *ImageIngestor) fallbackURL() string {
	if i.fallback == FallbackNone {
		return ""
	}
	i.mu.Lock()
	n := i.rng.Intn(1000) + 1
	i.mu.Unlock()
	return fmt.Sprintf(placeholderURL, n)
}
