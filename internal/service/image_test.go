package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanadefe/semanadefe/internal/photostore"
)

// stubPhotoStore is a minimal in-memory photostore.PhotoStore for tests.
type stubPhotoStore struct {
	mu     sync.Mutex
	saved  map[string][]byte
	types  map[string]string
	putErr error
}

func newStubPhotoStore() *stubPhotoStore {
	return &stubPhotoStore{saved: make(map[string][]byte), types: make(map[string]string)}
}

func (s *stubPhotoStore) Put(_ context.Context, key, mimeType string, r io.Reader, _ int64) error {
	if s.putErr != nil {
		return s.putErr
	}
	data, _ := io.ReadAll(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[key] = data
	s.types[key] = mimeType
	return nil
}

func (s *stubPhotoStore) Get(_ context.Context, key string) (io.ReadCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.saved[key]
	if !ok {
		return nil, "", photostore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), s.types[key], nil
}

func (s *stubPhotoStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, key)
	return nil
}

func (s *stubPhotoStore) URL(key string) string {
	return "https://storage.example.org/photos/" + key
}

func (s *stubPhotoStore) keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.saved))
	for k := range s.saved {
		out = append(out, k)
	}
	return out
}

var placeholderPattern = regexp.MustCompile(`^https://picsum\.photos/seed/ev([1-9][0-9]{0,2}|1000)/600/400$`)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestUploadsPhoto(t *testing.T) {
	store := newStubPhotoStore()
	ing := NewImageIngestor(store, IngestOptions{Folder: "initiatives"}, discardLogger())

	url := ing.Place(context.Background(), &Photo{Data: []byte("png bytes"), ContentType: "image/png"}).URL

	keys := store.keys()
	require.Len(t, keys, 1)
	assert.True(t, strings.HasPrefix(keys[0], "initiatives/"))
	assert.True(t, strings.HasSuffix(keys[0], ".png"))
	assert.Equal(t, "https://storage.example.org/photos/"+keys[0], url)
	assert.Equal(t, "image/png", store.types[keys[0]])
}

func TestIngestWithoutPhotoUsesPlaceholder(t *testing.T) {
	ing := NewImageIngestor(nil, IngestOptions{Seed: 42}, discardLogger())

	first := ing.Place(context.Background(), nil).URL
	second := ing.Place(context.Background(), &Photo{}).URL
	assert.Regexp(t, placeholderPattern, first)
	assert.Regexp(t, placeholderPattern, second)
}

func TestIngestPlaceholderIsSeeded(t *testing.T) {
	a := NewImageIngestor(nil, IngestOptions{Seed: 7}, discardLogger())
	b := NewImageIngestor(nil, IngestOptions{Seed: 7}, discardLogger())
	for i := 0; i < 5; i++ {
		assert.Equal(t, a.Place(context.Background(), nil).URL, b.Place(context.Background(), nil).URL)
	}
}

func TestIngestFallbackNone(t *testing.T) {
	ing := NewImageIngestor(nil, IngestOptions{Fallback: FallbackNone}, discardLogger())
	assert.Equal(t, "", ing.Place(context.Background(), nil).URL)
	assert.Equal(t, "", ing.Place(context.Background(), nil).URL)
}

func TestIngestUploadFailureFallsBack(t *testing.T) {
	store := newStubPhotoStore()
	store.putErr = errors.New("bucket unreachable")
	photo := &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}

	ing := NewImageIngestor(store, IngestOptions{}, discardLogger())
	assert.Regexp(t, placeholderPattern, ing.Place(context.Background(), photo).URL)

	ing = NewImageIngestor(store, IngestOptions{Fallback: FallbackNone}, discardLogger())
	assert.Equal(t, "", ing.Place(context.Background(), photo).URL)
}

func TestIngestWithoutStoreFallsBack(t *testing.T) {
	ing := NewImageIngestor(nil, IngestOptions{}, discardLogger())
	got := ing.Place(context.Background(), &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}).URL
	assert.Regexp(t, placeholderPattern, got)
}

func TestIngestInline(t *testing.T) {
	ing := NewImageIngestor(nil, IngestOptions{Inline: true}, discardLogger())
	got := ing.Place(context.Background(), &Photo{Data: []byte("hi"), ContentType: "image/gif"}).URL
	assert.Equal(t, "data:image/gif;base64,aGk=", got)
}

func TestPlaceReportsKeyAndDiscardDeletes(t *testing.T) {
	store := newStubPhotoStore()
	ing := NewImageIngestor(store, IngestOptions{}, discardLogger())
	ctx := context.Background()

	placed := ing.Place(ctx, &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"})
	require.NotEmpty(t, placed.Key)
	assert.Equal(t, store.URL(placed.Key), placed.URL)
	assert.Equal(t, []string{placed.Key}, store.keys())

	ing.Discard(ctx, placed.Key)
	assert.Empty(t, store.keys())

	// Nothing stored, nothing to delete.
	assert.Empty(t, ing.Place(ctx, nil).Key)
	ing.Discard(ctx, "")
	NewImageIngestor(nil, IngestOptions{Inline: true}, discardLogger()).Discard(ctx, "initiatives/x.jpg")
}

func TestParseFallbackPolicy(t *testing.T) {
	for in, want := range map[string]FallbackPolicy{
		"":            FallbackPlaceholder,
		"placeholder": FallbackPlaceholder,
		" None ":      FallbackNone,
	} {
		got, err := ParseFallbackPolicy(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFallbackPolicy("nnoe")
	assert.ErrorContains(t, err, "nnoe")
}
