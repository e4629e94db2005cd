package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanadefe/semanadefe/internal/db"
	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/hint"
	"github.com/semanadefe/semanadefe/internal/store"
)

var submissionDay = time.Date(2024, 7, 23, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))

type stubHinter struct {
	hint string
	err  error
}

func (h stubHinter) Hint(context.Context, []byte, string) (string, error) {
	return h.hint, h.err
}

type recordingIndexer struct {
	mu  sync.Mutex
	ids []string
}

func (r *recordingIndexer) Index(rec *domain.Initiative) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids = append(r.ids, rec.ID)
}

// failingRepository rejects every write.
type failingRepository struct {
	creates int
}

func (f *failingRepository) Create(context.Context, *domain.Initiative) (*domain.Initiative, error) {
	f.creates++
	return nil, errors.New("database is locked")
}

func (f *failingRepository) Get(context.Context, string) (*domain.Initiative, error) {
	return nil, nil
}

func (f *failingRepository) List(context.Context) ([]*domain.Initiative, error) {
	return nil, errors.New("database is locked")
}

func newTestSubmissionService(t *testing.T, opts IngestOptions, hinter hint.Hinter) (*SubmissionService, *recordingIndexer) {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	idx := &recordingIndexer{}
	svc := NewSubmissionService(
		store.NewInitiativeStore(d, db.SQLite),
		NewImageIngestor(newStubPhotoStore(), opts, discardLogger()),
		hinter,
		idx,
		discardLogger(),
	).WithClock(func() time.Time { return submissionDay })
	return svc, idx
}

func TestSubmitScenarioA(t *testing.T) {
	svc, idx := newTestSubmissionService(t, IngestOptions{}, nil)
	ctx := context.Background()

	_, err := svc.Seed(ctx)
	require.NoError(t, err)

	in := validInput()
	created, err := svc.Submit(ctx, in)
	require.NoError(t, err)

	assert.NotEmpty(t, created.ID)
	assert.Regexp(t, placeholderPattern, created.PhotoURL)
	assert.Equal(t, hint.Default, created.PhotoHint)
	assert.Equal(t, "2024-07-24", created.Date, "date is the UTC calendar day")
	assert.Equal(t, in.LocationName, created.LocationName)
	assert.Equal(t, *in.Latitude, created.Latitude)
	assert.Equal(t, *in.Longitude, created.Longitude)
	assert.Equal(t, in.Evangelists, created.Evangelists)
	assert.Equal(t, in.Evangelized, created.Evangelized)
	assert.Equal(t, in.Testimony, created.Testimony)
	assert.Equal(t, in.University, created.University)
	assert.Equal(t, in.EvangelismTools, created.EvangelismTools)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, created.ID, list[0].ID)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, created.Testimony, got.Testimony)

	assert.Contains(t, idx.ids, created.ID)
}

func TestSubmitScenarioAWithoutPlaceholder(t *testing.T) {
	svc, _ := newTestSubmissionService(t, IngestOptions{Fallback: FallbackNone}, nil)

	created, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, "", created.PhotoURL)
}

func TestSubmitScenarioB(t *testing.T) {
	svc, idx := newTestSubmissionService(t, IngestOptions{}, nil)
	ctx := context.Background()

	in := validInput()
	in.Testimony = strings.Repeat("x", 10)
	created, err := svc.Submit(ctx, in)
	assert.Nil(t, created)

	verr := validationFields(t, err)
	assert.True(t, verr.Has("testimony"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, idx.ids)
}

func TestSubmitInvalidPayloadHasNoSideEffects(t *testing.T) {
	photos := newStubPhotoStore()
	repo := &failingRepository{}
	svc := NewSubmissionService(repo, NewImageIngestor(photos, IngestOptions{}, discardLogger()), nil, nil, discardLogger())

	in := validInput()
	in.Evangelized = nil
	in.Photo = &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}

	_, err := svc.Submit(context.Background(), in)
	validationFields(t, err)
	assert.Zero(t, repo.creates)
	assert.Empty(t, photos.keys(), "photo must not be uploaded for an invalid submission")
}

func TestSubmitPersistenceError(t *testing.T) {
	repo := &failingRepository{}
	svc := NewSubmissionService(repo, NewImageIngestor(nil, IngestOptions{}, discardLogger()), nil, nil, discardLogger())

	_, err := svc.Submit(context.Background(), validInput())
	require.Error(t, err)

	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Retryable())
	assert.Contains(t, perr.Error(), "database is locked")

	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
	assert.Equal(t, 1, repo.creates)
}

func TestSubmitPersistenceErrorDeletesUploadedPhoto(t *testing.T) {
	photos := newStubPhotoStore()
	repo := &failingRepository{}
	svc := NewSubmissionService(repo, NewImageIngestor(photos, IngestOptions{}, discardLogger()), nil, nil, discardLogger())

	in := validInput()
	in.Photo = &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}

	_, err := svc.Submit(context.Background(), in)
	var perr *PersistenceError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 1, repo.creates)
	assert.Empty(t, photos.keys(), "a failed submission must not leave its photo behind")
}

func TestSubmitRejectsPaddedTestimony(t *testing.T) {
	svc, idx := newTestSubmissionService(t, IngestOptions{}, nil)
	ctx := context.Background()

	in := validInput()
	in.Testimony = strings.Repeat("A", 25) + strings.Repeat(" ", 600)
	_, err := svc.Submit(ctx, in)
	verr := validationFields(t, err)
	assert.True(t, verr.Has("testimony"))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.Empty(t, idx.ids)
}

func TestSubmitWithPhotoUsesHinter(t *testing.T) {
	svc, _ := newTestSubmissionService(t, IngestOptions{Folder: "initiatives"}, stubHinter{hint: "campus estudantes"})

	in := validInput()
	in.Photo = &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}
	created, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(created.PhotoURL, "https://storage.example.org/photos/initiatives/"))
	assert.Equal(t, "campus estudantes", created.PhotoHint)
}

func TestSubmitHinterFailureUsesDefault(t *testing.T) {
	svc, _ := newTestSubmissionService(t, IngestOptions{}, stubHinter{err: errors.New("model offline")})

	in := validInput()
	in.Photo = &Photo{Data: []byte("jpeg"), ContentType: "image/jpeg"}
	created, err := svc.Submit(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, hint.Default, created.PhotoHint)
}
