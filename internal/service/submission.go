package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/hint"
)

// initiativeRepository is the subset of store.InitiativeStore that
// SubmissionService requires.
type initiativeRepository interface {
	Create(ctx context.Context, in *domain.Initiative) (*domain.Initiative, error)
	Get(ctx context.Context, id string) (*domain.Initiative, error)
	List(ctx context.Context) ([]*domain.Initiative, error)
}

// searchIndexer receives every created initiative.
type searchIndexer interface {
	Index(rec *domain.Initiative)
}

const dateLayout = "2006-01-02"

type SubmissionService struct {
	store    initiativeRepository
	ingestor *ImageIngestor
	hinter   hint.Hinter
	indexer  searchIndexer
	now      func() time.Time
	logger   *slog.Logger
}

// NewSubmissionService wires the pipeline. hinter and indexer may be nil.
func NewSubmissionService(
	store initiativeRepository,
	ingestor *ImageIngestor,
	hinter hint.Hinter,
	indexer searchIndexer,
	logger *slog.Logger,
) *SubmissionService {
	if hinter == nil {
		hinter = hint.Static{}
	}
	return &SubmissionService{
		store:    store,
		ingestor: ingestor,
		hinter:   hinter,
		indexer:  indexer,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock replaces the clock used for the submission date.
func (s *SubmissionService) WithClock(now func() time.Time) *SubmissionService {
	s.now = now
	return s
}

// Submit validates, ingests the photo, and stores a new initiative. It
// returns *ValidationError before any side effect, or *PersistenceError when
// the store fails, in which case an uploaded photo is deleted again.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (*domain.Initiative, error) {
	rec, err := Validate(in)
	if err != nil {
		return nil, err
	}

	photo := s.ingestor.Place(ctx, in.Photo)
	rec.PhotoURL = photo.URL
	rec.PhotoHint = s.photoHint(ctx, in.Photo)
	rec.Date = s.now().UTC().Format(dateLayout)

	created, err := s.store.Create(ctx, rec)
	if err != nil {
		s.logger.Error("submission not persisted", "location", rec.LocationName, "error", err)
		// The record was never written; its photo would be unreachable.
		s.ingestor.Discard(ctx, photo.Key)
		return nil, &PersistenceError{Err: err}
	}
	s.logger.Info("initiative submitted", "id", created.ID, "location", created.LocationName,
		"evangelized", len(created.Evangelized))

	if s.indexer != nil {
		s.indexer.Index(created)
	}
	return created, nil
}

func (s *SubmissionService) photoHint(ctx context.Context, photo *Photo) string {
	if photo == nil || len(photo.Data) == 0 {
		return hint.Default
	}
	h, err := s.hinter.Hint(ctx, photo.Data, photo.ContentType)
	if err != nil || h == "" {
		s.logger.Warn("photo hint unavailable, using default", "error", err)
		return hint.Default
	}
	return h
}

// List returns every initiative, newest first.
func (s *SubmissionService) List(ctx context.Context) ([]*domain.Initiative, error) {
	return s.store.List(ctx)
}

// Get returns nil when id is unknown.
func (s *SubmissionService) Get(ctx context.Context, id string) (*domain.Initiative, error) {
	return s.store.Get(ctx, id)
}
