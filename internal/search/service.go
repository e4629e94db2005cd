package search

import (
	"context"
	"log/slog"
	"strings"

	"github.com/semanadefe/semanadefe/internal/domain"
)

const defaultLimit = 20

// Store is the database fallback used when Meilisearch is absent or failing.
type Store interface {
	Search(ctx context.Context, text string, limit int) ([]*domain.Initiative, error)
	Get(ctx context.Context, id string) (*domain.Initiative, error)
}

// Service tries Meilisearch first and falls back to the store.
type Service struct {
	meili  *Meili
	store  Store
	logger *slog.Logger
}

// NewService creates a search service. meili may be nil.
func NewService(meili *Meili, store Store, logger *slog.Logger) *Service {
	return &Service{meili: meili, store: store, logger: logger}
}

func (s *Service) Search(ctx context.Context, text string, limit int) ([]*domain.Initiative, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []*domain.Initiative{}, nil
	}
	if limit <= 0 {
		limit = defaultLimit
	}

	if s.meili != nil && s.meili.Healthy() {
		ids, err := s.meili.SearchIDs(text, limit)
		if err == nil {
			return s.hydrate(ctx, ids)
		}
		s.logger.Warn("meilisearch error, falling back to store search", "error", err)
	}
	return s.store.Search(ctx, text, limit)
}

func (s *Service) hydrate(ctx context.Context, ids []string) ([]*domain.Initiative, error) {
	out := make([]*domain.Initiative, 0, len(ids))
	for _, id := range ids {
		rec, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		// The index can briefly outlive a record written to another database.
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Index pushes rec to Meilisearch without blocking the caller.
func (s *Service) Index(rec *domain.Initiative) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.Index(rec); err != nil {
			s.logger.Error("index initiative failed", "id", rec.ID, "error", err)
		}
	}()
}
