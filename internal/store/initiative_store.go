package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semanadefe/semanadefe/internal/db"
	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/search"
)

const initiativeColumns = `id, location_name, latitude, longitude, evangelists, evangelized, testimony,
	interaction_types, university, evangelism_tools, photo_url, photo_hint, event_date, created_at`

// InitiativeStore is the append-only home of submitted initiatives. Records
// are never updated or deleted once written.
type InitiativeStore struct {
	db      *sql.DB
	dialect db.Dialect
	clock   *monotonicClock
}

func NewInitiativeStore(d *sql.DB, dialect db.Dialect) *InitiativeStore {
	return &InitiativeStore{db: d, dialect: dialect, clock: newMonotonicClock(time.Now)}
}

// WithClock replaces the time source used for createdAt. Intended for tests.
func (s *InitiativeStore) WithClock(now func() time.Time) *InitiativeStore {
	s.clock = newMonotonicClock(now)
	return s
}

// Create stores a copy of in with a fresh ID and CreatedAt and returns it.
// Other fields are written exactly as given.
func (s *InitiativeStore) Create(ctx context.Context, in *domain.Initiative) (*domain.Initiative, error) {
	rec := *in
	rec.ID = uuid.NewString()
	rec.CreatedAt = s.clock.Next()

	evangelists, err := json.Marshal(nonNilPeople(rec.Evangelists))
	if err != nil {
		return nil, fmt.Errorf("failed to encode evangelists: %w", err)
	}
	evangelized, err := json.Marshal(nonNilPeople(rec.Evangelized))
	if err != nil {
		return nil, fmt.Errorf("failed to encode evangelized: %w", err)
	}
	interactions, err := json.Marshal(nonNilInteractions(rec.InteractionTypes))
	if err != nil {
		return nil, fmt.Errorf("failed to encode interaction types: %w", err)
	}
	tools, err := json.Marshal(nonNilStrings(rec.EvangelismTools))
	if err != nil {
		return nil, fmt.Errorf("failed to encode evangelism tools: %w", err)
	}

	_, err = s.db.ExecContext(ctx, rebind(s.dialect, `
		INSERT INTO initiatives (`+initiativeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`),
		rec.ID, rec.LocationName, rec.Latitude, rec.Longitude,
		string(evangelists), string(evangelized), rec.Testimony,
		string(interactions), rec.University, string(tools),
		rec.PhotoURL, rec.PhotoHint, rec.Date, rec.CreatedAt.UnixMicro(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create initiative: %w", err)
	}

	return &rec, nil
}

func (s *InitiativeStore) Get(ctx context.Context, id string) (*domain.Initiative, error) {
	row := s.db.QueryRowContext(ctx, rebind(s.dialect, `
		SELECT `+initiativeColumns+` FROM initiatives WHERE id = ?
	`), id)

	rec, err := scanInitiative(row, time.Now())
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get initiative: %w", err)
	}
	return rec, nil
}

// List returns every initiative, most recently created first. Rows written
// without a creation timestamp are reported as created now.
func (s *InitiativeStore) List(ctx context.Context) ([]*domain.Initiative, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+initiativeColumns+` FROM initiatives ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list initiatives: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	now := time.Now().UTC()
	list := make([]*domain.Initiative, 0)
	for rows.Next() {
		rec, err := scanInitiative(rows, now)
		if err != nil {
			return nil, fmt.Errorf("failed to scan initiative: %w", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating initiatives: %w", err)
	}

	// NULL sorts differently across dialects; order on the substituted value.
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
	return list, nil
}

// Search is the SQL fallback for testimony search. Matching is a
// case- and accent-insensitive substring test over testimony, location and
// university, newest first.
func (s *InitiativeStore) Search(ctx context.Context, text string, limit int) ([]*domain.Initiative, error) {
	needle := search.Fold(text)
	if needle == "" {
		return []*domain.Initiative{}, nil
	}

	all, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search initiatives: %w", err)
	}

	matches := make([]*domain.Initiative, 0)
	for _, rec := range all {
		haystack := search.Fold(rec.Testimony + " " + rec.LocationName + " " + rec.University)
		if strings.Contains(haystack, needle) {
			matches = append(matches, rec)
			if limit > 0 && len(matches) == limit {
				break
			}
		}
	}
	return matches, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInitiative(row rowScanner, now time.Time) (*domain.Initiative, error) {
	var (
		rec                                           domain.Initiative
		evangelists, evangelized, interactions, tools string
		createdAt                                     sql.NullInt64
	)
	if err := row.Scan(
		&rec.ID, &rec.LocationName, &rec.Latitude, &rec.Longitude,
		&evangelists, &evangelized, &rec.Testimony,
		&interactions, &rec.University, &tools,
		&rec.PhotoURL, &rec.PhotoHint, &rec.Date, &createdAt,
	); err != nil {
		return nil, err
	}

	if err := decodeList(evangelists, &rec.Evangelists); err != nil {
		return nil, fmt.Errorf("decode evangelists of %s: %w", rec.ID, err)
	}
	if err := decodeList(evangelized, &rec.Evangelized); err != nil {
		return nil, fmt.Errorf("decode evangelized of %s: %w", rec.ID, err)
	}
	if err := decodeList(interactions, &rec.InteractionTypes); err != nil {
		return nil, fmt.Errorf("decode interaction types of %s: %w", rec.ID, err)
	}
	if err := decodeList(tools, &rec.EvangelismTools); err != nil {
		return nil, fmt.Errorf("decode evangelism tools of %s: %w", rec.ID, err)
	}

	if createdAt.Valid {
		rec.CreatedAt = time.UnixMicro(createdAt.Int64).UTC()
	} else {
		rec.CreatedAt = now.UTC()
	}
	return &rec, nil
}

func decodeList[T any](raw string, dst *[]T) error {
	*dst = []T{}
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return err
	}
	if *dst == nil {
		*dst = []T{}
	}
	return nil
}

func nonNilPeople(p []domain.Person) []domain.Person {
	if p == nil {
		return []domain.Person{}
	}
	return p
}

func nonNilInteractions(t []domain.InteractionType) []domain.InteractionType {
	if t == nil {
		return []domain.InteractionType{}
	}
	return t
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
