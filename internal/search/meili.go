package search

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"

	"github.com/semanadefe/semanadefe/internal/domain"
)

const idxInitiatives = "initiatives"

// Record is the searchable projection of an initiative.
type Record struct {
	ID           string `json:"id"`
	LocationName string `json:"locationName"`
	Testimony    string `json:"testimony"`
	University   string `json:"university"`
	Date         string `json:"date"`
}

func recordOf(rec *domain.Initiative) Record {
	return Record{
		ID:           rec.ID,
		LocationName: rec.LocationName,
		Testimony:    rec.Testimony,
		University:   rec.University,
		Date:         rec.Date,
	}
}

// Meili indexes testimonies in Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	logger  *slog.Logger
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili connects to Meilisearch and configures the index. An unreachable
// server is not fatal: the client starts unhealthy and a background loop
// keeps probing.
func NewMeili(url, apiKey string, logger *slog.Logger) *Meili {
	m := &Meili{
		client: meili.New(url, meili.WithAPIKey(apiKey)),
		logger: logger,
		done:   make(chan struct{}),
	}

	if _, err := m.client.Health(); err != nil {
		logger.Warn("meilisearch unavailable", "url", url, "error", err)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop(10 * time.Second)
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxInitiatives,
		PrimaryKey: "id",
	}); err != nil {
		m.logger.Debug("create index (may already exist)", "index", idxInitiatives, "error", err)
	}
	searchable := []string{"testimony", "locationName", "university"}
	if _, err := m.client.Index(idxInitiatives).UpdateSearchableAttributes(&searchable); err != nil {
		m.logger.Warn("update searchable attributes failed", "index", idxInitiatives, "error", err)
	}
}

func (m *Meili) healthLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.logger.Info("meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Index adds or replaces the initiative's search record.
func (m *Meili) Index(rec *domain.Initiative) error {
	_, err := m.client.Index(idxInitiatives).AddDocuments([]Record{recordOf(rec)}, nil)
	return err
}

// SearchIDs returns the IDs of matching initiatives in relevance order.
func (m *Meili) SearchIDs(text string, limit int) ([]string, error) {
	if !m.healthy.Load() {
		return nil, fmt.Errorf("meilisearch unhealthy")
	}
	resp, err := m.client.Index(idxInitiatives).Search(text, &meili.SearchRequest{
		Limit: int64(limit),
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, fmt.Errorf("meilisearch search: %w", err)
	}

	ids := make([]string, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		if id := decodeString(hit, "id"); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
