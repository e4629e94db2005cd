package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/tasks"
)

// MaxDelta bounds a single selection change.
const MaxDelta = 100

// TaskCounter is implemented by store.TaskCountStore and
// redisstore.TaskCountStore.
type TaskCounter interface {
	Increment(ctx context.Context, taskID string, delta int64) (int64, error)
	GetAll(ctx context.Context) (map[string]int64, error)
}

// TaskView is a catalog entry with its live selection count.
type TaskView struct {
	domain.Task
	Count     int64  `json:"count"`
	ShareText string `json:"shareText"`
}

type TaskService struct {
	catalog *tasks.Catalog
	counter TaskCounter
	hub     *Hub
	logger  *slog.Logger
}

func NewTaskService(catalog *tasks.Catalog, counter TaskCounter, hub *Hub, logger *slog.Logger) *TaskService {
	if hub == nil {
		hub = NewHub()
	}
	return &TaskService{catalog: catalog, counter: counter, hub: hub, logger: logger}
}

func (s *TaskService) Hub() *Hub { return s.hub }

// RecordSelection applies delta to the task's counter in one atomic step and
// returns the new count. Failures are not retried here: a blind retry after
// an ambiguous failure could count a selection twice.
func (s *TaskService) RecordSelection(ctx context.Context, taskID string, delta int64) (int64, error) {
	if _, ok := s.catalog.Find(taskID); !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownTask, taskID)
	}
	if delta == 0 || delta > MaxDelta || delta < -MaxDelta {
		return 0, fmt.Errorf("%w: %d", ErrInvalidDelta, delta)
	}

	n, err := s.counter.Increment(ctx, taskID, delta)
	if err != nil {
		s.logger.Error("task selection not recorded", "task_id", taskID, "delta", delta, "error", err)
		return 0, &CounterError{TaskID: taskID, Err: err}
	}
	s.logger.Info("task selection recorded", "task_id", taskID, "delta", delta, "count", n)

	s.hub.Publish(taskID, n)
	return n, nil
}

// Counts returns the stored counters and refreshes the live hub with them.
// Selections published while the read was in flight are not overwritten.
func (s *TaskService) Counts(ctx context.Context) (map[string]int64, error) {
	since := s.hub.Generation()
	counts, err := s.counter.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get task counts: %w", err)
	}
	s.hub.Merge(counts, since)
	return counts, nil
}

// List returns the catalog in order, each task with its count.
func (s *TaskService) List(ctx context.Context) ([]TaskView, error) {
	counts, err := s.Counts(ctx)
	if err != nil {
		return nil, err
	}
	all := s.catalog.All()
	views := make([]TaskView, 0, len(all))
	for _, t := range all {
		views = append(views, TaskView{Task: t, Count: counts[t.ID], ShareText: tasks.ShareText(t)})
	}
	return views, nil
}
