package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/semanadefe/semanadefe/internal/service"
)

type selectionRequest struct {
	Delta *int64 `json:"delta"`
}

type selectionResponse struct {
	TaskID string `json:"taskId"`
	Count  int64  `json:"count"`
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	views, err := s.tasks.List(r.Context())
	if err != nil {
		s.logger.Error("list tasks failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleTaskCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.tasks.Counts(r.Context())
	if err != nil {
		s.logger.Error("get task counts failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// handleRecordSelection applies {"delta": n} to a task counter. An empty
// body counts one selection.
func (s *Server) handleRecordSelection(w http.ResponseWriter, r *http.Request) {
	taskID := chi.URLParam(r, "id")

	delta := int64(1)
	var req selectionRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req)
	switch {
	case errors.Is(err, io.EOF):
	case err != nil:
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	case req.Delta != nil:
		delta = *req.Delta
	}

	count, err := s.tasks.RecordSelection(r.Context(), taskID, delta)

	var cerr *service.CounterError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, selectionResponse{TaskID: taskID, Count: count})
	case errors.Is(err, service.ErrUnknownTask):
		writeError(w, http.StatusNotFound, "unknown_task")
	case errors.Is(err, service.ErrInvalidDelta):
		writeError(w, http.StatusBadRequest, "invalid_delta")
	case errors.As(err, &cerr):
		writeError(w, http.StatusServiceUnavailable, "selection_not_recorded")
	default:
		s.logger.Error("record selection failed", "task_id", taskID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// handleTaskCountStream sends the full counter map as an SSE event on
// connect and after every recorded selection.
func (s *Server) handleTaskCountStream(w http.ResponseWriter, r *http.Request) {
	if _, err := s.tasks.Counts(r.Context()); err != nil {
		// Stream whatever the hub knows; fresh selections still arrive.
		s.logger.Warn("refresh task counts for stream failed", "error", err)
	}

	updates, cancel := s.tasks.Hub().Subscribe()
	defer cancel()

	rc := http.NewResponseController(w)
	// Streams outlive the server's write timeout.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-s.streamsDone:
			_, _ = w.Write([]byte("event: done\ndata: {}\n\n"))
			_ = rc.Flush()
			return
		case <-heartbeat.C:
			if _, err := w.Write([]byte(": keep-alive\n\n")); err != nil {
				return
			}
		case counts, ok := <-updates:
			if !ok {
				return
			}
			payload, err := json.Marshal(counts)
			if err != nil {
				s.logger.Error("encode task counts failed", "error", err)
				return
			}
			if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
