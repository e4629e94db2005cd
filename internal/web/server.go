package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/geocode"
	"github.com/semanadefe/semanadefe/internal/photostore"
	"github.com/semanadefe/semanadefe/internal/service"
)

type testimonySearcher interface {
	Search(ctx context.Context, text string, limit int) ([]*domain.Initiative, error)
}

type placeFinder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
	Search(ctx context.Context, query, countryCode string) ([]geocode.Candidate, error)
}

// Deps are the collaborators behind the HTTP API. Photos may be nil when
// photos are not stored locally. Checks are run by /healthz; a failing
// check marks the service unavailable.
type Deps struct {
	Submissions *service.SubmissionService
	Tasks       *service.TaskService
	Stats       *service.StatsService
	Search      testimonySearcher
	Geocoder    placeFinder
	Photos      photostore.PhotoStore
	Checks      map[string]func(context.Context) error
	Logger      *slog.Logger
}

type Server struct {
	submissions *service.SubmissionService
	tasks       *service.TaskService
	stats       *service.StatsService
	search      testimonySearcher
	geocoder    placeFinder
	photoStore  photostore.PhotoStore
	checks      map[string]func(context.Context) error
	router      chi.Router
	logger      *slog.Logger

	// streamsDone is closed on shutdown to end open event streams.
	streamsDone chan struct{}
	closeOnce   sync.Once
}

func NewServer(d Deps) *Server {
	s := &Server{
		submissions: d.Submissions,
		tasks:       d.Tasks,
		stats:       d.Stats,
		search:      d.Search,
		geocoder:    d.Geocoder,
		photoStore:  d.Photos,
		checks:      d.Checks,
		logger:      d.Logger,
		streamsDone: make(chan struct{}),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return requestLogger(s.logger, next) })
	r.Use(securityHeaders)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/initiatives", func(r chi.Router) {
			r.Post("/", s.handleSubmitInitiative)
			r.Get("/", s.handleListInitiatives)
			r.Get("/{id}", s.handleGetInitiative)
		})
		r.Get("/testimonies/search", s.handleSearchTestimonies)
		r.Get("/stats", s.handleStats)

		r.Route("/tasks", func(r chi.Router) {
			r.Get("/", s.handleListTasks)
			r.Get("/counts", s.handleTaskCounts)
			r.Get("/counts/stream", s.handleTaskCountStream)
			r.Post("/{id}/selections", s.handleRecordSelection)
		})

		r.Route("/geocode", func(r chi.Router) {
			r.Get("/search", s.handleGeocodeSearch)
			r.Get("/reverse", s.handleGeocodeReverse)
		})
	})

	r.Get("/photos/*", s.handleGetPhoto)
	return r
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy", "default-src 'none'; img-src 'self'; frame-ancestors 'none'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	srv.RegisterOnShutdown(s.closeStreams)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) closeStreams() {
	s.closeOnce.Do(func() { close(s.streamsDone) })
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write json response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			s.logger.Error("health check failed", "check", name, "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "failing": name})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
