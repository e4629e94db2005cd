package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/semanadefe/semanadefe/internal/service"
)

const (
	maxJSONBody        = 64 * 1024
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type validationResponse struct {
	Error  string               `json:"error"`
	Fields []service.FieldError `json:"fields"`
}

type persistenceResponse struct {
	Error     string                  `json:"error"`
	Retryable bool                    `json:"retryable"`
	Input     service.SubmissionInput `json:"input"`
}

func (s *Server) handleSubmitInitiative(w http.ResponseWriter, r *http.Request) {
	in, status, msg := s.readSubmission(w, r)
	if status != 0 {
		writeError(w, status, msg)
		return
	}

	created, err := s.submissions.Submit(r.Context(), in)

	var verr *service.ValidationError
	var perr *service.PersistenceError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, created)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, validationResponse{Error: "validation_failed", Fields: verr.Fields})
	case errors.As(err, &perr):
		writeJSON(w, http.StatusServiceUnavailable, persistenceResponse{
			Error:     "persistence_failed",
			Retryable: perr.Retryable(),
			Input:     in,
		})
	default:
		s.logger.Error("submit initiative failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}

// readSubmission decodes a JSON body, or a multipart form carrying the JSON
// in a "payload" field and an optional "photo" file. A non-zero status means
// the request was rejected.
func (s *Server) readSubmission(w http.ResponseWriter, r *http.Request) (service.SubmissionInput, int, string) {
	var in service.SubmissionInput

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			return in, http.StatusBadRequest, "invalid_json"
		}
		return in, 0, ""
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxPhotoSize+maxJSONBody)
	if err := r.ParseMultipartForm(maxPhotoSize); err != nil {
		return in, http.StatusBadRequest, "invalid_form"
	}
	if err := json.Unmarshal([]byte(r.FormValue("payload")), &in); err != nil {
		return in, http.StatusBadRequest, "invalid_json"
	}

	photo, err := readPhoto(r)
	if err != nil {
		if errors.Is(err, errUnsupportedImage) {
			return in, http.StatusBadRequest, "unsupported_image_format"
		}
		s.logger.Error("read upload failed", "error", err)
		return in, http.StatusBadRequest, "invalid_photo"
	}
	in.Photo = photo
	return in, 0, ""
}

func (s *Server) handleListInitiatives(w http.ResponseWriter, r *http.Request) {
	list, err := s.submissions.List(r.Context())
	if err != nil {
		s.logger.Error("list initiatives failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetInitiative(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.submissions.Get(r.Context(), id)
	if err != nil {
		s.logger.Error("get initiative failed", "id", id, "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSearchTestimonies(w http.ResponseWriter, r *http.Request) {
	limit := defaultSearchLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		limit = min(n, maxSearchLimit)
	}

	results, err := s.search.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		s.logger.Error("search testimonies failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "search_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	p, err := s.stats.Progress(r.Context())
	if err != nil {
		s.logger.Error("compute progress failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "store_unavailable")
		return
	}
	writeJSON(w, http.StatusOK, p)
}
