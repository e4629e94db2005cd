package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/semanadefe/semanadefe/internal/geocode"
)

func (s *Server) handleGeocodeSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	candidates, err := s.geocoder.Search(r.Context(), q.Get("q"), q.Get("country"))
	if err != nil {
		s.geocodeFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleGeocodeReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || lat < -90 || lat > 90 {
		writeError(w, http.StatusBadRequest, "invalid_latitude")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || lon < -180 || lon > 180 {
		writeError(w, http.StatusBadRequest, "invalid_longitude")
		return
	}

	name, err := s.geocoder.Reverse(r.Context(), lat, lon)
	if err != nil {
		s.geocodeFailed(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"latitude":     lat,
		"longitude":    lon,
		"locationName": name,
	})
}

func (s *Server) geocodeFailed(w http.ResponseWriter, err error) {
	s.logger.Warn("geocoding failed", "error", err)
	if errors.Is(err, geocode.ErrGeocode) {
		writeError(w, http.StatusBadGateway, "geocode_failed")
		return
	}
	writeError(w, http.StatusInternalServerError, "internal_error")
}
