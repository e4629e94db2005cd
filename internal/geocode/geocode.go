// Package geocode talks to a Nominatim-compatible geocoding service.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultBaseURL   = "https://nominatim.openstreetmap.org"
	DefaultUserAgent = "semanadefe/1.0 (+https://semanadefe.org)"

	// MinQueryLength is the shortest query, in runes, that reaches the service.
	MinQueryLength = 3
	MaxCandidates  = 5

	maxBodyBytes = 1 << 20
)

// ErrGeocode marks every lookup failure, whatever the cause.
var ErrGeocode = errors.New("geocoding failed")

// Candidate is one forward-search suggestion.
type Candidate struct {
	PlaceID     int64   `json:"placeId"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"displayName"`
}

type Config struct {
	BaseURL   string
	UserAgent string
	Country   string
	Timeout   time.Duration
}

type Client struct {
	baseURL   string
	userAgent string
	country   string
	client    *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimSuffix(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		country:   cfg.Country,
		client:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Reverse returns the display name of the place at lat, lon.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))

	body, err := c.get(ctx, "/reverse", q)
	if err != nil {
		return "", err
	}

	var resp struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: decode reverse response: %v", ErrGeocode, err)
	}
	name := strings.TrimSpace(resp.DisplayName)
	if name == "" {
		return "", fmt.Errorf("%w: no address for %v,%v", ErrGeocode, lat, lon)
	}
	return name, nil
}

// Search returns up to MaxCandidates places matching query. countryCode
// overrides the client's default filter when non-empty. Queries shorter than
// MinQueryLength return no candidates without a request.
func (c *Client) Search(ctx context.Context, query, countryCode string) ([]Candidate, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < MinQueryLength {
		return []Candidate{}, nil
	}
	if countryCode == "" {
		countryCode = c.country
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("q", query)
	if countryCode != "" {
		q.Set("countrycodes", countryCode)
	}
	q.Set("limit", strconv.Itoa(MaxCandidates))

	body, err := c.get(ctx, "/search", q)
	if err != nil {
		return nil, err
	}
	return parseCandidates(body), nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrGeocode, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeocode, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: service returned status %d", ErrGeocode, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrGeocode, err)
	}
	return body, nil
}

type rawCandidate struct {
	PlaceID     json.Number `json:"place_id"`
	Lat         json.Number `json:"lat"`
	Lon         json.Number `json:"lon"`
	DisplayName string      `json:"display_name"`
}

// parseCandidates is lenient: a body that is not an array yields nothing and
// entries with unusable coordinates are skipped.
func parseCandidates(body []byte) []Candidate {
	var entries []json.RawMessage
	if err := json.Unmarshal(body, &entries); err != nil {
		return []Candidate{}
	}

	out := make([]Candidate, 0, min(len(entries), MaxCandidates))
	for _, raw := range entries {
		if len(out) == MaxCandidates {
			break
		}
		var e rawCandidate
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		lat, err := strconv.ParseFloat(e.Lat.String(), 64)
		if err != nil {
			continue
		}
		lon, err := strconv.ParseFloat(e.Lon.String(), 64)
		if err != nil {
			continue
		}
		name := strings.TrimSpace(e.DisplayName)
		if name == "" {
			continue
		}
		id, _ := e.PlaceID.Int64()
		out = append(out, Candidate{PlaceID: id, Latitude: lat, Longitude: lon, DisplayName: name})
	}
	return out
}
