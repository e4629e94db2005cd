// Package location turns free-text queries and map picks into a complete
// (latitude, longitude, name) triple using a geocoding service.
package location

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/geocode"
)

const DefaultDebounce = 500 * time.Millisecond

type State int

const (
	StateIdle State = iota
	StateSearching
	StateResolving
	StateResolved
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSearching:
		return "searching"
	case StateResolving:
		return "resolving"
	case StateResolved:
		return "resolved"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
	Search(ctx context.Context, query, countryCode string) ([]geocode.Candidate, error)
}

type Options struct {
	Debounce time.Duration
	Country  string

	// OnChange receives every selected location. It is the only output of
	// a resolution.
	OnChange     func(domain.Location)
	OnCandidates func([]geocode.Candidate)
	// OnError is told about failed lookups so the caller can show a notice.
	OnError func(error)
}

// Snapshot is a point-in-time view of a Resolver.
type Snapshot struct {
	State       State
	Location    domain.Location
	HasLocation bool
	Query       string
	Resolving   bool
	Candidates  []geocode.Candidate
	Err         error
}

// Resolver is safe for concurrent use. Callbacks run outside its lock on
// the goroutine that completed the event. Deliveries of one kind never
// overlap, and a result superseded before its turn is dropped, so the last
// OnChange always carries the current location. OnChange must not call
// SelectCandidate and OnCandidates must not call SetQuery.
type Resolver struct {
	geo  Geocoder
	opts Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	changeMu    sync.Mutex
	candidateMu sync.Mutex

	mu          sync.Mutex
	state       State
	location    domain.Location
	hasLocation bool
	query       string
	candidates  []geocode.Candidate
	err         error
	resolving   bool
	timer       *time.Timer
	searchSeq   uint64
	pickSeq     uint64
	closed      bool
}

func NewResolver(geo Geocoder, opts Options) *Resolver {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Resolver{geo: geo, opts: opts, ctx: ctx, cancel: cancel}
}

// SetQuery records the search text and restarts the debounce timer. Queries
// too short to search clear the candidate list instead.
func (r *Resolver) SetQuery(q string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.query = q
	r.searchSeq++
	seq := r.searchSeq
	r.stopTimerLocked()

	if utf8.RuneCountInString(strings.TrimSpace(q)) < geocode.MinQueryLength {
		r.candidates = nil
		if r.state == StateSearching {
			r.state = r.restingStateLocked()
		}
		r.mu.Unlock()
		r.deliverCandidates(seq, []geocode.Candidate{}, nil)
		return
	}

	r.timer = time.AfterFunc(r.opts.Debounce, func() { r.runSearch(seq) })
	r.mu.Unlock()
}

func (r *Resolver) runSearch(seq uint64) {
	r.mu.Lock()
	if r.closed || seq != r.searchSeq {
		r.mu.Unlock()
		return
	}
	r.state = StateSearching
	q := r.query
	r.wg.Add(1)
	r.mu.Unlock()
	defer r.wg.Done()

	candidates, err := r.geo.Search(r.ctx, q, r.opts.Country)

	r.mu.Lock()
	if r.closed || seq != r.searchSeq {
		r.mu.Unlock()
		return
	}
	if err != nil {
		r.state = StateError
		r.err = err
		r.mu.Unlock()
		r.deliverCandidates(seq, nil, err)
		return
	}
	r.candidates = candidates
	r.state = r.restingStateLocked()
	r.mu.Unlock()
	r.deliverCandidates(seq, candidates, nil)
}

// SelectCandidate adopts a search suggestion as the location. Any reverse
// lookup still in flight is discarded.
func (r *Resolver) SelectCandidate(c geocode.Candidate) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pickSeq++
	seq := r.pickSeq
	r.searchSeq++
	r.stopTimerLocked()
	r.location = domain.Location{Latitude: c.Latitude, Longitude: c.Longitude, Name: c.DisplayName}
	r.hasLocation = true
	r.query = c.DisplayName
	r.candidates = nil
	r.resolving = false
	r.err = nil
	r.state = StateResolved
	loc := r.location
	r.mu.Unlock()

	r.deliverChange(seq, loc, nil)
}

// Pick sets the coordinates from a map click or marker drag and looks up
// their name in the background. Only the latest pick is applied.
func (r *Resolver) Pick(lat, lon float64) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.pickSeq++
	seq := r.pickSeq
	r.location = domain.Location{Latitude: lat, Longitude: lon}
	r.hasLocation = false
	r.resolving = true
	r.err = nil
	r.state = StateResolving
	r.wg.Add(1)
	r.mu.Unlock()

	go r.runReverse(seq, lat, lon)
}

func (r *Resolver) runReverse(seq uint64, lat, lon float64) {
	defer r.wg.Done()

	name, err := r.geo.Reverse(r.ctx, lat, lon)

	r.mu.Lock()
	if r.closed || seq != r.pickSeq {
		r.mu.Unlock()
		return
	}
	r.resolving = false
	r.hasLocation = true
	if err != nil {
		r.location = domain.Location{Latitude: lat, Longitude: lon}
		r.err = err
		r.state = StateError
	} else {
		r.location = domain.Location{Latitude: lat, Longitude: lon, Name: name}
		r.state = StateResolved
	}
	loc := r.location
	r.mu.Unlock()

	r.deliverChange(seq, loc, err)
}

func (r *Resolver) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Snapshot{
		State:       r.state,
		Location:    r.location,
		HasLocation: r.hasLocation,
		Query:       r.query,
		Resolving:   r.resolving,
		Candidates:  append([]geocode.Candidate(nil), r.candidates...),
		Err:         r.err,
	}
}

func (r *Resolver) Candidates() []geocode.Candidate {
	return r.Snapshot().Candidates
}

func (r *Resolver) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Close stops pending timers, cancels lookups and waits for them to finish.
// No callback runs after Close returns.
func (r *Resolver) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.stopTimerLocked()
	r.cancel()
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Resolver) stopTimerLocked() {
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *Resolver) restingStateLocked() State {
	switch {
	case r.resolving:
		return StateResolving
	case r.hasLocation && r.err == nil:
		return StateResolved
	default:
		return StateIdle
	}
}

// deliverChange hands a pick result to OnChange unless a newer pick or
// selection replaced it while an earlier delivery was running.
func (r *Resolver) deliverChange(seq uint64, loc domain.Location, err error) {
	r.changeMu.Lock()
	defer r.changeMu.Unlock()
	if !r.current(func() bool { return seq == r.pickSeq }) {
		return
	}
	r.emitChange(loc)
	if err != nil {
		r.emitError(err)
	}
}

func (r *Resolver) deliverCandidates(seq uint64, c []geocode.Candidate, err error) {
	r.candidateMu.Lock()
	defer r.candidateMu.Unlock()
	if !r.current(func() bool { return seq == r.searchSeq }) {
		return
	}
	if err != nil {
		r.emitError(err)
		return
	}
	r.emitCandidates(c)
}

func (r *Resolver) current(latest func() bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return !r.closed && latest()
}

func (r *Resolver) emitChange(loc domain.Location) {
	if r.opts.OnChange != nil {
		r.opts.OnChange(loc)
	}
}

func (r *Resolver) emitCandidates(c []geocode.Candidate) {
	if r.opts.OnCandidates != nil {
		r.opts.OnCandidates(c)
	}
}

func (r *Resolver) emitError(err error) {
	if r.opts.OnError != nil {
		r.opts.OnError(err)
	}
}
