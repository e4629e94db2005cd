package location

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanadefe/semanadefe/internal/domain"
	"github.com/semanadefe/semanadefe/internal/geocode"
)

const testDebounce = 20 * time.Millisecond

type stubGeocoder struct {
	mu       sync.Mutex
	searches []string
	reverse  func(ctx context.Context, lat, lon float64) (string, error)
	search   func(ctx context.Context, q string) ([]geocode.Candidate, error)
}

func (s *stubGeocoder) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	return s.reverse(ctx, lat, lon)
}

func (s *stubGeocoder) Search(ctx context.Context, q, _ string) ([]geocode.Candidate, error) {
	s.mu.Lock()
	s.searches = append(s.searches, q)
	s.mu.Unlock()
	return s.search(ctx, q)
}

func (s *stubGeocoder) searchCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.searches...)
}

type recorder struct {
	changes    chan domain.Location
	candidates chan []geocode.Candidate
	errs       chan error
}

func newRecorder() *recorder {
	return &recorder{
		changes:    make(chan domain.Location, 16),
		candidates: make(chan []geocode.Candidate, 16),
		errs:       make(chan error, 16),
	}
}

func (rec *recorder) options() Options {
	return Options{
		Debounce:     testDebounce,
		OnChange:     func(l domain.Location) { rec.changes <- l },
		OnCandidates: func(c []geocode.Candidate) { rec.candidates <- c },
		OnError:      func(err error) { rec.errs <- err },
	}
}

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for callback")
		var zero T
		return zero
	}
}

func assertNothing[T any](t *testing.T, ch <-chan T, wait time.Duration) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected callback: %v", v)
	case <-time.After(wait):
	}
}

func TestPickResolvesName(t *testing.T) {
	geo := &stubGeocoder{reverse: func(context.Context, float64, float64) (string, error) {
		return "Copacabana, Rio de Janeiro", nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.Pick(-22.9711, -43.1822)

	loc := receive(t, rec.changes)
	assert.Equal(t, domain.Location{Latitude: -22.9711, Longitude: -43.1822, Name: "Copacabana, Rio de Janeiro"}, loc)

	snap := r.Snapshot()
	assert.Equal(t, StateResolved, snap.State)
	assert.True(t, snap.HasLocation)
	assert.False(t, snap.Resolving)
	assert.NoError(t, snap.Err)
}

func TestPickFailureEmitsCoordinatesAndStaysUsable(t *testing.T) {
	fail := true
	var mu sync.Mutex
	geo := &stubGeocoder{reverse: func(context.Context, float64, float64) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return "", geocode.ErrGeocode
		}
		return "Vitória, ES", nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.Pick(-20.3, -40.3)

	loc := receive(t, rec.changes)
	assert.Equal(t, domain.Location{Latitude: -20.3, Longitude: -40.3}, loc)
	assert.ErrorIs(t, receive(t, rec.errs), geocode.ErrGeocode)
	assert.Equal(t, StateError, r.Snapshot().State)
	assert.ErrorIs(t, r.Err(), geocode.ErrGeocode)

	mu.Lock()
	fail = false
	mu.Unlock()

	r.Pick(-20.31, -40.31)
	loc = receive(t, rec.changes)
	assert.Equal(t, "Vitória, ES", loc.Name)
	assert.Equal(t, StateResolved, r.Snapshot().State)
	assert.NoError(t, r.Err())
}

func TestOnlyLatestPickApplies(t *testing.T) {
	releaseFirst := make(chan struct{})
	geo := &stubGeocoder{reverse: func(ctx context.Context, lat, _ float64) (string, error) {
		if lat == 1 {
			select {
			case <-releaseFirst:
			case <-ctx.Done():
				return "", ctx.Err()
			}
			return "first", nil
		}
		return "second", nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.Pick(1, 1)
	assert.Equal(t, StateResolving, r.Snapshot().State)
	r.Pick(2, 2)

	loc := receive(t, rec.changes)
	assert.Equal(t, domain.Location{Latitude: 2, Longitude: 2, Name: "second"}, loc)

	close(releaseFirst)
	assertNothing(t, rec.changes, 50*time.Millisecond)
	assert.Equal(t, "second", r.Snapshot().Location.Name)
}

func TestSlowChangeCallbackDoesNotReorderResults(t *testing.T) {
	geo := &stubGeocoder{reverse: func(_ context.Context, lat, _ float64) (string, error) {
		if lat == 1 {
			return "A", nil
		}
		return "B", nil
	}}

	entered := make(chan struct{})
	release := make(chan struct{})
	delivered := make(chan domain.Location, 4)
	var calls int
	var mu sync.Mutex
	r := NewResolver(geo, Options{
		Debounce: testDebounce,
		OnChange: func(l domain.Location) {
			mu.Lock()
			calls++
			first := calls == 1
			mu.Unlock()
			if first {
				close(entered)
				<-release
			}
			delivered <- l
		},
	})
	defer r.Close()

	r.Pick(1, 1)
	receive(t, entered)
	r.Pick(2, 2)
	close(release)

	assert.Equal(t, "A", receive(t, delivered).Name)
	last := receive(t, delivered)
	assert.Equal(t, domain.Location{Latitude: 2, Longitude: 2, Name: "B"}, last)
	assertNothing(t, delivered, 50*time.Millisecond)
	assert.Equal(t, last, r.Snapshot().Location)
}

func TestSelectCandidateInvalidatesPendingPick(t *testing.T) {
	release := make(chan struct{})
	geo := &stubGeocoder{reverse: func(ctx context.Context, _, _ float64) (string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
		return "late", nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.Pick(5, 5)
	r.SelectCandidate(geocode.Candidate{PlaceID: 9, Latitude: -19.93, Longitude: -43.93, DisplayName: "Praça da Liberdade"})

	loc := receive(t, rec.changes)
	assert.Equal(t, domain.Location{Latitude: -19.93, Longitude: -43.93, Name: "Praça da Liberdade"}, loc)

	close(release)
	assertNothing(t, rec.changes, 50*time.Millisecond)

	snap := r.Snapshot()
	assert.Equal(t, StateResolved, snap.State)
	assert.Equal(t, "Praça da Liberdade", snap.Query)
}

func TestSetQueryDebounces(t *testing.T) {
	geo := &stubGeocoder{search: func(_ context.Context, q string) ([]geocode.Candidate, error) {
		return []geocode.Candidate{{PlaceID: 1, Latitude: 1, Longitude: 2, DisplayName: q}}, nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.SetQuery("pra")
	r.SetQuery("praç")
	r.SetQuery("praça")

	got := receive(t, rec.candidates)
	require.Len(t, got, 1)
	assert.Equal(t, "praça", got[0].DisplayName)
	assert.Equal(t, []string{"praça"}, geo.searchCalls())
	assert.Equal(t, got, r.Candidates())
	assert.Equal(t, StateIdle, r.Snapshot().State)
}

func TestShortQueryDoesNotSearch(t *testing.T) {
	geo := &stubGeocoder{search: func(context.Context, string) ([]geocode.Candidate, error) {
		return nil, errors.New("must not be called")
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.SetQuery("ab")
	assert.Empty(t, receive(t, rec.candidates))

	time.Sleep(3 * testDebounce)
	assert.Empty(t, geo.searchCalls())
}

func TestStaleSearchDiscarded(t *testing.T) {
	releaseFirst := make(chan struct{})
	geo := &stubGeocoder{search: func(ctx context.Context, q string) ([]geocode.Candidate, error) {
		if q == "copacabana" {
			select {
			case <-releaseFirst:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		return []geocode.Candidate{{DisplayName: q, Latitude: 1, Longitude: 1}}, nil
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.SetQuery("copacabana")
	require.Eventually(t, func() bool { return r.Snapshot().State == StateSearching }, time.Second, 5*time.Millisecond)

	r.SetQuery("ipanema")
	got := receive(t, rec.candidates)
	assert.Equal(t, "ipanema", got[0].DisplayName)

	close(releaseFirst)
	assertNothing(t, rec.candidates, 50*time.Millisecond)
	assert.Equal(t, "ipanema", r.Candidates()[0].DisplayName)
}

func TestSearchErrorReported(t *testing.T) {
	geo := &stubGeocoder{search: func(context.Context, string) ([]geocode.Candidate, error) {
		return nil, geocode.ErrGeocode
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())
	defer r.Close()

	r.SetQuery("belo horizonte")
	assert.ErrorIs(t, receive(t, rec.errs), geocode.ErrGeocode)
	assert.Equal(t, StateError, r.Snapshot().State)
}

func TestCloseDiscardsLateResponses(t *testing.T) {
	geo := &stubGeocoder{reverse: func(ctx context.Context, _, _ float64) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	rec := newRecorder()
	r := NewResolver(geo, rec.options())

	r.Pick(1, 1)
	r.Close()

	assertNothing(t, rec.changes, 30*time.Millisecond)
	assertNothing(t, rec.errs, 0)

	// Events after Close are ignored.
	r.Pick(2, 2)
	r.SetQuery("campinas")
	assertNothing(t, rec.changes, 3*testDebounce)
	r.Close()
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "resolving", StateResolving.String())
	assert.Equal(t, "unknown", State(42).String())
}
