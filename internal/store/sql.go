package store

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/semanadefe/semanadefe/internal/db"
)

// rebind rewrites '?' placeholders to the dialect's positional form.
func rebind(dialect db.Dialect, query string) string {
	if dialect != db.Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// greatest returns the dialect's two-argument maximum function.
func greatest(dialect db.Dialect) string {
	if dialect == db.Postgres {
		return "GREATEST"
	}
	return "MAX"
}

// monotonicClock hands out strictly increasing timestamps at microsecond
// resolution so that creation order survives equal wall-clock readings.
type monotonicClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func newMonotonicClock(now func() time.Time) *monotonicClock {
	if now == nil {
		now = time.Now
	}
	return &monotonicClock{now: now}
}

func (c *monotonicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
