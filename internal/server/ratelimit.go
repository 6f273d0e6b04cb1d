// internal/server/ratelimit.go
package server

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// bucket is a per-route token bucket. Tokens refill continuously at
// perMinute/60 per second up to a burst of perMinute.
type bucket struct {
	mu       sync.Mutex
	capacity float64
	perSec   float64
	tokens   float64
	last     time.Time
	now      func() time.Time
}

func newBucket(perMinute int, now func() time.Time) *bucket {
	return &bucket{
		capacity: float64(perMinute),
		perSec:   float64(perMinute) / 60,
		tokens:   float64(perMinute),
		last:     now(),
		now:      now,
	}
}

// take spends one token. When the bucket is empty it reports how long
// until the next token is available.
func (b *bucket) take() (bool, time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.now()
	if elapsed := t.Sub(b.last).Seconds(); elapsed > 0 {
		b.tokens = math.Min(b.capacity, b.tokens+elapsed*b.perSec)
	}
	b.last = t

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / b.perSec * float64(time.Second))
	return false, wait
}

func (b *bucket) wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ok, wait := b.take()
		if !ok {
			secs := int(math.Ceil(wait.Seconds()))
			w.Header().Set("Retry-After", strconv.Itoa(max(secs, 1)))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// limited gives each route its own bucket. A non-positive rate disables
// limiting.
func limited(perMinute int, next http.HandlerFunc) http.HandlerFunc {
	if perMinute <= 0 {
		return next
	}
	return newBucket(perMinute, time.Now).wrap(next)
}
