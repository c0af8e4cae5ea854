package bridge

import (
	"context"
	"sync"
	"time"
)

const defaultLivenessTTL = 2 * time.Second

// Prober answers whether a bridge server is currently reachable.
type Prober interface {
	IsAvailable(ctx context.Context) bool
}

// Status is the result of a liveness check. WasUp distinguishes a crash
// (previously confirmed up, now gone) from a game that never started.
type Status struct {
	Ready bool
	WasUp bool
}

// Liveness caches runtime reachability so rapid tool sequences do not pay a
// full HTTP round trip per call, while still detecting a stopped game within
// the TTL window.
type Liveness struct {
	prober Prober
	ttl    time.Duration

	mu            sync.Mutex
	lastConfirmed time.Time
}

func NewLiveness(prober Prober, ttl time.Duration) *Liveness {
	if ttl <= 0 {
		ttl = defaultLivenessTTL
	}
	return &Liveness{prober: prober, ttl: ttl}
}

// Check returns the current liveness status. A confirmation within the TTL
// window short-circuits the network probe. Any probe failure invalidates the
// record immediately so the next check always probes live. A zero now means
// time.Now.
func (l *Liveness) Check(ctx context.Context, now time.Time) Status {
	if now.IsZero() {
		now = time.Now()
	}

	l.mu.Lock()
	confirmed := l.lastConfirmed
	l.mu.Unlock()

	if !confirmed.IsZero() && now.Sub(confirmed) < l.ttl {
		return Status{Ready: true}
	}

	if l.prober.IsAvailable(ctx) {
		l.mu.Lock()
		l.lastConfirmed = now
		l.mu.Unlock()
		return Status{Ready: true}
	}

	l.mu.Lock()
	wasUp := !l.lastConfirmed.IsZero()
	l.lastConfirmed = time.Time{}
	l.mu.Unlock()
	return Status{Ready: false, WasUp: wasUp}
}

// Invalidate clears the record so the next check probes live.
func (l *Liveness) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lastConfirmed = time.Time{}
}
