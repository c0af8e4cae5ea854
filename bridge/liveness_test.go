package bridge

import (
	"context"
	"testing"
	"time"
)

type fakeProber struct {
	available bool
	probes    int
}

func (p *fakeProber) IsAvailable(ctx context.Context) bool {
	p.probes++
	return p.available
}

func TestLivenessCachesWithinTTL(t *testing.T) {
	prober := &fakeProber{available: true}
	liveness := NewLiveness(prober, 2*time.Second)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if status := liveness.Check(context.Background(), now); !status.Ready {
		t.Fatal("expected ready on first check")
	}
	if status := liveness.Check(context.Background(), now.Add(1*time.Second)); !status.Ready {
		t.Fatal("expected ready within TTL")
	}
	if prober.probes != 1 {
		t.Fatalf("expected 1 probe within TTL window, got %d", prober.probes)
	}

	if status := liveness.Check(context.Background(), now.Add(3*time.Second)); !status.Ready {
		t.Fatal("expected ready after TTL re-probe")
	}
	if prober.probes != 2 {
		t.Fatalf("expected exactly one more probe after TTL expiry, got %d", prober.probes)
	}
}

func TestLivenessReportsWasUpOnCrash(t *testing.T) {
	prober := &fakeProber{available: true}
	liveness := NewLiveness(prober, 2*time.Second)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if status := liveness.Check(context.Background(), now); !status.Ready {
		t.Fatal("expected ready")
	}

	prober.available = false
	status := liveness.Check(context.Background(), now.Add(3*time.Second))
	if status.Ready {
		t.Fatal("expected unreachable")
	}
	if !status.WasUp {
		t.Fatal("expected WasUp=true after a confirmed-up record")
	}

	// Record was invalidated: the next failure is "never was up".
	status = liveness.Check(context.Background(), now.Add(4*time.Second))
	if status.Ready || status.WasUp {
		t.Fatalf("expected not-running status, got %+v", status)
	}
}

func TestLivenessNeverUp(t *testing.T) {
	prober := &fakeProber{available: false}
	liveness := NewLiveness(prober, 2*time.Second)

	status := liveness.Check(context.Background(), time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	if status.Ready || status.WasUp {
		t.Fatalf("expected never-up status, got %+v", status)
	}
}

func TestLivenessFailureProbesLiveNextCheck(t *testing.T) {
	prober := &fakeProber{available: true}
	liveness := NewLiveness(prober, time.Hour)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	liveness.Check(context.Background(), now)
	liveness.Invalidate()

	// Even with a huge TTL, an invalidated record forces a real probe.
	liveness.Check(context.Background(), now.Add(time.Millisecond))
	if prober.probes != 2 {
		t.Fatalf("expected a live probe after invalidation, got %d probes", prober.probes)
	}
}
