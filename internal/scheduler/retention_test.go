package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"
)

type fakePruner struct {
	mu    sync.Mutex
	calls int
}

func (p *fakePruner) PruneExpired(ctx context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return 3
}

func TestNewRetentionValidates(t *testing.T) {
	if _, err := NewRetention(nil, time.UTC, "03:30"); err == nil {
		t.Fatalf("want error for nil pruner")
	}
	if _, err := NewRetention(&fakePruner{}, time.UTC, "3h30"); err == nil {
		t.Fatalf("want error for malformed time")
	}
	r, err := NewRetention(&fakePruner{}, nil, "")
	if err != nil {
		t.Fatalf("NewRetention error: %v", err)
	}
	if r.at != DefaultPruneAt {
		t.Fatalf("at=%q, want %q", r.at, DefaultPruneAt)
	}
}

func TestRetentionRunNow(t *testing.T) {
	p := &fakePruner{}
	r, err := NewRetention(p, time.UTC, "03:30")
	if err != nil {
		t.Fatalf("NewRetention error: %v", err)
	}
	if n := r.RunNow(context.Background()); n != 3 {
		t.Fatalf("RunNow=%d, want 3", n)
	}
	if p.calls != 1 {
		t.Fatalf("calls=%d, want 1", p.calls)
	}
	if !r.NextRun().IsZero() {
		t.Fatalf("NextRun should be zero before Start")
	}
}

func TestRetentionStartSchedulesDaily(t *testing.T) {
	r, err := NewRetention(&fakePruner{}, time.UTC, "03:30")
	if err != nil {
		t.Fatalf("NewRetention error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start error: %v", err)
	}
	defer r.Stop()
	if err := r.Start(ctx); err != nil {
		t.Fatalf("second Start error: %v", err)
	}

	next := r.NextRun().In(time.UTC)
	if next.IsZero() || next.Hour() != 3 || next.Minute() != 30 {
		t.Fatalf("next=%v, want 03:30 UTC", next)
	}
	if next.Before(time.Now().Add(-time.Minute)) || next.After(time.Now().Add(25*time.Hour)) {
		t.Fatalf("next=%v, want within a day", next)
	}
}

func TestRetentionRunSkipsCancelledContext(t *testing.T) {
	p := &fakePruner{}
	r, _ := NewRetention(p, time.UTC, "03:30")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r.ctx = ctx
	r.run()
	if p.calls != 0 {
		t.Fatalf("calls=%d, want 0 after cancel", p.calls)
	}
}
