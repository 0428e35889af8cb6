package sandbox

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

type fakeSweeper struct {
	sweeps atomic.Int32
}

func (f *fakeSweeper) ReapExpired(ctx context.Context) (int, error) {
	f.sweeps.Add(1)
	return 0, nil
}

func TestReaperSweepsImmediatelyOnStart(t *testing.T) {
	sw := &fakeSweeper{}
	r, err := NewReaper("@every 1h", sw)
	if err != nil {
		t.Fatalf("NewReaper() error = %v", err)
	}

	r.Start()
	r.Stop()

	if got := sw.sweeps.Load(); got != 1 {
		t.Errorf("sweeps = %d, want 1 immediate sweep", got)
	}
}

func TestReaperRejectsBadSpec(t *testing.T) {
	if _, err := NewReaper("not a cron spec", &fakeSweeper{}); err == nil {
		t.Error("NewReaper() error = nil, want spec error")
	}
}

func TestHandleReleaseOnce(t *testing.T) {
	h := &Handle{ID: "c1", RunID: "r1", Deadline: time.Now()}

	calls := 0
	for i := 0; i < 3; i++ {
		_ = h.ReleaseOnce(func() error {
			calls++
			return nil
		})
	}
	if calls != 1 {
		t.Errorf("release fn ran %d times, want 1", calls)
	}
}
