package sandbox

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/lightenlabs/feather/internal/logger"
)

// Sweeper removes sandboxes whose lease has expired.
type Sweeper interface {
	ReapExpired(ctx context.Context) (int, error)
}

// Reaper periodically sweeps for leaked sandboxes. The relay releases
// every sandbox it acquires, so the reaper only matters when a server
// process died between Acquire and Release.
type Reaper struct {
	cron    *cron.Cron
	sweeper Sweeper
}

// NewReaper schedules sweeps on the given cron spec (e.g. "@every 5m").
func NewReaper(spec string, sweeper Sweeper) (*Reaper, error) {
	r := &Reaper{
		cron:    cron.New(),
		sweeper: sweeper,
	}
	if _, err := r.cron.AddFunc(spec, r.sweep); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins sweeping in the background, with one immediate sweep to
// clear anything left over from a previous process.
func (r *Reaper) Start() {
	r.sweep()
	r.cron.Start()
}

// Stop halts scheduling and waits for an in-flight sweep to finish.
func (r *Reaper) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}

func (r *Reaper) sweep() {
	removed, err := r.sweeper.ReapExpired(context.Background())
	if err != nil {
		logger.Error("sandbox sweep failed", "error", err)
		return
	}
	if removed > 0 {
		logger.Info("sandbox sweep complete", "removed", removed)
	}
}
