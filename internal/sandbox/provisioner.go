// Package sandbox provides the ephemeral execution environments agent runs
// execute in. A sandbox is acquired per request from a snapshot image,
// leased for a bounded time, and torn down when the run ends — by the
// relay's cleanup path in the normal case, by the reaper if the server
// died mid-run.
package sandbox

import (
	"context"
	"io"
	"sync"
	"time"
)

// Handle identifies one acquired sandbox. Release semantics are
// exactly-once: the embedded Once lets every exit path call Release
// without coordination.
type Handle struct {
	ID        string
	RunID     string
	Deadline  time.Time
	releaseMu sync.Once
}

// ReleaseOnce runs fn the first time it is called for this handle and
// returns its error; later calls are no-ops.
func (h *Handle) ReleaseOnce(fn func() error) error {
	var err error
	h.releaseMu.Do(func() { err = fn() })
	return err
}

// Process is a detached command running inside a sandbox. Stdout and
// Stderr stream live output; Wait blocks until exit.
type Process interface {
	Stdout() io.Reader
	Stderr() io.Reader
	Wait() (int, error)
	Close() error
}

// Provisioner acquires and tears down sandboxes.
//
// Release must be safe to call exactly once per handle on every exit path:
// success, error, and early client disconnect. Callers pair Acquire with a
// deferred Release.
type Provisioner interface {
	// Acquire creates a sandbox from the snapshot reference with a fixed
	// lease. When the lease expires the provider kills the sandbox; the
	// relay observes that as a non-zero exit.
	Acquire(ctx context.Context, snapshotRef string, lease time.Duration) (*Handle, error)

	// WriteFiles places files into the sandbox filesystem before launch.
	// Relative paths are resolved against the sandbox home directory.
	WriteFiles(ctx context.Context, h *Handle, files map[string]string) error

	// RunDetached starts a command in the sandbox and returns its process.
	RunDetached(ctx context.Context, h *Handle, cmd []string, env []string) (Process, error)

	// Release destroys the sandbox. Idempotent per handle.
	Release(ctx context.Context, h *Handle) error
}
