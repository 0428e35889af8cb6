// Package relay bridges a sandboxed agent process to an SSE client. The
// process emits fully framed SSE on stdout; the relay forwards those
// bytes verbatim, watches the exit code, and guarantees that every
// stream ends with the terminator and every sandbox gets released.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/lightenlabs/feather/internal/event"
	"github.com/lightenlabs/feather/internal/logger"
	"github.com/lightenlabs/feather/internal/metrics"
	"github.com/lightenlabs/feather/internal/sandbox"
)

// stderrTailLimit bounds how much process stderr is retained for error
// reporting.
const stderrTailLimit = 4096

// Run forwards the process event stream to w until the process exits,
// then appends the stream terminator. A non-zero exit produces an error
// event before the terminator. The sandbox is always released, exactly
// once, whether the stream finished, failed, or the client went away.
func Run(ctx context.Context, w http.ResponseWriter, prov sandbox.Provisioner, h *sandbox.Handle, proc sandbox.Process) error {
	defer func() {
		// Release must not be skipped because the request context died.
		if err := prov.Release(context.WithoutCancel(ctx), h); err != nil {
			logger.Error("sandbox release failed", "run_id", h.RunID, "error", err)
		}
	}()
	defer proc.Close()

	var (
		stderrTail tail
		wg         sync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = io.Copy(&stderrTail, proc.Stderr())
	}()

	fw := &flushWriter{w: w}
	copied, copyErr := io.Copy(fw, proc.Stdout())
	if copyErr != nil {
		logger.Warn("event stream interrupted", "run_id", h.RunID, "bytes", copied, "error", copyErr)
	}

	exitCode, waitErr := proc.Wait()
	wg.Wait()

	var runErr error
	switch {
	case waitErr != nil:
		runErr = fmt.Errorf("wait for agent process: %w", waitErr)
	case exitCode != 0:
		runErr = fmt.Errorf("agent process exited with code %d", exitCode)
	}

	if runErr != nil && copyErr == nil {
		// The client is still listening; tell it the run failed before
		// terminating the stream.
		sw := event.NewSSEWriter(fw)
		_ = sw.Send(&event.AgentEvent{
			Type:     event.TypeError,
			Error:    runErr.Error(),
			RawError: strings.TrimSpace(stderrTail.String()),
		})
		logger.Error("agent run failed", "run_id", h.RunID, "exit_code", exitCode, "stderr", stderrTail.String())
	}

	// The terminator goes out on every path so clients never hang waiting
	// for more events.
	_, _ = io.WriteString(fw, event.Sentinel)

	if runErr != nil {
		return runErr
	}
	return copyErr
}

// flushWriter flushes the response after every chunk so events reach the
// client as soon as the agent produces them.
type flushWriter struct {
	w io.Writer
}

func (f *flushWriter) Write(p []byte) (int, error) {
	n, err := f.w.Write(p)
	metrics.RecordRelayedBytes(n)
	if fl, ok := f.w.(http.Flusher); ok {
		fl.Flush()
	}
	return n, err
}

// Flush satisfies event.Flusher; flushWriter already flushes per write.
func (f *flushWriter) Flush() {}

// tail keeps the last stderrTailLimit bytes written to it.
type tail struct {
	buf []byte
}

func (t *tail) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	if len(t.buf) > stderrTailLimit {
		t.buf = t.buf[len(t.buf)-stderrTailLimit:]
	}
	return len(p), nil
}

func (t *tail) String() string { return string(t.buf) }
