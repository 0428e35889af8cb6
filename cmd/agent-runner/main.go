// Feather in-sandbox agent runner. Boots from the run envelope written
// into the sandbox, drives the agent loop, and emits SSE events on
// stdout for the gateway to relay.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/lightenlabs/feather/internal/agent"
	"github.com/lightenlabs/feather/internal/event"
	"github.com/lightenlabs/feather/internal/loop"
	"github.com/lightenlabs/feather/internal/runner"
)

func main() {
	cfg, err := agent.LoadRunConfig(nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if cfg.APIKey != "" {
		os.Setenv("ANTHROPIC_API_KEY", cfg.APIKey)
	}

	// Stdout is unbuffered; every SSE record reaches the relay as soon as
	// it is written.
	r := runner.New(event.NewSSEWriter(os.Stdout), runner.Config{
		DraftDocument: cfg.Options.DraftDocument,
	})

	lp := &loop.ClaudeLoop{}
	if err := r.Run(context.Background(), lp, cfg.Message, cfg.Options.LoopOptions()); err != nil {
		// The error already went to the client inside the stream; the exit
		// code tells the relay the run failed.
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
