package agent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrEmptyMessage rejects a blank user message before any sandbox
// resources are consumed.
var ErrEmptyMessage = errors.New("message is required")

// RunConfig is the self-contained envelope written into the sandbox's
// filesystem before launch. The in-sandbox runner bootstraps entirely from
// this file — no environment plumbing crosses the provisioning boundary.
// Created once per request, read once, discarded with the sandbox.
type RunConfig struct {
	Message string     `json:"message"`
	Options RunOptions `json:"options"`
	APIKey  string     `json:"apiKey"`
}

// BuildInput is everything a route hands to the builder.
type BuildInput struct {
	Message         string
	History         []ConversationMessage
	DocumentContent string
	Options         RunOptions
	APIKey          string

	// HistoryBudget caps transcript characters; zero means
	// DefaultHistoryBudget.
	HistoryBudget int
}

// BuildRunConfig assembles the run envelope: prompt/history merging per
// BuildPrompt, current-document injection, and sandbox-only fields
// stripped from the options the runner will see.
func BuildRunConfig(in BuildInput) (*RunConfig, error) {
	if strings.TrimSpace(in.Message) == "" {
		return nil, ErrEmptyMessage
	}

	budget := in.HistoryBudget
	if budget <= 0 {
		budget = DefaultHistoryBudget
	}
	prompt, systemPrompt := BuildPrompt(in.Message, boundHistory(in.History, budget), in.Options.SystemPrompt)
	systemPrompt = AppendDocument(systemPrompt, in.DocumentContent)

	opts := in.Options
	opts.SystemPrompt = systemPrompt
	opts.SandboxFiles = nil

	return &RunConfig{
		Message: prompt,
		Options: opts,
		APIKey:  in.APIKey,
	}, nil
}

// ConfigPaths are the locations the in-sandbox runner probes for its
// envelope, in order. Multiple paths tolerate differing sandbox working
// directories across snapshot versions.
var ConfigPaths = []string{"config.json", "/home/user/config.json", "/app/config.json"}

// LoadRunConfig reads the envelope from the first path that exists. It
// fails fast with a descriptive error rather than hanging when no config
// was provisioned.
func LoadRunConfig(paths []string) (*RunConfig, error) {
	if len(paths) == 0 {
		paths = ConfigPaths
	}
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("read run config %s: %w", p, err)
		}
		var cfg RunConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse run config %s: %w", p, err)
		}
		return &cfg, nil
	}
	return nil, fmt.Errorf("run config not found, tried: %s", strings.Join(paths, ", "))
}
