package loop

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
)

// ClaudeLoop drives the Claude Code CLI in non-interactive stream-json
// mode. Each Query spawns one process; the process owns the whole turn
// loop, including sub-agent delegation, and serializes its output as one
// JSON object per line on stdout.
type ClaudeLoop struct {
	// Binary overrides the CLI path. Empty means "claude" on PATH.
	Binary string
}

var _ Loop = (*ClaudeLoop)(nil)

// Query starts the CLI and returns a stream of its decoded output lines.
func (c *ClaudeLoop) Query(ctx context.Context, prompt string, opts Options) (Stream, error) {
	binary := c.Binary
	if binary == "" {
		binary = "claude"
	}

	args := []string{
		"--print",
		"--verbose",
		"--output-format", "stream-json",
	}
	if opts.PermissionMode != "" {
		args = append(args, "--permission-mode", opts.PermissionMode)
	}
	if len(opts.AllowedTools) > 0 {
		args = append(args, "--allowed-tools", strings.Join(opts.AllowedTools, ","))
	}
	if opts.SystemPrompt != "" {
		args = append(args, "--system-prompt", opts.SystemPrompt)
	}
	if len(opts.SubAgents) > 0 {
		agentsJSON, err := json.Marshal(opts.SubAgents)
		if err != nil {
			return nil, fmt.Errorf("marshal sub-agents: %w", err)
		}
		args = append(args, "--agents", string(agentsJSON))
	}
	if len(opts.SettingSources) > 0 {
		args = append(args, "--setting-sources", strings.Join(opts.SettingSources, ","))
	}
	if opts.MaxTurns > 0 {
		args = append(args, "--max-turns", fmt.Sprintf("%d", opts.MaxTurns))
	}
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, binary, args...)
	cmd.Dir = opts.WorkingDir
	cmd.Stderr = os.Stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", binary, err)
	}

	s := &claudeStream{
		messages: make(chan Message, 64),
	}
	go s.read(ctx, cmd, stdout)
	return s, nil
}

type claudeStream struct {
	messages chan Message
	mu       sync.Mutex
	err      error
}

func (s *claudeStream) Messages() <-chan Message { return s.messages }

func (s *claudeStream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *claudeStream) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// read decodes stream-json lines from stdout until EOF, then reaps the
// process. Tool results can embed large file contents, so the scanner
// buffer is raised well past the default.
func (s *claudeStream) read(ctx context.Context, cmd *exec.Cmd, stdout io.Reader) {
	defer close(s.messages)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := ParseStreamJSONLine(line)
		if err != nil {
			// Malformed line: forward it raw so nothing is silently lost.
			raw := make([]byte, len(line))
			copy(raw, line)
			msg = Message{Type: "unknown", Raw: raw}
		}

		select {
		case s.messages <- msg:
		case <-ctx.Done():
			s.setErr(ctx.Err())
			_ = cmd.Wait()
			return
		}
	}

	if err := scanner.Err(); err != nil {
		s.setErr(fmt.Errorf("read loop output: %w", err))
	}
	if err := cmd.Wait(); err != nil {
		s.setErr(fmt.Errorf("loop exited: %w", err))
	}
}

// streamJSONEnvelope is the common outer shape of every stream-json line.
type streamJSONEnvelope struct {
	Type      string `json:"type"`
	Subtype   string `json:"subtype"`
	SessionID string `json:"session_id"`
	Message   *struct {
		ID      string         `json:"id"`
		Content []ContentBlock `json:"content"`
	} `json:"message"`
}

// ParseStreamJSONLine decodes one line of loop output into a Message. The
// original bytes are retained verbatim in Raw.
func ParseStreamJSONLine(line []byte) (Message, error) {
	var env streamJSONEnvelope
	if err := json.Unmarshal(line, &env); err != nil {
		return Message{}, fmt.Errorf("parse stream-json line: %w", err)
	}

	raw := make([]byte, len(line))
	copy(raw, line)

	msg := Message{
		Type:      env.Type,
		Subtype:   env.Subtype,
		SessionID: env.SessionID,
		Raw:       raw,
	}
	if env.Type == "assistant" && env.Message != nil {
		msg.Assistant = &AssistantMessage{
			ID:      env.Message.ID,
			Content: env.Message.Content,
		}
	}
	return msg, nil
}
