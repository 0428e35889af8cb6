// Package audit records an append-only trail of the operations that
// matter for accountability: agent runs and deployments. Entries go to
// stdout as JSON, separate from the diagnostic log.
package audit

import (
	"encoding/json"
	"log/slog"
	"os"
	"sync"
	"time"
)

// Operation represents the type of auditable operation
type Operation string

const (
	OpRunStart      Operation = "run.start"
	OpRunFinish     Operation = "run.finish"
	OpAgentDeploy   Operation = "agent.deploy"
	OpAgentUndeploy Operation = "agent.undeploy"
)

// Event represents an audit log entry
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Operation Operation      `json:"operation"`
	AgentID   string         `json:"agent_id,omitempty"`
	RunID     string         `json:"run_id,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
}

// Logger handles audit logging
type Logger struct {
	logger  *slog.Logger
	enabled bool
	mu      sync.RWMutex
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default audit logger
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(true)
	})
	return defaultLogger
}

// New creates a new audit logger
func New(enabled bool) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	return &Logger{
		logger:  slog.New(handler),
		enabled: enabled,
	}
}

// SetEnabled enables or disables audit logging
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Log records an audit event
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	enabled := l.enabled
	l.mu.RUnlock()

	if !enabled {
		return
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	attrs := []any{
		slog.String("audit", "true"),
		slog.String("operation", string(event.Operation)),
		slog.Bool("success", event.Success),
	}

	if event.AgentID != "" {
		attrs = append(attrs, slog.String("agent_id", event.AgentID))
	}
	if event.RunID != "" {
		attrs = append(attrs, slog.String("run_id", event.RunID))
	}
	if event.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", event.RequestID))
	}
	if event.Error != "" {
		attrs = append(attrs, slog.String("error", event.Error))
	}
	if event.Details != nil {
		detailsJSON, _ := json.Marshal(event.Details)
		attrs = append(attrs, slog.String("details", string(detailsJSON)))
	}

	l.logger.Info("AUDIT", attrs...)
}

// LogSuccess records a successful operation
func (l *Logger) LogSuccess(op Operation, agentID, runID string) {
	l.Log(&Event{
		Operation: op,
		AgentID:   agentID,
		RunID:     runID,
		Success:   true,
	})
}

// LogFailure records a failed operation
func (l *Logger) LogFailure(op Operation, agentID, runID string, err error) {
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	l.Log(&Event{
		Operation: op,
		AgentID:   agentID,
		RunID:     runID,
		Success:   false,
		Error:     errMsg,
	})
}

// Convenience functions using default logger

func Log(event *Event) {
	Default().Log(event)
}

func LogSuccess(op Operation, agentID, runID string) {
	Default().LogSuccess(op, agentID, runID)
}

func LogFailure(op Operation, agentID, runID string, err error) {
	Default().LogFailure(op, agentID, runID, err)
}
