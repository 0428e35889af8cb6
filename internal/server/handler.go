package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lightenlabs/feather/internal/agent"
	"github.com/lightenlabs/feather/internal/audit"
	"github.com/lightenlabs/feather/internal/event"
	"github.com/lightenlabs/feather/internal/logger"
	"github.com/lightenlabs/feather/internal/metrics"
	"github.com/lightenlabs/feather/internal/relay"
	"github.com/lightenlabs/feather/internal/sandbox"
	"github.com/lightenlabs/feather/internal/store"
	"github.com/lightenlabs/feather/internal/validation"
)

// messageRequest is the body of a message POST. History and document
// content are client-held state; the server keeps nothing between
// requests.
type messageRequest struct {
	Message         string                      `json:"message"`
	History         []agent.ConversationMessage `json:"history,omitempty"`
	DocumentContent string                      `json:"documentContent,omitempty"`
}

// agentSummary is the list-endpoint view of an agent.
type agentSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Deployed bool   `json:"deployed,omitempty"`
}

func (s *Server) handleAgentMessage(w http.ResponseWriter, r *http.Request) {
	def, err := s.registry.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	s.runAgent(w, r, def)
}

func (s *Server) handleDynamicMessage(w http.ResponseWriter, r *http.Request) {
	def, err := s.store.Get(chi.URLParam(r, "slug"))
	if err != nil {
		writeError(w, http.StatusNotFound, "Agent not found")
		return
	}
	s.runAgent(w, r, def)
}

// runAgent is the generic message route: build the run envelope, lease a
// sandbox, launch the runner, and hand the stream to the relay. All
// failures before the first streamed byte are plain JSON errors; after
// that, errors travel inside the stream.
func (s *Server) runAgent(w http.ResponseWriter, r *http.Request, def *agent.Definition) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	runCfg, err := agent.BuildRunConfig(agent.BuildInput{
		Message:         req.Message,
		History:         req.History,
		DocumentContent: req.DocumentContent,
		Options:         def.RunOptions(),
		APIKey:          s.cfg.AnthropicAPIKey,
		HistoryBudget:   s.cfg.HistoryBudget,
	})
	if err != nil {
		if errors.Is(err, agent.ErrEmptyMessage) {
			writeError(w, http.StatusBadRequest, "Message is required")
			return
		}
		s.failStart(w, def.ID, err)
		return
	}

	ctx := r.Context()
	h, err := s.prov.Acquire(ctx, s.cfg.SnapshotImage, s.cfg.SandboxLease)
	if err != nil {
		s.failStart(w, def.ID, err)
		return
	}

	envelope, err := json.Marshal(runCfg)
	if err != nil {
		s.releaseAndFailStart(w, r, def.ID, h, err)
		return
	}
	files := map[string]string{"config.json": string(envelope)}
	for name, content := range def.SandboxFiles {
		files[name] = content
	}
	if err := s.prov.WriteFiles(ctx, h, files); err != nil {
		s.releaseAndFailStart(w, r, def.ID, h, err)
		return
	}

	proc, err := s.prov.RunDetached(ctx, h, []string{"agent-runner"}, nil)
	if err != nil {
		s.releaseAndFailStart(w, r, def.ID, h, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Echo the user's message (never the envelope, which carries the API
	// key) so clients can render optimistically from the stream alone.
	sw := event.NewSSEWriter(w)
	_ = sw.Send(&event.AgentEvent{Type: event.TypeInput, Text: req.Message})

	logger.Info("agent run started", "agent", def.ID, "run_id", h.RunID)
	audit.LogSuccess(audit.OpRunStart, def.ID, h.RunID)
	metrics.RecordRunStart(def.ID)
	start := time.Now()

	runErr := relay.Run(ctx, w, s.prov, h, proc)

	status := "ok"
	if runErr != nil {
		status = "error"
		audit.LogFailure(audit.OpRunFinish, def.ID, h.RunID, runErr)
	} else {
		audit.LogSuccess(audit.OpRunFinish, def.ID, h.RunID)
	}
	metrics.RecordRunEnd(def.ID, status, time.Since(start).Seconds())
	logger.Info("agent run finished", "agent", def.ID, "run_id", h.RunID, "status", status, "duration", time.Since(start))
}

func (s *Server) failStart(w http.ResponseWriter, agentID string, err error) {
	logger.Error("agent run failed to start", "agent", agentID, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error":   "Failed to start agent",
		"details": err.Error(),
	})
}

func (s *Server) releaseAndFailStart(w http.ResponseWriter, r *http.Request, agentID string, h *sandbox.Handle, err error) {
	_ = s.prov.Release(r.Context(), h)
	s.failStart(w, agentID, err)
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	var out []agentSummary
	for _, d := range s.registry.List() {
		out = append(out, agentSummary{ID: d.ID, Name: d.Name})
	}
	deployed, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list agents")
		return
	}
	for _, d := range deployed {
		out = append(out, agentSummary{ID: d.ID, Name: d.Name, Deployed: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (s *Server) handleListDeployed(w http.ResponseWriter, r *http.Request) {
	deployed, err := s.store.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list agents")
		return
	}
	out := make([]agentSummary, 0, len(deployed))
	for _, d := range deployed {
		out = append(out, agentSummary{ID: d.ID, Name: d.Name, Deployed: true})
	}
	writeJSON(w, http.StatusOK, map[string]any{"agents": out})
}

func (s *Server) handleDeploy(w http.ResponseWriter, r *http.Request) {
	var def agent.Definition
	if err := json.NewDecoder(r.Body).Decode(&def); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent definition")
		return
	}
	def.ID = chi.URLParam(r, "slug")
	if err := validation.ValidateSlug(def.ID); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid agent slug")
		return
	}
	if def.SystemPrompt == "" {
		writeError(w, http.StatusBadRequest, "System prompt is required")
		return
	}
	for name := range def.SandboxFiles {
		if err := validation.ValidateSandboxPath(name); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid sandbox file path")
			return
		}
	}
	if def.Name == "" {
		def.Name = def.ID
	}
	if err := s.store.Put(&def); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to deploy agent")
		return
	}
	logger.Info("agent deployed", "agent", def.ID)
	audit.LogSuccess(audit.OpAgentDeploy, def.ID, "")
	writeJSON(w, http.StatusCreated, &def)
}

func (s *Server) handleUndeploy(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if err := s.store.Delete(slug); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Agent not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete agent")
		return
	}
	logger.Info("agent undeployed", "agent", slug)
	audit.LogSuccess(audit.OpAgentUndeploy, slug, "")
	w.WriteHeader(http.StatusNoContent)
}
