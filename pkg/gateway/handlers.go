package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/dreamteam-ai/dispatch/pkg/delegation"
	"github.com/dreamteam-ai/dispatch/pkg/logger"
)

type delegateRequest struct {
	AgentSlug      string `json:"agent_slug"`
	Task           string `json:"task"`
	Context        string `json:"context,omitempty"`
	HeadAgentSlug  string `json:"head_agent_slug"`
	UserID         string `json:"user_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
}

type respondRequest struct {
	RequestID string `json:"request_id"`
	Content   string `json:"content"`
}

// handleDelegate runs a delegation against the current team snapshot and
// returns the Result as-is; delegation failures are payload, not HTTP errors.
func (s *Server) handleDelegate(w http.ResponseWriter, r *http.Request) {
	var req delegateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.AgentSlug == "" || req.Task == "" {
		writeJSONError(w, http.StatusBadRequest, "agent_slug and task are required")
		return
	}

	snap := s.snapshot()
	if snap == nil {
		writeJSONError(w, http.StatusServiceUnavailable, "no team snapshot loaded")
		return
	}

	result := s.delegator.Execute(r.Context(),
		snap,
		delegation.Input{
			AgentSlug: req.AgentSlug,
			Task:      req.Task,
			Context:   req.Context,
		},
		delegation.Session{
			WorkspaceID:    snap.WorkspaceID,
			UserID:         req.UserID,
			ConversationID: req.ConversationID,
			HeadAgentSlug:  req.HeadAgentSlug,
		})

	logger.InfoCF("gateway", "Delegation handled",
		map[string]any{
			"agent":   req.AgentSlug,
			"success": result.Success,
		})
	writeJSON(w, http.StatusOK, result)
}

// handleRespond delivers a specialist's channel response for a pending
// request id. Late responses are accepted and dropped quietly.
func (s *Server) handleRespond(w http.ResponseWriter, r *http.Request) {
	var req respondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.RequestID == "" {
		writeJSONError(w, http.StatusBadRequest, "request_id is required")
		return
	}

	if err := s.responder.DeliverResponse(r.Context(), req.RequestID, req.Content); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "failed to deliver response: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.ErrorCF("gateway", "failed to encode JSON response", map[string]any{"error": err.Error()})
	}
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
