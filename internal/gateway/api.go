// ABOUTME: HTTP API handlers for chat, history, clear, and the analysis endpoints
// ABOUTME: JSON request/response types and error mapping for the securebot API

package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/2389/securebot/internal/analyzer"
	"github.com/2389/securebot/internal/conversation"
	"github.com/2389/securebot/internal/store"
)

// ChatRequest is the JSON request body for POST /api/chat.
type ChatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
}

// ChatResponse is the JSON response for POST /api/chat. Error is set when
// the turn failed but a reply (possibly the fallback text) is still carried.
type ChatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
	Error          string `json:"error,omitempty"`
}

// MessageResponse is one message in a history response.
type MessageResponse struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
}

// HistoryResponse is the JSON response for GET /api/history.
type HistoryResponse struct {
	ConversationID string            `json:"conversation_id"`
	Messages       []MessageResponse `json:"messages"`
}

// ClearResponse is the JSON response for DELETE /api/clear.
type ClearResponse struct {
	Success bool `json:"success"`
}

// AnalysisResponse is the JSON response for POST /api/analyze-traffic.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// ReportRequest is the JSON request body for POST /api/generate-report.
type ReportRequest struct {
	Incidents []*analyzer.Incident `json:"incidents"`
}

// ReportResponse is the JSON response for POST /api/generate-report. The
// report is markdown; ReportHTML carries the rendered form.
type ReportResponse struct {
	Report     string `json:"report"`
	ReportHTML string `json:"report_html"`
}

// HealthResponse is the JSON response for GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

// conversationID resolves the conversation identity for a request: explicit
// value first, then the ?id query parameter, then the configured default.
func (g *Gateway) conversationID(r *http.Request, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if id := r.URL.Query().Get("id"); id != "" {
		return id
	}
	return g.config.Conversations.DefaultID
}

// handleChat handles POST /api/chat: one full conversation turn.
func (g *Gateway) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	convID := g.conversationID(r, req.ConversationID)

	result, err := g.conversation.HandleTurn(r.Context(), convID, req.Message)
	if err != nil {
		g.sendTurnError(w, convID, result, err)
		return
	}

	g.sendJSON(w, http.StatusOK, ChatResponse{
		Response:       result.Reply,
		ConversationID: result.ConversationID,
	})
}

// sendTurnError maps a failed turn to a structured error response. A reply
// computed before the failure (or the fallback text) is still included.
func (g *Gateway) sendTurnError(w http.ResponseWriter, convID string, result *conversation.TurnResult, err error) {
	switch {
	case errors.Is(err, conversation.ErrEmptyMessage):
		g.sendJSONError(w, http.StatusBadRequest, "message is required")

	case errors.Is(err, analyzer.ErrTimeout), errors.Is(err, analyzer.ErrUnavailable):
		g.logger.Warn("chat turn failed at analyzer", "conversation_id", convID, "error", err)
		reply := conversation.FallbackReply
		if result != nil {
			reply = result.Reply
		}
		g.sendJSON(w, http.StatusBadGateway, ChatResponse{
			Response:       reply,
			ConversationID: convID,
			Error:          "analyzer unavailable",
		})

	case errors.Is(err, store.ErrStorageUnavailable):
		g.logger.Error("chat turn failed at storage", "conversation_id", convID, "error", err)
		if result != nil {
			// Reply was computed; only persistence failed.
			g.sendJSON(w, http.StatusInternalServerError, ChatResponse{
				Response:       result.Reply,
				ConversationID: convID,
				Error:          "history not persisted",
			})
			return
		}
		g.sendJSONError(w, http.StatusServiceUnavailable, "storage unavailable")

	default:
		g.logger.Error("chat turn failed", "conversation_id", convID, "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal server error")
	}
}

// handleHistory handles GET /api/history?id=X.
func (g *Gateway) handleHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	convID := g.conversationID(r, "")

	messages, err := g.conversation.History(r.Context(), convID)
	if err != nil {
		g.logger.Error("failed to read history", "conversation_id", convID, "error", err)
		g.sendJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	response := HistoryResponse{
		ConversationID: convID,
		Messages:       make([]MessageResponse, len(messages)),
	}
	for i, msg := range messages {
		response.Messages[i] = MessageResponse{
			Role:      msg.Role,
			Content:   msg.Content,
			Timestamp: msg.CreatedAt.Format(time.RFC3339),
		}
	}

	g.sendJSON(w, http.StatusOK, response)
}

// handleClear handles DELETE /api/clear?id=X.
func (g *Gateway) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	convID := g.conversationID(r, "")

	if err := g.conversation.Clear(r.Context(), convID); err != nil {
		g.logger.Error("failed to clear conversation", "conversation_id", convID, "error", err)
		g.sendJSONError(w, http.StatusServiceUnavailable, "storage unavailable")
		return
	}

	g.sendJSON(w, http.StatusOK, ClearResponse{Success: true})
}

/// handleAnalyzeTraffic handles POST /api/analyze-traffic. Single-shot: the
// conversation store is not involved.
func (g *Gateway) handleAnalyzeTraffic(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var pattern analyzer.TrafficPattern
	if err := json.NewDecoder(r.Body).Decode(&pattern); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	analysis, err := g.analyzer.AnalyzeTraffic(r.Context(), &pattern)
	if err != nil {
		g.logger.Warn("traffic analysis failed", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, "analyzer unavailable")
		return
	}

	g.sendJSON(w, http.StatusOK, AnalysisResponse{Analysis: analysis})
}

// handleGenerateReport handles POST /api/generate-report.
func (g *Gateway) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Incidents) == 0 {
		g.sendJSONError(w, http.StatusBadRequest, "incidents are required")
		return
	}

	report, err := g.analyzer.GenerateIncidentReport(r.Context(), req.Incidents)
	if err != nil {
		g.logger.Warn("report generation failed", "error", err)
		g.sendJSONError(w, http.StatusBadGateway, "analyzer unavailable")
		return
	}

	var htmlBuf bytes.Buffer
	if err := goldmark.Convert([]byte(report), &htmlBuf); err != nil {
		g.logger.Error("failed to render report markdown", "error", err)
	}

	g.sendJSON(w, http.StatusOK, ReportResponse{
		Report:     report,
		ReportHTML: htmlBuf.String(),
	})
}

// handleHealth handles GET /api/health.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.sendJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: serviceName,
		Version: Version,
	})
}

// handleNotFound returns a JSON 404 for unknown paths.
func (g *Gateway) handleNotFound(w http.ResponseWriter, r *http.Request) {
	g.sendJSONError(w, http.StatusNotFound, "not found")
}

// sendJSON writes a JSON response with the given status.
func (g *Gateway) sendJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		g.logger.Error("failed to encode response", "error", err)
	}
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, message string) {
	g.sendJSON(w, status, map[string]string{"error": message})
}
