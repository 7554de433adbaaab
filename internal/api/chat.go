package api

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/tasknest/tasknest/internal/chat"
	"github.com/tasknest/tasknest/internal/tools"
)

const maxChatMessageRunes = 2000

// chatFallback is returned with HTTP 200 when the assistant fails mid-request.
// Provider errors never reach clients; details go to the log.
const chatFallback = "Sorry, I couldn't process that request. Please try rephrasing."

// chatHandler serves the conversational endpoints. A nil orchestrator means
// no AI provider was configured; send degrades to 503 and health reports
// unavailable.
type chatHandler struct {
	orchestrator *chat.Orchestrator
	logger       *slog.Logger
}

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Response       string         `json:"response"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	Actions        []tools.Record `json:"actions"`
}

// send handles POST /api/chat.
func (h *chatHandler) send(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeError(w, http.StatusServiceUnavailable, "chat_unavailable", "AI chat service is not configured", h.logger)
		return
	}

	userID, ok := requireUserID(w, r, h.logger)
	if !ok {
		return
	}

	var req chatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON", h.logger)
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "validation_failed", "message must not be empty", h.logger)
		return
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		writeError(w, http.StatusBadRequest, "validation_failed", "message must be at most 2000 characters", h.logger)
		return
	}

	conversationID := uuid.Nil
	if req.ConversationID != "" {
		parsed, err := uuid.Parse(req.ConversationID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "conversation_id must be a valid UUID", h.logger)
			return
		}
		conversationID = parsed
	}

	result, err := h.orchestrator.Process(r.Context(), userID, message, conversationID)
	if err != nil {
		h.logger.Error("chat processing failed",
			"error", err,
			"user_id", userID,
			"request_id", requestIDFromContext(r.Context()),
		)
		if conversationID == uuid.Nil {
			conversationID = uuid.New()
		}
		writeJSON(w, http.StatusOK, chatResponse{
			Response:       chatFallback,
			ConversationID: conversationID,
			Actions:        []tools.Record{},
		}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:       result.Response,
		ConversationID: result.ConversationID,
		Actions:        result.Actions,
	}, h.logger)
}

// health handles GET /api/chat/health. Always 200; availability is in the
// body so clients can poll it without tripping error handling.
func (h *chatHandler) health(w http.ResponseWriter, r *http.Request) {
	if h.orchestrator == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "unavailable",
			"provider": nil,
			"model":    nil,
		}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "available",
		"provider": h.orchestrator.Provider(),
		"model":    h.orchestrator.Model(),
	}, h.logger)
}
