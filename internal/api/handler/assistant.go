package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/Rrens/event-assistant/internal/api/response"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/service"
)

// Assistant answers a prompt within a conversation
type Assistant interface {
	Answer(ctx context.Context, prompt, sessionKey string) (*service.Answer, error)
}

// AssistantHandler exposes the event assistant
type AssistantHandler struct {
	assistant Assistant
}

// NewAssistantHandler creates a new assistant handler
func NewAssistantHandler(assistant Assistant) *AssistantHandler {
	return &AssistantHandler{assistant: assistant}
}

// Prompt answers the prompt query parameter. chat_id selects a separate
// conversation thread for the caller.
func (h *AssistantHandler) Prompt(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	prompt := strings.TrimSpace(r.URL.Query().Get("prompt"))
	if prompt == "" {
		response.BadRequest(w, "prompt is required")
		return
	}

	key := domain.SessionKey(userID.String(), r.URL.Query().Get("chat_id"))
	answer, err := h.assistant.Answer(r.Context(), prompt, key)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, answer)
}
