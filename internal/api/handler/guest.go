package handler

import (
	"net/http"

	"github.com/Rrens/event-assistant/internal/api/response"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/service"
	"github.com/google/uuid"
)

// GuestHandler handles guest list endpoints
type GuestHandler struct {
	guestService *service.GuestService
}

// NewGuestHandler creates a new guest handler
func NewGuestHandler(guestService *service.GuestService) *GuestHandler {
	return &GuestHandler{guestService: guestService}
}

// List returns the guests of an event
func (h *GuestHandler) List(w http.ResponseWriter, r *http.Request) {
	guests, err := h.guestService.List(r.Context(), pathParam(r, "title"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if guests == nil {
		guests = []domain.User{}
	}
	response.OK(w, guests)
}

// Add puts a user on the guest list, named by user_id or user_email.
// Without either the caller joins.
func (h *GuestHandler) Add(w http.ResponseWriter, r *http.Request) {
	var input struct {
		UserID    *uuid.UUID `json:"user_id"`
		UserEmail string     `json:"user_email" validate:"omitempty,email"`
	}
	if r.ContentLength > 0 && !decode(w, r, &input) {
		return
	}

	var userID uuid.UUID
	switch {
	case input.UserID != nil:
		userID = *input.UserID
	case input.UserEmail != "":
		id, err := h.guestService.ResolveUser(r.Context(), input.UserEmail)
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		userID = id
	default:
		var ok bool
		if userID, ok = currentUser(w, r); !ok {
			return
		}
	}

	if err := h.guestService.Add(r.Context(), pathParam(r, "title"), userID); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, map[string]any{"user_id": userID})
}

// Remove takes a user off the guest list. The path names the guest by user
// ID or email.
func (h *GuestHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, err := h.guestService.ResolveUser(r.Context(), pathParam(r, "guest"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}

	if err := h.guestService.Remove(r.Context(), pathParam(r, "title"), userID); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.NoContent(w)
}
