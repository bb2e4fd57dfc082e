package handler

import (
	"net/http"

	"github.com/Rrens/event-assistant/internal/api/response"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/service"
	"github.com/google/uuid"
)

// UserHandler handles user endpoints
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// List returns all users, or the users matching the email or name query
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		user *domain.User
		err  error
	)
	switch {
	case q.Get("email") != "":
		user, err = h.userService.GetByEmail(r.Context(), q.Get("email"))
	case q.Get("name") != "":
		user, err = h.userService.GetByName(r.Context(), q.Get("name"))
	default:
		users, err := h.userService.List(r.Context())
		if err != nil {
			response.FromError(w, r, err)
			return
		}
		response.OK(w, users)
		return
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, []domain.User{*user})
}

// Get returns a user by ID
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(pathParam(r, "userID"))
	if err != nil {
		response.BadRequest(w, "invalid user ID")
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, user)
}

// UpdateMe applies a partial update to the authenticated user
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var input domain.UserUpdate
	if !decode(w, r, &input) {
		return
	}

	user, err := h.userService.Update(r.Context(), userID, input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, user)
}

// DeleteMe removes the authenticated user
func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	if err := h.userService.Delete(r.Context(), userID); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.NoContent(w)
}
