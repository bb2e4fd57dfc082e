package handler

import (
	"net/http"

	"github.com/Rrens/event-assistant/internal/api/response"
	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/service"
)

// EventHandler handles event endpoints
type EventHandler struct {
	eventService *service.EventService
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// Create handles event creation
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input domain.EventCreate
	if !decode(w, r, &input) {
		return
	}

	event, err := h.eventService.Create(r.Context(), input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.Created(w, event)
}

// List returns events, filtered by at most one of the location, category,
// organizer or date query parameters.
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var (
		events []domain.Event
		err    error
	)
	switch {
	case q.Get("location") != "":
		events, err = h.eventService.ListByLocation(r.Context(), q.Get("location"))
	case q.Get("category") != "":
		events, err = h.eventService.ListByCategory(r.Context(), q.Get("category"))
	case q.Get("organizer") != "":
		events, err = h.eventService.ListByOrganizerEmail(r.Context(), q.Get("organizer"))
	case q.Get("date") != "":
		events, err = h.eventService.ListByDate(r.Context(), q.Get("date"))
	default:
		events, err = h.eventService.List(r.Context())
	}
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	if events == nil {
		events = []domain.Event{}
	}
	response.OK(w, events)
}

// Get returns an event with its guests
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.eventService.Get(r.Context(), pathParam(r, "title"))
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, event)
}

// Update patches an event by title
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var input domain.EventUpdate
	if !decode(w, r, &input) {
		return
	}

	event, err := h.eventService.Update(r.Context(), pathParam(r, "title"), input)
	if err != nil {
		response.FromError(w, r, err)
		return
	}
	response.OK(w, event)
}

// Delete removes an event by title
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.eventService.Delete(r.Context(), pathParam(r, "title")); err != nil {
		response.FromError(w, r, err)
		return
	}
	response.NoContent(w)
}
