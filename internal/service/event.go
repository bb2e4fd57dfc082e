package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DateLayout is the accepted format of date filters
const DateLayout = "2006-01-02"

// EventService manages events and keeps their embeddings current
type EventService struct {
	exec     *txn.Executor
	events   domain.EventRepository
	users    domain.UserRepository
	guests   domain.GuestRepository
	embedder Embedder
}

// NewEventService creates a new event service
func NewEventService(
	exec *txn.Executor,
	events domain.EventRepository,
	users domain.UserRepository,
	guests domain.GuestRepository,
	embedder Embedder,
) *EventService {
	return &EventService{
		exec:     exec,
		events:   events,
		users:    users,
		guests:   guests,
		embedder: embedder,
	}
}

// Create stores a new event with its embedding. The title is checked
// before embedding and again inside the transaction.
func (s *EventService) Create(ctx context.Context, input domain.EventCreate) (*domain.Event, error) {
	input.Normalize()
	if input.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrInvalidInput)
	}

	existing, err := s.events.GetByTitle(ctx, input.Title)
	if err != nil {
		return nil, fmt.Errorf("failed to check title: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrEventAlreadyExists
	}

	organizer, err := s.users.GetByEmail(ctx, input.OrganizerEmail)
	if err != nil {
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	if organizer == nil {
		return nil, domain.ErrUserNotFound
	}

	now := time.Now().UTC()
	event := &domain.Event{
		ID:          uuid.New(),
		Title:       input.Title,
		Description: input.Description,
		Location:    input.Location,
		Category:    input.Category,
		Datetime:    input.Datetime.UTC(),
		OrganizerID: organizer.ID,
		Organizer:   organizer,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	event.Embedding, err = s.embedder.Embed(ctx, domain.FormatEvent(*event))
	if err != nil {
		return nil, err
	}

	err = s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		dup, err := s.events.GetByTitle(ctx, event.Title)
		if err != nil {
			return err
		}
		if dup != nil {
			return domain.ErrEventAlreadyExists
		}
		return s.events.Create(ctx, event)
	})
	if err != nil {
		return nil, domain.WrapPersistence("event", domain.OpSave, err)
	}

	log.Info().Str("event_id", event.ID.String()).Str("title", event.Title).Msg("Event created")
	return event, nil
}

// Update patches an event by title, re-embeds it and writes it under a
// version check, retrying on conflicts.
func (s *EventService) Update(ctx context.Context, title string, patch domain.EventUpdate) (*domain.Event, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}

	var updated *domain.Event
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByTitle(ctx, title)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.ErrEventNotFound
		}

		expected := event.Version
		patch.Apply(event)
		event.Version = expected + 1
		event.UpdatedAt = time.Now().UTC()

		event.Embedding, err = s.embedder.Embed(ctx, domain.FormatEvent(*event))
		if err != nil {
			return err
		}

		if err := s.events.Update(ctx, event, expected); err != nil {
			return err
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, domain.WrapPersistence("event", domain.OpSave, err)
	}
	return updated, nil
}

// Delete removes an event by title
func (s *EventService) Delete(ctx context.Context, title string) error {
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		event, err := s.events.GetByTitle(ctx, title)
		if err != nil {
			return err
		}
		if event == nil {
			return domain.ErrEventNotFound
		}
		return s.events.Delete(ctx, event.ID, event.Version)
	})
	return domain.WrapPersistence("event", domain.OpDelete, err)
}

// Get returns an event with its guest list
func (s *EventService) Get(ctx context.Context, title string) (*domain.Event, error) {
	event, err := s.events.GetByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}

	event.Guests, err = s.guests.ListByEvent(ctx, event.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	return event, nil
}

// List returns all events
func (s *EventService) List(ctx context.Context) ([]domain.Event, error) {
	return s.events.List(ctx)
}

// ListByLocation returns events at a location
func (s *EventService) ListByLocation(ctx context.Context, location string) ([]domain.Event, error) {
	return s.events.ListByLocation(ctx, strings.TrimSpace(location))
}

// ListByCategory returns events in a category
func (s *EventService) ListByCategory(ctx context.Context, category string) ([]domain.Event, error) {
	return s.events.ListByCategory(ctx, strings.TrimSpace(category))
}

// ListByOrganizerEmail returns events organized by the user with the given email
func (s *EventService) ListByOrganizerEmail(ctx context.Context, email string) ([]domain.Event, error) {
	organizer, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get organizer: %w", err)
	}
	if organizer == nil {
		return nil, domain.ErrUserNotFound
	}
	return s.events.ListByOrganizer(ctx, organizer.ID)
}

// ListByDate returns events on a YYYY-MM-DD day
func (s *EventService) ListByDate(ctx context.Context, date string) ([]domain.Event, error) {
	day, err := time.Parse(DateLayout, strings.TrimSpace(date))
	if err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", domain.ErrInvalidInput)
	}
	return s.events.ListByDate(ctx, day)
}
