package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/embedding"
	"github.com/google/uuid"
)

// EventRepository implements domain.EventRepository over a Store. Similarity
// search is an exact scan, so probes is ignored.
type EventRepository struct {
	s *Store
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	if _, ok := st.users[event.OrganizerID]; !ok {
		return domain.ErrUserNotFound
	}
	if _, ok := st.events[event.ID]; ok {
		return fmt.Errorf("event %s already exists", event.ID)
	}
	for _, e := range st.events {
		if e.Title == event.Title {
			return domain.ErrEventAlreadyExists
		}
	}

	stored := *event
	stored.Organizer = nil
	stored.Guests = nil
	stored.Embedding = append([]float32(nil), event.Embedding...)
	tx.touchEvent(event.ID)
	st.events[event.ID] = stored
	return nil
}

// Update writes the event when the stored version still equals expectedVersion
func (r *EventRepository) Update(ctx context.Context, event *domain.Event, expectedVersion int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	prev, ok := st.events[event.ID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if prev.Version != expectedVersion {
		return fmt.Errorf("event %s: %w", event.ID, domain.ErrStaleVersion)
	}

	next := prev
	next.Description = event.Description
	next.Location = event.Location
	next.Category = event.Category
	next.Datetime = event.Datetime
	next.Version = event.Version
	next.UpdatedAt = event.UpdatedAt
	if len(event.Embedding) > 0 {
		next.Embedding = append([]float32(nil), event.Embedding...)
	}
	tx.touchEvent(event.ID)
	st.events[event.ID] = next
	return nil
}

// BumpVersion increments the event version and returns the new value
func (r *EventRepository) BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int) (int, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	prev, ok := st.events[id]
	if !ok {
		return 0, domain.ErrEventNotFound
	}
	if prev.Version != expectedVersion {
		return 0, fmt.Errorf("event %s: %w", id, domain.ErrStaleVersion)
	}

	next := prev
	next.Version++
	next.UpdatedAt = time.Now().UTC()
	tx.touchEvent(id)
	st.events[id] = next
	return next.Version, nil
}

// Delete removes an event and its guest list when the stored version still
// equals expectedVersion
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	prev, ok := st.events[id]
	if !ok {
		return domain.ErrEventNotFound
	}
	if prev.Version != expectedVersion {
		return fmt.Errorf("event %s: %w", id, domain.ErrStaleVersion)
	}
	deleteEvent(st, tx, id)
	return nil
}

// GetByTitle retrieves an event by its unique title
func (r *EventRepository) GetByTitle(ctx context.Context, title string) (*domain.Event, error) {
	events := r.filter(ctx, func(e domain.Event) bool { return e.Title == title })
	if len(events) == 0 {
		return nil, nil
	}
	return &events[0], nil
}

// List returns all events ordered by datetime
func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	return r.filter(ctx, func(domain.Event) bool { return true }), nil
}

// ListByLocation returns events at the given location
func (r *EventRepository) ListByLocation(ctx context.Context, location string) ([]domain.Event, error) {
	return r.filter(ctx, func(e domain.Event) bool { return e.Location == location }), nil
}

// ListByCategory returns events in the given category
func (r *EventRepository) ListByCategory(ctx context.Context, category string) ([]domain.Event, error) {
	return r.filter(ctx, func(e domain.Event) bool { return e.Category == category }), nil
}

// ListByOrganizer returns events organized by the given user
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Event, error) {
	return r.filter(ctx, func(e domain.Event) bool { return e.OrganizerID == organizerID }), nil
}

// ListByDate returns events whose datetime falls on the given UTC day
func (r *EventRepository) ListByDate(ctx context.Context, day time.Time) ([]domain.Event, error) {
	start, end := dayBounds(day)
	return r.filter(ctx, func(e domain.Event) bool {
		return !e.Datetime.Before(start) && e.Datetime.Before(end)
	}), nil
}

// SearchByEmbedding ranks every embedded event by cosine distance
func (r *EventRepository) SearchByEmbedding(ctx context.Context, vec []float32, k, probes int) ([]domain.Event, error) {
	if k <= 0 {
		return []domain.Event{}, nil
	}

	type scored struct {
		event    domain.Event
		distance float64
	}

	r.s.mu.Lock()
	st, _ := r.s.view(ctx)
	candidates := make([]scored, 0, len(st.events))
	for _, e := range st.events {
		if len(e.Embedding) == 0 || len(e.Embedding) != len(vec) {
			continue
		}
		candidates = append(candidates, scored{
			event:    withOrganizer(st, e),
			distance: embedding.CosineDistance(vec, e.Embedding),
		})
	}
	r.s.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].event.ID.String() < candidates[j].event.ID.String()
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	events := make([]domain.Event, len(candidates))
	for i, c := range candidates {
		events[i] = c.event
	}
	return events, nil
}

func (r *EventRepository) filter(ctx context.Context, match func(domain.Event) bool) []domain.Event {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	events := []domain.Event{}
	for _, e := range st.events {
		if match(e) {
			events = append(events, withOrganizer(st, e))
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if !events[i].Datetime.Equal(events[j].Datetime) {
			return events[i].Datetime.Before(events[j].Datetime)
		}
		return events[i].ID.String() < events[j].ID.String()
	})
	return events
}
