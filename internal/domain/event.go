package domain

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field limits for events
const (
	TitleMaxLength       = 100
	DescriptionMaxLength = 1000
	LocationMaxLength    = 100
	CategoryMaxLength    = 100
)

// Event represents a scheduled event and its retrieval embedding
type Event struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
	Category    string    `json:"category"`
	Datetime    time.Time `json:"datetime"`
	OrganizerID uuid.UUID `json:"organizer_id"`
	Organizer   *User     `json:"organizer,omitempty"`
	Guests      []User    `json:"guests,omitempty"`
	Embedding   []float32 `json:"-"`
	Version     int       `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EventCreate is the payload for creating an event
type EventCreate struct {
	Title          string    `json:"title" validate:"required,min=1,max=100"`
	Description    string    `json:"description" validate:"required,min=1,max=1000"`
	Location       string    `json:"location" validate:"required,min=1,max=100"`
	Category       string    `json:"category" validate:"required,min=1,max=100"`
	Datetime       time.Time `json:"datetime" validate:"required"`
	OrganizerEmail string    `json:"organizer_email" validate:"required,email"`
}

// Normalize trims surrounding whitespace from text fields
func (c *EventCreate) Normalize() {
	c.Title = strings.TrimSpace(c.Title)
	c.Description = strings.TrimSpace(c.Description)
	c.Location = strings.TrimSpace(c.Location)
	c.Category = strings.TrimSpace(c.Category)
	c.OrganizerEmail = strings.ToLower(strings.TrimSpace(c.OrganizerEmail))
}

// EventUpdate is a partial update; nil fields are left unchanged
type EventUpdate struct {
	Description *string    `json:"description" validate:"omitempty,min=1,max=1000"`
	Location    *string    `json:"location" validate:"omitempty,min=1,max=100"`
	Category    *string    `json:"category" validate:"omitempty,min=1,max=100"`
	Datetime    *time.Time `json:"datetime"`
}

// Empty reports whether the update carries no fields
func (u EventUpdate) Empty() bool {
	return u.Description == nil && u.Location == nil && u.Category == nil && u.Datetime == nil
}

// Apply copies the set fields onto e
func (u EventUpdate) Apply(e *Event) {
	if u.Description != nil {
		e.Description = strings.TrimSpace(*u.Description)
	}
	if u.Location != nil {
		e.Location = strings.TrimSpace(*u.Location)
	}
	if u.Category != nil {
		e.Category = strings.TrimSpace(*u.Category)
	}
	if u.Datetime != nil {
		e.Datetime = u.Datetime.UTC()
	}
}

// FormatEvent renders an event as the pipe-delimited record used both for
// embedding input and for prompt context. Missing fields render empty.
func FormatEvent(e Event) string {
	var when, organizer string
	if !e.Datetime.IsZero() {
		when = e.Datetime.UTC().Format(time.RFC3339)
	}
	if e.Organizer != nil {
		organizer = e.Organizer.DisplayName()
	}
	return strings.Join([]string{
		e.Title,
		e.Description,
		e.Location,
		e.Category,
		when,
		organizer,
	}, " | ")
}

// EventIndex is a nearest-neighbour index over event embeddings.
//
// SearchByEmbedding returns at most k events ordered by ascending cosine
// distance to vec, ties broken by event id. Events without an embedding are
// never returned. k <= 0 yields an empty result. probes <= 0 keeps the
// index default.
type EventIndex interface {
	SearchByEmbedding(ctx context.Context, vec []float32, k, probes int) ([]Event, error)
}

// EventRepository persists events. Getters return nil, nil when nothing
// matches. Update, Delete and BumpVersion fail with ErrStaleVersion when
// expectedVersion no longer matches the stored row.
type EventRepository interface {
	EventIndex

	Create(ctx context.Context, event *Event) error
	Update(ctx context.Context, event *Event, expectedVersion int) error
	BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int) (int, error)
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error
	GetByTitle(ctx context.Context, title string) (*Event, error)
	List(ctx context.Context) ([]Event, error)
	ListByLocation(ctx context.Context, location string) ([]Event, error)
	ListByCategory(ctx context.Context, category string) ([]Event, error)
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]Event, error)
	ListByDate(ctx context.Context, day time.Time) ([]Event, error)
}

// GuestRepository manages the event guest list join
type GuestRepository interface {
	Add(ctx context.Context, eventID, userID uuid.UUID) error
	Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]User, error)
}
