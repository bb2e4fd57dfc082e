package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const eventSelect = `
	SELECT e.id, e.title, e.description, e.location, e.category, e.datetime, e.organizer_id,
	       e.version, e.created_at, e.updated_at,
	       u.id, u.name, u.surname, u.email, u.version, u.created_at, u.updated_at
	FROM events e
	JOIN users u ON u.id = e.organizer_id
`

// nearestSelect orders by distance alone so the ivfflat index serves the
// scan; ties are broken by id after the rows are read.
const nearestSelect = `
	WITH nearest AS (
		SELECT id, embedding <=> $1 AS distance
		FROM events
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1
		LIMIT $2
	)
	SELECT e.id, e.title, e.description, e.location, e.category, e.datetime, e.organizer_id,
	       e.version, e.created_at, e.updated_at,
	       u.id, u.name, u.surname, u.email, u.version, u.created_at, u.updated_at,
	       n.distance
	FROM nearest n
	JOIN events e ON e.id = n.id
	JOIN users u ON u.id = e.organizer_id
`

// EventRepository handles event data access and pgvector similarity search
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new event repository
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

func toVector(v []float32) *pgvector.Vector {
	if len(v) == 0 {
		return nil
	}
	vec := pgvector.NewVector(v)
	return &vec
}

// Create inserts a new event
func (r *EventRepository) Create(ctx context.Context, event *domain.Event) error {
	query := `
		INSERT INTO events (id, title, description, location, category, datetime, organizer_id, embedding, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.q(ctx).Exec(ctx, query,
		event.ID,
		event.Title,
		event.Description,
		event.Location,
		event.Category,
		event.Datetime,
		event.OrganizerID,
		toVector(event.Embedding),
		event.Version,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", mapError(err))
	}
	return nil
}

// Update writes the event when the stored version still equals expectedVersion
func (r *EventRepository) Update(ctx context.Context, event *domain.Event, expectedVersion int) error {
	query := `
		UPDATE events
		SET description = $1, location = $2, category = $3, datetime = $4, embedding = COALESCE($5, embedding),
		    version = $6, updated_at = $7
		WHERE id = $8 AND version = $9
	`

	tag, err := r.db.q(ctx).Exec(ctx, query,
		event.Description,
		event.Location,
		event.Category,
		event.Datetime,
		toVector(event.Embedding),
		event.Version,
		event.UpdatedAt,
		event.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, event.ID)
	}
	return nil
}

// BumpVersion increments the event version and returns the new value
func (r *EventRepository) BumpVersion(ctx context.Context, id uuid.UUID, expectedVersion int) (int, error) {
	var version int
	err := r.db.q(ctx).QueryRow(ctx, `
		UPDATE events SET version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $2
		RETURNING version
	`, id, expectedVersion).Scan(&version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, r.missingOrStale(ctx, id)
		}
		return 0, fmt.Errorf("failed to bump event version: %w", mapError(err))
	}
	return version, nil
}

// Delete removes an event when the stored version still equals expectedVersion
func (r *EventRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	tag, err := r.db.q(ctx).Exec(ctx, `DELETE FROM events WHERE id = $1 AND version = $2`, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return r.missingOrStale(ctx, id)
	}
	return nil
}

func (r *EventRepository) missingOrStale(ctx context.Context, id uuid.UUID) error {
	var exists bool
	if err := r.db.q(ctx).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check event: %w", err)
	}
	if !exists {
		return domain.ErrEventNotFound
	}
	return fmt.Errorf("event %s: %w", id, domain.ErrStaleVersion)
}

// GetByTitle retrieves an event by its unique title
func (r *EventRepository) GetByTitle(ctx context.Context, title string) (*domain.Event, error) {
	row := r.db.q(ctx).QueryRow(ctx, eventSelect+` WHERE e.title = $1`, title)
	e, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// List returns all events ordered by datetime
func (r *EventRepository) List(ctx context.Context) ([]domain.Event, error) {
	return r.list(ctx, eventSelect+` ORDER BY e.datetime, e.id`)
}

// ListByLocation returns events at the given location
func (r *EventRepository) ListByLocation(ctx context.Context, location string) ([]domain.Event, error) {
	return r.list(ctx, eventSelect+` WHERE e.location = $1 ORDER BY e.datetime, e.id`, location)
}

// ListByCategory returns events in the given category
func (r *EventRepository) ListByCategory(ctx context.Context, category string) ([]domain.Event, error) {
	return r.list(ctx, eventSelect+` WHERE e.category = $1 ORDER BY e.datetime, e.id`, category)
}

// ListByOrganizer returns events organized by the given user
func (r *EventRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]domain.Event, error) {
	return r.list(ctx, eventSelect+` WHERE e.organizer_id = $1 ORDER BY e.datetime, e.id`, organizerID)
}

// ListByDate returns events whose datetime falls on the given UTC day
func (r *EventRepository) ListByDate(ctx context.Context, day time.Time) ([]domain.Event, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return r.list(ctx, eventSelect+` WHERE e.datetime >= $1 AND e.datetime < $2 ORDER BY e.datetime, e.id`,
		start, start.Add(24*time.Hour))
}

// SearchByEmbedding runs a cosine-distance ANN query. The probes setting is
// transaction-local, so the query always runs inside a transaction.
func (r *EventRepository) SearchByEmbedding(ctx context.Context, vec []float32, k, probes int) ([]domain.Event, error) {
	if k <= 0 {
		return []domain.Event{}, nil
	}

	if tx, ok := txn.Current(ctx).(pgx.Tx); ok {
		return r.search(ctx, tx, vec, k, probes)
	}

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin search transaction: %w", err)
	}
	defer tx.Rollback(context.WithoutCancel(ctx))

	events, err := r.search(ctx, tx, vec, k, probes)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit search transaction: %w", err)
	}
	return events, nil
}

func (r *EventRepository) search(ctx context.Context, q querier, vec []float32, k, probes int) ([]domain.Event, error) {
	if probes > 0 {
		if _, err := q.Exec(ctx, `SELECT set_config('ivfflat.probes', $1, true)`, strconv.Itoa(probes)); err != nil {
			return nil, fmt.Errorf("failed to set probes: %w", err)
		}
	}

	rows, err := q.Query(ctx, nearestSelect, pgvector.NewVector(vec), k)
	if err != nil {
		return nil, fmt.Errorf("failed to search events: %w", err)
	}
	defer rows.Close()

	type ranked struct {
		event    domain.Event
		distance float64
	}
	var hits []ranked
	for rows.Next() {
		var distance float64
		e, err := scanEvent(rows, &distance)
		if err != nil {
			return nil, err
		}
		hits = append(hits, ranked{event: *e, distance: distance})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].distance != hits[j].distance {
			return hits[i].distance < hits[j].distance
		}
		return bytes.Compare(hits[i].event.ID[:], hits[j].event.ID[:]) < 0
	})

	events := make([]domain.Event, 0, len(hits))
	for _, h := range hits {
		events = append(events, h.event)
	}
	return events, nil
}

func (r *EventRepository) list(ctx context.Context, query string, args ...any) ([]domain.Event, error) {
	return collectEvents(r.db.q(ctx).Query(ctx, query, args...))
}

func collectEvents(rows pgx.Rows, err error) ([]domain.Event, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// scanEvent reads an eventSelect row; extra receives any trailing columns
func scanEvent(row pgx.Row, extra ...any) (*domain.Event, error) {
	var e domain.Event
	var o domain.User
	dest := []any{
		&e.ID,
		&e.Title,
		&e.Description,
		&e.Location,
		&e.Category,
		&e.Datetime,
		&e.OrganizerID,
		&e.Version,
		&e.CreatedAt,
		&e.UpdatedAt,
		&o.ID,
		&o.Name,
		&o.Surname,
		&o.Email,
		&o.Version,
		&o.CreatedAt,
		&o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan event: %w", err)
	}
	e.Datetime = e.Datetime.UTC()
	e.Organizer = &o
	return &e, nil
}
