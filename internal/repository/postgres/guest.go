package postgres

import (
	"context"
	"fmt"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/google/uuid"
)

// GuestRepository manages the guest_list join table
type GuestRepository struct {
	db *DB
}

// NewGuestRepository creates a new guest repository
func NewGuestRepository(db *DB) *GuestRepository {
	return &GuestRepository{db: db}
}

// Add puts a user on an event's guest list
func (r *GuestRepository) Add(ctx context.Context, eventID, userID uuid.UUID) error {
	_, err := r.db.q(ctx).Exec(ctx,
		`INSERT INTO guest_list (event_id, user_id, created_at) VALUES ($1, $2, now())`,
		eventID, userID,
	)
	if err != nil {
		return fmt.Errorf("failed to add guest: %w", mapError(err))
	}
	return nil
}

// Remove takes a user off an event's guest list and reports whether a row was removed
func (r *GuestRepository) Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	tag, err := r.db.q(ctx).Exec(ctx,
		`DELETE FROM guest_list WHERE event_id = $1 AND user_id = $2`,
		eventID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to remove guest: %w", mapError(err))
	}
	return tag.RowsAffected() > 0, nil
}

// Exists checks guest list membership
func (r *GuestRepository) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.q(ctx).QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM guest_list WHERE event_id = $1 AND user_id = $2)`,
		eventID, userID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check guest: %w", err)
	}
	return exists, nil
}

// ListByEvent returns the guests of an event in the order they joined
func (r *GuestRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.User, error) {
	query := `
		SELECT u.id, u.name, u.surname, u.email, u.password_hash, u.version, u.created_at, u.updated_at
		FROM guest_list g
		JOIN users u ON u.id = g.user_id
		WHERE g.event_id = $1
		ORDER BY g.created_at, u.id
	`

	rows, err := r.db.q(ctx).Query(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to list guests: %w", err)
	}
	defer rows.Close()

	guests := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		guests = append(guests, *u)
	}
	return guests, rows.Err()
}
