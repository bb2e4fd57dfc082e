package postgres

import (
	"errors"
	"fmt"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError translates constraint and serialization failures into domain errors
func mapError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		switch pgErr.ConstraintName {
		case "events_title_key":
			return domain.ErrEventAlreadyExists
		case "users_email_key":
			return domain.ErrDuplicateEmail
		case "guest_list_pkey":
			return domain.ErrUserAlreadyInEvent
		}
	case codeForeignKeyViolation:
		switch pgErr.ConstraintName {
		case "guest_list_event_id_fkey":
			return domain.ErrEventNotFound
		case "guest_list_user_id_fkey", "events_organizer_id_fkey":
			return domain.ErrUserNotFound
		}
	case codeSerializationFailure, codeDeadlockDetected:
		return fmt.Errorf("%w: %s", domain.ErrStaleVersion, pgErr.Message)
	}
	return err
}
