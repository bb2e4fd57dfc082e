package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/google/uuid"
)

// GuestService manages event guest lists. Every change bumps the event
// version so concurrent edits of one guest list serialize.
type GuestService struct {
	exec   *txn.Executor
	events domain.EventRepository
	users  domain.UserRepository
	guests domain.GuestRepository
}

// NewGuestService creates a new guest service
func NewGuestService(exec *txn.Executor, events domain.EventRepository, users domain.UserRepository, guests domain.GuestRepository) *GuestService {
	return &GuestService{exec: exec, events: events, users: users, guests: guests}
}

func (s *GuestService) resolve(ctx context.Context, title string, userID uuid.UUID) (*domain.Event, error) {
	event, err := s.events.GetByTitle(ctx, title)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}
	return event, nil
}

// ResolveUser turns a guest reference, either a user ID or an email, into a
// user ID
func (s *GuestService) ResolveUser(ctx context.Context, ref string) (uuid.UUID, error) {
	ref = strings.TrimSpace(ref)
	if id, err := uuid.Parse(ref); err == nil {
		return id, nil
	}
	if !strings.Contains(ref, "@") {
		return uuid.Nil, fmt.Errorf("%w: guest must be a user ID or email", domain.ErrInvalidInput)
	}

	user, err := s.users.GetByEmail(ctx, ref)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return uuid.Nil, domain.ErrUserNotFound
	}
	return user.ID, nil
}

// Add puts a user on the guest list of an event
func (s *GuestService) Add(ctx context.Context, title string, userID uuid.UUID) error {
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		event, err := s.resolve(ctx, title, userID)
		if err != nil {
			return err
		}

		exists, err := s.guests.Exists(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		if exists {
			return domain.ErrUserAlreadyInEvent
		}

		if err := s.guests.Add(ctx, event.ID, userID); err != nil {
			return err
		}
		_, err = s.events.BumpVersion(ctx, event.ID, event.Version)
		return err
	})
	return domain.WrapPersistence("guest", domain.OpSave, err)
}

// Remove takes a user off the guest list of an event
func (s *GuestService) Remove(ctx context.Context, title string, userID uuid.UUID) error {
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		event, err := s.resolve(ctx, title, userID)
		if err != nil {
			return err
		}

		removed, err := s.guests.Remove(ctx, event.ID, userID)
		if err != nil {
			return err
		}
		if !removed {
			return domain.ErrUserNotInEvent
		}

		_, err = s.events.BumpVersion(ctx, event.ID, event.Version)
		return err
	})
	return domain.WrapPersistence("guest", domain.OpDelete, err)
}

// List returns the guests of an event
func (s *GuestService) List(ctx context.Context, title string) ([]domain.User, error) {
	event, err := s.events.GetByTitle(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	if event == nil {
		return nil, domain.ErrEventNotFound
	}
	return s.guests.ListByEvent(ctx, event.ID)
}
