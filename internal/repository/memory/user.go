package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/google/uuid"
)

// UserRepository implements domain.UserRepository over a Store
type UserRepository struct {
	s *Store
}

// Create inserts a new user
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	if _, ok := st.users[user.ID]; ok {
		return fmt.Errorf("user %s already exists", user.ID)
	}
	for _, u := range st.users {
		if u.Email == user.Email {
			return domain.ErrDuplicateEmail
		}
	}

	tx.touchUser(user.ID)
	st.users[user.ID] = *user
	return nil
}

// Update writes the user when the stored version still equals expectedVersion.
// The email and creation time are immutable.
func (r *UserRepository) Update(ctx context.Context, user *domain.User, expectedVersion int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	prev, ok := st.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	if prev.Version != expectedVersion {
		return fmt.Errorf("user %s: %w", user.ID, domain.ErrStaleVersion)
	}

	next := *user
	next.Email = prev.Email
	next.CreatedAt = prev.CreatedAt
	tx.touchUser(user.ID)
	st.users[user.ID] = next
	return nil
}

// Delete removes the user together with the events they organize and
// their guest list entries.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	prev, ok := st.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if prev.Version != expectedVersion {
		return fmt.Errorf("user %s: %w", id, domain.ErrStaleVersion)
	}

	tx.touchUser(id)
	delete(st.users, id)

	for eventID, e := range st.events {
		if e.OrganizerID == id {
			deleteEvent(st, tx, eventID)
		}
	}
	for eventID, members := range st.guests {
		if _, ok := members[id]; ok {
			tx.touchGuest(eventID, id)
			delete(members, id)
		}
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	u, ok := st.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.first(ctx, func(u domain.User) bool { return u.Email == email }), nil
}

// GetByName retrieves the earliest registered user with the given first name
func (r *UserRepository) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return r.first(ctx, func(u domain.User) bool { return u.Name == name }), nil
}

// List returns all users ordered by registration time
func (r *UserRepository) List(ctx context.Context) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	users := make([]domain.User, 0, len(st.users))
	for _, u := range st.users {
		users = append(users, u)
	}
	sortUsers(users)
	return users, nil
}

func (r *UserRepository) first(ctx context.Context, match func(domain.User) bool) *domain.User {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	var found []domain.User
	for _, u := range st.users {
		if match(u) {
			found = append(found, u)
		}
	}
	if len(found) == 0 {
		return nil
	}
	sortUsers(found)
	return &found[0]
}

func sortUsers(users []domain.User) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID.String() < users[j].ID.String()
	})
}
