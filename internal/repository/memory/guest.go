package memory

import (
	"context"
	"sort"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/google/uuid"
)

// GuestRepository implements domain.GuestRepository over a Store
type GuestRepository struct {
	s *Store
}

// Add puts a user on an event's guest list
func (r *GuestRepository) Add(ctx context.Context, eventID, userID uuid.UUID) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	if _, ok := st.events[eventID]; !ok {
		return domain.ErrEventNotFound
	}
	if _, ok := st.users[userID]; !ok {
		return domain.ErrUserNotFound
	}
	members := st.guestsOf(eventID)
	if _, ok := members[userID]; ok {
		return domain.ErrUserAlreadyInEvent
	}

	tx.touchGuest(eventID, userID)
	members[userID] = s.nextSeq()
	return nil
}

// Remove takes a user off an event's guest list and reports whether they were on it
func (r *GuestRepository) Remove(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	st, tx := s.view(ctx)

	members := st.guests[eventID]
	if _, ok := members[userID]; !ok {
		return false, nil
	}
	tx.touchGuest(eventID, userID)
	delete(members, userID)
	return true, nil
}

// Exists reports whether a user is on an event's guest list
func (r *GuestRepository) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	_, ok := st.guests[eventID][userID]
	return ok, nil
}

// ListByEvent returns an event's guests in the order they were added
func (r *GuestRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	st, _ := r.s.view(ctx)

	type entry struct {
		user domain.User
		seq  int64
	}
	entries := []entry{}
	for userID, seq := range st.guests[eventID] {
		if u, ok := st.users[userID]; ok {
			entries = append(entries, entry{user: u, seq: seq})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	guests := make([]domain.User, len(entries))
	for i, e := range entries {
		guests[i] = e.user
	}
	return guests, nil
}
