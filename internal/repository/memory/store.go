// Package memory provides in-process implementations of the repository and
// history interfaces. It backs local development and tests, and is the
// default conversation history store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/google/uuid"
)

// state is one consistent view of users, events and guest lists
type state struct {
	users  map[uuid.UUID]domain.User
	events map[uuid.UUID]domain.Event
	guests map[uuid.UUID]map[uuid.UUID]int64
}

func newState() *state {
	return &state{
		users:  make(map[uuid.UUID]domain.User),
		events: make(map[uuid.UUID]domain.Event),
		guests: make(map[uuid.UUID]map[uuid.UUID]int64),
	}
}

// clone copies the maps. Embedding slices are shared; writers always
// replace them instead of mutating in place.
func (st *state) clone() *state {
	c := newState()
	for id, u := range st.users {
		c.users[id] = u
	}
	for id, e := range st.events {
		c.events[id] = e
	}
	for eventID, members := range st.guests {
		m := make(map[uuid.UUID]int64, len(members))
		for userID, seq := range members {
			m[userID] = seq
		}
		c.guests[eventID] = m
	}
	return c
}

// guestsOf returns the member set of an event, creating it
func (st *state) guestsOf(eventID uuid.UUID) map[uuid.UUID]int64 {
	members, ok := st.guests[eventID]
	if !ok {
		members = make(map[uuid.UUID]int64)
		st.guests[eventID] = members
	}
	return members
}

// Store holds users, events and guest lists behind a single mutex.
//
// Writes outside a transaction go straight to the committed state. A
// transaction works on a private copy taken at Begin; Commit re-checks
// the version of every row it touched against the committed state and
// applies its changes only if none moved, so aborted work is never seen
// by other operations.
type Store struct {
	mu        sync.Mutex
	committed *state
	seq       int64
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{committed: newState()}
}

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Events returns the event repository view of the store
func (s *Store) Events() *EventRepository { return &EventRepository{s: s} }

// Guests returns the guest list repository view of the store
func (s *Store) Guests() *GuestRepository { return &GuestRepository{s: s} }

type guestKey struct {
	event uuid.UUID
	user  uuid.UUID
}

// Tx is a copy-on-begin transaction over a Store. The base maps hold the
// begin-time value of every row the transaction wrote; nil means the row
// did not exist.
type Tx struct {
	s          *Store
	work       *state
	baseUsers  map[uuid.UUID]*domain.User
	baseEvents map[uuid.UUID]*domain.Event
	baseGuests map[guestKey]bool
	done       bool
}

// Begin starts a transaction for txn.Executor
func (s *Store) Begin(ctx context.Context) (txn.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Tx{
		s:          s,
		work:       s.committed.clone(),
		baseUsers:  make(map[uuid.UUID]*domain.User),
		baseEvents: make(map[uuid.UUID]*domain.Event),
		baseGuests: make(map[guestKey]bool),
	}, nil
}

// Rollback discards the transaction's changes
func (t *Tx) Rollback(ctx context.Context) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.done = true
	t.work = nil
	return nil
}

// Commit applies the transaction's changes. It fails with
// domain.ErrStaleVersion when a touched row was changed by someone else
// since Begin, and with the matching domain error when a uniqueness or
// reference constraint no longer holds against the committed state.
func (t *Tx) Commit(ctx context.Context) error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if t.done {
		return fmt.Errorf("transaction already finished")
	}
	t.done = true

	if err := t.validate(); err != nil {
		t.work = nil
		return err
	}
	t.apply()
	t.work = nil
	return nil
}

// validate checks the transaction against the committed state. Callers hold s.mu.
func (t *Tx) validate() error {
	c := t.s.committed

	for id, base := range t.baseUsers {
		cur, ok := c.users[id]
		if (base == nil) != !ok || (base != nil && base.Version != cur.Version) {
			return fmt.Errorf("user %s: %w", id, domain.ErrStaleVersion)
		}
	}
	for id, base := range t.baseEvents {
		cur, ok := c.events[id]
		if (base == nil) != !ok || (base != nil && base.Version != cur.Version) {
			return fmt.Errorf("event %s: %w", id, domain.ErrStaleVersion)
		}
	}
	for k, base := range t.baseGuests {
		_, ok := c.guests[k.event][k.user]
		if base != ok {
			return fmt.Errorf("guest %s of event %s: %w", k.user, k.event, domain.ErrStaleVersion)
		}
	}

	for id := range t.baseUsers {
		u, ok := t.work.users[id]
		if !ok {
			continue
		}
		for otherID, other := range c.users {
			if _, touched := t.baseUsers[otherID]; !touched && other.Email == u.Email {
				return domain.ErrDuplicateEmail
			}
		}
	}
	for id := range t.baseEvents {
		e, ok := t.work.events[id]
		if !ok {
			continue
		}
		for otherID, other := range c.events {
			if _, touched := t.baseEvents[otherID]; !touched && other.Title == e.Title {
				return domain.ErrEventAlreadyExists
			}
		}
		if !t.userExists(e.OrganizerID) {
			return domain.ErrUserNotFound
		}
	}
	for k := range t.baseGuests {
		if _, ok := t.work.guests[k.event][k.user]; !ok {
			continue
		}
		if !t.eventExists(k.event) {
			return domain.ErrEventNotFound
		}
		if !t.userExists(k.user) {
			return domain.ErrUserNotFound
		}
	}
	return nil
}

// userExists reports whether the user exists once this transaction commits
func (t *Tx) userExists(id uuid.UUID) bool {
	if _, touched := t.baseUsers[id]; touched {
		_, ok := t.work.users[id]
		return ok
	}
	_, ok := t.s.committed.users[id]
	return ok
}

// eventExists reports whether the event exists once this transaction commits
func (t *Tx) eventExists(id uuid.UUID) bool {
	if _, touched := t.baseEvents[id]; touched {
		_, ok := t.work.events[id]
		return ok
	}
	_, ok := t.s.committed.events[id]
	return ok
}

// apply copies the touched rows into the committed state and cascades
// deletes onto rows other transactions committed meanwhile. Callers hold s.mu.
func (t *Tx) apply() {
	c := t.s.committed

	for id := range t.baseUsers {
		if u, ok := t.work.users[id]; ok {
			c.users[id] = u
			continue
		}
		delete(c.users, id)
		for eventID, e := range c.events {
			if e.OrganizerID == id {
				delete(c.events, eventID)
				delete(c.guests, eventID)
			}
		}
		for _, members := range c.guests {
			delete(members, id)
		}
	}

	for id := range t.baseEvents {
		if e, ok := t.work.events[id]; ok {
			c.events[id] = e
			continue
		}
		delete(c.events, id)
		delete(c.guests, id)
	}

	for k := range t.baseGuests {
		if seq, ok := t.work.guests[k.event][k.user]; ok {
			c.guestsOf(k.event)[k.user] = seq
		} else if members, ok := c.guests[k.event]; ok {
			delete(members, k.user)
		}
	}
}

// touchUser records the begin-time value of a user before its first write.
// Callers hold s.mu.
func (t *Tx) touchUser(id uuid.UUID) {
	if t == nil {
		return
	}
	if _, ok := t.baseUsers[id]; ok {
		return
	}
	if u, ok := t.work.users[id]; ok {
		t.baseUsers[id] = &u
	} else {
		t.baseUsers[id] = nil
	}
}

// touchEvent records the begin-time value of an event before its first write.
// Callers hold s.mu.
func (t *Tx) touchEvent(id uuid.UUID) {
	if t == nil {
		return
	}
	if _, ok := t.baseEvents[id]; ok {
		return
	}
	if e, ok := t.work.events[id]; ok {
		t.baseEvents[id] = &e
	} else {
		t.baseEvents[id] = nil
	}
}

// touchGuest records the begin-time membership before its first write.
// Callers hold s.mu.
func (t *Tx) touchGuest(eventID, userID uuid.UUID) {
	if t == nil {
		return
	}
	k := guestKey{event: eventID, user: userID}
	if _, ok := t.baseGuests[k]; ok {
		return
	}
	_, member := t.work.guests[eventID][userID]
	t.baseGuests[k] = member
}

// view returns the state ctx operates on and its transaction, if any.
// Callers hold s.mu.
func (s *Store) view(ctx context.Context) (*state, *Tx) {
	if tx, ok := txn.Current(ctx).(*Tx); ok && tx.s == s && !tx.done {
		return tx.work, tx
	}
	return s.committed, nil
}

func (s *Store) nextSeq() int64 {
	s.seq++
	return s.seq
}

// deleteEvent removes an event and its guest list from st
func deleteEvent(st *state, tx *Tx, id uuid.UUID) {
	tx.touchEvent(id)
	for userID := range st.guests[id] {
		tx.touchGuest(id, userID)
	}
	delete(st.events, id)
	delete(st.guests, id)
}

// withOrganizer attaches the organizer record
func withOrganizer(st *state, e domain.Event) domain.Event {
	if u, ok := st.users[e.OrganizerID]; ok {
		u.PasswordHash = ""
		e.Organizer = &u
	}
	e.Embedding = append([]float32(nil), e.Embedding...)
	return e
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}
