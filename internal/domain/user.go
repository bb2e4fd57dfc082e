package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User represents a platform user
type User struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Surname      string    `json:"surname"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName renders the user the way event records reference organizers
func (u User) DisplayName() string {
	return fmt.Sprintf("%s %s, %s", u.Name, u.Surname, u.Email)
}

// UserCreate represents user registration data
type UserCreate struct {
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Surname  string `json:"surname" validate:"required,min=1,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// UserUpdate is a partial update; nil fields are left unchanged
type UserUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=100"`
	Surname  *string `json:"surname" validate:"omitempty,min=1,max=100"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// Empty reports whether the update carries no fields
func (u UserUpdate) Empty() bool {
	return u.Name == nil && u.Surname == nil && u.Password == nil
}

// UserLogin represents login credentials
type UserLogin struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenPair represents JWT token pair
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// UserRepository persists users. Getters return nil, nil when nothing matches.
// Update and Delete fail with ErrStaleVersion when expectedVersion no longer
// matches the stored row.
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User, expectedVersion int) error
	Delete(ctx context.Context, id uuid.UUID, expectedVersion int) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByName(ctx context.Context, name string) (*User, error)
	List(ctx context.Context) ([]User, error)
}
