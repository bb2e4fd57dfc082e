package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Rrens/event-assistant/internal/domain"
	"github.com/Rrens/event-assistant/internal/txn"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// UserService manages user accounts
type UserService struct {
	exec     *txn.Executor
	users    domain.UserRepository
	hashCost int
}

// NewUserService creates a new user service
func NewUserService(exec *txn.Executor, users domain.UserRepository) *UserService {
	return &UserService{exec: exec, users: users, hashCost: bcrypt.DefaultCost}
}

func (s *UserService) hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Register creates a new user account
func (s *UserService) Register(ctx context.Context, input domain.UserCreate) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || input.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", domain.ErrInvalidInput)
	}

	hashed, err := s.hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New(),
		Name:         strings.TrimSpace(input.Name),
		Surname:      strings.TrimSpace(input.Surname),
		Email:        email,
		PasswordHash: hashed,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err = s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		existing, err := s.users.GetByEmail(ctx, email)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrDuplicateEmail
		}
		return s.users.Create(ctx, user)
	})
	if err != nil {
		return nil, domain.WrapPersistence("user", domain.OpSave, err)
	}

	log.Info().Str("user_id", user.ID.String()).Msg("User registered")
	return user, nil
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return found(s.users.GetByID(ctx, id))
}

// GetByEmail retrieves a user by email
func (s *UserService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return found(s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email))))
}

// GetByName retrieves a user by first name
func (s *UserService) GetByName(ctx context.Context, name string) (*domain.User, error) {
	return found(s.users.GetByName(ctx, strings.TrimSpace(name)))
}

// List returns all users
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	return s.users.List(ctx)
}

// ExistsByID reports whether a user with the given ID exists
func (s *UserService) ExistsByID(ctx context.Context, id uuid.UUID) (bool, error) {
	u, err := s.users.GetByID(ctx, id)
	return u != nil, err
}

// ExistsByName reports whether a user with the given first name exists
func (s *UserService) ExistsByName(ctx context.Context, name string) (bool, error) {
	u, err := s.users.GetByName(ctx, strings.TrimSpace(name))
	return u != nil, err
}

// Update applies a partial update under a version check
func (s *UserService) Update(ctx context.Context, id uuid.UUID, patch domain.UserUpdate) (*domain.User, error) {
	if patch.Empty() {
		return nil, fmt.Errorf("%w: no fields to update", domain.ErrInvalidInput)
	}

	var hashed string
	if patch.Password != nil {
		var err error
		if hashed, err = s.hash(*patch.Password); err != nil {
			return nil, err
		}
	}

	var updated *domain.User
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		expected := user.Version
		if patch.Name != nil {
			user.Name = strings.TrimSpace(*patch.Name)
		}
		if patch.Surname != nil {
			user.Surname = strings.TrimSpace(*patch.Surname)
		}
		if hashed != "" {
			user.PasswordHash = hashed
		}
		user.Version = expected + 1
		user.UpdatedAt = time.Now().UTC()

		if err := s.users.Update(ctx, user, expected); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, domain.WrapPersistence("user", domain.OpSave, err)
	}
	return updated, nil
}

// Delete removes a user
func (s *UserService) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.exec.RunWithRetry(ctx, func(ctx context.Context) error {
		user, err := s.users.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		return s.users.Delete(ctx, id, user.Version)
	})
	return domain.WrapPersistence("user", domain.OpDelete, err)
}

func found(u *domain.User, err error) (*domain.User, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if u == nil {
		return nil, domain.ErrUserNotFound
	}
	return u, nil
}
