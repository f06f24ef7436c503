package users

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
)

// ErrInvalidUser marks account payloads that fail business validation.
var ErrInvalidUser = fmt.Errorf("%w: user", httpx.ErrValidation)

// Service handles account provisioning and lifecycle.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService builds a Service instance.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// List returns all accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.repo.List(ctx)
}

// Get fetches a single account.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.Get(ctx, id)
}

// Create provisions an account with a bcrypt password hash and a fixed role.
func (s *Service) Create(ctx context.Context, in CreateInput) (User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Name == "" || in.Email == "" {
		return User{}, fmt.Errorf("%w: name and email are required", ErrInvalidUser)
	}
	if len(in.Password) < 8 {
		return User{}, fmt.Errorf("%w: password must be at least 8 characters", ErrInvalidUser)
	}
	if _, err := rbac.ParseRole(string(in.Role)); err != nil {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidUser, in.Role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	created, err := s.repo.Create(ctx, User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         in.Role,
	})
	if err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user created", "userId", created.ID, "role", string(created.Role))
	return created, nil
}

// SetActive enables or disables sign-in for an account. The role itself is
// fixed at creation; disabling the account is the way to revoke access.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) error {
	return s.repo.SetActive(ctx, id, active)
}
