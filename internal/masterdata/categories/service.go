package categories

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

// ErrInvalidCategory marks payloads that fail business validation.
var ErrInvalidCategory = fmt.Errorf("%w: category", httpx.ErrValidation)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	created, err := s.repo.Create(ctx, category)
	if err != nil {
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	s.logger.Info("category created", "categoryId", created.ID, "name", created.Name)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, category Category) (Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return Category{}, fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	if err := s.repo.Update(ctx, id, category); err != nil {
		return Category{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return s.repo.Deactivate(ctx, id)
}
