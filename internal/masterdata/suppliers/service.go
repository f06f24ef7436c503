package suppliers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) List(ctx context.Context, search string, limit, offset int) ([]Supplier, error) {
	return s.repo.List(ctx, strings.TrimSpace(search), limit, offset)
}

func (s *Service) Get(ctx context.Context, id int64) (Supplier, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.TaxID = strings.TrimSpace(supplier.TaxID)
	if err := validate(supplier); err != nil {
		return Supplier{}, err
	}
	created, err := s.repo.Create(ctx, supplier)
	if err != nil {
		return Supplier{}, fmt.Errorf("create supplier: %w", err)
	}
	s.logger.Info("supplier created", "supplierId", created.ID, "name", created.Name)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, supplier Supplier) (Supplier, error) {
	supplier.Name = strings.TrimSpace(supplier.Name)
	supplier.TaxID = strings.TrimSpace(supplier.TaxID)
	if err := validate(supplier); err != nil {
		return Supplier{}, err
	}
	if err := s.repo.Update(ctx, id, supplier); err != nil {
		return Supplier{}, err
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}
	s.logger.Info("supplier deactivated", "supplierId", id)
	return nil
}
