package warehouses

import (
	"context"
	"errors"
	"fmt"

	"github.com/xwms/xwms/internal/masterdata/shared"
)

// maxTreeDepth bounds the ancestor walk used for cycle detection.
const maxTreeDepth = 64

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, name string) (Warehouse, error) {
	if name == "" {
		return Warehouse{}, fmt.Errorf("warehouse name: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, name)
}

func (s *Service) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	warehouse = normalize(warehouse)
	if err := s.validate(ctx, warehouse); err != nil {
		return Warehouse{}, err
	}
	return s.repo.Create(ctx, warehouse)
}

func (s *Service) Update(ctx context.Context, name string, warehouse Warehouse) error {
	warehouse = normalize(warehouse)
	if warehouse.Name == "" {
		warehouse.Name = name
	}
	if warehouse.Name != name {
		return fmt.Errorf("%w: warehouse cannot be renamed", shared.ErrValidation)
	}
	existing, err := s.repo.Get(ctx, name)
	if err != nil {
		return err
	}
	if err := s.validate(ctx, warehouse); err != nil {
		return err
	}
	if err := s.checkCycle(ctx, name, warehouse.ParentWarehouse); err != nil {
		return err
	}
	if existing.IsGroup && !warehouse.IsGroup {
		children, err := s.repo.CountChildren(ctx, name)
		if err != nil {
			return err
		}
		if children > 0 {
			return fmt.Errorf("%w: %s has child warehouses and must stay a group", shared.ErrConflict, name)
		}
	}
	return s.repo.Update(ctx, name, warehouse)
}

func (s *Service) Delete(ctx context.Context, name string) error {
	children, err := s.repo.CountChildren(ctx, name)
	if err != nil {
		return err
	}
	if children > 0 {
		return fmt.Errorf("%w: %s has child warehouses", shared.ErrConflict, name)
	}
	return s.repo.Delete(ctx, name)
}

// Exists reports whether a warehouse with the given name exists.
func (s *Service) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.repo.Get(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// IsGroup reports whether the named warehouse is a group node.
func (s *Service) IsGroup(ctx context.Context, name string) (bool, error) {
	w, err := s.repo.Get(ctx, name)
	if err != nil {
		return false, err
	}
	return w.IsGroup, nil
}

// checkCycle walks up from parent and fails if it reaches name.
func (s *Service) checkCycle(ctx context.Context, name, parent string) error {
	current := parent
	for depth := 0; current != ""; depth++ {
		if current == name {
			return fmt.Errorf("%w: %s cannot be placed under its own descendant", ErrInvalidParent, name)
		}
		if depth >= maxTreeDepth {
			return fmt.Errorf("%w: warehouse tree deeper than %d", shared.ErrValidation, maxTreeDepth)
		}
		node, err := s.repo.Get(ctx, current)
		if err != nil {
			return err
		}
		current = node.ParentWarehouse
	}
	return nil
}
