package items

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xwms/xwms/internal/masterdata/shared"
	internalShared "github.com/xwms/xwms/internal/shared"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, filters shared.ListFilters) ([]Item, int, error) {
	return s.repo.List(ctx, filters)
}

func (s *Service) Get(ctx context.Context, code string) (Item, error) {
	if code == "" {
		return Item{}, fmt.Errorf("item code: %w", shared.ErrValidation)
	}
	return s.repo.Get(ctx, code)
}

func (s *Service) Create(ctx context.Context, item Item) (Item, error) {
	item = beforeSave(item)
	if err := internalShared.ValidateStruct(item); err != nil {
		return Item{}, err
	}
	return s.repo.Create(ctx, item)
}

func (s *Service) Update(ctx context.Context, code string, item Item) error {
	item = beforeSave(item)
	if item.Code == "" {
		item.Code = code
	}
	if item.Code != code {
		return fmt.Errorf("%w: item code cannot change", shared.ErrValidation)
	}
	if err := internalShared.ValidateStruct(item); err != nil {
		return err
	}
	return s.repo.Update(ctx, code, item)
}

func (s *Service) Delete(ctx context.Context, code string) error {
	return s.repo.Delete(ctx, code)
}

// Exists reports whether an item with the given code exists.
func (s *Service) Exists(ctx context.Context, code string) (bool, error) {
	_, err := s.repo.Get(ctx, code)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func beforeSave(item Item) Item {
	item.Code = strings.TrimSpace(item.Code)
	item.ItemName = strings.TrimSpace(item.ItemName)
	item.Unit = strings.TrimSpace(item.Unit)
	item.ValuationRate = 0
	return item
}
