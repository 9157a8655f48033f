package warehouses

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xwms/xwms/internal/masterdata/shared"
	internalShared "github.com/xwms/xwms/internal/shared"
)

// ErrInvalidParent is returned when the parent is missing or not a group.
var ErrInvalidParent = fmt.Errorf("%w: invalid parent warehouse", shared.ErrValidation)

func normalize(w Warehouse) Warehouse {
	w.Name = strings.TrimSpace(w.Name)
	w.ParentWarehouse = strings.TrimSpace(w.ParentWarehouse)
	return w
}

func (s *Service) validate(ctx context.Context, w Warehouse) error {
	if err := internalShared.ValidateStruct(w); err != nil {
		return err
	}
	if w.ParentWarehouse == "" {
		return nil
	}
	if w.ParentWarehouse == w.Name {
		return fmt.Errorf("%w: %s cannot be its own parent", ErrInvalidParent, w.Name)
	}
	parent, err := s.repo.Get(ctx, w.ParentWarehouse)
	if errors.Is(err, shared.ErrNotFound) {
		return fmt.Errorf("%w: %s does not exist", ErrInvalidParent, w.ParentWarehouse)
	}
	if err != nil {
		return err
	}
	if !parent.IsGroup {
		return fmt.Errorf("%w: %s is not a group warehouse", ErrInvalidParent, w.ParentWarehouse)
	}
	return nil
}
