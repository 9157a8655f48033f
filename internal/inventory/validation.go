package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xwms/xwms/internal/platform/httpx"
	"github.com/xwms/xwms/internal/shared"
)

// WarehouseLookup exposes the warehouse tree to inventory.
type WarehouseLookup interface {
	IsGroup(ctx context.Context, name string) (bool, error)
}

// ItemLookup reports whether an item code exists.
type ItemLookup interface {
	Exists(ctx context.Context, code string) (bool, error)
}

func normalizeEntry(entry StockEntry) StockEntry {
	entry.Name = strings.TrimSpace(entry.Name)
	entry.FromWarehouse = strings.TrimSpace(entry.FromWarehouse)
	entry.ToWarehouse = strings.TrimSpace(entry.ToWarehouse)
	entry.PostingDate = strings.TrimSpace(entry.PostingDate)
	for i := range entry.Items {
		entry.Items[i].Item = strings.TrimSpace(entry.Items[i].Item)
	}
	return entry
}

// validateEntry applies the document rules that do not need storage.
func validateEntry(entry StockEntry) error {
	if err := shared.ValidateStruct(entry); err != nil {
		return err
	}
	if len(entry.Items) == 0 {
		return ErrNoItems
	}
	for i, row := range entry.Items {
		if !row.Quantity.IsPositive() {
			return fmt.Errorf("%w (row %d, %s)", ErrInvalidQuantity, i+1, row.Item)
		}
		if row.ValuationRate.IsNegative() {
			return fmt.Errorf("%w (row %d, %s)", ErrInvalidRate, i+1, row.Item)
		}
	}
	switch entry.Type {
	case EntryTypeReceipt:
		if entry.ToWarehouse == "" {
			return fmt.Errorf("%w: target warehouse is mandatory for a receipt", ErrWarehouseRole)
		}
		if entry.FromWarehouse != "" {
			return fmt.Errorf("%w: a receipt cannot have a source warehouse", ErrWarehouseRole)
		}
	case EntryTypeConsume:
		if entry.FromWarehouse == "" {
			return fmt.Errorf("%w: source warehouse is mandatory for consumption", ErrWarehouseRole)
		}
		if entry.ToWarehouse != "" {
			return fmt.Errorf("%w: consumption cannot have a target warehouse", ErrWarehouseRole)
		}
	case EntryTypeTransfer:
		if entry.FromWarehouse == "" || entry.ToWarehouse == "" {
			return fmt.Errorf("%w: source and target warehouses are mandatory for a transfer", ErrWarehouseRole)
		}
		if entry.FromWarehouse == entry.ToWarehouse {
			return fmt.Errorf("%w: source and target warehouse cannot be the same", ErrWarehouseRole)
		}
	}
	return nil
}

// validateReferences checks items exist and every warehouse is a leaf.
func (s *Service) validateReferences(ctx context.Context, entry StockEntry) error {
	for _, name := range []string{entry.FromWarehouse, entry.ToWarehouse} {
		if name == "" || s.warehouses == nil {
			continue
		}
		group, err := s.warehouses.IsGroup(ctx, name)
		if errors.Is(err, httpx.ErrNotFound) {
			return fmt.Errorf("%w: warehouse %s not found", ErrUnknownReference, name)
		}
		if err != nil {
			return err
		}
		if group {
			return fmt.Errorf("%w: %s", ErrGroupWarehouse, name)
		}
	}
	if s.items == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(entry.Items))
	for _, row := range entry.Items {
		if _, ok := seen[row.Item]; ok {
			continue
		}
		seen[row.Item] = struct{}{}
		ok, err := s.items.Exists(ctx, row.Item)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: item %s not found", ErrUnknownReference, row.Item)
		}
	}
	return nil
}
