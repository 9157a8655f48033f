package masterdata

import (
	"context"
	"fmt"
)

// Link targets understood by Links.
const (
	LinkItem      = "Item"
	LinkWarehouse = "Warehouse"
)

// ExistenceChecker is satisfied by items.Service and warehouses.Service.
type ExistenceChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Links resolves report Link filters against master data.
type Links struct {
	Items      ExistenceChecker
	Warehouses ExistenceChecker
}

// LinkExists implements reportfilter.LinkResolver.
func (l Links) LinkExists(ctx context.Context, target, value string) (bool, error) {
	switch target {
	case LinkItem:
		if l.Items == nil {
			return true, nil
		}
		return l.Items.Exists(ctx, value)
	case LinkWarehouse:
		if l.Warehouses == nil {
			return true, nil
		}
		return l.Warehouses.Exists(ctx, value)
	default:
		return false, fmt.Errorf("masterdata: unknown link target %q", target)
	}
}
