package warehouses

import (
	"time"
)

// Warehouse is a node of the warehouse tree. Only leaf warehouses hold stock;
// group warehouses aggregate their descendants.
type Warehouse struct {
	Name            string    `json:"name" validate:"required,max=140"`
	ParentWarehouse string    `json:"parent_warehouse,omitempty" validate:"max=140"`
	IsGroup         bool      `json:"is_group"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
