package masterdata

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/xwms/xwms/internal/masterdata/items"
	"github.com/xwms/xwms/internal/masterdata/warehouses"
)

// Handler manages master data endpoints.
type Handler struct {
	items      *items.Handler
	warehouses *warehouses.Handler
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, itemService *items.Service, warehouseService *warehouses.Service) *Handler {
	return &Handler{
		items:      items.NewHandler(logger, itemService),
		warehouses: warehouses.NewHandler(logger, warehouseService),
	}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", h.items.MountRoutes)
	r.Route("/warehouses", h.warehouses.MountRoutes)
}
