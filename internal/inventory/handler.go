package inventory

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xwms/xwms/internal/platform/httpx"
)

// Handler wires HTTP endpoints for inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/stock-entries", h.submitStockEntry)
	r.Get("/stock-entries/{name}", h.showStockEntry)
	r.Get("/bins", h.listBins)
}

func (h *Handler) submitStockEntry(w http.ResponseWriter, r *http.Request) {
	var entry StockEntry
	if err := httpx.DecodeJSON(r, &entry); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	posting, err := h.service.Submit(r.Context(), entry)
	if err != nil {
		h.logger.Warn("submit stock entry failed", "name", entry.Name, "type", entry.Type, "error", err)
		httpx.RespondError(w, err)
		return
	}
	h.logger.Info("stock entry submitted", "name", posting.Entry.Name, "type", posting.Entry.Type, "rows", len(posting.Ledger))
	httpx.JSON(w, http.StatusCreated, posting)
}

func (h *Handler) showStockEntry(w http.ResponseWriter, r *http.Request) {
	posting, err := h.service.Get(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, posting)
}

func (h *Handler) listBins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bins, err := h.service.ListBins(r.Context(), BinFilter{Item: q.Get("item"), Warehouse: q.Get("warehouse")})
	if err != nil {
		h.logger.Error("list bins failed", "error", err)
		httpx.RespondError(w, err)
		return
	}
	if bins == nil {
		bins = []Bin{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"bins": bins})
}
