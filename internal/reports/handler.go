package reports

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/xwms/xwms/internal/platform/httpx"
	"github.com/xwms/xwms/report"
)

// Handler exposes reports over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
	pdf     PDFRenderer
}

// NewHandler constructs the handler. pdf may be nil to disable PDF export.
func NewHandler(logger *slog.Logger, service *Service, pdf PDFRenderer) *Handler {
	return &Handler{logger: logger, service: service, pdf: pdf}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{name}/filters", h.filters)
	r.Get("/{name}/export.csv", h.exportCSV)
	r.Get("/{name}/export.pdf", h.exportPDF)
	r.Get("/{name}", h.run)
}

func reportName(r *http.Request) string {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		return unescaped
	}
	return name
}

// rawFilters flattens the query string, keeping the first value per key.
func rawFilters(r *http.Request) map[string]string {
	q := r.URL.Query()
	raw := make(map[string]string, len(q))
	for key, vals := range q {
		if len(vals) > 0 {
			raw[key] = vals[0]
		}
	}
	return raw
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]any{"reports": h.service.Reports()})
}

func (h *Handler) filters(w http.ResponseWriter, r *http.Request) {
	set, err := h.service.Filters(reportName(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, set)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context(), reportName(r), rawFilters(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Run(r.Context(), reportName(r), rawFilters(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := WriteCSV(&buf, result); err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName(result.Report)+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) exportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF export disabled", "no PDF renderer configured")
		return
	}
	name := reportName(r)
	result, err := h.service.Run(r.Context(), name, rawFilters(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	declared, err := h.service.Describe(name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	html, err := RenderHTML(result, declared)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	pdf, err := h.pdf.RenderHTML(r.Context(), html)
	if errors.Is(err, report.ErrNotConfigured) {
		httpx.Problem(w, http.StatusServiceUnavailable, "PDF export disabled", err.Error())
		return
	}
	if err != nil {
		h.logger.Error("render report pdf failed", "report", name, "error", err)
		httpx.Problem(w, http.StatusBadGateway, "PDF rendering failed", "")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+fileName(result.Report)+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if !errors.Is(err, ErrUnknownReport) {
		var fields httpx.FieldMapper
		if !errors.As(err, &fields) {
			h.logger.Error("report request failed", "report", reportName(r), "error", err)
		}
	}
	httpx.RespondError(w, err)
}

func fileName(report string) string {
	return strings.ToLower(strings.ReplaceAll(report, " ", "_"))
}
