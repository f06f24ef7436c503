package dashboard

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/reports"
)

// Handler serves the landing view data every signed-in role can see. It
// exposes workload counts only; monetary totals stay behind /reports.
type Handler struct {
	logger  *slog.Logger
	reports *reports.Service
}

func NewHandler(logger *slog.Logger, reportsService *reports.Service) *Handler {
	return &Handler{logger: logger, reports: reportsService}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.overview)
}

type overviewResponse struct {
	PendingCount  int `json:"pendingCount"`
	ApprovedCount int `json:"approvedCount"`
	PaidCount     int `json:"paidCount"`
}

func (h *Handler) overview(w http.ResponseWriter, r *http.Request) {
	summary, err := h.reports.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, overviewResponse{
		PendingCount:  summary.PendingCount,
		ApprovedCount: summary.ApprovedCount,
		PaidCount:     summary.PaidCount,
	})
}
