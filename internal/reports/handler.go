package reports

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

// WarmupEnqueuer schedules a background summary recomputation.
type WarmupEnqueuer interface {
	EnqueueReportWarmup(ctx context.Context) error
}

// Handler wires report HTTP endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	warmups WarmupEnqueuer
}

// NewHandler constructs a Handler instance. warmups may be nil, in which
// case the refresh endpoint recomputes inline.
func NewHandler(logger *slog.Logger, service *Service, warmups WarmupEnqueuer) *Handler {
	return &Handler{logger: logger, service: service, warmups: warmups}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/summary", h.summary)
	r.Get("/summary.csv", h.summaryCSV)
	r.Post("/refresh", h.refresh)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("report summary", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, s)
}

func (h *Handler) summaryCSV(w http.ResponseWriter, r *http.Request) {
	s, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("report summary export", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="resumo-faturas.csv"`)
	if err := WriteCSV(w, s); err != nil {
		h.logger.Error("write summary csv", slog.Any("error", err))
	}
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	if h.warmups != nil {
		if err := h.warmups.EnqueueReportWarmup(r.Context()); err != nil {
			h.logger.Error("enqueue report warmup", slog.Any("error", err))
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}
		httpx.OK(w, http.StatusAccepted, map[string]string{"status": "scheduled"})
		return
	}
	if err := h.service.Warm(r.Context()); err != nil {
		h.logger.Error("report refresh", slog.Any("error", err))
		httpx.Fail(w, http.StatusInternalServerError, "internal error")
		return
	}
	httpx.OK(w, http.StatusOK, map[string]string{"status": "refreshed"})
}
