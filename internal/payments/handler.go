package payments

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/shared"
)

// Handler wires payment HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payment execution routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.execute)
}

// MountTransactionRoutes registers the transaction listing routes.
func (h *Handler) MountTransactionRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type executeRequest struct {
	InvoiceID string `json:"invoiceId" validate:"required"`
	Method    string `json:"method" validate:"required"`
	Reference string `json:"reference"`
	Note      string `json:"note"`
}

type paymentResponse struct {
	ID        string    `json:"id"`
	InvoiceID string    `json:"invoiceId"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method"`
	Reference string    `json:"reference,omitempty"`
	Note      string    `json:"note,omitempty"`
	PaidAt    time.Time `json:"paidAt"`
	CreatedBy int64     `json:"createdBy"`
}

func (h *Handler) execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "missing required fields")
		return
	}
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	method, err := ParseMethod(req.Method)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "unknown payment method")
		return
	}
	actorID, role, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}

	p, _, err := h.service.Execute(r.Context(), ExecuteInput{
		InvoiceID: invoiceID,
		Method:    method,
		Reference: req.Reference,
		Note:      req.Note,
		ActorID:   actorID,
	}, role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(p))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{}
	if raw := q.Get("invoiceId"); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			filter.InvoiceID = id
		}
	}
	if raw := q.Get("from"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.From = t
		}
	}
	if raw := q.Get("to"); raw != "" {
		if t, err := time.Parse("2006-01-02", raw); err == nil {
			filter.To = t
		}
	}
	if raw := q.Get("offset"); raw != "" {
		filter.Offset, _ = strconv.Atoi(raw)
	}

	ps, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]paymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toResponse(p))
	}
	httpx.OK(w, http.StatusOK, out)
}

func actingUser(r *http.Request) (int64, rbac.Role, bool) {
	id, ok := shared.SessionUserID(r.Context())
	if !ok {
		return 0, "", false
	}
	role, err := rbac.ParseRole(shared.SessionFromContext(r.Context()).Role())
	if err != nil {
		return 0, "", false
	}
	return id, role, true
}

// respondError defers status mapping to the httpx sentinels the service
// errors wrap. Uncategorized errors are logged before the generic 500.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	if !httpx.IsCategorized(err) {
		h.logger.Error("payment execution failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toResponse(p Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID.String(),
		InvoiceID: p.InvoiceID.String(),
		Amount:    p.Amount.String(),
		Method:    string(p.Method),
		Reference: p.Reference,
		Note:      p.Note,
		PaidAt:    p.PaidAt,
		CreatedBy: p.CreatedBy,
	}
}
