package requests

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/shared"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Handler wires payment request HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers payment request routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/decisions", h.submitDecision)
	r.Post("/{id}/register-invoice", h.registerInvoice)
	r.Post("/{id}/cancel", h.cancel)
}

type createRequest struct {
	SupplierID  int64  `json:"supplierId" validate:"required"`
	CategoryID  int64  `json:"categoryId"`
	Description string `json:"description" validate:"required"`
	Amount      string `json:"amount" validate:"required"`
}

type decisionRequest struct {
	Action   string `json:"action" validate:"required"`
	UserID   int64  `json:"userId" validate:"required"`
	Comments string `json:"comments"`
}

type registerInvoiceRequest struct {
	IssueDate   string `json:"issueDate" validate:"required"`
	ServiceDate string `json:"serviceDate" validate:"required"`
	DueDate     string `json:"dueDate" validate:"required"`
}

type requestResponse struct {
	ID          string         `json:"id"`
	SupplierID  int64          `json:"supplierId"`
	CategoryID  int64          `json:"categoryId"`
	Description string         `json:"description"`
	Amount      string         `json:"amount"`
	Status      string         `json:"status"`
	CurrentStep string         `json:"currentStep"`
	InvoiceID   *string        `json:"invoiceId,omitempty"`
	History     []decisionItem `json:"approvalHistory"`
	CreatedBy   int64          `json:"createdBy"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

type decisionItem struct {
	ID        string    `json:"id"`
	Step      string    `json:"step"`
	Action    string    `json:"action"`
	ActorID   int64     `json:"actorId"`
	Comment   string    `json:"comment,omitempty"`
	DecidedAt time.Time `json:"decidedAt"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "missing required fields")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil || !amount.IsPositive() {
		httpx.Fail(w, http.StatusBadRequest, "amount must be a positive decimal")
		return
	}
	actorID, _, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	pr, err := h.service.Create(r.Context(), CreateInput{
		SupplierID:  req.SupplierID,
		CategoryID:  req.CategoryID,
		Description: req.Description,
		Amount:      amount,
		CreatedBy:   actorID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(pr))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	actorID, role, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	pr, err := h.service.Submit(r.Context(), id, actorID, role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(pr))
}

func (h *Handler) submitDecision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "missing required fields")
		return
	}
	action, err := workflow.ParseAction(req.Action)
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "unknown action")
		return
	}
	_, role, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	pr, err := h.service.SubmitDecision(r.Context(), DecisionInput{
		RequestID: id,
		Action:    action,
		RawAction: req.Action,
		ActorID:   req.UserID,
		ActorRole: role,
		Comment:   req.Comments,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(pr))
}

func (h *Handler) registerInvoice(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req registerInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "missing required fields")
		return
	}
	issue, err1 := time.Parse("2006-01-02", req.IssueDate)
	service, err2 := time.Parse("2006-01-02", req.ServiceDate)
	due, err3 := time.Parse("2006-01-02", req.DueDate)
	if err1 != nil || err2 != nil || err3 != nil {
		httpx.Fail(w, http.StatusBadRequest, "dates must use YYYY-MM-DD")
		return
	}
	actorID, role, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	pr, err := h.service.RegisterInvoice(r.Context(), id, actorID, role, invoices.CreateInvoiceInput{
		IssueDate:   issue,
		ServiceDate: service,
		DueDate:     due,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(pr))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	actorID, role, ok := actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	pr, err := h.service.Cancel(r.Context(), id, actorID, role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(pr))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid request id")
		return
	}
	pr, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(pr))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var createdBy int64
	if raw := q.Get("createdBy"); raw != "" {
		createdBy, _ = strconv.ParseInt(raw, 10, 64)
	}
	prs, err := h.service.List(r.Context(), ListFilter{
		Status:    workflow.Status(q.Get("status")),
		CreatedBy: createdBy,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]requestResponse, 0, len(prs))
	for _, pr := range prs {
		out = append(out, toResponse(pr))
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
		h.logger.Error("payment request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toResponse(pr PaymentRequest) requestResponse {
	history := make([]decisionItem, 0, len(pr.History))
	for _, dec := range pr.History {
		history = append(history, decisionItem{
			ID:        dec.ID.String(),
			Step:      string(dec.Step),
			Action:    string(dec.Action),
			ActorID:   dec.ActorID,
			Comment:   dec.Comment,
			DecidedAt: dec.DecidedAt,
		})
	}
	var invoiceID *string
	if pr.InvoiceID != nil {
		s := pr.InvoiceID.String()
		invoiceID = &s
	}
	return requestResponse{
		ID:          pr.ID.String(),
		SupplierID:  pr.SupplierID,
		CategoryID:  pr.CategoryID,
		Description: pr.Description,
		Amount:      pr.Amount.String(),
		Status:      string(pr.Status),
		CurrentStep: string(pr.CurrentStep),
		InvoiceID:   invoiceID,
		History:     history,
		CreatedBy:   pr.CreatedBy,
		CreatedAt:   pr.CreatedAt,
		UpdatedAt:   pr.UpdatedAt,
	}
}
