package invoices

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/shared"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

const idempotencyHeader = "X-Idempotency-Key"

// Handler wires invoice HTTP endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	idem      *shared.IdempotencyStore
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, idem *shared.IdempotencyStore) *Handler {
	return &Handler{logger: logger, service: service, idem: idem, validator: validator.New()}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Post("/{id}/decisions", h.submitDecision)
	r.Post("/{id}/cancel", h.cancel)
}

type createRequest struct {
	SupplierID     int64  `json:"supplierId" validate:"required"`
	CategoryID     int64  `json:"categoryId" validate:"required"`
	Description    string `json:"description" validate:"required"`
	Amount         string `json:"amount" validate:"required"`
	IssueDate      string `json:"issueDate" validate:"required"`
	ServiceDate    string `json:"serviceDate" validate:"required"`
	DueDate        string `json:"dueDate" validate:"required"`
	RegisteredByID int64  `json:"registeredById" validate:"required"`
}

type decisionRequest struct {
	Action   string `json:"action" validate:"required"`
	UserID   int64  `json:"userId" validate:"required"`
	Comments string `json:"comments"`
}

type invoiceResponse struct {
	ID          string           `json:"id"`
	Number      string           `json:"number"`
	SupplierID  int64            `json:"supplierId"`
	CategoryID  int64            `json:"categoryId"`
	Description string           `json:"description"`
	Amount      string           `json:"amount"`
	IssueDate   string           `json:"issueDate"`
	ServiceDate string           `json:"serviceDate"`
	DueDate     string           `json:"dueDate"`
	Status      string           `json:"status"`
	CurrentStep string           `json:"currentStep"`
	History     []approvalRecord `json:"approvalHistory"`
	CreatedBy   int64            `json:"createdBy"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

type approvalRecord struct {
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
	issue, err1 := parseDate(req.IssueDate)
	service, err2 := parseDate(req.ServiceDate)
	due, err3 := parseDate(req.DueDate)
	if err1 != nil || err2 != nil || err3 != nil {
		httpx.Fail(w, http.StatusBadRequest, "dates must use YYYY-MM-DD")
		return
	}

	inv, err := h.service.Create(r.Context(), CreateInvoiceInput{
		SupplierID:   req.SupplierID,
		CategoryID:   req.CategoryID,
		Description:  req.Description,
		Amount:       amount,
		IssueDate:    issue,
		ServiceDate:  service,
		DueDate:      due,
		RegisteredBy: req.RegisteredByID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusCreated, toResponse(inv))
}

func (h *Handler) submitDecision(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
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

	role, ok := h.actingRole(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}

	// Optional at-most-once guard: a consumed token means this exact user
	// action was already processed.
	token := r.Header.Get(idempotencyHeader)
	if token != "" && h.idem != nil {
		if err := h.idem.CheckAndInsert(r.Context(), token, "invoice-decision"); err != nil {
			h.respondError(w, err)
			return
		}
	}

	inv, err := h.service.SubmitDecision(r.Context(), DecisionInput{
		InvoiceID: id,
		Action:    action,
		RawAction: req.Action,
		ActorID:   req.UserID,
		ActorRole: role,
		Comment:   req.Comments,
	})
	if err != nil {
		if token != "" && h.idem != nil {
			_ = h.idem.Delete(r.Context(), token)
		}
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	actorID, role, ok := h.actingUser(r)
	if !ok {
		httpx.Fail(w, http.StatusForbidden, "authentication required")
		return
	}
	inv, err := h.service.Cancel(r.Context(), id, actorID, role)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Fail(w, http.StatusBadRequest, "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, toResponse(inv))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var supplierID int64
	if raw := q.Get("supplierId"); raw != "" {
		supplierID, _ = strconv.ParseInt(raw, 10, 64)
	}
	invs, err := h.service.List(r.Context(), ListFilter{
		Status:     workflow.Status(q.Get("status")),
		SupplierID: supplierID,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]invoiceResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toResponse(inv))
	}
	httpx.OK(w, http.StatusOK, out)
}

func (h *Handler) actingRole(r *http.Request) (rbac.Role, bool) {
	_, role, ok := h.actingUser(r)
	return role, ok
}

func (h *Handler) actingUser(r *http.Request) (int64, rbac.Role, bool) {
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
		h.logger.Error("invoice request failed", slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func toResponse(inv Invoice) invoiceResponse {
	history := make([]approvalRecord, 0, len(inv.History))
	for _, rec := range inv.History {
		history = append(history, approvalRecord{
			ID:        rec.ID.String(),
			Step:      string(rec.Step),
			Action:    string(rec.Action),
			ActorID:   rec.ActorID,
			Comment:   rec.Comment,
			DecidedAt: rec.DecidedAt,
		})
	}
	return invoiceResponse{
		ID:          inv.ID.String(),
		Number:      inv.Number,
		SupplierID:  inv.SupplierID,
		CategoryID:  inv.CategoryID,
		Description: inv.Description,
		Amount:      inv.Amount.String(),
		IssueDate:   inv.IssueDate.Format(dateLayout),
		ServiceDate: inv.ServiceDate.Format(dateLayout),
		DueDate:     inv.DueDate.Format(dateLayout),
		Status:      string(inv.Status),
		CurrentStep: string(inv.CurrentStep),
		History:     history,
		CreatedBy:   inv.CreatedBy,
		CreatedAt:   inv.CreatedAt,
		UpdatedAt:   inv.UpdatedAt,
	}
}

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, raw)
}
