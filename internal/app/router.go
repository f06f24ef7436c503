package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/auth"
	"github.com/fincontrol/fincontrol/internal/dashboard"
	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/masterdata/categories"
	"github.com/fincontrol/fincontrol/internal/masterdata/suppliers"
	"github.com/fincontrol/fincontrol/internal/payments"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/reports"
	"github.com/fincontrol/fincontrol/internal/requests"
	"github.com/fincontrol/fincontrol/internal/shared"
	"github.com/fincontrol/fincontrol/internal/users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	RBACMiddleware rbac.Middleware

	AuthHandler      *auth.Handler
	DashboardHandler *dashboard.Handler
	InvoiceHandler   *invoices.Handler
	RequestHandler   *requests.Handler
	PaymentHandler   *payments.Handler
	ReportHandler    *reports.Handler
	AuditHandler     *audit.Handler
	SupplierHandler  *suppliers.Handler
	CategoryHandler  *categories.Handler
	UsersHandler     *users.Handler
}

// NewRouter constructs the chi.Router. Every guarded area is mounted under
// its matrix prefix so the route layout and the access table stay aligned.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	guard := params.RBACMiddleware.Guard
	authed := params.RBACMiddleware.RequireAuthenticated

	r.Route(rbac.PrefixDashboard, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixDashboard))
		params.DashboardHandler.MountRoutes(r)
	})
	r.Route(rbac.PrefixInvoices, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixInvoices))
		params.InvoiceHandler.MountRoutes(r)
	})
	r.Route(rbac.PrefixRequests, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixRequests))
		params.RequestHandler.MountRoutes(r)
	})
	r.Route(rbac.PrefixPayments, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixPayments))
		params.PaymentHandler.MountRoutes(r)
	})
	r.Route(rbac.PrefixTransactions, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixTransactions))
		params.PaymentHandler.MountTransactionRoutes(r)
	})
	r.Route(rbac.PrefixReports, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixReports))
		params.ReportHandler.MountRoutes(r)
		r.Route("/audit", params.AuditHandler.MountRoutes)
	})
	r.Route(rbac.PrefixSuppliers, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixSuppliers))
		params.SupplierHandler.MountRoutes(r)
	})
	r.Route(rbac.PrefixSettings, func(r chi.Router) {
		r.Use(authed, guard(rbac.PrefixSettings))
		r.Route("/categories", params.CategoryHandler.MountRoutes)
		params.UsersHandler.MountRoutes(r)
	})

	return r
}
