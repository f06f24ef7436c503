package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/fincontrol/fincontrol/internal/app"
	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/auth"
	"github.com/fincontrol/fincontrol/internal/dashboard"
	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/masterdata/categories"
	"github.com/fincontrol/fincontrol/internal/masterdata/suppliers"
	"github.com/fincontrol/fincontrol/internal/payments"
	"github.com/fincontrol/fincontrol/internal/platform/cache"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/reports"
	"github.com/fincontrol/fincontrol/internal/requests"
	"github.com/fincontrol/fincontrol/internal/shared"
	"github.com/fincontrol/fincontrol/internal/users"
	"github.com/fincontrol/fincontrol/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN, cfg.PGMaxConns)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	idempotencyStore := shared.NewIdempotencyStore(pool)
	recorder := audit.NewRecorder(pool)

	userRepo := users.NewRepository(pool)
	userService := users.NewService(userRepo, logger)
	userHandler := users.NewHandler(logger, userService)

	authService := auth.NewService(userRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager)

	reportCache := reports.NewCache(redisClient, 10*time.Minute)

	invoiceRepo := invoices.NewRepository(pool, recorder)
	reportService := reports.NewService(invoiceRepo, reportCache)
	invoiceService := invoices.NewService(invoiceRepo, reportService, logger)
	invoiceHandler := invoices.NewHandler(logger, invoiceService, idempotencyStore)

	requestRepo := requests.NewRepository(pool, recorder)
	requestService := requests.NewService(requestRepo, invoiceService, logger)
	requestHandler := requests.NewHandler(logger, requestService)

	paymentRepo := payments.NewRepository(pool)
	paymentService := payments.NewService(paymentRepo, invoiceService, recorder, logger)
	paymentHandler := payments.NewHandler(logger, paymentService)

	jobClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	reportHandler := reports.NewHandler(logger, reportService, jobClient)
	auditHandler := audit.NewHandler(logger, recorder)
	dashboardHandler := dashboard.NewHandler(logger, reportService)

	supplierHandler := suppliers.NewHandler(logger, suppliers.NewService(suppliers.NewRepository(pool), logger))
	categoryHandler := categories.NewHandler(logger, categories.NewService(categories.NewRepository(pool), logger))

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		SessionManager:   sessionManager,
		RBACMiddleware:   rbac.Middleware{Logger: logger},
		AuthHandler:      authHandler,
		DashboardHandler: dashboardHandler,
		InvoiceHandler:   invoiceHandler,
		RequestHandler:   requestHandler,
		PaymentHandler:   paymentHandler,
		ReportHandler:    reportHandler,
		AuditHandler:     auditHandler,
		SupplierHandler:  supplierHandler,
		CategoryHandler:  categoryHandler,
		UsersHandler:     userHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr))
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("server shutdown", slog.Any("error", err))
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server run", slog.Any("error", err))
			os.Exit(1)
		}
	}
}
