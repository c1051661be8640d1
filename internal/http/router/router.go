package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jakecourtright/HayFlow/internal/auth"
	"github.com/jakecourtright/HayFlow/internal/config"
	"github.com/jakecourtright/HayFlow/internal/domain"
	"github.com/jakecourtright/HayFlow/internal/http/handler"
	"github.com/jakecourtright/HayFlow/internal/http/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"
	"go.uber.org/zap"

	_ "github.com/jakecourtright/HayFlow/docs" // Import generated swagger docs
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health      *handler.HealthHandler
	Auth        *handler.AuthHandler
	Stacks      *handler.StackHandler
	Locations   *handler.LocationHandler
	Ledger      *handler.TransactionHandler
	Tickets     *handler.TicketHandler
	Invoices    *handler.InvoiceHandler
	QuickSale   *handler.QuickSaleHandler
	Reports     *handler.ReportHandler
	Preferences *handler.PreferenceHandler
	Audit       *handler.AuditHandler
	Realtime    *handler.RealtimeHandler
}

type Router struct {
	cfg             *config.Config
	logger          *zap.Logger
	authMiddleware  *auth.Middleware
	orgFilter       *middleware.OrgFilterMiddleware
	rateLimiter     *middleware.RateLimiter
	auditMiddleware *middleware.AuditMiddleware
	handlers        Handlers
}

func NewRouter(
	cfg *config.Config,
	logger *zap.Logger,
	authMiddleware *auth.Middleware,
	orgFilter *middleware.OrgFilterMiddleware,
	rateLimiter *middleware.RateLimiter,
	auditMiddleware *middleware.AuditMiddleware,
	handlers Handlers,
) *Router {
	return &Router{
		cfg:             cfg,
		logger:          logger,
		authMiddleware:  authMiddleware,
		orgFilter:       orgFilter,
		rateLimiter:     rateLimiter,
		auditMiddleware: auditMiddleware,
		handlers:        handlers,
	}
}

func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()
	h := rt.handlers

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer(rt.logger))
	r.Use(middleware.Logging(rt.logger))
	r.Use(middleware.SecurityHeaders(&rt.cfg.Security))
	r.Use(middleware.CORS(&rt.cfg.CORS, rt.cfg.App.Environment, rt.logger))
	r.Use(rt.rateLimiter.LimitByIP)

	r.Get("/health", h.Health.Live)
	r.Get("/health/db", h.Health.Database)
	r.Get("/health/ready", h.Health.Ready)

	if rt.cfg.Server.EnableSwagger {
		r.Get("/swagger/*", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Public routes (no auth required)
		r.With(rt.rateLimiter.LimitPublic).Get("/public/invoices/{token}", h.Invoices.GetPublic)

		// Websocket upgrades carry the token in the query string and must not time out
		r.With(rt.authMiddleware.AuthenticateQueryToken, rt.orgFilter.Filter).Get("/dispatch/ws", h.Realtime.Subscribe)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(rt.authMiddleware.Authenticate)
			r.Use(rt.orgFilter.Filter)
			r.Use(rt.rateLimiter.LimitByUser)
			if rt.cfg.Server.RequestTimeout > 0 {
				r.Use(chimw.Timeout(rt.cfg.Server.RequestTimeoutDuration()))
			}
			r.Use(rt.auditMiddleware.Audit)

			r.Get("/auth/me", h.Auth.Me)

			r.Route("/stacks", func(r chi.Router) {
				r.Get("/", h.Stacks.List)
				r.Post("/", h.Stacks.Create)
				r.Get("/{id}", h.Stacks.GetByID)
				r.Put("/{id}", h.Stacks.Update)
				r.Delete("/{id}", h.Stacks.Delete)
			})

			r.Route("/locations", func(r chi.Router) {
				r.Get("/", h.Locations.List)
				r.Post("/", h.Locations.Create)
				r.Get("/{id}", h.Locations.GetByID)
				r.Put("/{id}", h.Locations.Update)
				r.Delete("/{id}", h.Locations.Delete)
			})

			r.Route("/transactions", func(r chi.Router) {
				r.Get("/", h.Ledger.List)
				r.Post("/", h.Ledger.Create)
				r.Get("/{id}", h.Ledger.GetByID)
				r.Put("/{id}", h.Ledger.Update)
				r.Delete("/{id}", h.Ledger.Delete)
			})

			r.Get("/inventory/stock", h.Ledger.Stock)
			r.Post("/inventory/check", h.Ledger.CheckSufficiency)

			r.Route("/tickets", func(r chi.Router) {
				r.Get("/", h.Tickets.List)
				r.Post("/", h.Tickets.Create)
				r.Get("/{id}", h.Tickets.GetByID)
				r.Delete("/{id}", h.Tickets.Delete)
				r.Post("/{id}/approve", h.Tickets.Approve)
				r.Post("/{id}/reject", h.Tickets.Reject)
			})
			r.Get("/dispatch", h.Tickets.DispatchQueue)

			r.Route("/invoices", func(r chi.Router) {
				r.Get("/", h.Invoices.List)
				r.Post("/", h.Invoices.Compile)
				r.Get("/{id}", h.Invoices.GetByID)
				r.Put("/{id}", h.Invoices.Update)
				r.Put("/{id}/status", h.Invoices.UpdateStatus)
				r.Get("/{id}/export.xlsx", h.Invoices.Export)
			})

			r.Post("/sales/quick", h.QuickSale.Create)

			r.Get("/reports", h.Reports.Get)
			r.Get("/reports/export.xlsx", h.Reports.Export)
			r.Get("/dashboard", h.Reports.Dashboard)

			r.Get("/preferences/dashboard-layout", h.Preferences.GetDashboardLayout)
			r.Put("/preferences/dashboard-layout", h.Preferences.SaveDashboardLayout)

			// Audit logs (requires users:manage)
			r.With(rt.authMiddleware.RequirePermission(domain.PermissionUsersManage)).Get("/audit", h.Audit.List)
		})
	})

	return r
}
