package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/meridian-erp/meridian-erp/internal/auth"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/observability"
	"github.com/meridian-erp/meridian-erp/internal/partners"
	"github.com/meridian-erp/meridian-erp/internal/purchases"
	"github.com/meridian-erp/meridian-erp/internal/sales"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/tenancy"
	"github.com/meridian-erp/meridian-erp/internal/warehouse"
	"github.com/meridian-erp/meridian-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	SessionManager *shared.SessionManager
	TenancyGuard   *tenancy.Guard
	TenancyHandler *tenancy.Handler

	AuthHandler      *auth.Handler
	PartnersHandler  *partners.Handler
	CatalogHandler   *catalog.Handler
	PurchasesHandler *purchases.Handler
	SalesHandler     *sales.Handler
	WarehouseHandler *warehouse.Handler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Meridian defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Metrics != nil {
		r.Get("/metrics", params.Metrics.Handler().ServeHTTP)
	}

	r.Route("/auth", params.AuthHandler.MountRoutes)

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Get("/api/companies", params.TenancyHandler.HandleList)

	r.Route("/api/companies/{companyID}", func(r chi.Router) {
		r.Use(params.TenancyGuard.RequireMember)
		r.Route("/partners", params.PartnersHandler.MountRoutes)
		r.Route("/products", params.CatalogHandler.MountRoutes)
		r.Route("/purchases", params.PurchasesHandler.MountRoutes)
		r.Route("/sales", params.SalesHandler.MountRoutes)
		r.Route("/warehouse", params.WarehouseHandler.MountRoutes)
	})

	return r
}
