// Package httptransport assembles the HTTP surface: middleware chain,
// route table, and the admin-gate decision that tells the tenant resolver
// which branch to apply.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"gestora/internal/authz/resolver"
	"gestora/internal/executor"
	"gestora/internal/identity"
	"gestora/internal/platform/middleware"
	"gestora/internal/records"
	tenantservice "gestora/internal/tenant/service"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/httputil"
)

// Deps carries everything the router needs. All fields are required
// except Metrics handlers, which default off when nil.
type Deps struct {
	Logger    *slog.Logger
	Validator identity.TokenValidator
	Resolver  *resolver.Resolver
	Executor  *executor.Executor
	Records   records.Store
	Tenants   *tenantservice.Service
}

// NewRouter builds the full route table.
//
// The admin gate is positional: everything mounted under the admin group
// resolves tenant context with the admin branch (role must be admin, or
// the headerless bypass applies), everything else with the standard
// branch. Mutations on the clientes collection are administrative; reads
// of one's own tenant are not.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Metadata)

	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	recordsHandler := newRecordsHandler(deps.Executor, deps.Records, deps.Logger)
	adminHandler := newAdminHandler(deps.Executor, deps.Tenants, deps.Logger)
	dashboardHandler := newDashboardHandler(deps.Executor, deps.Records, deps.Logger)

	auth := identity.RequireAuth(deps.Validator, deps.Logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(auth)

		api.Group(func(standard chi.Router) {
			standard.Use(deps.Resolver.Middleware(false))

			for _, resource := range recordResources {
				resource := resource
				standard.Route("/"+resource, func(rr chi.Router) {
					rr.Get("/", recordsHandler.handleList(resource))
					rr.Post("/", recordsHandler.handleCreate(resource))
					rr.Get("/{recordID}", recordsHandler.handleGet(resource))
					rr.Put("/{recordID}", recordsHandler.handleUpdate(resource))
					rr.Delete("/{recordID}", recordsHandler.handleDelete(resource))
				})
			}

			standard.Get("/dashboard", dashboardHandler.handleSummary)
			standard.Get("/clientes/{tenantID}", adminHandler.handleGetTenant)
		})

		api.Group(func(admin chi.Router) {
			admin.Use(deps.Resolver.Middleware(true))

			admin.Post("/clientes", adminHandler.handleCreateTenant)
			admin.Put("/clientes/{tenantID}", adminHandler.handleSetTenantStatus)
			admin.Delete("/clientes/{tenantID}", adminHandler.handleDeactivateTenant)

			admin.Route("/admin/clientes/{tenantID}/bindings", func(b chi.Router) {
				b.Put("/", adminHandler.handleSetBinding)
				b.Delete("/{userID}", adminHandler.handleRemoveBinding)
			})
		})
	})

	r.NotFound(handleUnmatched)
	r.MethodNotAllowed(handleUnmatched)

	return r
}

var recordResources = []string{"contratos", "produtos", "alunos"}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteData(w, r.Context(), http.StatusOK, map[string]string{"status": "ok"})
}

// handleUnmatched answers every unknown route with the uniform envelope.
func handleUnmatched(w http.ResponseWriter, r *http.Request) {
	httputil.WriteError(w, r.Context(),
		dErrors.New(dErrors.CodeNotFound, "route not found").
			WithDetails(map[string]string{
				"method": r.Method,
				"path":   r.URL.Path,
			}))
}
