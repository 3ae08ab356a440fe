package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"gestora/internal/authz"
	"gestora/internal/authz/rbac"
	"gestora/internal/executor"
	"gestora/internal/records"
	"gestora/pkg/platform/httputil"
)

// dashboardHandler serves the read-only dashboard summary. Aggregation is
// a pure fold over already-scoped counts; writes to this resource are
// disabled for every role in the permission matrix.
type dashboardHandler struct {
	executor *executor.Executor
	store    records.Store
	logger   *slog.Logger
}

func newDashboardHandler(exec *executor.Executor, store records.Store, logger *slog.Logger) *dashboardHandler {
	return &dashboardHandler{executor: exec, store: store, logger: logger}
}

// DashboardSummary is the aggregate view of one tenant's records.
type DashboardSummary struct {
	Totals map[string]int `json:"totals"`
}

func (h *dashboardHandler) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceDashboard, Action: rbac.ActionRead},
		func(ctx context.Context) (any, error) {
			summary := DashboardSummary{Totals: make(map[string]int, len(recordResources))}
			for _, resource := range recordResources {
				count, err := h.store.Count(ctx, resource, ac.TenantID, records.Filter{})
				if err != nil {
					return nil, err
				}
				summary.Totals[resource] = count
			}
			return summary, nil
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}
