package httptransport

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gestora/internal/authz"
	"gestora/internal/authz/rbac"
	"gestora/internal/executor"
	"gestora/internal/tenant/models"
	tenantservice "gestora/internal/tenant/service"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/httputil"
)

// adminHandler serves the tenant lifecycle and role binding endpoints.
// Audit events for these operations are emitted by the tenant service, so
// the executor runs them as plain timed operations.
type adminHandler struct {
	executor *executor.Executor
	tenants  *tenantservice.Service
	logger   *slog.Logger
}

func newAdminHandler(exec *executor.Executor, tenants *tenantservice.Service, logger *slog.Logger) *adminHandler {
	return &adminHandler{executor: exec, tenants: tenants, logger: logger}
}

// scopedTenantID parses the tenant id path parameter and checks it against
// the resolved context. A tenant-bound admin may only manage the tenant
// they resolved against; operator scope (nil tenant id) may manage any.
func scopedTenantID(r *http.Request, ac *authz.Context) (id.TenantID, error) {
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		return id.NilTenantID, dErrors.New(dErrors.CodeValidation, "tenant id must be a valid uuid")
	}
	if !ac.TenantID.IsNil() && tenantID != ac.TenantID {
		return id.NilTenantID, dErrors.New(dErrors.CodeTenantForbidden, "access to this tenant is not allowed")
	}
	return tenantID, nil
}

type createTenantRequest struct {
	Nome string `json:"nome"`
}

type setTenantStatusRequest struct {
	Status string `json:"status"`
}

type setBindingRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *adminHandler) handleCreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	req, err := decodeInto[createTenantRequest](r)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionCreate},
		func(ctx context.Context) (any, error) {
			return h.tenants.CreateTenant(ctx, req.Nome)
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusCreated, data)
}

// handleGetTenant is mounted on the standard branch: any bound member with
// read permission may see their own tenant. A caller asking about a tenant
// other than the one they resolved against gets the uniform forbidden
// answer, except in operator scope where every tenant is visible.
func (h *adminHandler) handleGetTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	tenantID, err := scopedTenantID(r, ac)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionRead},
		func(ctx context.Context) (any, error) {
			return h.tenants.GetTenant(ctx, tenantID)
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}

func (h *adminHandler) handleSetTenantStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	tenantID, err := scopedTenantID(r, ac)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	req, err := decodeInto[setTenantStatusRequest](r)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	status, err := models.ParseTenantStatus(req.Status)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionUpdate},
		func(ctx context.Context) (any, error) {
			return h.tenants.SetTenantStatus(ctx, tenantID, status)
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}

// handleDeactivateTenant implements DELETE on a tenant as a transition to
// inactive. Tenants are never physically removed; their records keep their
// owner and the audit trail stays coherent.
func (h *adminHandler) handleDeactivateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	tenantID, err := scopedTenantID(r, ac)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionDelete},
		func(ctx context.Context) (any, error) {
			return h.tenants.SetTenantStatus(ctx, tenantID, models.TenantStatusInactive)
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}

func (h *adminHandler) handleSetBinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	tenantID, err := scopedTenantID(r, ac)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	req, err := decodeInto[setBindingRequest](r)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	if req.UserID == "" {
		httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeValidation, "user_id is required"))
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionUpdate},
		func(ctx context.Context) (any, error) {
			return h.tenants.SetBinding(ctx, id.UserID(req.UserID), tenantID, role)
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}

func (h *adminHandler) handleRemoveBinding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ac := authz.FromContext(ctx)

	tenantID, err := scopedTenantID(r, ac)
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeValidation, "user_id is required"))
		return
	}

	data, err := h.executor.Execute(ctx, ac,
		executor.Operation{Resource: rbac.ResourceClientes, Action: rbac.ActionUpdate},
		func(ctx context.Context) (any, error) {
			if err := h.tenants.RemoveBinding(ctx, id.UserID(userID), tenantID); err != nil {
				return nil, err
			}
			return map[string]string{"user_id": userID, "tenant_id": tenantID.String()}, nil
		})
	if err != nil {
		httputil.WriteError(w, ctx, err)
		return
	}
	httputil.WriteData(w, ctx, http.StatusOK, data)
}
