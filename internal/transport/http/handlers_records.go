package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gestora/internal/audit"
	"gestora/internal/authz"
	"gestora/internal/authz/rbac"
	"gestora/internal/executor"
	"gestora/internal/records"
	id "gestora/pkg/domain"
	dErrors "gestora/pkg/domain-errors"
	"gestora/pkg/platform/httputil"
	"gestora/pkg/platform/sentinel"
	"gestora/pkg/requestcontext"
)

// recordsHandler serves the shared CRUD surface of the tenant-scoped
// business resources. Every store call runs inside the executor so the
// permission check, tenant scoping, and audit trail are uniform.
type recordsHandler struct {
	executor *executor.Executor
	store    records.Store
	logger   *slog.Logger
}

func newRecordsHandler(exec *executor.Executor, store records.Store, logger *slog.Logger) *recordsHandler {
	return &recordsHandler{executor: exec, store: store, logger: logger}
}

func (h *recordsHandler) handleList(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ac := authz.FromContext(ctx)

		data, err := h.executor.Execute(ctx, ac,
			executor.Operation{Resource: resource, Action: rbac.ActionRead},
			func(ctx context.Context) (any, error) {
				rows, err := h.store.List(ctx, resource, ac.TenantID, filterFromQuery(r))
				if err != nil {
					return nil, err
				}
				if rows == nil {
					rows = []*records.Record{}
				}
				return rows, nil
			})
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}
		httputil.WriteData(w, ctx, http.StatusOK, data)
	}
}

func (h *recordsHandler) handleGet(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ac := authz.FromContext(ctx)

		recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
		if err != nil {
			httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeValidation, "record id must be a valid uuid"))
			return
		}

		data, err := h.executor.Execute(ctx, ac,
			executor.Operation{Resource: resource, Action: rbac.ActionRead},
			func(ctx context.Context) (any, error) {
				record, err := h.store.FindByID(ctx, resource, ac.TenantID, recordID)
				if err != nil {
					return nil, wrapStoreErr(err, resource)
				}
				return record, nil
			})
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}
		httputil.WriteData(w, ctx, http.StatusOK, data)
	}
}

func (h *recordsHandler) handleCreate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ac := authz.FromContext(ctx)

		payload, err := decodeBody(r)
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}

		data, err := h.executor.ExecuteWrite(ctx, ac,
			executor.Operation{Resource: resource, Action: rbac.ActionCreate},
			payload,
			func(ctx context.Context, p executor.Payload) (*executor.WriteResult, error) {
				record, err := records.New(resource, p.ClienteID, p.Data, requestcontext.Now(ctx))
				if err != nil {
					return nil, err
				}
				if err := h.store.Create(ctx, record); err != nil {
					return nil, wrapStoreErr(err, resource)
				}
				return &executor.WriteResult{
					Data:        record,
					EntityID:    record.ID.String(),
					AuditAction: audit.ActionRecordCreated,
				}, nil
			})
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}
		httputil.WriteData(w, ctx, http.StatusCreated, data)
	}
}

func (h *recordsHandler) handleUpdate(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ac := authz.FromContext(ctx)

		recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
		if err != nil {
			httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeValidation, "record id must be a valid uuid"))
			return
		}
		payload, err := decodeBody(r)
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}

		data, err := h.executor.ExecuteWrite(ctx, ac,
			executor.Operation{Resource: resource, Action: rbac.ActionUpdate},
			payload,
			func(ctx context.Context, p executor.Payload) (*executor.WriteResult, error) {
				record, err := h.store.FindByID(ctx, resource, p.ClienteID, recordID)
				if err != nil {
					return nil, wrapStoreErr(err, resource)
				}
				record.Patch(p.Data, requestcontext.Now(ctx))
				if err := h.store.Update(ctx, record); err != nil {
					return nil, wrapStoreErr(err, resource)
				}
				return &executor.WriteResult{
					Data:        record,
					EntityID:    record.ID.String(),
					AuditAction: audit.ActionRecordUpdated,
				}, nil
			})
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}
		httputil.WriteData(w, ctx, http.StatusOK, data)
	}
}

func (h *recordsHandler) handleDelete(resource string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		ac := authz.FromContext(ctx)

		recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
		if err != nil {
			httputil.WriteError(w, ctx, dErrors.New(dErrors.CodeValidation, "record id must be a valid uuid"))
			return
		}

		data, err := h.executor.ExecuteWrite(ctx, ac,
			executor.Operation{Resource: resource, Action: rbac.ActionDelete},
			nil,
			func(ctx context.Context, p executor.Payload) (*executor.WriteResult, error) {
				if err := h.store.Delete(ctx, resource, p.ClienteID, recordID); err != nil {
					return nil, wrapStoreErr(err, resource)
				}
				return &executor.WriteResult{
					Data:        map[string]string{"id": recordID.String()},
					EntityID:    recordID.String(),
					AuditAction: audit.ActionRecordDeleted,
				}, nil
			})
		if err != nil {
			httputil.WriteError(w, ctx, err)
			return
		}
		httputil.WriteData(w, ctx, http.StatusOK, data)
	}
}

// filterFromQuery turns query parameters into an equality filter. Reserved
// parameters and the tenant field are ignored; everything else matches
// against the record document.
func filterFromQuery(r *http.Request) records.Filter {
	query := r.URL.Query()
	if len(query) == 0 {
		return records.Filter{}
	}
	equals := make(map[string]any, len(query))
	for key, values := range query {
		if key == records.TenantField || len(values) == 0 {
			continue
		}
		equals[key] = values[0]
	}
	return records.Filter{Equals: equals}
}

func wrapStoreErr(err error, resource string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, resource+" record not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, resource+" record conflicts with an existing one")
	default:
		return err
	}
}
