package binding

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

// PostgresStore persists role bindings in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE role_bindings (
//	    user_id    TEXT NOT NULL,
//	    tenant_id  UUID NOT NULL REFERENCES tenants(id),
//	    role       TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL,
//	    PRIMARY KEY (user_id, tenant_id)
//	);
//
// The composite primary key is what enforces the one-role-per-tenant
// invariant at the storage layer.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Upsert(ctx context.Context, binding *models.RoleBinding) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO role_bindings (user_id, tenant_id, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, tenant_id)
		DO UPDATE SET role = EXCLUDED.role, updated_at = EXCLUDED.updated_at
	`, binding.UserID.String(), binding.TenantID.String(), string(binding.Role), binding.CreatedAt, binding.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert role binding: %w", err)
	}
	return nil
}

func (s *PostgresStore) Find(ctx context.Context, userID id.UserID, tenantID id.TenantID) (*models.RoleBinding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, tenant_id, role, created_at, updated_at
		FROM role_bindings WHERE user_id = $1 AND tenant_id = $2
	`, userID.String(), tenantID.String())
	return scanBinding(row.Scan)
}

func (s *PostgresStore) Delete(ctx context.Context, userID id.UserID, tenantID id.TenantID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM role_bindings WHERE user_id = $1 AND tenant_id = $2
	`, userID.String(), tenantID.String())
	if err != nil {
		return fmt.Errorf("delete role binding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete role binding: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.RoleBinding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, tenant_id, role, created_at, updated_at
		FROM role_bindings WHERE user_id = $1
	`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list role bindings: %w", err)
	}
	defer rows.Close()

	var out []*models.RoleBinding
	for rows.Next() {
		binding, err := scanBinding(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, binding)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID id.TenantID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM role_bindings WHERE tenant_id = $1
	`, tenantID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count role bindings: %w", err)
	}
	return count, nil
}

func scanBinding(scan func(dest ...any) error) (*models.RoleBinding, error) {
	var (
		binding   models.RoleBinding
		rawUser   string
		rawTenant string
		rawRole   string
	)
	err := scan(&rawUser, &rawTenant, &rawRole, &binding.CreatedAt, &binding.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan role binding: %w", err)
	}
	tenantID, err := id.ParseTenantID(rawTenant)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id %q: %w", rawTenant, err)
	}
	role, err := models.ParseRole(rawRole)
	if err != nil {
		return nil, fmt.Errorf("stored role: %w", err)
	}
	binding.UserID = id.UserID(rawUser)
	binding.TenantID = tenantID
	binding.Role = role
	return &binding, nil
}
