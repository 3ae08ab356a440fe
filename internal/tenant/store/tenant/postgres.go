package tenant

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gestora/internal/tenant/models"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

// PostgresStore persists tenants in PostgreSQL.
//
// Schema:
//
//	CREATE TABLE tenants (
//	    id         UUID PRIMARY KEY,
//	    name       TEXT NOT NULL,
//	    status     TEXT NOT NULL,
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE UNIQUE INDEX tenants_name_lower_idx ON tenants (LOWER(name));
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateIfNameAvailable(ctx context.Context, tenant *models.Tenant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT DO NOTHING
	`, tenant.ID.String(), tenant.Name, string(tenant.Status), tenant.CreatedAt, tenant.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert tenant: %w", err)
	}
	// ON CONFLICT DO NOTHING swallows the name collision; confirm the row is ours.
	stored, err := s.FindByID(ctx, tenant.ID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrAlreadyUsed
		}
		return err
	}
	if stored.Name != tenant.Name {
		return sentinel.ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, tenantID id.TenantID) (*models.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE id = $1
	`, tenantID.String())
	return scanTenant(row)
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (*models.Tenant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE LOWER(name) = LOWER($1)
	`, strings.TrimSpace(name))
	return scanTenant(row)
}

// Execute validates and mutates a tenant under FOR UPDATE so concurrent
// status transitions serialize on the row.
func (s *PostgresStore) Execute(ctx context.Context, tenantID id.TenantID, validate func(*models.Tenant) error, mutate func(*models.Tenant)) (*models.Tenant, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants WHERE id = $1 FOR UPDATE
	`, tenantID.String())
	tenant, err := scanTenant(row)
	if err != nil {
		return nil, err
	}

	if err := validate(tenant); err != nil {
		return nil, err
	}
	mutate(tenant)

	if _, err := tx.ExecContext(ctx, `
		UPDATE tenants SET name = $2, status = $3, updated_at = $4 WHERE id = $1
	`, tenant.ID.String(), tenant.Name, string(tenant.Status), tenant.UpdatedAt); err != nil {
		return nil, fmt.Errorf("update tenant: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tenant update: %w", err)
	}
	return tenant, nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tenants`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tenants: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row rowScanner) (*models.Tenant, error) {
	var (
		tenant    models.Tenant
		rawID     string
		rawStatus string
	)
	err := row.Scan(&rawID, &tenant.Name, &rawStatus, &tenant.CreatedAt, &tenant.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	parsedID, err := id.ParseTenantID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored tenant id %q: %w", rawID, err)
	}
	status, err := models.ParseTenantStatus(rawStatus)
	if err != nil {
		return nil, fmt.Errorf("stored tenant status: %w", err)
	}
	tenant.ID = parsedID
	tenant.Status = status
	return &tenant, nil
}

// isUniqueViolation matches the Postgres unique_violation SQLSTATE without
// binding to a specific driver error type.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
