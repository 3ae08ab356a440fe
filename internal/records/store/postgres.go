package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gestora/internal/records"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

// PostgresStore persists records in PostgreSQL. Documents live in a JSONB
// column; filter equality predicates compile to JSONB containment so they
// run inside the database.
//
// Schema:
//
//	CREATE TABLE records (
//	    id         UUID PRIMARY KEY,
//	    resource   TEXT NOT NULL,
//	    cliente_id UUID NOT NULL REFERENCES tenants (id),
//	    data       JSONB NOT NULL DEFAULT '{}',
//	    created_at TIMESTAMPTZ NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX records_scope_idx ON records (cliente_id, resource);
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, record *records.Record) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (id, resource, cliente_id, data, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, record.ID.String(), record.Resource, record.ClienteID.String(), data, record.CreatedAt, record.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "23505") {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) (*records.Record, error) {
	query := `
		SELECT id, resource, cliente_id, data, created_at, updated_at
		FROM records WHERE id = $1 AND resource = $2
	`
	args := []any{recordID.String(), resource}
	if !clienteID.IsNil() {
		query += ` AND cliente_id = $3`
		args = append(args, clienteID.String())
	}
	return scanRecord(s.db.QueryRowContext(ctx, query, args...))
}

func (s *PostgresStore) List(ctx context.Context, resource string, clienteID id.TenantID, filter records.Filter) ([]*records.Record, error) {
	query := `
		SELECT id, resource, cliente_id, data, created_at, updated_at
		FROM records WHERE resource = $1
	`
	args := []any{resource}
	query, args, err := appendScope(query, args, clienteID, filter)
	if err != nil {
		return nil, err
	}
	query += ` ORDER BY created_at`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	var out []*records.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, record *records.Record) error {
	data, err := json.Marshal(record.Data)
	if err != nil {
		return fmt.Errorf("marshal record data: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE records SET data = $4, updated_at = $5
		WHERE id = $1 AND resource = $2 AND cliente_id = $3
	`, record.ID.String(), record.Resource, record.ClienteID.String(), data, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, resource string, clienteID id.TenantID, recordID id.RecordID) error {
	query := `DELETE FROM records WHERE id = $1 AND resource = $2`
	args := []any{recordID.String(), resource}
	if !clienteID.IsNil() {
		query += ` AND cliente_id = $3`
		args = append(args, clienteID.String())
	}
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, resource string, clienteID id.TenantID, filter records.Filter) (int, error) {
	query := `SELECT COUNT(*) FROM records WHERE resource = $1`
	args := []any{resource}
	query, args, err := appendScope(query, args, clienteID, filter)
	if err != nil {
		return 0, err
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return count, nil
}

func appendScope(query string, args []any, clienteID id.TenantID, filter records.Filter) (string, []any, error) {
	if !clienteID.IsNil() {
		args = append(args, clienteID.String())
		query += fmt.Sprintf(` AND cliente_id = $%d`, len(args))
	}
	if len(filter.Equals) > 0 {
		predicate, err := json.Marshal(filter.Equals)
		if err != nil {
			return "", nil, fmt.Errorf("marshal filter: %w", err)
		}
		args = append(args, predicate)
		query += fmt.Sprintf(` AND data @> $%d`, len(args))
	}
	return query, args, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*records.Record, error) {
	var (
		record     records.Record
		rawID      string
		rawCliente string
		rawData    []byte
	)
	err := row.Scan(&rawID, &record.Resource, &rawCliente, &rawData, &record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	recordID, err := id.ParseRecordID(rawID)
	if err != nil {
		return nil, fmt.Errorf("stored record id %q: %w", rawID, err)
	}
	clienteID, err := id.ParseTenantID(rawCliente)
	if err != nil {
		return nil, fmt.Errorf("stored record tenant %q: %w", rawCliente, err)
	}
	if err := json.Unmarshal(rawData, &record.Data); err != nil {
		return nil, fmt.Errorf("unmarshal record data: %w", err)
	}
	record.ID = recordID
	record.ClienteID = clienteID
	return &record, nil
}
