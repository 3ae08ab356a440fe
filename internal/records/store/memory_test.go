package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestora/internal/records"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
)

func newRecord(t *testing.T, resource string, clienteID id.TenantID, data map[string]any) *records.Record {
	t.Helper()
	record, err := records.New(resource, clienteID, data, time.Now().UTC())
	require.NoError(t, err)
	return record
}

func TestInMemoryCreateAndFind(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tenantA := id.NewTenantID()

	record := newRecord(t, "contratos", tenantA, map[string]any{"titulo": "plano anual"})
	require.NoError(t, s.Create(ctx, record))

	found, err := s.FindByID(ctx, "contratos", tenantA, record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, "plano anual", found.Data["titulo"])
}

func TestInMemoryTenantScoping(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	record := newRecord(t, "contratos", tenantA, nil)
	require.NoError(t, s.Create(ctx, record))

	t.Run("cross-tenant read is not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, "contratos", tenantB, record.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("cross-tenant delete is not found", func(t *testing.T) {
		err := s.Delete(ctx, "contratos", tenantB, record.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("wrong resource is not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, "produtos", tenantA, record.ID)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("nil tenant scope sees every tenant", func(t *testing.T) {
		other := newRecord(t, "contratos", tenantB, nil)
		require.NoError(t, s.Create(ctx, other))

		all, err := s.List(ctx, "contratos", id.NilTenantID, records.Filter{})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		scoped, err := s.List(ctx, "contratos", tenantA, records.Filter{})
		require.NoError(t, err)
		assert.Len(t, scoped, 1)
	})
}

func TestInMemoryListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tenantA := id.NewTenantID()

	require.NoError(t, s.Create(ctx, newRecord(t, "alunos", tenantA, map[string]any{"turma": "a1", "nome": "ana"})))
	require.NoError(t, s.Create(ctx, newRecord(t, "alunos", tenantA, map[string]any{"turma": "a1", "nome": "bia"})))
	require.NoError(t, s.Create(ctx, newRecord(t, "alunos", tenantA, map[string]any{"turma": "b2", "nome": "caio"})))

	filtered, err := s.List(ctx, "alunos", tenantA, records.Filter{Equals: map[string]any{"turma": "a1"}})
	require.NoError(t, err)
	assert.Len(t, filtered, 2)

	count, err := s.Count(ctx, "alunos", tenantA, records.Filter{Equals: map[string]any{"turma": "b2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestInMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tenantA := id.NewTenantID()

	record := newRecord(t, "produtos", tenantA, map[string]any{"preco": "100"})
	require.NoError(t, s.Create(ctx, record))

	record.Patch(map[string]any{"preco": "120"}, time.Now().UTC())
	require.NoError(t, s.Update(ctx, record))

	stored, err := s.FindByID(ctx, "produtos", tenantA, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "120", stored.Data["preco"])

	t.Run("updating a missing record is not found", func(t *testing.T) {
		ghost := newRecord(t, "produtos", tenantA, nil)
		assert.ErrorIs(t, s.Update(ctx, ghost), sentinel.ErrNotFound)
	})
}

func TestInMemoryClonesOnRead(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	tenantA := id.NewTenantID()

	record := newRecord(t, "produtos", tenantA, map[string]any{"nome": "curso"})
	require.NoError(t, s.Create(ctx, record))

	found, err := s.FindByID(ctx, "produtos", tenantA, record.ID)
	require.NoError(t, err)
	found.Data["nome"] = "mutated"

	again, err := s.FindByID(ctx, "produtos", tenantA, record.ID)
	require.NoError(t, err)
	assert.Equal(t, "curso", again.Data["nome"])
}

func TestRecordStripsTenantField(t *testing.T) {
	tenantA := id.NewTenantID()
	record := newRecord(t, "contratos", tenantA, map[string]any{
		"cliente_id": "anything",
		"titulo":     "plano",
	})

	assert.NotContains(t, record.Data, records.TenantField)
	assert.Equal(t, tenantA, record.ClienteID)

	record.Patch(map[string]any{"cliente_id": "other", "titulo": "novo"}, time.Now().UTC())
	assert.NotContains(t, record.Data, records.TenantField)
	assert.Equal(t, "novo", record.Data["titulo"])
}
