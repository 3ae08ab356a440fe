//go:build integration

package binding_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"gestora/internal/tenant/models"
	bindingstore "gestora/internal/tenant/store/binding"
	id "gestora/pkg/domain"
	"gestora/pkg/platform/sentinel"
	"gestora/pkg/testutil/containers"
)

type PostgresBindingSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *bindingstore.PostgresStore
}

func TestPostgresBindingSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresBindingSuite))
}

func (s *PostgresBindingSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = bindingstore.NewPostgres(s.postgres.DB)
}

func (s *PostgresBindingSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "role_bindings"))
}

func (s *PostgresBindingSuite) newBinding(userID id.UserID, tenantID id.TenantID, role models.Role) *models.RoleBinding {
	binding, err := models.NewRoleBinding(userID, tenantID, role, time.Now().UTC())
	s.Require().NoError(err)
	return binding
}

func (s *PostgresBindingSuite) TestUpsertKeepsOneBindingPerPair() {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	first := s.newBinding("user-1", tenantID, models.RoleClient)
	s.Require().NoError(s.store.Upsert(ctx, first))

	promoted := s.newBinding("user-1", tenantID, models.RoleAdmin)
	s.Require().NoError(s.store.Upsert(ctx, promoted))

	stored, err := s.store.Find(ctx, "user-1", tenantID)
	s.Require().NoError(err)
	s.Equal(models.RoleAdmin, stored.Role)
	s.WithinDuration(first.CreatedAt, stored.CreatedAt, time.Second, "upsert must preserve the original grant time")

	count, err := s.store.CountByTenant(ctx, tenantID)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *PostgresBindingSuite) TestFindMissing() {
	_, err := s.store.Find(context.Background(), "ghost", id.NewTenantID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresBindingSuite) TestListByUserSpansTenants() {
	ctx := context.Background()
	tenantA := id.NewTenantID()
	tenantB := id.NewTenantID()

	s.Require().NoError(s.store.Upsert(ctx, s.newBinding("user-1", tenantA, models.RoleAdmin)))
	s.Require().NoError(s.store.Upsert(ctx, s.newBinding("user-1", tenantB, models.RoleClient)))
	s.Require().NoError(s.store.Upsert(ctx, s.newBinding("user-2", tenantA, models.RoleStudent)))

	bindings, err := s.store.ListByUser(ctx, "user-1")
	s.Require().NoError(err)
	s.Len(bindings, 2)
}

func (s *PostgresBindingSuite) TestDelete() {
	ctx := context.Background()
	tenantID := id.NewTenantID()

	s.Require().NoError(s.store.Upsert(ctx, s.newBinding("user-1", tenantID, models.RoleClient)))
	s.Require().NoError(s.store.Delete(ctx, "user-1", tenantID))

	_, err := s.store.Find(ctx, "user-1", tenantID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.ErrorIs(s.store.Delete(ctx, "user-1", tenantID), sentinel.ErrNotFound)
}
