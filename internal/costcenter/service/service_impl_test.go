package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	"github.com/smallbiznis/kontera/internal/costcenter/domain"
	costcenterrepo "github.com/smallbiznis/kontera/internal/costcenter/repository"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newCostCenterService(t *testing.T) (domain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&domain.CostCenter{},
		&ruledomain.AssignmentRule{},
		&documentdomain.Document{},
		&documentdomain.DocumentLine{},
		&budgetdomain.Budget{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  costcenterrepo.Provide(),
	})
	return svc, db, node
}

func TestCreateCostCenterNormalizesCode(t *testing.T) {
	svc, _, _ := newCostCenterService(t)

	created, err := svc.Create(context.Background(), domain.CreateCostCenterRequest{
		Code: " ops ",
		Name: "Operations",
	})
	require.NoError(t, err)
	assert.Equal(t, "OPS", created.Code)
	assert.True(t, created.Active)
}

func TestCreateCostCenterDuplicateCode(t *testing.T) {
	svc, _, _ := newCostCenterService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateCostCenterRequest{Code: "OPS", Name: "Operations"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateCostCenterRequest{Code: "ops", Name: "Other"})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
}

func TestDeleteCostCenterRefusedWhileReferenced(t *testing.T) {
	svc, db, node := newCostCenterService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCostCenterRequest{Code: "OPS", Name: "Operations"})
	require.NoError(t, err)

	rule := ruledomain.AssignmentRule{
		ID:           node.Generate(),
		Name:         "fallback",
		CostCenterID: created.ID,
		Enabled:      true,
	}
	require.NoError(t, db.Create(&rule).Error)

	err = svc.Delete(ctx, created.ID.String())
	assert.ErrorIs(t, err, domain.ErrReferenced)

	require.NoError(t, db.Delete(&rule).Error)
	require.NoError(t, svc.Delete(ctx, created.ID.String()))

	_, err = svc.GetByID(ctx, domain.GetCostCenterRequest{ID: created.ID.String()})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeactivateKeepsRow(t *testing.T) {
	svc, _, _ := newCostCenterService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateCostCenterRequest{Code: "OPS", Name: "Operations"})
	require.NoError(t, err)

	deactivated, err := svc.Deactivate(ctx, created.ID.String())
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	got, err := svc.GetByID(ctx, domain.GetCostCenterRequest{ID: created.ID.String()})
	require.NoError(t, err)
	assert.False(t, got.Active)

	reactivated, err := svc.Activate(ctx, created.ID.String())
	require.NoError(t, err)
	assert.True(t, reactivated.Active)
}

func TestListCostCentersPagination(t *testing.T) {
	svc, _, _ := newCostCenterService(t)
	ctx := context.Background()

	codes := []string{"A1", "A2", "A3", "A4", "A5"}
	for _, code := range codes {
		_, err := svc.Create(ctx, domain.CreateCostCenterRequest{Code: code, Name: code})
		require.NoError(t, err)
	}

	first, err := svc.List(ctx, domain.ListCostCenterRequest{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.CostCenters, 2)
	require.True(t, first.HasMore)
	require.NotEmpty(t, first.NextPageToken)

	seen := map[string]bool{}
	for _, costCenter := range first.CostCenters {
		seen[costCenter.Code] = true
	}

	second, err := svc.List(ctx, domain.ListCostCenterRequest{PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.CostCenters, 2)
	for _, costCenter := range second.CostCenters {
		assert.False(t, seen[costCenter.Code], "pages must not overlap")
		seen[costCenter.Code] = true
	}
}
