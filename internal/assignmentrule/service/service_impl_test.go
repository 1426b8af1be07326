package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	assignmentrulerepo "github.com/smallbiznis/kontera/internal/assignmentrule/repository"
	"github.com/smallbiznis/kontera/internal/cache"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	contactrepo "github.com/smallbiznis/kontera/internal/contact/repository"
	contactservice "github.com/smallbiznis/kontera/internal/contact/service"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	costcenterrepo "github.com/smallbiznis/kontera/internal/costcenter/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type resolverFixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	svc      domain.Service
	contacts contactdomain.Service
}

func newResolverFixture(t *testing.T) *resolverFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&costcenterdomain.CostCenter{},
		&contactdomain.Contact{},
		&domain.AssignmentRule{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	logger := zap.NewNop()

	contacts := contactservice.New(contactservice.Params{
		DB:       db,
		Log:      logger,
		GenID:    node,
		Repo:     contactrepo.Provide(),
		TagCache: cache.NewContactTagCache(),
	})

	svc := New(Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Repo:        assignmentrulerepo.Provide(),
		CostCenters: costcenterrepo.Provide(),
		Contacts:    contacts,
	})

	return &resolverFixture{db: db, node: node, svc: svc, contacts: contacts}
}

func (f *resolverFixture) costCenter(t *testing.T, code string) costcenterdomain.CostCenter {
	t.Helper()
	costCenter := costcenterdomain.CostCenter{
		ID:       f.node.Generate(),
		Code:     code,
		Name:     code,
		Active:   true,
		Metadata: datatypes.JSONMap{},
	}
	require.NoError(t, f.db.Create(&costCenter).Error)
	return costCenter
}

func TestResolvePrefersExactProductOverCategory(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	ccCategory := f.costCenter(t, "CC-CATEGORY")
	ccProduct := f.costCenter(t, "CC-PRODUCT")
	productID := f.node.Generate()

	_, err := f.svc.Create(ctx, domain.CreateRuleRequest{
		Name:            "sofa category",
		ProductCategory: "sofa",
		CostCenterID:    ccCategory.ID.String(),
		Priority:        1,
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, domain.CreateRuleRequest{
		Name:         "exact product",
		ProductID:    productID.String(),
		CostCenterID: ccProduct.ID.String(),
		Priority:     0,
	})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		ProductID:       productID,
		ProductCategory: "sofa",
	})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, ccProduct.ID, *resolved)
}

func TestResolveMismatchedMatcherDisqualifies(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cc := f.costCenter(t, "CC-TABLES")
	_, err := f.svc.Create(ctx, domain.CreateRuleRequest{
		Name:            "tables only",
		ProductCategory: "table",
		CostCenterID:    cc.ID.String(),
		Priority:        100,
	})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		ProductID:       f.node.Generate(),
		ProductCategory: "sofa",
	})
	require.NoError(t, err)
	assert.Nil(t, resolved, "no qualifying rule means no assignment, not an error")
}

func TestResolveUsesContactTag(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cc := f.costCenter(t, "CC-WHOLESALE")
	contact, err := f.contacts.Create(ctx, contactdomain.CreateContactRequest{
		Name: "Acme",
		Tag:  "wholesale",
	})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, domain.CreateRuleRequest{
		Name:         "wholesale contacts",
		ContactTag:   "wholesale",
		CostCenterID: cc.ID.String(),
	})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveRequest{
		ProductID: f.node.Generate(),
		ContactID: contact.ID,
	})
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, cc.ID, *resolved)
}

func TestResolveDisabledRuleIgnored(t *testing.T) {
	f := newResolverFixture(t)
	ctx := context.Background()

	cc := f.costCenter(t, "CC-DISABLED")
	productID := f.node.Generate()

	rule, err := f.svc.Create(ctx, domain.CreateRuleRequest{
		Name:         "exact product",
		ProductID:    productID.String(),
		CostCenterID: cc.ID.String(),
	})
	require.NoError(t, err)

	_, err = f.svc.SetEnabled(ctx, domain.SetEnabledRequest{ID: rule.ID.String(), Enabled: false})
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, domain.ResolveRequest{ProductID: productID})
	require.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestCreateRejectsUnknownCostCenter(t *testing.T) {
	f := newResolverFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateRuleRequest{
		Name:         "dangling",
		CostCenterID: f.node.Generate().String(),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidCostCenter)
}
