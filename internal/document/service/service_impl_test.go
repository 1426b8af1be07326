package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	ruledomain "github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	assignmentrulerepo "github.com/smallbiznis/kontera/internal/assignmentrule/repository"
	ruleservice "github.com/smallbiznis/kontera/internal/assignmentrule/service"
	budgetdomain "github.com/smallbiznis/kontera/internal/budget/domain"
	budgetrepo "github.com/smallbiznis/kontera/internal/budget/repository"
	budgetservice "github.com/smallbiznis/kontera/internal/budget/service"
	"github.com/smallbiznis/kontera/internal/cache"
	"github.com/smallbiznis/kontera/internal/clock"
	"github.com/smallbiznis/kontera/internal/config"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	contactrepo "github.com/smallbiznis/kontera/internal/contact/repository"
	contactservice "github.com/smallbiznis/kontera/internal/contact/service"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	costcenterrepo "github.com/smallbiznis/kontera/internal/costcenter/repository"
	"github.com/smallbiznis/kontera/internal/document/domain"
	documentrepo "github.com/smallbiznis/kontera/internal/document/repository"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	productrepo "github.com/smallbiznis/kontera/internal/product/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type documentFixture struct {
	db        *gorm.DB
	node      *snowflake.Node
	svc       domain.Service
	ruleSvc   ruledomain.Service
	budgetSvc budgetdomain.Service
	cc        costcenterdomain.CostCenter
	contact   contactdomain.Contact
	product   productdomain.Product
}

func newDocumentFixture(t *testing.T) *documentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&costcenterdomain.CostCenter{},
		&contactdomain.Contact{},
		&productdomain.Product{},
		&ruledomain.AssignmentRule{},
		&domain.Document{},
		&domain.DocumentLine{},
		&budgetdomain.Budget{},
		&budgetdomain.BudgetRevision{},
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
	resolver := ruleservice.New(ruleservice.Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Repo:        assignmentrulerepo.Provide(),
		CostCenters: costcenterrepo.Provide(),
		Contacts:    contacts,
	})
	budgetSvc := budgetservice.New(budgetservice.Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Clock:       clock.NewFakeClock(time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)),
		Repo:        budgetrepo.Provide(),
		CostCenters: costcenterrepo.Provide(),
		Documents:   documentrepo.Provide(),
		Policy:      config.StaticBudgetPolicyHolder(config.DefaultBudgetPolicy()),
	})

	svc := New(Params{
		DB:          db,
		Log:         logger,
		GenID:       node,
		Repo:        documentrepo.Provide(),
		Contacts:    contactrepo.Provide(),
		Products:    productrepo.Provide(),
		CostCenters: costcenterrepo.Provide(),
		Resolver:    resolver,
		Recalc:      budgetSvc,
	})

	cc := costcenterdomain.CostCenter{ID: node.Generate(), Code: "OPS", Name: "Operations", Active: true, Metadata: datatypes.JSONMap{}}
	require.NoError(t, db.Create(&cc).Error)
	contact := contactdomain.Contact{ID: node.Generate(), Name: "Acme", Metadata: datatypes.JSONMap{}}
	require.NoError(t, db.Create(&contact).Error)
	product := productdomain.Product{ID: node.Generate(), Name: "Sofa", Category: "sofa", UnitAmount: 500, Active: true, Metadata: datatypes.JSONMap{}}
	require.NoError(t, db.Create(&product).Error)

	return &documentFixture{
		db:        db,
		node:      node,
		svc:       svc,
		ruleSvc:   resolver,
		budgetSvc: budgetservice.ProvideService(budgetSvc),
		cc:        cc,
		contact:   contact,
		product:   product,
	}
}

func (f *documentFixture) categoryRule(t *testing.T) {
	t.Helper()
	_, err := f.ruleSvc.Create(context.Background(), ruledomain.CreateRuleRequest{
		Name:            "sofas to ops",
		ProductCategory: "sofa",
		CostCenterID:    f.cc.ID.String(),
	})
	require.NoError(t, err)
}

func TestCreateDocumentResolvesCostCenter(t *testing.T) {
	f := newDocumentFixture(t)
	f.categoryRule(t)

	document, err := f.svc.Create(context.Background(), domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 2, UnitAmount: 500},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusDraft, document.Status)
	assert.Equal(t, domain.PaymentNotPaid, document.PaymentStatus)
	assert.Equal(t, int64(1000), document.TotalAmount)
	require.Len(t, document.Lines, 1)
	require.NotNil(t, document.Lines[0].CostCenterID)
	assert.Equal(t, f.cc.ID, *document.Lines[0].CostCenterID)
}

func TestCreateDocumentExplicitCostCenterWins(t *testing.T) {
	f := newDocumentFixture(t)
	f.categoryRule(t)

	other := costcenterdomain.CostCenter{ID: f.node.Generate(), Code: "MKT", Name: "Marketing", Active: true, Metadata: datatypes.JSONMap{}}
	require.NoError(t, f.db.Create(&other).Error)

	document, err := f.svc.Create(context.Background(), domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), CostCenterID: other.ID.String(), Quantity: 1, UnitAmount: 700},
		},
	})
	require.NoError(t, err)
	require.Len(t, document.Lines, 1)
	require.NotNil(t, document.Lines[0].CostCenterID)
	assert.Equal(t, other.ID, *document.Lines[0].CostCenterID)
}

func TestCreateDocumentUnmatchedLineStaysUnassigned(t *testing.T) {
	f := newDocumentFixture(t)
	// No rules at all.

	document, err := f.svc.Create(context.Background(), domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 1, UnitAmount: 300},
		},
	})
	require.NoError(t, err)
	require.Len(t, document.Lines, 1)
	assert.Nil(t, document.Lines[0].CostCenterID)
}

func TestPostedDocumentLinesAreFrozen(t *testing.T) {
	f := newDocumentFixture(t)
	f.categoryRule(t)
	ctx := context.Background()

	document, err := f.svc.Create(ctx, domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 1, UnitAmount: 400},
		},
	})
	require.NoError(t, err)

	posted, err := f.svc.Post(ctx, document.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPosted, posted.Status)
	require.NotNil(t, posted.PostedAt)

	_, err = f.svc.UpdateLines(ctx, domain.UpdateLinesRequest{
		ID: document.ID.String(),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 5, UnitAmount: 400},
		},
	})
	assert.ErrorIs(t, err, domain.ErrFinalized)

	_, err = f.svc.Post(ctx, document.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestPaymentMovesReservedToActual(t *testing.T) {
	f := newDocumentFixture(t)
	f.categoryRule(t)
	ctx := context.Background()

	budget, err := f.budgetSvc.Create(ctx, budgetdomain.CreateBudgetRequest{
		CostCenterID:  f.cc.ID.String(),
		Direction:     domain.DirectionExpense,
		PeriodStart:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		PlannedAmount: 10000,
	})
	require.NoError(t, err)

	document, err := f.svc.Create(ctx, domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 4, UnitAmount: 500},
		},
	})
	require.NoError(t, err)

	var snapshot budgetdomain.Budget
	require.NoError(t, f.db.First(&snapshot, "id = ?", budget.ID).Error)
	assert.Equal(t, int64(0), snapshot.ActualAmount)
	assert.Equal(t, int64(2000), snapshot.ReservedAmount, "draft unpaid lines are reserved")

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{
		ID:     document.ID.String(),
		Amount: 500,
	})
	require.NoError(t, err)

	require.NoError(t, f.db.First(&snapshot, "id = ?", budget.ID).Error)
	assert.Equal(t, int64(2000), snapshot.ActualAmount, "partial payment realizes the whole line")
	assert.Equal(t, int64(0), snapshot.ReservedAmount)
}

func TestCancelOnlyWhenUnpaid(t *testing.T) {
	f := newDocumentFixture(t)
	f.categoryRule(t)
	ctx := context.Background()

	document, err := f.svc.Create(ctx, domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 1, UnitAmount: 900},
		},
	})
	require.NoError(t, err)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{ID: document.ID.String(), Amount: 100})
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, document.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	fresh, err := f.svc.Create(ctx, domain.CreateDocumentRequest{
		Type:      domain.TypeVendorBill,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 16, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 1, UnitAmount: 100},
		},
	})
	require.NoError(t, err)

	cancelled, err := f.svc.Cancel(ctx, fresh.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)
}

func TestRegisterPaymentDerivesPaymentStatus(t *testing.T) {
	f := newDocumentFixture(t)
	ctx := context.Background()

	document, err := f.svc.Create(ctx, domain.CreateDocumentRequest{
		Type:      domain.TypeCustomerInvoice,
		ContactID: f.contact.ID.String(),
		IssueDate: time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC),
		Lines: []domain.LineInput{
			{ProductID: f.product.ID.String(), Quantity: 2, UnitAmount: 500},
		},
	})
	require.NoError(t, err)

	partial, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{ID: document.ID.String(), Amount: 400})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPartiallyPaid, partial.PaymentStatus)

	full, err := f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{ID: document.ID.String(), Amount: 600})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentPaid, full.PaymentStatus)

	_, err = f.svc.RegisterPayment(ctx, domain.RegisterPaymentRequest{ID: document.ID.String(), Amount: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
