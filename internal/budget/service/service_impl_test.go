package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/kontera/internal/budget/domain"
	budgetrepo "github.com/smallbiznis/kontera/internal/budget/repository"
	"github.com/smallbiznis/kontera/internal/clock"
	"github.com/smallbiznis/kontera/internal/config"
	contactdomain "github.com/smallbiznis/kontera/internal/contact/domain"
	costcenterdomain "github.com/smallbiznis/kontera/internal/costcenter/domain"
	costcenterrepo "github.com/smallbiznis/kontera/internal/costcenter/repository"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	documentrepo "github.com/smallbiznis/kontera/internal/document/repository"
	productdomain "github.com/smallbiznis/kontera/internal/product/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type budgetFixture struct {
	db    *gorm.DB
	node  *snowflake.Node
	clock *clock.FakeClock
	svc   *Service
	cc    costcenterdomain.CostCenter
}

func newBudgetFixture(t *testing.T) *budgetFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&costcenterdomain.CostCenter{},
		&contactdomain.Contact{},
		&productdomain.Product{},
		&documentdomain.Document{},
		&documentdomain.DocumentLine{},
		&domain.Budget{},
		&domain.BudgetRevision{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fakeClock := clock.NewFakeClock(time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC))

	svc := New(Params{
		DB:          db,
		Log:         zap.NewNop(),
		GenID:       node,
		Clock:       fakeClock,
		Repo:        budgetrepo.Provide(),
		CostCenters: costcenterrepo.Provide(),
		Documents:   documentrepo.Provide(),
		Policy:      config.StaticBudgetPolicyHolder(config.DefaultBudgetPolicy()),
	})

	cc := costcenterdomain.CostCenter{
		ID:       node.Generate(),
		Code:     "OPS",
		Name:     "Operations",
		Active:   true,
		Metadata: datatypes.JSONMap{},
	}
	require.NoError(t, db.Create(&cc).Error)

	return &budgetFixture{db: db, node: node, clock: fakeClock, svc: svc, cc: cc}
}

func (f *budgetFixture) newBudget(t *testing.T, planned int64) domain.View {
	t.Helper()
	view, err := f.svc.Create(context.Background(), domain.CreateBudgetRequest{
		CostCenterID:  f.cc.ID.String(),
		Direction:     documentdomain.DirectionExpense,
		PeriodStart:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		PlannedAmount: planned,
	})
	require.NoError(t, err)
	return view
}

// expenseDocument inserts a vendor bill with a single line against the
// fixture's cost center.
func (f *budgetFixture) expenseDocument(t *testing.T, amount int64, status documentdomain.LifecycleStatus, payment documentdomain.PaymentStatus, issueDate time.Time) documentdomain.Document {
	t.Helper()
	ccID := f.cc.ID
	document := documentdomain.Document{
		ID:            f.node.Generate(),
		Type:          documentdomain.TypeVendorBill,
		ContactID:     f.node.Generate(),
		Status:        status,
		PaymentStatus: payment,
		IssueDate:     issueDate,
		TotalAmount:   amount,
		Metadata:      datatypes.JSONMap{},
	}
	require.NoError(t, f.db.Create(&document).Error)
	line := documentdomain.DocumentLine{
		ID:           f.node.Generate(),
		DocumentID:   document.ID,
		ProductID:    f.node.Generate(),
		CostCenterID: &ccID,
		Quantity:     1,
		UnitAmount:   amount,
		Amount:       amount,
	}
	require.NoError(t, f.db.Create(&line).Error)
	return document
}

func TestBudgetLifecycleConfirmAndRevise(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	created := f.newBudget(t, 50000)
	assert.Equal(t, domain.StageDraft, created.Stage)
	assert.Equal(t, 1, created.Version)

	confirmed, err := f.svc.Confirm(ctx, created.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StageConfirmed, confirmed.Stage)

	// A draft cannot be revised, only a confirmed budget can.
	draft := f.newBudget(t, 1000)
	_, err = f.svc.Revise(ctx, domain.ReviseBudgetRequest{ID: draft.ID.String(), PlannedAmount: 2000})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	revised, err := f.svc.Revise(ctx, domain.ReviseBudgetRequest{
		ID:            created.ID.String(),
		PlannedAmount: 60000,
		Reason:        "supplier price increase",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, revised.Version)
	assert.Equal(t, domain.StageConfirmed, revised.Stage)
	assert.Equal(t, int64(60000), revised.PlannedAmount)
	require.NotNil(t, revised.RevisesID)
	assert.Equal(t, created.ID, *revised.RevisesID)

	var previous domain.Budget
	require.NoError(t, f.db.First(&previous, "id = ?", created.ID).Error)
	assert.Equal(t, domain.StageRevised, previous.Stage)
	require.NotNil(t, previous.RevisedByID)
	assert.Equal(t, revised.ID, *previous.RevisedByID)
	assert.Equal(t, int64(50000), previous.PlannedAmount, "the revised row keeps its original plan")

	var records []domain.BudgetRevision
	require.NoError(t, f.db.Find(&records, "budget_id = ?", revised.ID).Error)
	require.Len(t, records, 1)
	assert.Equal(t, int64(50000), records[0].PreviousAmount)
	assert.Equal(t, int64(60000), records[0].NewAmount)
	assert.Equal(t, 2, records[0].Version)

	// A revised row is frozen: no second revision off the same version.
	_, err = f.svc.Revise(ctx, domain.ReviseBudgetRequest{ID: created.ID.String(), PlannedAmount: 70000})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestBudgetAggregationBuckets(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 50000)
	inPeriod := time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC)

	f.expenseDocument(t, 42000, documentdomain.StatusPosted, documentdomain.PaymentNotPaid, inPeriod)
	f.expenseDocument(t, 5000, documentdomain.StatusDraft, documentdomain.PaymentNotPaid, inPeriod)

	view, err := f.svc.GetByID(ctx, domain.GetBudgetRequest{ID: budget.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(42000), view.ActualAmount)
	assert.Equal(t, int64(5000), view.ReservedAmount)
	assert.Equal(t, 84, view.AchievementPct)
	assert.Equal(t, domain.PerformanceNearLimit, view.Performance)
	assert.Equal(t, int64(8000), view.RemainingAmount)
}

func TestBudgetAggregationPartialPaymentRealizesDraft(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 10000)
	inPeriod := time.Date(2025, time.January, 20, 0, 0, 0, 0, time.UTC)

	// Still draft, but partially paid: realized, not reserved.
	f.expenseDocument(t, 3000, documentdomain.StatusDraft, documentdomain.PaymentPartiallyPaid, inPeriod)

	view, err := f.svc.GetByID(ctx, domain.GetBudgetRequest{ID: budget.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(3000), view.ActualAmount)
	assert.Equal(t, int64(0), view.ReservedAmount)
}

func TestBudgetAggregationExcludesCancelledAndOutOfPeriod(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 10000)

	f.expenseDocument(t, 4000, documentdomain.StatusCancelled, documentdomain.PaymentNotPaid,
		time.Date(2025, time.January, 15, 0, 0, 0, 0, time.UTC))
	f.expenseDocument(t, 7000, documentdomain.StatusPosted, documentdomain.PaymentNotPaid,
		time.Date(2025, time.February, 2, 0, 0, 0, 0, time.UTC))

	view, err := f.svc.GetByID(ctx, domain.GetBudgetRequest{ID: budget.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(0), view.ActualAmount)
	assert.Equal(t, int64(0), view.ReservedAmount)
}

func TestRecalculateIsIdempotent(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 25000)
	inPeriod := time.Date(2025, time.January, 5, 0, 0, 0, 0, time.UTC)
	f.expenseDocument(t, 28000, documentdomain.StatusPosted, documentdomain.PaymentPaid, inPeriod)

	first, err := f.svc.Recalculate(ctx, budget.ID.String())
	require.NoError(t, err)
	second, err := f.svc.Recalculate(ctx, budget.ID.String())
	require.NoError(t, err)

	assert.Equal(t, first.ActualAmount, second.ActualAmount)
	assert.Equal(t, first.ReservedAmount, second.ReservedAmount)
	assert.Equal(t, int64(28000), second.ActualAmount)
	assert.Equal(t, 112, second.AchievementPct)
	assert.Equal(t, domain.PerformanceOverBudget, second.Performance)
}

func TestRecalculateForCostCentersScoped(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	covered := f.newBudget(t, 10000)

	otherCC := costcenterdomain.CostCenter{ID: f.node.Generate(), Code: "HR", Name: "HR", Active: true, Metadata: datatypes.JSONMap{}}
	require.NoError(t, f.db.Create(&otherCC).Error)
	unrelated, err := f.svc.Create(ctx, domain.CreateBudgetRequest{
		CostCenterID:  otherCC.ID.String(),
		Direction:     documentdomain.DirectionExpense,
		PeriodStart:   time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC),
		PeriodEnd:     time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
		PlannedAmount: 10000,
	})
	require.NoError(t, err)

	inPeriod := time.Date(2025, time.January, 12, 0, 0, 0, 0, time.UTC)
	f.expenseDocument(t, 6000, documentdomain.StatusPosted, documentdomain.PaymentNotPaid, inPeriod)

	require.NoError(t, f.svc.RecalculateForCostCenters(ctx, []snowflake.ID{f.cc.ID}, inPeriod))

	var refreshed domain.Budget
	require.NoError(t, f.db.First(&refreshed, "id = ?", covered.ID).Error)
	assert.Equal(t, int64(6000), refreshed.ActualAmount)
	require.NotNil(t, refreshed.ComputedAt)

	var untouched domain.Budget
	require.NoError(t, f.db.First(&untouched, "id = ?", unrelated.ID).Error)
	assert.Nil(t, untouched.ComputedAt, "budgets for other cost centers are not recomputed")
}

func TestArchivePreservesSnapshot(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 10000)
	inPeriod := time.Date(2025, time.January, 8, 0, 0, 0, 0, time.UTC)
	f.expenseDocument(t, 2500, documentdomain.StatusPosted, documentdomain.PaymentNotPaid, inPeriod)

	_, err := f.svc.Recalculate(ctx, budget.ID.String())
	require.NoError(t, err)

	archived, err := f.svc.Archive(ctx, budget.ID.String())
	require.NoError(t, err)
	assert.Equal(t, domain.StageArchived, archived.Stage)
	assert.Equal(t, int64(2500), archived.ActualAmount)

	// New activity no longer moves the archived snapshot.
	f.expenseDocument(t, 9999, documentdomain.StatusPosted, documentdomain.PaymentNotPaid, inPeriod)
	require.NoError(t, f.svc.RecalculateForCostCenters(ctx, []snowflake.ID{f.cc.ID}, inPeriod))

	view, err := f.svc.GetByID(ctx, domain.GetBudgetRequest{ID: budget.ID.String()})
	require.NoError(t, err)
	assert.Equal(t, int64(2500), view.ActualAmount)

	_, err = f.svc.Archive(ctx, budget.ID.String())
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestUpdateDraftOnlyWhileDraft(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	budget := f.newBudget(t, 10000)
	newAmount := int64(12000)
	updated, err := f.svc.UpdateDraft(ctx, domain.UpdateBudgetRequest{
		ID:            budget.ID.String(),
		PlannedAmount: &newAmount,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(12000), updated.PlannedAmount)

	_, err = f.svc.Confirm(ctx, budget.ID.String())
	require.NoError(t, err)

	_, err = f.svc.UpdateDraft(ctx, domain.UpdateBudgetRequest{
		ID:            budget.ID.String(),
		PlannedAmount: &newAmount,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestReconcileAllRefreshesActiveBudgets(t *testing.T) {
	f := newBudgetFixture(t)
	ctx := context.Background()

	first := f.newBudget(t, 10000)
	second := f.newBudget(t, 20000)
	inPeriod := time.Date(2025, time.January, 18, 0, 0, 0, 0, time.UTC)
	f.expenseDocument(t, 1500, documentdomain.StatusPosted, documentdomain.PaymentNotPaid, inPeriod)

	count, err := f.svc.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	for _, id := range []snowflake.ID{first.ID, second.ID} {
		var b domain.Budget
		require.NoError(t, f.db.First(&b, "id = ?", id).Error)
		assert.Equal(t, int64(1500), b.ActualAmount)
	}
}
