package domain

import (
	"context"
	"errors"
	"time"

	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

type CreateBudgetRequest struct {
	CostCenterID  string                   `json:"cost_center_id"`
	Direction     documentdomain.Direction `json:"direction"`
	PeriodStart   time.Time                `json:"period_start"`
	PeriodEnd     time.Time                `json:"period_end"`
	PlannedAmount int64                    `json:"planned_amount"`
}

type UpdateBudgetRequest struct {
	ID            string     `json:"-"`
	CostCenterID  *string    `json:"cost_center_id,omitempty"`
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	PlannedAmount *int64     `json:"planned_amount,omitempty"`
}

type ReviseBudgetRequest struct {
	ID            string     `json:"-"`
	PlannedAmount int64      `json:"planned_amount"`
	PeriodStart   *time.Time `json:"period_start,omitempty"`
	PeriodEnd     *time.Time `json:"period_end,omitempty"`
	Reason        string     `json:"reason,omitempty"`
}

type GetBudgetRequest struct {
	ID string
}

type ListBudgetRequest struct {
	PageToken    string
	PageSize     int32
	CostCenterID string
	Stage        Stage
}

type ListBudgetResponse struct {
	pagination.PageInfo
	Budgets []View `json:"budgets"`
}

type AggregateRequest struct {
	CostCenterID string                   `json:"cost_center_id"`
	Direction    documentdomain.Direction `json:"direction"`
	PeriodStart  time.Time                `json:"period_start"`
	PeriodEnd    time.Time                `json:"period_end"`
}

// View is a budget plus its derived figures. The derived fields are
// recomputed on every read, they are never authoritative in storage.
type View struct {
	Budget
	RemainingAmount int64       `json:"remaining_amount"`
	AchievementPct  int         `json:"achievement_pct"`
	Performance     Performance `json:"performance"`
}

type Service interface {
	Create(context.Context, CreateBudgetRequest) (View, error)
	UpdateDraft(context.Context, UpdateBudgetRequest) (View, error)
	Confirm(ctx context.Context, id string) (View, error)
	Revise(context.Context, ReviseBudgetRequest) (View, error)
	Archive(ctx context.Context, id string) (View, error)
	GetByID(context.Context, GetBudgetRequest) (View, error)
	List(context.Context, ListBudgetRequest) (ListBudgetResponse, error)
	ListRevisions(ctx context.Context, id string) ([]BudgetRevision, error)

	// Aggregate scans document lines for the cost center, period and
	// direction and partitions them into realized and reserved totals.
	Aggregate(context.Context, AggregateRequest) (documentdomain.LineTotals, error)

	// Recalculate refreshes one budget's stored snapshot from a full
	// rescan of its lines.
	Recalculate(ctx context.Context, id string) (View, error)

	// ReconcileAll refreshes the snapshot of every active budget and
	// returns how many were recomputed.
	ReconcileAll(ctx context.Context) (int, error)
}

var (
	ErrInvalidCostCenter = errors.New("invalid_cost_center")
	ErrInvalidDirection  = errors.New("invalid_direction")
	ErrInvalidPeriod     = errors.New("invalid_period")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidID         = errors.New("invalid_id")
	ErrNotFound          = errors.New("budget_not_found")
	ErrInvalidTransition = errors.New("invalid_transition")
)
