package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	documentdomain "github.com/smallbiznis/kontera/internal/document/domain"
	"gorm.io/datatypes"
)

// Stage is the workflow stage of a budget version.
type Stage string

const (
	StageDraft     Stage = "DRAFT"
	StageConfirmed Stage = "CONFIRMED"
	StageRevised   Stage = "REVISED"
	StageArchived  Stage = "ARCHIVED"
)

// Budget is one version in a budget's revision chain. PlannedAmount, the
// period and the cost center are mutable only while the stage is DRAFT;
// after confirmation the row is immutable except for the stage field and
// changes happen by appending a new version via Revise.
//
// ActualAmount, ReservedAmount and ComputedAt are a derived snapshot, never
// a source of truth. They are recomputed from document lines on demand and
// refreshed by the reconcile sweep.
type Budget struct {
	ID           snowflake.ID             `gorm:"primaryKey" json:"id,string"`
	CostCenterID snowflake.ID             `gorm:"index:idx_budgets_cost_center" json:"cost_center_id,string"`
	Direction    documentdomain.Direction `gorm:"type:text" json:"direction"`
	PeriodStart  time.Time                `json:"period_start"`
	PeriodEnd    time.Time                `json:"period_end"`

	PlannedAmount int64 `json:"planned_amount"`
	Stage         Stage `gorm:"type:text;index" json:"stage"`

	Version     int           `json:"version"`
	RevisesID   *snowflake.ID `gorm:"index" json:"revises_id,string,omitempty"`
	RevisedByID *snowflake.ID `json:"revised_by_id,string,omitempty"`

	ActualAmount   int64      `json:"actual_amount"`
	ReservedAmount int64      `json:"reserved_amount"`
	ComputedAt     *time.Time `json:"computed_at,omitempty"`

	Metadata  datatypes.JSONMap `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Budget) TableName() string {
	return "budgets"
}

// Covers reports whether date falls inside the budget period, both ends
// inclusive.
func (b Budget) Covers(date time.Time) bool {
	d := date.UTC().Truncate(24 * time.Hour)
	return !d.Before(b.PeriodStart) && !d.After(b.PeriodEnd)
}

// Active reports whether the budget is a target for aggregation triggers.
func (b Budget) Active() bool {
	return b.Stage == StageDraft || b.Stage == StageConfirmed
}

// BudgetRevision is the immutable audit record of a planned-amount change.
// Exactly one row is appended per revision event.
type BudgetRevision struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id,string"`
	BudgetID       snowflake.ID `gorm:"index:idx_budget_revisions_budget" json:"budget_id,string"`
	PreviousID     snowflake.ID `json:"previous_id,string"`
	PreviousAmount int64        `json:"previous_amount"`
	NewAmount      int64        `json:"new_amount"`
	Version        int          `json:"version"`
	Reason         string       `gorm:"type:text" json:"reason,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (BudgetRevision) TableName() string {
	return "budget_revisions"
}
