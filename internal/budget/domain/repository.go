package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type ListBudgetFilter struct {
	CostCenterID snowflake.ID
	Stage        Stage
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, budget *Budget) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Budget, error)
	Save(ctx context.Context, db *gorm.DB, budget *Budget) error
	List(ctx context.Context, db *gorm.DB, filter ListBudgetFilter, page pagination.Pagination) ([]*Budget, error)

	// ListCovering returns the non-archived budgets whose period covers
	// date and whose cost center is among costCenterIDs.
	ListCovering(ctx context.Context, db *gorm.DB, costCenterIDs []snowflake.ID, date time.Time) ([]*Budget, error)

	// ListActive returns every DRAFT or CONFIRMED budget, for the
	// reconcile sweep.
	ListActive(ctx context.Context, db *gorm.DB) ([]*Budget, error)

	InsertRevision(ctx context.Context, db *gorm.DB, revision *BudgetRevision) error
	ListRevisions(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) ([]*BudgetRevision, error)
}
