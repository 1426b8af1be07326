package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

// LineTotals is the outcome of one aggregation pass over document lines.
type LineTotals struct {
	Realized int64 `json:"realized"`
	Reserved int64 `json:"reserved"`
}

type Repository interface {
	InsertDocument(ctx context.Context, db *gorm.DB, document *Document) error
	InsertLines(ctx context.Context, db *gorm.DB, lines []DocumentLine) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Document, error)
	FindLines(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]DocumentLine, error)
	DeleteLines(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error
	SaveDocument(ctx context.Context, db *gorm.DB, document *Document) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*Document, error)
	// AggregateLines sums line amounts for one cost center, period and
	// direction, split into realized and reserved buckets. The split is a
	// full rescan of current committed state, so re-running it without data
	// changes returns the same totals.
	AggregateLines(ctx context.Context, db *gorm.DB, costCenterID snowflake.ID, periodStart, periodEnd time.Time, direction Direction) (LineTotals, error)
}
