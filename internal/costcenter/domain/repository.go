package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, costCenter *CostCenter) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*CostCenter, error)
	FindByCode(ctx context.Context, db *gorm.DB, code string) (*CostCenter, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*CostCenter, error)
	Save(ctx context.Context, db *gorm.DB, costCenter *CostCenter) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error
	// ReferenceCount reports how many document lines and budgets point at the
	// cost center. A non-zero count blocks hard deletion.
	ReferenceCount(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
}
