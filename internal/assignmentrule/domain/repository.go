package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, rule *AssignmentRule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*AssignmentRule, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter, page pagination.Pagination) ([]*AssignmentRule, error)
	Save(ctx context.Context, db *gorm.DB, rule *AssignmentRule) error
	// ListCandidates returns enabled rules whose exact-product matcher is
	// either unset or equal to productID, ordered by priority desc, id asc.
	ListCandidates(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]AssignmentRule, error)
}
