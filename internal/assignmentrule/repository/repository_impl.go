package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/assignmentrule/domain"
	"github.com/smallbiznis/kontera/pkg/db/option"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, rule *domain.AssignmentRule) error {
	return db.WithContext(ctx).Create(rule).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.AssignmentRule, error) {
	var rule domain.AssignmentRule
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == 0 {
		return nil, nil
	}
	return &rule, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.AssignmentRule, error) {
	var rules []*domain.AssignmentRule
	stmt := db.WithContext(ctx).Model(&domain.AssignmentRule{})
	if filter.CostCenterID != 0 {
		stmt = stmt.Where("cost_center_id = ?", filter.CostCenterID)
	}
	if filter.EnabledOnly {
		stmt = stmt.Where("enabled = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, rule *domain.AssignmentRule) error {
	return db.WithContext(ctx).Save(rule).Error
}

func (r *repo) ListCandidates(ctx context.Context, db *gorm.DB, productID snowflake.ID) ([]domain.AssignmentRule, error) {
	var rules []domain.AssignmentRule
	err := db.WithContext(ctx).
		Model(&domain.AssignmentRule{}).
		Where("enabled = ?", true).
		Where("product_id IS NULL OR product_id = ?", productID).
		Order("priority desc, id asc").
		Find(&rules).Error
	if err != nil {
		return nil, err
	}
	return rules, nil
}
