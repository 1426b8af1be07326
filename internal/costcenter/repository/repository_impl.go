package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/costcenter/domain"
	"github.com/smallbiznis/kontera/pkg/db/option"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, costCenter *domain.CostCenter) error {
	return db.WithContext(ctx).Create(costCenter).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.CostCenter, error) {
	var costCenter domain.CostCenter
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&costCenter).Error
	if err != nil {
		return nil, err
	}
	if costCenter.ID == 0 {
		return nil, nil
	}
	return &costCenter, nil
}

func (r *repo) FindByCode(ctx context.Context, db *gorm.DB, code string) (*domain.CostCenter, error) {
	var costCenter domain.CostCenter
	err := db.WithContext(ctx).
		Where("code = ?", code).
		Limit(1).
		Find(&costCenter).Error
	if err != nil {
		return nil, err
	}
	if costCenter.ID == 0 {
		return nil, nil
	}
	return &costCenter, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.CostCenter, error) {
	var costCenters []*domain.CostCenter
	stmt := db.WithContext(ctx).Model(&domain.CostCenter{})
	if filter.Code != "" {
		stmt = stmt.Where("code = ?", filter.Code)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("active = ?", true)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&costCenters).Error
	if err != nil {
		return nil, err
	}
	return costCenters, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, costCenter *domain.CostCenter) error {
	return db.WithContext(ctx).Save(costCenter).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) error {
	return db.WithContext(ctx).Delete(&domain.CostCenter{}, "id = ?", id).Error
}

func (r *repo) ReferenceCount(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error) {
	var lineCount int64
	if err := db.WithContext(ctx).
		Table("document_lines").
		Where("cost_center_id = ?", id).
		Count(&lineCount).Error; err != nil {
		return 0, err
	}

	var budgetCount int64
	if err := db.WithContext(ctx).
		Table("budgets").
		Where("cost_center_id = ?", id).
		Count(&budgetCount).Error; err != nil {
		return 0, err
	}

	var ruleCount int64
	if err := db.WithContext(ctx).
		Table("assignment_rules").
		Where("cost_center_id = ?", id).
		Count(&ruleCount).Error; err != nil {
		return 0, err
	}

	return lineCount + budgetCount + ruleCount, nil
}
