package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/budget/domain"
	"github.com/smallbiznis/kontera/pkg/db/option"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, budget *domain.Budget) error {
	return db.WithContext(ctx).Create(budget).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Budget, error) {
	var budget domain.Budget
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&budget).Error
	if err != nil {
		return nil, err
	}
	if budget.ID == 0 {
		return nil, nil
	}
	return &budget, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, budget *domain.Budget) error {
	return db.WithContext(ctx).Save(budget).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListBudgetFilter, page pagination.Pagination) ([]*domain.Budget, error) {
	var budgets []*domain.Budget
	stmt := db.WithContext(ctx).Model(&domain.Budget{})
	if filter.CostCenterID != 0 {
		stmt = stmt.Where("cost_center_id = ?", filter.CostCenterID)
	}
	if filter.Stage != "" {
		stmt = stmt.Where("stage = ?", filter.Stage)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repo) ListCovering(ctx context.Context, db *gorm.DB, costCenterIDs []snowflake.ID, date time.Time) ([]*domain.Budget, error) {
	if len(costCenterIDs) == 0 {
		return nil, nil
	}
	day := date.UTC().Truncate(24 * time.Hour)
	var budgets []*domain.Budget
	err := db.WithContext(ctx).
		Where("cost_center_id IN ?", costCenterIDs).
		Where("stage IN ?", []domain.Stage{domain.StageDraft, domain.StageConfirmed}).
		Where("period_start <= ? AND period_end >= ?", day, day).
		Order("id asc").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repo) ListActive(ctx context.Context, db *gorm.DB) ([]*domain.Budget, error) {
	var budgets []*domain.Budget
	err := db.WithContext(ctx).
		Where("stage IN ?", []domain.Stage{domain.StageDraft, domain.StageConfirmed}).
		Order("id asc").
		Find(&budgets).Error
	if err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *repo) InsertRevision(ctx context.Context, db *gorm.DB, revision *domain.BudgetRevision) error {
	return db.WithContext(ctx).Create(revision).Error
}

func (r *repo) ListRevisions(ctx context.Context, db *gorm.DB, budgetID snowflake.ID) ([]*domain.BudgetRevision, error) {
	var revisions []*domain.BudgetRevision
	err := db.WithContext(ctx).
		Where("budget_id = ? OR previous_id = ?", budgetID, budgetID).
		Order("created_at asc, id asc").
		Find(&revisions).Error
	if err != nil {
		return nil, err
	}
	return revisions, nil
}
