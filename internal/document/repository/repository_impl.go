package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/document/domain"
	"github.com/smallbiznis/kontera/pkg/db/option"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertDocument(ctx context.Context, db *gorm.DB, document *domain.Document) error {
	return db.WithContext(ctx).Create(document).Error
}

func (r *repo) InsertLines(ctx context.Context, db *gorm.DB, lines []domain.DocumentLine) error {
	if len(lines) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&lines).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Document, error) {
	var document domain.Document
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&document).Error
	if err != nil {
		return nil, err
	}
	if document.ID == 0 {
		return nil, nil
	}
	return &document, nil
}

func (r *repo) FindLines(ctx context.Context, db *gorm.DB, documentID snowflake.ID) ([]domain.DocumentLine, error) {
	var lines []domain.DocumentLine
	err := db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("id asc").
		Find(&lines).Error
	if err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *repo) DeleteLines(ctx context.Context, db *gorm.DB, documentID snowflake.ID) error {
	return db.WithContext(ctx).
		Delete(&domain.DocumentLine{}, "document_id = ?", documentID).Error
}

func (r *repo) SaveDocument(ctx context.Context, db *gorm.DB, document *domain.Document) error {
	return db.WithContext(ctx).Omit("Lines").Save(document).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter, page pagination.Pagination) ([]*domain.Document, error) {
	var documents []*domain.Document
	stmt := db.WithContext(ctx).Model(&domain.Document{})
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.ContactID != 0 {
		stmt = stmt.Where("contact_id = ?", filter.ContactID)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	err := stmt.
		Order("created_at desc, id desc").
		Find(&documents).Error
	if err != nil {
		return nil, err
	}
	return documents, nil
}

func (r *repo) AggregateLines(ctx context.Context, db *gorm.DB, costCenterID snowflake.ID, periodStart, periodEnd time.Time, direction domain.Direction) (domain.LineTotals, error) {
	var totals domain.LineTotals
	err := db.WithContext(ctx).Raw(
		`SELECT
			COALESCE(SUM(CASE
				WHEN d.status = ? OR d.payment_status IN (?, ?) THEN l.amount
				ELSE 0 END), 0) AS realized,
			COALESCE(SUM(CASE
				WHEN d.status = ? AND d.payment_status = ? THEN l.amount
				ELSE 0 END), 0) AS reserved
		 FROM document_lines l
		 JOIN documents d ON d.id = l.document_id
		 WHERE l.cost_center_id = ?
		   AND d.type = ?
		   AND d.status <> ?
		   AND d.issue_date >= ?
		   AND d.issue_date <= ?`,
		domain.StatusPosted,
		domain.PaymentPaid,
		domain.PaymentPartiallyPaid,
		domain.StatusDraft,
		domain.PaymentNotPaid,
		costCenterID,
		domain.DocumentTypeForDirection(direction),
		domain.StatusCancelled,
		periodStart,
		periodEnd,
	).Scan(&totals).Error
	if err != nil {
		return domain.LineTotals{}, err
	}
	return totals, nil
}
