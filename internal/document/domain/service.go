package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/pkg/db/pagination"
)

// LineInput is a requested line on a document. CostCenterID may be left
// empty, in which case the rule resolver assigns one at creation time.
type LineInput struct {
	ProductID    string
	CostCenterID string
	Description  string
	Quantity     int64
	UnitAmount   int64
}

type CreateDocumentRequest struct {
	Type      DocumentType
	ContactID string
	IssueDate time.Time
	Lines     []LineInput
}

type UpdateLinesRequest struct {
	ID    string
	Lines []LineInput
}

type RegisterPaymentRequest struct {
	ID     string
	Amount int64
}

type ListDocumentRequest struct {
	PageToken string
	PageSize  int32
	Type      DocumentType
	Status    LifecycleStatus
	ContactID string
}

type ListFilter struct {
	Type      DocumentType
	Status    LifecycleStatus
	ContactID snowflake.ID
}

type ListDocumentResponse struct {
	pagination.PageInfo
	Documents []Document `json:"documents"`
}

type GetDocumentRequest struct {
	ID string
}

// BudgetRecalculator re-derives budget snapshots after a document mutation
// touches lines with resolved cost centers. Implemented by the budget
// service; only budgets whose period covers date and whose cost center is
// among costCenterIDs are recomputed.
type BudgetRecalculator interface {
	RecalculateForCostCenters(ctx context.Context, costCenterIDs []snowflake.ID, date time.Time) error
}

type Service interface {
	Create(context.Context, CreateDocumentRequest) (Document, error)
	UpdateLines(context.Context, UpdateLinesRequest) (Document, error)
	Post(ctx context.Context, id string) (Document, error)
	RegisterPayment(context.Context, RegisterPaymentRequest) (Document, error)
	Cancel(ctx context.Context, id string) (Document, error)
	GetByID(context.Context, GetDocumentRequest) (Document, error)
	List(context.Context, ListDocumentRequest) (ListDocumentResponse, error)
}

var (
	ErrInvalidType      = errors.New("invalid_type")
	ErrInvalidContact   = errors.New("invalid_contact")
	ErrInvalidIssueDate = errors.New("invalid_issue_date")
	ErrInvalidLines     = errors.New("invalid_lines")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidID        = errors.New("invalid_id")
	ErrNotFound         = errors.New("not_found")
	// ErrFinalized rejects line edits on documents that left draft.
	ErrFinalized = errors.New("document_finalized")
	// ErrInvalidTransition rejects workflow moves the status machine does
	// not allow.
	ErrInvalidTransition = errors.New("invalid_transition")
)
