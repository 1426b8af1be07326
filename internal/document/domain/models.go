// Package domain contains persistence models for purchase and sales
// documents and their lines.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// DocumentType distinguishes sales invoices from vendor bills. Both share
// one shape; the type determines which budget direction their lines feed.
type DocumentType string

const (
	TypeCustomerInvoice DocumentType = "CUSTOMER_INVOICE"
	TypeVendorBill      DocumentType = "VENDOR_BILL"
)

// Direction is the budget direction a document feeds.
type Direction string

const (
	DirectionIncome  Direction = "INCOME"
	DirectionExpense Direction = "EXPENSE"
)

// Direction maps the document type to its budget direction.
func (t DocumentType) Direction() Direction {
	if t == TypeCustomerInvoice {
		return DirectionIncome
	}
	return DirectionExpense
}

// DocumentTypeForDirection is the inverse of DocumentType.Direction.
func DocumentTypeForDirection(direction Direction) DocumentType {
	if direction == DirectionIncome {
		return TypeCustomerInvoice
	}
	return TypeVendorBill
}

// LifecycleStatus is the document workflow state.
type LifecycleStatus string

const (
	StatusDraft     LifecycleStatus = "DRAFT"
	StatusPosted    LifecycleStatus = "POSTED"
	StatusCancelled LifecycleStatus = "CANCELLED"
)

// PaymentStatus tracks settlement independently of the workflow state.
type PaymentStatus string

const (
	PaymentNotPaid       PaymentStatus = "NOT_PAID"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
)

// Document is an invoice or bill header.
type Document struct {
	ID            snowflake.ID      `gorm:"primaryKey" json:"id"`
	Type          DocumentType      `gorm:"type:text;not null;index" json:"type"`
	ContactID     snowflake.ID      `gorm:"not null;index" json:"contact_id"`
	Status        LifecycleStatus   `gorm:"type:text;not null;default:'DRAFT'" json:"status"`
	PaymentStatus PaymentStatus     `gorm:"type:text;not null;default:'NOT_PAID'" json:"payment_status"`
	IssueDate     time.Time         `gorm:"not null;index" json:"issue_date"`
	TotalAmount   int64             `gorm:"not null;default:0" json:"total_amount"`
	PaidAmount    int64             `gorm:"not null;default:0" json:"paid_amount"`
	PostedAt      *time.Time        `gorm:"" json:"posted_at,omitempty"`
	CancelledAt   *time.Time        `gorm:"" json:"cancelled_at,omitempty"`
	Metadata      datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt     time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`

	Lines []DocumentLine `gorm:"-" json:"lines,omitempty"`
}

// TableName sets the database table name.
func (Document) TableName() string { return "documents" }

// Realized reports whether the document's lines count as actual spend or
// revenue: posted, or paid enough, and not cancelled. Partial payment
// realizes a document even while its workflow state is still draft.
func (d Document) Realized() bool {
	if d.Status == StatusCancelled {
		return false
	}
	return d.Status == StatusPosted ||
		d.PaymentStatus == PaymentPaid ||
		d.PaymentStatus == PaymentPartiallyPaid
}

// Reserved reports whether the document's lines count as committed but not
// yet realized spend or revenue. Realized and Reserved are disjoint;
// cancelled documents are neither.
func (d Document) Reserved() bool {
	return d.Status == StatusDraft && d.PaymentStatus == PaymentNotPaid
}

// DocumentLine is a single line item. CostCenterID is assigned explicitly or
// by the rule resolver at creation time and freezes when the document posts.
type DocumentLine struct {
	ID           snowflake.ID  `gorm:"primaryKey" json:"id"`
	DocumentID   snowflake.ID  `gorm:"not null;index" json:"document_id"`
	ProductID    snowflake.ID  `gorm:"not null;index" json:"product_id"`
	CostCenterID *snowflake.ID `gorm:"index" json:"cost_center_id,omitempty"`
	Description  string        `gorm:"type:text" json:"description,omitempty"`
	Quantity     int64         `gorm:"not null" json:"quantity"`
	UnitAmount   int64         `gorm:"not null" json:"unit_amount"`
	Amount       int64         `gorm:"not null" json:"amount"`
	CreatedAt    time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (DocumentLine) TableName() string { return "document_lines" }
