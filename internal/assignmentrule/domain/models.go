// Package domain contains the assignment rule model and the scoring logic
// that picks a cost center for a document line.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// AssignmentRule maps a matching condition to a cost center. All matchers
// are optional; a rule with none set is a wildcard. Rules are soft-disabled
// via Enabled, never deleted while in use.
type AssignmentRule struct {
	ID              snowflake.ID  `gorm:"primaryKey" json:"id"`
	Name            string        `gorm:"type:text;not null" json:"name"`
	ProductID       *snowflake.ID `gorm:"index" json:"product_id,omitempty"`
	ProductCategory *string       `gorm:"type:text" json:"product_category,omitempty"`
	ContactID       *snowflake.ID `gorm:"index" json:"contact_id,omitempty"`
	ContactTag      *string       `gorm:"type:text" json:"contact_tag,omitempty"`
	CostCenterID    snowflake.ID  `gorm:"not null;index" json:"cost_center_id"`
	Priority        int           `gorm:"not null;default:0" json:"priority"`
	Enabled         bool          `gorm:"not null;default:true" json:"enabled"`
	CreatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (AssignmentRule) TableName() string { return "assignment_rules" }
