// Package domain contains persistence models for cost centers.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// CostCenter is a named bucket that budgets and document lines are tracked
// against. Cost centers referenced by historical lines are never hard
// deleted, only deactivated.
type CostCenter struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Code      string            `gorm:"type:text;not null;uniqueIndex" json:"code"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Active    bool              `gorm:"not null;default:true" json:"active"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (CostCenter) TableName() string { return "cost_centers" }
