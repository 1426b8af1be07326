// Package domain contains persistence models for products.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Product is a sellable or purchasable item. Category groups products for
// assignment rule matching.
type Product struct {
	ID         snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"type:text;not null" json:"name"`
	Category   string            `gorm:"type:text;index" json:"category,omitempty"`
	UnitAmount int64             `gorm:"not null;default:0" json:"unit_amount"`
	Active     bool              `gorm:"not null;default:true" json:"active"`
	Metadata   datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
