// Package domain contains persistence models for counterparties.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// Contact is a counterparty on a document: a customer on invoices, a vendor
// on bills. Tag is a single free-form label used by assignment rules.
type Contact struct {
	ID        snowflake.ID      `gorm:"primaryKey" json:"id"`
	Name      string            `gorm:"type:text;not null" json:"name"`
	Email     string            `gorm:"type:text" json:"email,omitempty"`
	Tag       string            `gorm:"type:text;index" json:"tag,omitempty"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb;not null;default:'{}'" json:"metadata,omitempty"`
	CreatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time         `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Contact) TableName() string { return "contacts" }
