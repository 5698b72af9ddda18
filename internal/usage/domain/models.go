// Package domain contains persistence models for billable usage audit rows.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// UsageRecord is one append-only audit row per billable event. Cost is
// computed once at write time (amount x unit price at that moment) and
// never recomputed, so historical rows stay accurate across price changes.
type UsageRecord struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	AccountID string       `gorm:"type:text;not null;index:ix_usage_records_account_created,priority:1"`
	Resource  string       `gorm:"type:text;not null"`
	Amount    int64        `gorm:"not null"`
	Cost      int64        `gorm:"not null"` // micro-USD
	HireID    *string      `gorm:"type:text"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP;index:ix_usage_records_account_created,priority:2"`
}

// TableName sets the database table name.
func (UsageRecord) TableName() string { return "usage_records" }
