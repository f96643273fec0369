package models

import "time"

// ProcessedEvent records a consumed delivery whose side effects are not
// naturally idempotent, keyed by (consumer, fingerprint). It enables safe
// at-least-once consumption: a redelivered event whose fingerprint is
// already recorded is skipped instead of re-executed.
type ProcessedEvent struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Consumer    string    `gorm:"not null;uniqueIndex:ux_consumer_fingerprint,priority:1" json:"consumer"`
	Fingerprint string    `gorm:"not null;uniqueIndex:ux_consumer_fingerprint,priority:2" json:"fingerprint"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName implements the GORM tabler interface.
func (ProcessedEvent) TableName() string { return "processed_events" }
