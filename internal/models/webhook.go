package models

import "time"

// ProcessedEvent is the ledger of payment provider events already applied.
type ProcessedEvent struct {
	EventID     string    `gorm:"primaryKey;size:128"  json:"event_id"`
	EventType   string    `gorm:"size:64;index"        json:"event_type"`
	Outcome     string    `gorm:"size:32"              json:"outcome"`
	ProcessedAt time.Time `gorm:"not null"             json:"processed_at"`
	CreatedAt   time.Time `json:"created_at"`
}
