package models

import "time"

// OutboxCursor tracks how far one event sink has read the order event
// outbox. Each sink advances on its own.
type OutboxCursor struct {
	Sink        string    `gorm:"type:varchar(64);primaryKey" json:"sink"`
	LastEventID uint      `gorm:"not null;default:0" json:"last_event_id"`
	Attempts    int       `gorm:"not null;default:0" json:"attempts"`
	UpdatedAt   time.Time `json:"updated_at"`
}
