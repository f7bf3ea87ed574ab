package reconcile

import (
	"time"

	"gorm.io/datatypes"
)

// ProcessorEvent is the dedupe ledger for webhook delivery. The unique index
// on event_id makes at-least-once delivery exactly-once on our side: the
// insert either claims the event or tells us it was already handled.
type ProcessorEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_processor_events_event_id"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"not null"`
	ProcessedAt  *time.Time
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (ProcessorEvent) TableName() string { return "processor_events" }
