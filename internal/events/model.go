package events

import (
	"time"

	"gorm.io/datatypes"
)

const (
	EventTicketDetailStatusChanged = "ticket.detail.status_changed"
	EventTicketStatusChanged       = "ticket.status_changed"
	EventInventoryLowStock         = "inventory.low_stock"
)

const (
	StatusPending    = "PENDING"
	StatusProcessing = "PROCESSING"
	StatusDispatched = "DISPATCHED"
	StatusFailed     = "FAILED"
	StatusDead       = "DEAD"
)

// OutboxEvent is a domain event stored in the same transaction as the change
// that produced it and relayed to the configured publisher afterwards.
type OutboxEvent struct {
	ID            string            `json:"id" gorm:"primaryKey;type:varchar(26)"`
	EventType     string            `json:"event_type" gorm:"type:varchar(64);not null;index"`
	AggregateType string            `json:"aggregate_type" gorm:"type:varchar(64);not null"`
	AggregateID   int64             `json:"aggregate_id,string" gorm:"not null"`
	Payload       datatypes.JSONMap `json:"payload" gorm:"type:json;not null"`
	DedupeKey     *string           `json:"dedupe_key,omitempty" gorm:"type:varchar(191);uniqueIndex:ux_outbox_events_dedupe"`
	Status        string            `json:"status" gorm:"type:varchar(16);not null;index:ix_outbox_events_status_created,priority:1"`
	Attempts      int               `json:"attempts" gorm:"not null;default:0"`
	LastError     *string           `json:"last_error,omitempty" gorm:"type:text"`
	NextAttemptAt *time.Time        `json:"next_attempt_at,omitempty"`
	LockedAt      *time.Time        `json:"locked_at,omitempty"`
	LockedBy      *string           `json:"locked_by,omitempty" gorm:"type:varchar(64)"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;index:ix_outbox_events_status_created,priority:2"`
	DispatchedAt  *time.Time        `json:"dispatched_at,omitempty"`
}

func (OutboxEvent) TableName() string { return "outbox_events" }

// Event is what producers hand to the outbox.
type Event struct {
	Type          string
	AggregateType string
	AggregateID   int64
	Payload       map[string]any
	DedupeKey     string
}
