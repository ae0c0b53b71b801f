package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records an operator action that is not captured by the stock ledger
// or the ticket status logs.
type AuditLog struct {
	ID            int64             `json:"id,string" gorm:"primaryKey"`
	ActorID       int64             `json:"actor_id,string" gorm:"not null;index"`
	ActorUsername string            `json:"actor_username" gorm:"type:varchar(128);not null"`
	ActorRole     string            `json:"actor_role" gorm:"type:varchar(64)"`
	Action        string            `json:"action" gorm:"type:varchar(128);not null;index"`
	TargetType    string            `json:"target_type" gorm:"type:varchar(64);not null"`
	TargetID      *string           `json:"target_id,omitempty" gorm:"type:varchar(64);index"`
	Metadata      datatypes.JSONMap `json:"metadata,omitempty" gorm:"type:json"`
	CreatedAt     time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

type AuditCursor struct {
	ID        int64
	CreatedAt time.Time
}

type ListFilter struct {
	Action     string
	TargetType string
	TargetID   string
	ActorID    int64
	StartAt    *time.Time
	EndAt      *time.Time
	Cursor     *AuditCursor
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
}
