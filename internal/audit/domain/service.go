package domain

import (
	"context"
	"errors"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	ActionStockAdjusted      = "inventory.stock_adjusted"
	ActionThresholdsUpdated  = "inventory.thresholds_updated"
	ActionTicketCancelled    = "ticket.cancelled"
	ActionVariantCreated     = "catalog.variant_created"
	ActionVariantDeactivated = "catalog.variant_deactivated"
)

type ListAuditLogRequest struct {
	pagination.Pagination
	Action     string
	TargetType string
	TargetID   string
	StartAt    *time.Time
	EndAt      *time.Time
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// AuditLog writes on tx when non-nil so the row commits with the audited change.
	AuditLog(ctx context.Context, tx *gorm.DB, action string, targetType string, targetID *string, metadata map[string]any) error
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
}

var (
	ErrInvalidPageToken = errors.New("invalid_page_token")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidAction    = errors.New("invalid_action")
)
