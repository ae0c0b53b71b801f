package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type LedgerCursor struct {
	ID        int64
	CreatedAt time.Time
}

type LedgerFilter struct {
	VariantID int64
	Bucket    Bucket
	Cursor    *LedgerCursor
	Limit     int
}

type Repository interface {
	FindByVariantID(ctx context.Context, db *gorm.DB, variantID int64) (*Record, error)
	FindByVariantIDForUpdate(ctx context.Context, db *gorm.DB, variantID int64) (*Record, error)
	// InsertIfAbsent reports whether the row was created by this call.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, record *Record) (bool, error)
	UpdateBuckets(ctx context.Context, db *gorm.DB, record *Record) error
	UpdateThresholds(ctx context.Context, db *gorm.DB, record *Record) error
	InsertLedgerEntry(ctx context.Context, db *gorm.DB, entry *LedgerEntry) error
	ListLedger(ctx context.Context, db *gorm.DB, filter LedgerFilter) ([]*LedgerEntry, error)
}
