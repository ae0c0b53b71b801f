package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientStock = errors.New("insufficient_stock")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidBucket     = errors.New("invalid_bucket")
	ErrInvalidOperation  = errors.New("invalid_operation")
	ErrInvalidThresholds = errors.New("invalid_thresholds")
	ErrInvalidVariantID  = errors.New("invalid_variant_id")
	ErrRecordNotFound    = errors.New("inventory_record_not_found")
	ErrInvalidAdjustMode = errors.New("invalid_adjust_mode")
	ErrEmptyBatch        = errors.New("empty_batch")
)

// InsufficientStockError reports a decrease that would take a bucket below zero,
// or an allocation larger than the available stock.
type InsufficientStockError struct {
	VariantID int64
	Bucket    Bucket
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for variant %d in %s: requested %s, available %s",
		e.VariantID, e.Bucket, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}
