package domain

import (
	"context"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/batch"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type AdjustMode string

const (
	AdjustAdd      AdjustMode = "ADD"
	AdjustSubtract AdjustMode = "SUBTRACT"
	AdjustSet      AdjustMode = "SET"
)

type Service interface {
	Get(ctx context.Context, variantID string) (*Response, error)
	GetBySKU(ctx context.Context, sku string) (*Response, error)
	ListLedger(ctx context.Context, req ListLedgerRequest) (ListLedgerResponse, error)
	Adjust(ctx context.Context, req AdjustRequest) (*Response, error)
	UpdateThresholds(ctx context.Context, req ThresholdRequest) (*Response, error)
	BulkAdjust(ctx context.Context, req BulkAdjustRequest) (batch.Result[Response], error)
}

type AdjustRequest struct {
	SKU      string          `json:"sku" binding:"required"`
	Mode     AdjustMode      `json:"mode" binding:"required,oneof=ADD SUBTRACT SET"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note"`
}

type BulkAdjustRequest struct {
	Mode  AdjustMode       `json:"mode" binding:"required,oneof=ADD SUBTRACT SET"`
	Note  string           `json:"note"`
	Items []BulkAdjustItem `json:"items" binding:"required,min=1,dive"`
}

type BulkAdjustItem struct {
	SKU      string          `json:"sku" binding:"required"`
	Quantity decimal.Decimal `json:"quantity"`
	Note     string          `json:"note"`
}

type ThresholdRequest struct {
	SKU           string          `json:"sku" binding:"required"`
	MinAlertStock decimal.Decimal `json:"min_alert_stock"`
	MaxStockLevel decimal.Decimal `json:"max_stock_level"`
}

type ListLedgerRequest struct {
	pagination.Pagination
	VariantID string `form:"-"`
	Bucket    string `form:"bucket"`
}

type ListLedgerResponse struct {
	pagination.PageInfo
	Entries []LedgerEntry `json:"entries"`
}

type Response struct {
	VariantID      string          `json:"variant_id"`
	SKU            string          `json:"sku"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	FutureStock    decimal.Decimal `json:"future_stock"`
	AllocatedStock decimal.Decimal `json:"allocated_stock"`
	AvailableStock decimal.Decimal `json:"available_stock"`
	MinAlertStock  decimal.Decimal `json:"min_alert_stock"`
	MaxStockLevel  decimal.Decimal `json:"max_stock_level"`
	Status         Status          `json:"inventory_status"`
	Version        int64           `json:"version"`
}
