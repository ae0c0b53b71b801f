package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bucket names one of the three quantities held per variant.
type Bucket string

const (
	BucketCurrent   Bucket = "CURRENT"
	BucketFuture    Bucket = "FUTURE"
	BucketAllocated Bucket = "ALLOCATED"
)

func (b Bucket) Valid() bool {
	switch b {
	case BucketCurrent, BucketFuture, BucketAllocated:
		return true
	}
	return false
}

type TransactionType string

const (
	TransactionIn  TransactionType = "IN"
	TransactionOut TransactionType = "OUT"
	TransactionSet TransactionType = "SET"
)

type SourceType string

const (
	SourceInventoryInit          SourceType = "INVENTORY_INIT"
	SourceManualAdjustment       SourceType = "MANUAL_ADJUSTMENT"
	SourceProductionApproval     SourceType = "PRODUCTION_APPROVAL"
	SourceProductionCompletion   SourceType = "PRODUCTION_COMPLETION"
	SourceProductionCancellation SourceType = "PRODUCTION_CANCELLATION"
	SourcePurchaseOrder          SourceType = "PURCHASE_ORDER"
	SourcePurchaseReceipt        SourceType = "PURCHASE_RECEIPT"
	SourcePurchaseCancellation   SourceType = "PURCHASE_CANCELLATION"
	SourceSalesOrderAllocation   SourceType = "SALES_ORDER_ALLOCATION"
	SourceSalesOrderFulfillment  SourceType = "SALES_ORDER_FULFILLMENT"
	SourceSalesOrderCancellation SourceType = "SALES_ORDER_CANCELLATION"
	SourceSalesOrderReturn       SourceType = "SALES_ORDER_RETURN"
)

type Status string

const (
	StatusOutOfStock Status = "OUT_OF_STOCK"
	StatusLowStock   Status = "LOW_STOCK"
	StatusInStock    Status = "IN_STOCK"
	StatusOverStock  Status = "OVER_STOCK"
)

// Record holds the stock buckets of one variant. Only the engine writes it.
type Record struct {
	ID             int64           `json:"id,string" gorm:"primaryKey"`
	VariantID      int64           `json:"variant_id,string" gorm:"not null;uniqueIndex:ux_inventory_records_variant"`
	CurrentStock   decimal.Decimal `json:"current_stock" gorm:"type:numeric(18,4);not null;default:0"`
	FutureStock    decimal.Decimal `json:"future_stock" gorm:"type:numeric(18,4);not null;default:0"`
	AllocatedStock decimal.Decimal `json:"allocated_stock" gorm:"type:numeric(18,4);not null;default:0"`
	MinAlertStock  decimal.Decimal `json:"min_alert_stock" gorm:"type:numeric(18,4);not null;default:0"`
	MaxStockLevel  decimal.Decimal `json:"max_stock_level" gorm:"type:numeric(18,4);not null;default:0"`
	Status         Status          `json:"inventory_status" gorm:"type:varchar(16);not null"`
	Version        int64           `json:"version" gorm:"not null;default:0"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (Record) TableName() string { return "inventory_records" }

// Available is current stock not yet promised to sales orders.
func (r Record) Available() decimal.Decimal {
	return r.CurrentStock.Sub(r.AllocatedStock)
}

func (r Record) Quantity(b Bucket) decimal.Decimal {
	switch b {
	case BucketFuture:
		return r.FutureStock
	case BucketAllocated:
		return r.AllocatedStock
	default:
		return r.CurrentStock
	}
}

func (r *Record) SetQuantity(b Bucket, value decimal.Decimal) {
	switch b {
	case BucketFuture:
		r.FutureStock = value
	case BucketAllocated:
		r.AllocatedStock = value
	default:
		r.CurrentStock = value
	}
}

// DeriveStatus classifies current stock against the alert thresholds.
// A zero max level disables the over-stock check.
func DeriveStatus(current, minAlert, maxLevel decimal.Decimal) Status {
	switch {
	case current.Sign() <= 0:
		return StatusOutOfStock
	case current.LessThanOrEqual(minAlert):
		return StatusLowStock
	case maxLevel.Sign() > 0 && current.GreaterThan(maxLevel):
		return StatusOverStock
	default:
		return StatusInStock
	}
}

// LedgerEntry is one immutable bucket mutation.
type LedgerEntry struct {
	ID              int64           `json:"id,string" gorm:"primaryKey"`
	VariantID       int64           `json:"variant_id,string" gorm:"not null;index:ix_inventory_ledger_variant_created,priority:1"`
	TransactionType TransactionType `json:"transaction_type" gorm:"type:varchar(8);not null"`
	SourceType      SourceType      `json:"transaction_source_type" gorm:"type:varchar(32);not null"`
	Bucket          Bucket          `json:"stock_type" gorm:"column:stock_type;type:varchar(16);not null"`
	Quantity        decimal.Decimal `json:"quantity" gorm:"type:numeric(18,4);not null"`
	BeforeQuantity  decimal.Decimal `json:"before_quantity" gorm:"type:numeric(18,4);not null"`
	AfterQuantity   decimal.Decimal `json:"after_quantity" gorm:"type:numeric(18,4);not null"`
	ReferenceType   string          `json:"reference_document_type,omitempty" gorm:"type:varchar(32)"`
	ReferenceID     int64           `json:"reference_document_id,string,omitempty"`
	Note            string          `json:"note,omitempty" gorm:"type:text"`
	CreatedByID     int64           `json:"created_by_id,string"`
	CreatedBy       string          `json:"created_by" gorm:"type:varchar(128);not null"`
	CreatedAt       time.Time       `json:"created_at" gorm:"not null;index:ix_inventory_ledger_variant_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "inventory_ledger_entries" }

// Reference points a ledger entry at the document that caused it.
type Reference struct {
	Type string
	ID   int64
}

const (
	ReferenceProductionDetail = "PRODUCTION_TICKET_DETAIL"
	ReferencePurchasingDetail = "PURCHASING_TICKET_DETAIL"
	ReferenceSalesDetail      = "SALES_ORDER_DETAIL"
	ReferenceBulkAdjustment   = "BULK_ADJUSTMENT"
)
