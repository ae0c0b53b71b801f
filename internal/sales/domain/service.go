package domain

import (
	"context"
	"errors"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/batch"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"github.com/shopspring/decimal"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*OrderResponse, error)
	BulkCreate(ctx context.Context, req BulkCreateRequest) (batch.Result[OrderResponse], error)
	Get(ctx context.Context, id string) (*OrderResponse, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (*workflow.TransitionResult, error)
	// CancelOrder cancels every open line of the order.
	CancelOrder(ctx context.Context, req CancelRequest) (batch.Result[workflow.TransitionResult], error)
	ListStatusLogs(ctx context.Context, detailID string) ([]workflow.StatusLog, error)
}

type LineInput struct {
	SKU       string           `json:"sku" binding:"required"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	Note      string           `json:"note"`
}

type CreateRequest struct {
	Name         string      `json:"name" binding:"required"`
	CustomerName string      `json:"customer_name"`
	Note         string      `json:"note"`
	Lines        []LineInput `json:"lines" binding:"required,min=1,dive"`
}

type BulkCreateItem struct {
	CustomerName string           `json:"customer_name"`
	SKU          string           `json:"sku" binding:"required"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price"`
	Note         string           `json:"note"`
}

type BulkCreateRequest struct {
	Items []BulkCreateItem `json:"items" binding:"required,min=1,dive"`
}

type ListRequest struct {
	pagination.Pagination
	Status       string `form:"status"`
	CustomerName string `form:"customer_name"`
}

type ListResponse struct {
	pagination.PageInfo
	Orders []OrderResponse `json:"orders"`
}

type TransitionRequest struct {
	DetailID string `json:"-"`
	Status   string `json:"status" binding:"required"`
	Note     string `json:"note"`
	Reason   string `json:"reason"`
}

type CancelRequest struct {
	OrderID string `json:"-"`
	Reason  string `json:"reason" binding:"required"`
	Note    string `json:"note"`
}

type LineResponse struct {
	ID        string           `json:"id"`
	VariantID string           `json:"variant_id"`
	SKU       string           `json:"sku"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	Status    workflow.Status  `json:"status"`
	Note      string           `json:"note,omitempty"`
	Version   int64            `json:"version"`
	UpdatedBy string           `json:"updated_by"`
	UpdatedAt time.Time        `json:"updated_at"`
}

type OrderResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	CustomerName string                `json:"customer_name,omitempty"`
	Status       workflow.TicketStatus `json:"status"`
	Note         string                `json:"note,omitempty"`
	TotalAmount  decimal.Decimal       `json:"total_amount"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Lines        []LineResponse        `json:"lines"`
}

var (
	ErrInvalidOrderID      = errors.New("invalid_order_id")
	ErrInvalidDetailID     = errors.New("invalid_detail_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitPrice    = errors.New("invalid_unit_price")
	ErrEmptyLines          = errors.New("empty_lines")
	ErrVariantKindMismatch = errors.New("variant_kind_mismatch")
)
