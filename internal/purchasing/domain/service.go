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
	Create(ctx context.Context, req CreateRequest) (*TicketResponse, error)
	BulkCreate(ctx context.Context, req BulkCreateRequest) (batch.Result[TicketResponse], error)
	Get(ctx context.Context, id string) (*TicketResponse, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	Transition(ctx context.Context, req TransitionRequest) (*workflow.TransitionResult, error)
	CancelTicket(ctx context.Context, req CancelRequest) (batch.Result[workflow.TransitionResult], error)
	ListStatusLogs(ctx context.Context, detailID string) ([]workflow.StatusLog, error)
}

type DetailInput struct {
	SKU      string           `json:"sku" binding:"required"`
	Quantity decimal.Decimal  `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
	Note     string           `json:"note"`
}

type CreateRequest struct {
	Name         string        `json:"name" binding:"required"`
	SupplierName string        `json:"supplier_name"`
	Note         string        `json:"note"`
	Details      []DetailInput `json:"details" binding:"required,min=1,dive"`
}

// BulkCreateItem opens a single-line purchase ticket.
type BulkCreateItem struct {
	SKU          string           `json:"sku" binding:"required"`
	Quantity     decimal.Decimal  `json:"quantity"`
	SupplierName string           `json:"supplier_name"`
	UnitCost     *decimal.Decimal `json:"unit_cost"`
	Note         string           `json:"note"`
}

type BulkCreateRequest struct {
	Items []BulkCreateItem `json:"items" binding:"required,min=1,dive"`
}

type ListRequest struct {
	pagination.Pagination
	Status       string `form:"status"`
	SupplierName string `form:"supplier_name"`
}

type ListResponse struct {
	pagination.PageInfo
	Tickets []TicketResponse `json:"tickets"`
}

type TransitionRequest struct {
	DetailID string `json:"-"`
	Status   string `json:"status" binding:"required"`
	Note     string `json:"note"`
	Reason   string `json:"reason"`
}

type CancelRequest struct {
	TicketID string `json:"-"`
	Reason   string `json:"reason" binding:"required"`
	Note     string `json:"note"`
}

type DetailResponse struct {
	ID        string           `json:"id"`
	VariantID string           `json:"variant_id"`
	SKU       string           `json:"sku"`
	Quantity  decimal.Decimal  `json:"quantity"`
	UnitCost  *decimal.Decimal `json:"unit_cost,omitempty"`
	Status    workflow.Status  `json:"status"`
	Note      string           `json:"note,omitempty"`
	Version   int64            `json:"version"`
	UpdatedBy string           `json:"updated_by"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TicketResponse carries TotalCost, the sum of quantity times unit cost over
// priced lines that are not cancelled.
type TicketResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	SupplierName string                `json:"supplier_name,omitempty"`
	Status       workflow.TicketStatus `json:"status"`
	Note         string                `json:"note,omitempty"`
	TotalCost    decimal.Decimal       `json:"total_cost"`
	CreatedBy    string                `json:"created_by"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	Details      []DetailResponse      `json:"details"`
}

var (
	ErrInvalidTicketID     = errors.New("invalid_ticket_id")
	ErrInvalidDetailID     = errors.New("invalid_detail_id")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidQuantity     = errors.New("invalid_quantity")
	ErrInvalidUnitCost     = errors.New("invalid_unit_cost")
	ErrEmptyDetails        = errors.New("empty_details")
	ErrVariantKindMismatch = errors.New("variant_kind_mismatch")
)
