package domain

import (
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/shopspring/decimal"
)

const DomainName = "sales"

const (
	StatusNew       workflow.Status = "NEW"
	StatusConfirmed workflow.Status = "CONFIRMED"
	StatusAllocated workflow.Status = "ALLOCATED"
	StatusShipped   workflow.Status = "SHIPPED"
	StatusCompleted workflow.Status = "COMPLETED"
	StatusCancelled workflow.Status = "CANCELLED"
)

// Graph is the sales-order-detail lifecycle. Allocation reserves available
// stock; shipping consumes the reservation.
var Graph = workflow.MustGraph(workflow.Definition{
	Domain:        DomainName,
	ReferenceType: invdomain.ReferenceSalesDetail,
	Initial:       StatusNew,
	Cancelled:     StatusCancelled,
	Success:       []workflow.Status{StatusCompleted},
	InProgress:    workflow.TicketPartialComplete,
	Edges: []workflow.Edge{
		{From: StatusNew, To: StatusConfirmed},
		{From: StatusConfirmed, To: StatusAllocated, Effects: []workflow.Effect{
			{Operation: invdomain.OpAllocate, Source: invdomain.SourceSalesOrderAllocation},
		}},
		{From: StatusAllocated, To: StatusShipped, Effects: []workflow.Effect{
			{Operation: invdomain.OpFulfill, Source: invdomain.SourceSalesOrderFulfillment},
		}},
		{From: StatusShipped, To: StatusCompleted},
		{From: StatusAllocated, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpReleaseAllocation, Source: invdomain.SourceSalesOrderCancellation},
		}},
		{From: StatusShipped, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpAddToCurrent, Source: invdomain.SourceSalesOrderReturn},
		}},
	},
})

var Tables = workflow.Tables{
	Tickets: "sales_orders",
	Details: "sales_order_details",
	Logs:    "sales_order_detail_status_logs",
}

type Order struct {
	workflow.TicketColumns
	CustomerName string `json:"customer_name" gorm:"type:varchar(255);not null;default:''"`
}

func (Order) TableName() string { return Tables.Tickets }

type OrderDetail struct {
	workflow.DetailColumns
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty" gorm:"type:numeric(18,4)"`
}

func (OrderDetail) TableName() string { return Tables.Details }

type DetailStatusLog struct {
	workflow.StatusLog
}

func (DetailStatusLog) TableName() string { return Tables.Logs }
