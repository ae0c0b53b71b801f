package domain

import (
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/shopspring/decimal"
)

const DomainName = "purchasing"

const (
	StatusNew       workflow.Status = "NEW"
	StatusApproval  workflow.Status = "APPROVAL"
	StatusOrdered   workflow.Status = "ORDERED"
	StatusReceived  workflow.Status = "RECEIVED"
	StatusClosed    workflow.Status = "CLOSED"
	StatusCancelled workflow.Status = "CANCELLED"
)

// Graph is the purchasing-detail lifecycle. Placing the order books the
// material as on order; receipt moves it into current stock.
var Graph = workflow.MustGraph(workflow.Definition{
	Domain:        DomainName,
	ReferenceType: invdomain.ReferencePurchasingDetail,
	Initial:       StatusNew,
	Cancelled:     StatusCancelled,
	Success:       []workflow.Status{StatusReceived, StatusClosed},
	InProgress:    workflow.TicketInProgress,
	Edges: []workflow.Edge{
		{From: StatusNew, To: StatusApproval},
		{From: StatusApproval, To: StatusOrdered, Effects: []workflow.Effect{
			{Operation: invdomain.OpAddToFuture, Source: invdomain.SourcePurchaseOrder},
		}},
		{From: StatusOrdered, To: StatusReceived, Effects: []workflow.Effect{
			{Operation: invdomain.OpMoveFutureToCurrent, Source: invdomain.SourcePurchaseReceipt},
		}},
		{From: StatusReceived, To: StatusClosed},
		{From: StatusOrdered, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpRemoveFromFuture, Source: invdomain.SourcePurchaseCancellation},
		}},
		// Returned to supplier.
		{From: StatusReceived, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpRemoveFromCurrent, Source: invdomain.SourcePurchaseCancellation},
		}},
	},
})

var Tables = workflow.Tables{
	Tickets: "purchasing_tickets",
	Details: "purchasing_ticket_details",
	Logs:    "purchasing_detail_status_logs",
}

type Ticket struct {
	workflow.TicketColumns
	SupplierName string `json:"supplier_name" gorm:"type:varchar(255);not null;default:''"`
}

func (Ticket) TableName() string { return Tables.Tickets }

type Detail struct {
	workflow.DetailColumns
	UnitCost *decimal.Decimal `json:"unit_cost,omitempty" gorm:"type:numeric(18,4)"`
}

func (Detail) TableName() string { return Tables.Details }

type DetailStatusLog struct {
	workflow.StatusLog
}

func (DetailStatusLog) TableName() string { return Tables.Logs }
