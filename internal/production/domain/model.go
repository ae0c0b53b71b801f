package domain

import (
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
)

const DomainName = "production"

const (
	StatusNew       workflow.Status = "NEW"
	StatusApproval  workflow.Status = "APPROVAL"
	StatusComplete  workflow.Status = "COMPLETE"
	StatusReady     workflow.Status = "READY"
	StatusClosed    workflow.Status = "CLOSED"
	StatusCancelled workflow.Status = "CANCELLED"
)

// Graph is the production-detail lifecycle. Approval books the planned output
// as future stock; READY is reached only through COMPLETE and moves it to
// current stock.
var Graph = workflow.MustGraph(workflow.Definition{
	Domain:        DomainName,
	ReferenceType: invdomain.ReferenceProductionDetail,
	Initial:       StatusNew,
	Cancelled:     StatusCancelled,
	Success:       []workflow.Status{StatusComplete, StatusReady, StatusClosed},
	InProgress:    workflow.TicketInProgress,
	Edges: []workflow.Edge{
		{From: StatusNew, To: StatusApproval, Effects: []workflow.Effect{
			{Operation: invdomain.OpAddToFuture, Source: invdomain.SourceProductionApproval},
		}},
		{From: StatusApproval, To: StatusComplete},
		{From: StatusComplete, To: StatusReady, Effects: []workflow.Effect{
			{Operation: invdomain.OpMoveFutureToCurrent, Source: invdomain.SourceProductionCompletion},
		}},
		{From: StatusReady, To: StatusClosed},
		{From: StatusApproval, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpRemoveFromFuture, Source: invdomain.SourceProductionCancellation},
		}},
		{From: StatusComplete, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpRemoveFromFuture, Source: invdomain.SourceProductionCancellation},
		}},
		{From: StatusReady, To: StatusCancelled, Effects: []workflow.Effect{
			{Operation: invdomain.OpRemoveFromCurrent, Source: invdomain.SourceProductionCancellation},
		}},
	},
})

var Tables = workflow.Tables{
	Tickets: "production_tickets",
	Details: "production_ticket_details",
	Logs:    "production_detail_status_logs",
}

type Ticket struct {
	workflow.TicketColumns
}

func (Ticket) TableName() string { return Tables.Tickets }

type Detail struct {
	workflow.DetailColumns
	// BOMCode names the bill of materials the run is built from.
	BOMCode *string `json:"bom_code,omitempty" gorm:"type:varchar(64)"`
}

func (Detail) TableName() string { return Tables.Details }

type DetailStatusLog struct {
	workflow.StatusLog
}

func (DetailStatusLog) TableName() string { return Tables.Logs }
