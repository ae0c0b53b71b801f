package workflow

import (
	"errors"
	"testing"

	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	stNew       Status = "NEW"
	stApproval  Status = "APPROVAL"
	stDone      Status = "DONE"
	stClosed    Status = "CLOSED"
	stCancelled Status = "CANCELLED"
)

func testDefinition() Definition {
	return Definition{
		Domain:        "assembly",
		ReferenceType: "ASSEMBLY_DETAIL",
		Initial:       stNew,
		Cancelled:     stCancelled,
		Success:       []Status{stDone, stClosed},
		Edges: []Edge{
			{From: stNew, To: stApproval, Effects: []Effect{{invdomain.OpAddToFuture, invdomain.SourceProductionApproval}}},
			{From: stApproval, To: stDone, Effects: []Effect{{invdomain.OpMoveFutureToCurrent, invdomain.SourceProductionCompletion}}},
			{From: stDone, To: stClosed},
			{From: stApproval, To: stCancelled, Effects: []Effect{{invdomain.OpRemoveFromFuture, invdomain.SourceProductionCancellation}}},
			{From: stDone, To: stCancelled, Effects: []Effect{{invdomain.OpRemoveFromCurrent, invdomain.SourceProductionCancellation}}},
		},
	}
}

func TestGraphAddsCancelEdgeFromEveryOpenStatus(t *testing.T) {
	g := MustGraph(testDefinition())

	assert.Equal(t, []Status{stApproval, stCancelled}, g.Successors(stNew))
	assert.True(t, g.IsTerminal(stClosed))
	assert.True(t, g.IsTerminal(stCancelled))
	assert.False(t, g.IsTerminal(stDone))
	assert.Equal(t, TicketInProgress, g.def.InProgress)

	effects, err := g.Next(stNew, stCancelled)
	require.NoError(t, err)
	assert.Empty(t, effects)
}

func TestNextRejectsEveryPairOutsideTheTable(t *testing.T) {
	g := MustGraph(testDefinition())
	legal := map[[2]Status]bool{
		{stNew, stApproval}:       true,
		{stApproval, stDone}:      true,
		{stDone, stClosed}:        true,
		{stNew, stCancelled}:      true,
		{stApproval, stCancelled}: true,
		{stDone, stCancelled}:     true,
	}

	for _, from := range g.Statuses() {
		for _, to := range append(g.Statuses(), "UNKNOWN") {
			_, err := g.Next(from, to)
			if legal[[2]Status{from, to}] {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			var illegal *IllegalTransitionError
			require.True(t, errors.As(err, &illegal), "%s -> %s", from, to)
			assert.Equal(t, from, illegal.Current)
			assert.Equal(t, to, illegal.Requested)
			assert.ErrorIs(t, err, ErrIllegalTransition)
		}
	}
}

func TestNewGraphRejectsBadDefinitions(t *testing.T) {
	cases := map[string]func(d *Definition){
		"missing domain":       func(d *Definition) { d.Domain = "" },
		"edge from cancelled":  func(d *Definition) { d.Edges = append(d.Edges, Edge{From: stCancelled, To: stNew}) },
		"self loop":            func(d *Definition) { d.Edges = append(d.Edges, Edge{From: stNew, To: stNew}) },
		"duplicate edge":       func(d *Definition) { d.Edges = append(d.Edges, Edge{From: stNew, To: stApproval}) },
		"unknown operation":    func(d *Definition) { d.Edges[0].Effects = []Effect{{Operation: "teleport"}} },
		"unknown success":      func(d *Definition) { d.Success = []Status{"SHIPPED"} },
		"cancel-only terminal": func(d *Definition) { d.Edges = append(d.Edges, Edge{From: stClosed, To: stCancelled}) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			def := testDefinition()
			mutate(&def)
			_, err := NewGraph(def)
			assert.ErrorIs(t, err, ErrInvalidGraph)
		})
	}
}

func TestRollup(t *testing.T) {
	g := MustGraph(testDefinition())
	cases := []struct {
		name     string
		statuses []Status
		want     TicketStatus
	}{
		{"no details", nil, TicketNew},
		{"all new", []Status{stNew, stNew}, TicketNew},
		{"all cancelled", []Status{stCancelled, stCancelled}, TicketCancelled},
		{"done and cancelled", []Status{stDone, stDone, stCancelled}, TicketPartialCancelled},
		{"new and cancelled", []Status{stNew, stCancelled}, TicketPartialCancelled},
		{"all in success set", []Status{stDone, stClosed}, TicketComplete},
		{"mixed", []Status{stNew, stApproval}, TicketInProgress},
		{"approval only", []Status{stApproval}, TicketInProgress},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, g.Rollup(tc.statuses))
		})
	}
}
