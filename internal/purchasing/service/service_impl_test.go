package service

import (
	"errors"
	"testing"

	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/purchasing/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow/workflowtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc domain.Service
	h   *workflowtest.Harness
}

func newFixture(t *testing.T) fixture {
	h := workflowtest.New(t, &domain.Ticket{}, &domain.Detail{}, &domain.DetailStatusLog{})
	return fixture{
		h: h,
		svc: New(Params{
			DB:      h.DB,
			Log:     h.Log,
			GenID:   h.Node,
			Repo:    repository.Provide(),
			Catalog: h.Catalog,
			Runner:  h.Runner,
			Clock:   h.Clock,
		}),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func (f fixture) advance(t *testing.T, id string, to workflow.Status, reason string) *workflow.TransitionResult {
	t.Helper()
	res, err := f.svc.Transition(workflowtest.Operator(), domain.TransitionRequest{DetailID: id, Status: string(to), Reason: reason})
	require.NoError(t, err)
	return res
}

func TestPurchaseReceiptMovesOnOrderIntoStock(t *testing.T) {
	f := newFixture(t)
	steel := f.h.Variant(t, "STEEL", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	ticket, err := f.svc.Create(ctx, domain.CreateRequest{
		Name:         "PO 118",
		SupplierName: "Acme Metals",
		Details: []domain.DetailInput{
			{SKU: "steel", Quantity: dec("12.5"), UnitCost: ptr(dec("4"))},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Acme Metals", ticket.SupplierName)
	assert.True(t, dec("50").Equal(ticket.TotalCost))
	id := ticket.Details[0].ID

	f.advance(t, id, domain.StatusApproval, "")
	_, future, _ := f.h.Stock(t, steel)
	assert.Equal(t, "0", future)

	f.advance(t, id, domain.StatusOrdered, "")
	current, future, _ := f.h.Stock(t, steel)
	assert.Equal(t, "0", current)
	assert.Equal(t, "12.5", future)

	res := f.advance(t, id, domain.StatusReceived, "")
	assert.Equal(t, workflow.TicketComplete, res.TicketStatus)
	require.Len(t, res.Entries, 2)
	current, future, _ = f.h.Stock(t, steel)
	assert.Equal(t, "12.5", current)
	assert.Equal(t, "0", future)

	res = f.advance(t, id, domain.StatusClosed, "")
	assert.Equal(t, workflow.TicketComplete, res.TicketStatus)
	assert.Empty(t, res.Entries)
}

func TestReturnToSupplierRemovesCurrent(t *testing.T) {
	f := newFixture(t)
	steel := f.h.Variant(t, "STEEL", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	ticket, err := f.svc.Create(ctx, domain.CreateRequest{Name: "PO 9", Details: []domain.DetailInput{
		{SKU: "STEEL", Quantity: dec("6")},
		{SKU: "STEEL", Quantity: dec("4")},
	}})
	require.NoError(t, err)
	a, b := ticket.Details[0].ID, ticket.Details[1].ID
	for _, id := range []string{a, b} {
		f.advance(t, id, domain.StatusApproval, "")
		f.advance(t, id, domain.StatusOrdered, "")
	}
	f.advance(t, a, domain.StatusReceived, "")

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{DetailID: a, Status: "CANCELLED"})
	require.ErrorIs(t, err, workflow.ErrReasonRequired)

	res := f.advance(t, a, domain.StatusCancelled, "damaged on arrival")
	assert.Equal(t, workflow.TicketPartialCancelled, res.TicketStatus)
	res = f.advance(t, b, domain.StatusCancelled, "supplier out of stock")
	assert.Equal(t, workflow.TicketCancelled, res.TicketStatus)

	current, future, _ := f.h.Stock(t, steel)
	assert.Equal(t, "0", current)
	assert.Equal(t, "0", future)

	got, err := f.svc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalCost.IsZero())
}

func TestPurchasingRejectsProducts(t *testing.T) {
	f := newFixture(t)
	f.h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	f.h.Variant(t, "STEEL", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	_, err := f.svc.Create(ctx, domain.CreateRequest{Name: "PO", Details: []domain.DetailInput{{SKU: "CHAIR", Quantity: dec("1")}}})
	assert.ErrorIs(t, err, domain.ErrVariantKindMismatch)

	_, err = f.svc.Create(ctx, domain.CreateRequest{Name: "PO", Details: []domain.DetailInput{{SKU: "STEEL", Quantity: dec("1"), UnitCost: ptr(dec("-1"))}}})
	assert.ErrorIs(t, err, domain.ErrInvalidUnitCost)

	_, err = f.svc.Create(ctx, domain.CreateRequest{Name: "PO", Details: []domain.DetailInput{{SKU: "STEEL", Quantity: dec("-2")}}})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
}

func TestFailedReceiptLeavesDetailOrdered(t *testing.T) {
	f := newFixture(t)
	steel := f.h.Variant(t, "STEEL", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	ticket, err := f.svc.Create(ctx, domain.CreateRequest{Name: "PO", Details: []domain.DetailInput{{SKU: "STEEL", Quantity: dec("5")}}})
	require.NoError(t, err)
	id := ticket.Details[0].ID
	f.advance(t, id, domain.StatusApproval, "")
	f.advance(t, id, domain.StatusOrdered, "")

	// Drain the on-order quantity behind the ticket's back.
	rec, err := f.h.Inventory.FindByVariantID(ctx, f.h.DB, steel)
	require.NoError(t, err)
	require.NoError(t, f.h.DB.Model(rec).Update("future_stock", decimal.NewFromInt(1)).Error)

	_, err = f.svc.Transition(ctx, domain.TransitionRequest{DetailID: id, Status: "RECEIVED"})
	require.Error(t, err)

	got, err := f.svc.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOrdered, got.Details[0].Status)
	logs, err := f.svc.ListStatusLogs(ctx, id)
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

func TestPurchasingGraphIsExhaustive(t *testing.T) {
	allowed := map[workflow.Status][]workflow.Status{
		domain.StatusNew:      {domain.StatusApproval, domain.StatusCancelled},
		domain.StatusApproval: {domain.StatusOrdered, domain.StatusCancelled},
		domain.StatusOrdered:  {domain.StatusReceived, domain.StatusCancelled},
		domain.StatusReceived: {domain.StatusClosed, domain.StatusCancelled},
	}
	for _, from := range domain.Graph.Statuses() {
		assert.ElementsMatch(t, allowed[from], domain.Graph.Successors(from), "%s", from)
		for _, to := range domain.Graph.Statuses() {
			_, err := domain.Graph.Next(from, to)
			var illegal *workflow.IllegalTransitionError
			if contains(allowed[from], to) {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.As(err, &illegal), "%s -> %s", from, to)
			}
		}
	}
	assert.True(t, domain.Graph.IsTerminal(domain.StatusClosed))
	assert.True(t, domain.Graph.IsTerminal(domain.StatusCancelled))
}

func contains(list []workflow.Status, s workflow.Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func TestBulkCreatePurchases(t *testing.T) {
	f := newFixture(t)
	f.h.Variant(t, "STEEL", catalogdomain.KindMaterial)
	f.h.Variant(t, "OAK", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	res, err := f.svc.BulkCreate(ctx, domain.BulkCreateRequest{Items: []domain.BulkCreateItem{
		{SKU: "STEEL", Quantity: dec("3"), SupplierName: "Acme"},
		{SKU: "OAK", Quantity: dec("0")},
		{SKU: "oak", Quantity: dec("2"), SupplierName: "Timber Co"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	assert.Equal(t, "invalid_quantity", res.Failures[0].Code)
	require.Len(t, res.Items, 3)
	assert.Equal(t, "OAK", res.Items[2].Key)

	list, err := f.svc.List(ctx, domain.ListRequest{SupplierName: "Acme"})
	require.NoError(t, err)
	require.Len(t, list.Tickets, 1)
	assert.Equal(t, "Purchase STEEL", list.Tickets[0].Name)
}
