package service

import (
	"errors"
	"testing"

	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow/workflowtest"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (domain.Service, *workflowtest.Harness) {
	h := workflowtest.New(t, &domain.Order{}, &domain.OrderDetail{}, &domain.DetailStatusLog{})
	return New(Params{
		DB:      h.DB,
		Log:     h.Log,
		GenID:   h.Node,
		Repo:    repository.Provide(),
		Catalog: h.Catalog,
		Runner:  h.Runner,
		Clock:   h.Clock,
	}), h
}

func line(sku string, qty int64) domain.LineInput {
	return domain.LineInput{SKU: sku, Quantity: decimal.NewFromInt(qty)}
}

func TestSalesOrderAllocatesShipsAndCompletes(t *testing.T) {
	svc, h := setup(t)
	chair := h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	h.Receive(t, chair, 10)
	ctx := workflowtest.Operator()

	price := decimal.RequireFromString("19.90")
	order, err := svc.Create(ctx, domain.CreateRequest{
		Name:         "SO-1001",
		CustomerName: "Blue Cafe",
		Lines: []domain.LineInput{
			{SKU: "CHAIR", Quantity: decimal.NewFromInt(4), UnitPrice: &price},
			line("CHAIR", 2),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "79.6", order.TotalAmount.String())
	a, b := order.Lines[0].ID, order.Lines[1].ID

	move := func(id string, to workflow.Status) *workflow.TransitionResult {
		t.Helper()
		res, err := svc.Transition(ctx, domain.TransitionRequest{DetailID: id, Status: string(to)})
		require.NoError(t, err)
		return res
	}

	res := move(a, domain.StatusConfirmed)
	assert.Equal(t, workflow.TicketPartialComplete, res.TicketStatus)
	move(a, domain.StatusAllocated)
	current, _, allocated := h.Stock(t, chair)
	assert.Equal(t, "10", current)
	assert.Equal(t, "4", allocated)

	move(a, domain.StatusShipped)
	current, _, allocated = h.Stock(t, chair)
	assert.Equal(t, "6", current)
	assert.Equal(t, "0", allocated)

	move(a, domain.StatusCompleted)
	move(b, domain.StatusConfirmed)
	move(b, domain.StatusAllocated)
	move(b, domain.StatusShipped)
	res = move(b, domain.StatusCompleted)
	assert.Equal(t, workflow.TicketComplete, res.TicketStatus)

	current, _, allocated = h.Stock(t, chair)
	assert.Equal(t, "4", current)
	assert.Equal(t, "0", allocated)
}

func TestAllocationBeyondAvailableFails(t *testing.T) {
	svc, h := setup(t)
	chair := h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	h.Receive(t, chair, 5)
	ctx := workflowtest.Operator()

	order, err := svc.Create(ctx, domain.CreateRequest{Name: "SO", Lines: []domain.LineInput{line("CHAIR", 3), line("CHAIR", 3)}})
	require.NoError(t, err)
	a, b := order.Lines[0].ID, order.Lines[1].ID
	for _, id := range []string{a, b} {
		_, err := svc.Transition(ctx, domain.TransitionRequest{DetailID: id, Status: "CONFIRMED"})
		require.NoError(t, err)
	}
	_, err = svc.Transition(ctx, domain.TransitionRequest{DetailID: a, Status: "ALLOCATED"})
	require.NoError(t, err)

	_, err = svc.Transition(ctx, domain.TransitionRequest{DetailID: b, Status: "ALLOCATED"})
	require.ErrorIs(t, err, invdomain.ErrInsufficientStock)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, got.Lines[1].Status)
	_, _, allocated := h.Stock(t, chair)
	assert.Equal(t, "3", allocated)
}

func TestCancelOrderReleasesAndReturns(t *testing.T) {
	svc, h := setup(t)
	chair := h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	h.Receive(t, chair, 8)
	ctx := workflowtest.Operator()

	order, err := svc.Create(ctx, domain.CreateRequest{Name: "SO", Lines: []domain.LineInput{
		line("CHAIR", 2), line("CHAIR", 3), line("CHAIR", 1),
	}})
	require.NoError(t, err)
	shipped, allocated, fresh := order.Lines[0].ID, order.Lines[1].ID, order.Lines[2].ID
	for _, step := range []struct {
		id string
		to workflow.Status
	}{
		{shipped, domain.StatusConfirmed}, {shipped, domain.StatusAllocated}, {shipped, domain.StatusShipped},
		{allocated, domain.StatusConfirmed}, {allocated, domain.StatusAllocated},
	} {
		_, err := svc.Transition(ctx, domain.TransitionRequest{DetailID: step.id, Status: string(step.to)})
		require.NoError(t, err)
	}
	current, _, reserved := h.Stock(t, chair)
	assert.Equal(t, "6", current)
	assert.Equal(t, "3", reserved)

	res, err := svc.CancelOrder(ctx, domain.CancelRequest{OrderID: order.ID, Reason: "customer withdrew"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.SuccessCount)
	assert.Zero(t, res.FailureCount)

	current, _, reserved = h.Stock(t, chair)
	assert.Equal(t, "8", current)
	assert.Equal(t, "0", reserved)

	got, err := svc.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, workflow.TicketCancelled, got.Status)
	for _, l := range got.Lines {
		assert.Equal(t, domain.StatusCancelled, l.Status)
	}

	logs, err := svc.ListStatusLogs(ctx, fresh)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "customer withdrew", logs[0].Reason)
}

func TestCompletedLineCannotBeCancelled(t *testing.T) {
	svc, h := setup(t)
	chair := h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	h.Receive(t, chair, 1)
	ctx := workflowtest.Operator()

	order, err := svc.Create(ctx, domain.CreateRequest{Name: "SO", Lines: []domain.LineInput{line("CHAIR", 1)}})
	require.NoError(t, err)
	id := order.Lines[0].ID
	for _, to := range []string{"confirmed", "allocated", "shipped", "completed"} {
		_, err := svc.Transition(ctx, domain.TransitionRequest{DetailID: id, Status: to})
		require.NoError(t, err)
	}

	_, err = svc.Transition(ctx, domain.TransitionRequest{DetailID: id, Status: "CANCELLED", Reason: "late"})
	require.ErrorIs(t, err, workflow.ErrIllegalTransition)

	res, err := svc.CancelOrder(ctx, domain.CancelRequest{OrderID: order.ID, Reason: "late"})
	require.NoError(t, err)
	assert.Zero(t, res.TotalProcessed)
}

func TestSalesRollupUsesPartialComplete(t *testing.T) {
	g := domain.Graph
	assert.Equal(t, workflow.TicketPartialComplete, g.Rollup([]workflow.Status{domain.StatusCompleted, domain.StatusShipped}))
	assert.Equal(t, workflow.TicketComplete, g.Rollup([]workflow.Status{domain.StatusCompleted, domain.StatusCompleted}))
	assert.Equal(t, workflow.TicketPartialCancelled, g.Rollup([]workflow.Status{domain.StatusCompleted, domain.StatusCompleted, domain.StatusCancelled}))
	assert.Equal(t, workflow.TicketNew, g.Rollup(nil))
}

func TestSalesBulkCreate(t *testing.T) {
	svc, h := setup(t)
	h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	h.Variant(t, "OAK", catalogdomain.KindMaterial)
	ctx := workflowtest.Operator()

	res, err := svc.BulkCreate(ctx, domain.BulkCreateRequest{Items: []domain.BulkCreateItem{
		{SKU: "CHAIR", Quantity: decimal.NewFromInt(1), CustomerName: "Blue Cafe"},
		{SKU: "OAK", Quantity: decimal.NewFromInt(1)},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, "Blue Cafe / CHAIR", res.Successes[0].Result.Name)
	assert.Equal(t, "variant_kind_mismatch", res.Failures[0].Code)

	list, err := svc.List(ctx, domain.ListRequest{CustomerName: "Blue Cafe"})
	require.NoError(t, err)
	assert.Len(t, list.Orders, 1)
}

func TestSalesGraphIsExhaustive(t *testing.T) {
	allowed := map[workflow.Status][]workflow.Status{
		domain.StatusNew:       {domain.StatusConfirmed, domain.StatusCancelled},
		domain.StatusConfirmed: {domain.StatusAllocated, domain.StatusCancelled},
		domain.StatusAllocated: {domain.StatusShipped, domain.StatusCancelled},
		domain.StatusShipped:   {domain.StatusCompleted, domain.StatusCancelled},
	}
	for _, from := range domain.Graph.Statuses() {
		assert.ElementsMatch(t, allowed[from], domain.Graph.Successors(from), "%s", from)
		for _, to := range domain.Graph.Statuses() {
			_, err := domain.Graph.Next(from, to)
			permitted := false
			for _, s := range allowed[from] {
				permitted = permitted || s == to
			}
			if permitted {
				assert.NoError(t, err, "%s -> %s", from, to)
				continue
			}
			var illegal *workflow.IllegalTransitionError
			assert.True(t, errors.As(err, &illegal), "%s -> %s", from, to)
		}
	}
	assert.True(t, domain.Graph.IsTerminal(domain.StatusCompleted))
	assert.True(t, domain.Graph.IsTerminal(domain.StatusCancelled))
}

func TestCreateOrderOpensInventoryRecord(t *testing.T) {
	svc, h := setup(t)
	chair := h.Variant(t, "CHAIR", catalogdomain.KindProduct)
	ctx := workflowtest.Operator()

	_, err := svc.Create(ctx, domain.CreateRequest{Name: "SO", Lines: []domain.LineInput{line("CHAIR", 2)}})
	require.NoError(t, err)

	rec, err := h.Inventory.FindByVariantID(ctx, h.DB, chair)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, invdomain.StatusOutOfStock, rec.Status)
	assert.True(t, rec.AllocatedStock.IsZero())
}
