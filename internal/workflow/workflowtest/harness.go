// Package workflowtest wires an in-memory stack for ticket service tests.
package workflowtest

import (
	"context"
	"testing"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	catalogrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/repository"
	catalogservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/service"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	invdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/engine"
	invrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/testutil"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/workflow"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Harness struct {
	DB        *gorm.DB
	Log       *zap.Logger
	Node      *snowflake.Node
	Clock     *clock.FakeClock
	Catalog   catalogdomain.Service
	Inventory invdomain.Repository
	Engine    invdomain.Engine
	Runner    *workflow.Runner
}

// New migrates the shared tables plus the domain models and builds a runner
// over the real engine.
func New(t *testing.T, models ...any) *Harness {
	t.Helper()
	all := append([]any{
		&catalogdomain.Variant{},
		&invdomain.Record{},
		&invdomain.LedgerEntry{},
		&events.OutboxEvent{},
	}, models...)
	conn := testutil.OpenDB(t, all...)

	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC))
	node := testutil.Node(t)
	inv := invrepo.Provide()
	outbox := events.NewOutbox(clk)
	eng := engine.New(engine.Params{
		Log:    log,
		GenID:  node,
		Repo:   inv,
		Clock:  clk,
		Policy: config.NewStaticStockPolicyHolder(config.StockPolicy{}),
		Outbox: outbox,
	})

	catalog := catalogservice.New(catalogservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  catalogrepo.Provide(),
		Clock: clk,
	})

	return &Harness{
		DB:        conn,
		Log:       log,
		Node:      node,
		Clock:     clk,
		Catalog:   catalog,
		Inventory: inv,
		Engine:    eng,
		Runner: workflow.NewRunner(workflow.Params{
			DB:      conn,
			Log:     log,
			GenID:   node,
			UOW:     uow.NewRunner(conn, log, config.UOWConfig{MaxAttempts: 2}, nil),
			Locker:  lock.NewLocalLocker(nil),
			Engine:  eng,
			Catalog: catalog,
			Clock:   clk,
			Outbox:  outbox,
		}),
	}
}

// Variant registers a catalog variant and returns its id.
func (h *Harness) Variant(t *testing.T, sku string, kind catalogdomain.Kind) int64 {
	t.Helper()
	_, err := h.Catalog.Create(context.Background(), catalogdomain.CreateRequest{SKU: sku, Name: sku, Kind: string(kind)})
	require.NoError(t, err)
	v, err := h.Catalog.ResolveSKU(context.Background(), sku)
	require.NoError(t, err)
	return v.ID
}

// Receive puts qty straight into current stock.
func (h *Harness) Receive(t *testing.T, variantID int64, qty int64) {
	t.Helper()
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		_, err := h.Engine.Execute(context.Background(), tx, invdomain.OpAddToCurrent, invdomain.OperationRequest{
			VariantID: variantID,
			Quantity:  decimal.NewFromInt(qty),
			Source:    invdomain.SourceManualAdjustment,
			Actor:     actor.System,
		})
		return err
	})
	require.NoError(t, err)
}

// Stock returns the current, future and allocated buckets of a variant.
func (h *Harness) Stock(t *testing.T, variantID int64) (current, future, allocated string) {
	t.Helper()
	rec, err := h.Inventory.FindByVariantID(context.Background(), h.DB, variantID)
	require.NoError(t, err)
	if rec == nil {
		return "0", "0", "0"
	}
	return rec.CurrentStock.String(), rec.FutureStock.String(), rec.AllocatedStock.String()
}

// Operator is the acting user in ticket tests.
func Operator() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: 21, Username: "ops.user", Role: "OPERATOR"})
}
