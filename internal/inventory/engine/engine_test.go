package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const variantID int64 = 100

var operator = actor.Actor{ID: 7, Username: "warehouse", Role: "WAREHOUSE_STAFF"}

type fixture struct {
	conn   *gorm.DB
	engine domain.Engine
	repo   domain.Repository
}

func newFixture(t *testing.T, policy config.StockPolicy) fixture {
	conn := testutil.OpenDB(t, &domain.Record{}, &domain.LedgerEntry{}, &events.OutboxEvent{})
	clk := clock.NewFakeClock(time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC))
	repo := repository.Provide()
	eng := New(Params{
		Log:    zap.NewNop(),
		GenID:  testutil.Node(t),
		Repo:   repo,
		Clock:  clk,
		Policy: config.NewStaticStockPolicyHolder(policy),
		Outbox: events.NewOutbox(clk),
	})
	return fixture{conn: conn, engine: eng, repo: repo}
}

func (f fixture) execute(op domain.Operation, qty int64) error {
	return f.conn.Transaction(func(tx *gorm.DB) error {
		_, err := f.engine.Execute(context.Background(), tx, op, domain.OperationRequest{
			VariantID: variantID,
			Quantity:  decimal.NewFromInt(qty),
			Source:    domain.SourceManualAdjustment,
			Actor:     operator,
		})
		return err
	})
}

func (f fixture) record(t *testing.T) *domain.Record {
	t.Helper()
	rec, err := f.repo.FindByVariantID(context.Background(), f.conn, variantID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	return rec
}

func TestExecuteMovesFutureIntoCurrent(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())

	require.NoError(t, f.execute(domain.OpAddToFuture, 10))
	rec := f.record(t)
	assert.Equal(t, "10", rec.FutureStock.String())
	assert.Equal(t, "0", rec.CurrentStock.String())

	require.NoError(t, f.execute(domain.OpMoveFutureToCurrent, 10))
	rec = f.record(t)
	assert.Equal(t, "0", rec.FutureStock.String())
	assert.Equal(t, "10", rec.CurrentStock.String())
	assert.Equal(t, domain.StatusInStock, rec.Status)

	err := f.execute(domain.OpRemoveFromCurrent, 15)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, domain.BucketCurrent, insufficient.Bucket)
	assert.Equal(t, "10", insufficient.Available.String())

	rec = f.record(t)
	assert.Equal(t, "10", rec.CurrentStock.String())
}

func TestExecuteIsAllOrNothing(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())
	require.NoError(t, f.execute(domain.OpAddToCurrent, 10))
	require.NoError(t, f.execute(domain.OpAllocate, 2))

	// allocated cannot cover 5
	err := f.execute(domain.OpFulfill, 5)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	rec := f.record(t)
	assert.Equal(t, "10", rec.CurrentStock.String())
	assert.Equal(t, "2", rec.AllocatedStock.String())

	var count int64
	require.NoError(t, f.conn.Model(&domain.LedgerEntry{}).Count(&count).Error)
	assert.Equal(t, int64(3), count)
}

func TestAllocationIsBoundedByAvailable(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())
	require.NoError(t, f.execute(domain.OpAddToCurrent, 5))

	require.ErrorIs(t, f.execute(domain.OpAllocate, 6), domain.ErrInsufficientStock)
	require.NoError(t, f.execute(domain.OpAllocate, 5))
	assert.Equal(t, "0", f.record(t).Available().String())

	require.ErrorIs(t, f.execute(domain.OpSetCurrent, 4), domain.ErrInsufficientStock)

	require.NoError(t, f.execute(domain.OpFulfill, 5))
	rec := f.record(t)
	assert.Equal(t, "0", rec.CurrentStock.String())
	assert.Equal(t, "0", rec.AllocatedStock.String())
	assert.Equal(t, domain.StatusOutOfStock, rec.Status)
}

func TestLedgerChainsBeforeAndAfterPerBucket(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())
	steps := []struct {
		op  domain.Operation
		qty int64
	}{
		{domain.OpAddToFuture, 8},
		{domain.OpMoveFutureToCurrent, 5},
		{domain.OpAllocate, 3},
		{domain.OpRemoveFromFuture, 3},
		{domain.OpSetCurrent, 12},
		{domain.OpReleaseAllocation, 1},
		{domain.OpFulfill, 2},
	}
	for _, s := range steps {
		require.NoError(t, f.execute(s.op, s.qty), s.op)
	}

	var entries []domain.LedgerEntry
	require.NoError(t, f.conn.Order("id asc").Find(&entries).Error)

	last := map[domain.Bucket]decimal.Decimal{}
	for _, e := range entries {
		if prev, ok := last[e.Bucket]; ok {
			assert.True(t, prev.Equal(e.BeforeQuantity), "entry %d on %s", e.ID, e.Bucket)
		}
		assert.False(t, e.AfterQuantity.IsNegative())
		last[e.Bucket] = e.AfterQuantity
	}

	rec := f.record(t)
	assert.True(t, last[domain.BucketCurrent].Equal(rec.CurrentStock))
	assert.True(t, last[domain.BucketFuture].Equal(rec.FutureStock))
	assert.True(t, last[domain.BucketAllocated].Equal(rec.AllocatedStock))
	assert.Equal(t, "10", rec.CurrentStock.String())
	assert.Equal(t, "0", rec.FutureStock.String())
	assert.Equal(t, "0", rec.AllocatedStock.String())
}

func TestGetOrCreateWritesInitEntryOnce(t *testing.T) {
	f := newFixture(t, config.StockPolicy{DefaultMinAlertStock: 4, DefaultMaxStockLevel: 40})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, f.conn.Transaction(func(tx *gorm.DB) error {
			_, err := f.engine.GetOrCreate(ctx, tx, variantID, operator)
			return err
		}))
	}

	var entries []domain.LedgerEntry
	require.NoError(t, f.conn.Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, domain.SourceInventoryInit, entries[0].SourceType)
	assert.Equal(t, domain.TransactionSet, entries[0].TransactionType)

	rec := f.record(t)
	assert.Equal(t, "4", rec.MinAlertStock.String())
	assert.Equal(t, "40", rec.MaxStockLevel.String())
	assert.Equal(t, domain.StatusOutOfStock, rec.Status)
}

func TestLowStockEventEmittedOnEntry(t *testing.T) {
	f := newFixture(t, config.StockPolicy{DefaultMinAlertStock: 5, LowStockEvents: true})

	require.NoError(t, f.execute(domain.OpAddToCurrent, 3))
	require.NoError(t, f.execute(domain.OpAddToCurrent, 1))
	assert.Equal(t, domain.StatusLowStock, f.record(t).Status)

	var rows []events.OutboxEvent
	require.NoError(t, f.conn.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, events.EventInventoryLowStock, rows[0].EventType)
	assert.Equal(t, "LOW_STOCK", rows[0].Payload["status"])
}

func TestApplyValidation(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.MutationRequest
		want error
	}{
		{"no actor", domain.MutationRequest{VariantID: variantID, Bucket: domain.BucketCurrent, Type: domain.TransactionIn, Quantity: decimal.NewFromInt(1), Source: domain.SourceManualAdjustment}, actor.ErrActorRequired},
		{"zero in", domain.MutationRequest{VariantID: variantID, Bucket: domain.BucketCurrent, Type: domain.TransactionIn, Quantity: decimal.Zero, Source: domain.SourceManualAdjustment, Actor: operator}, domain.ErrInvalidQuantity},
		{"negative set", domain.MutationRequest{VariantID: variantID, Bucket: domain.BucketCurrent, Type: domain.TransactionSet, Quantity: decimal.NewFromInt(-1), Source: domain.SourceManualAdjustment, Actor: operator}, domain.ErrInvalidQuantity},
		{"bad bucket", domain.MutationRequest{VariantID: variantID, Bucket: "SHELF", Type: domain.TransactionIn, Quantity: decimal.NewFromInt(1), Source: domain.SourceManualAdjustment, Actor: operator}, domain.ErrInvalidBucket},
		{"no variant", domain.MutationRequest{Bucket: domain.BucketCurrent, Type: domain.TransactionIn, Quantity: decimal.NewFromInt(1), Source: domain.SourceManualAdjustment, Actor: operator}, domain.ErrInvalidVariantID},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.engine.Apply(ctx, f.conn, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.engine.Execute(ctx, f.conn, "teleport", domain.OperationRequest{VariantID: variantID, Quantity: decimal.NewFromInt(1), Actor: operator})
	assert.ErrorIs(t, err, domain.ErrInvalidOperation)
}

func TestRemovingCurrentKeepsAllocationCovered(t *testing.T) {
	f := newFixture(t, config.DefaultStockPolicy())
	require.NoError(t, f.execute(domain.OpAddToCurrent, 10))
	require.NoError(t, f.execute(domain.OpAllocate, 4))

	err := f.execute(domain.OpRemoveFromCurrent, 7)
	var insufficient *domain.InsufficientStockError
	require.True(t, errors.As(err, &insufficient))
	assert.Equal(t, domain.BucketCurrent, insufficient.Bucket)
	assert.Equal(t, "6", insufficient.Available.String())

	rec := f.record(t)
	assert.Equal(t, "10", rec.CurrentStock.String())
	assert.Equal(t, "6", rec.Available().String())

	require.NoError(t, f.execute(domain.OpRemoveFromCurrent, 6))
	rec = f.record(t)
	assert.Equal(t, "4", rec.CurrentStock.String())
	assert.Equal(t, "0", rec.Available().String())

	// fulfilling the whole reservation empties both buckets
	require.NoError(t, f.execute(domain.OpFulfill, 4))
	rec = f.record(t)
	assert.Equal(t, "0", rec.CurrentStock.String())
	assert.Equal(t, "0", rec.AllocatedStock.String())
}
