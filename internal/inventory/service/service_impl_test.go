package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	auditrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/repository"
	auditservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/service"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	catalogrepo "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/repository"
	catalogservice "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/service"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/engine"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/repository"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/testutil"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fixture struct {
	conn    *gorm.DB
	svc     domain.Service
	catalog catalogdomain.Service
}

func newFixture(t *testing.T) fixture {
	conn := testutil.OpenDB(t,
		&catalogdomain.Variant{},
		&domain.Record{},
		&domain.LedgerEntry{},
		&auditdomain.AuditLog{},
		&events.OutboxEvent{},
	)
	log := zap.NewNop()
	clk := clock.NewFakeClock(time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC))
	node := testutil.Node(t)
	repo := repository.Provide()

	catalog := catalogservice.New(catalogservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  catalogrepo.Provide(),
		Clock: clk,
	})
	audit := auditservice.NewService(auditservice.Params{
		DB:    conn,
		Log:   log,
		GenID: node,
		Repo:  auditrepo.Provide(),
		Clock: clk,
	})
	eng := engine.New(engine.Params{
		Log:    log,
		GenID:  node,
		Repo:   repo,
		Clock:  clk,
		Policy: config.NewStaticStockPolicyHolder(config.DefaultStockPolicy()),
		Outbox: events.NewOutbox(clk),
	})
	svc := New(Params{
		DB:       conn,
		Log:      log,
		UOW:      uow.NewRunner(conn, log, config.UOWConfig{MaxAttempts: 3}, nil),
		Locker:   lock.NewLocalLocker(nil),
		Engine:   eng,
		Repo:     repo,
		Catalog:  catalog,
		Clock:    clk,
		AuditSvc: audit,
	})
	return fixture{conn: conn, svc: svc, catalog: catalog}
}

func (f fixture) variant(t *testing.T, sku string) *catalogdomain.Response {
	t.Helper()
	v, err := f.catalog.Create(context.Background(), catalogdomain.CreateRequest{SKU: sku, Name: sku, Kind: "PRODUCT"})
	require.NoError(t, err)
	return v
}

func operatorCtx() context.Context {
	return actor.WithActor(context.Background(), actor.Actor{ID: 3, Username: "stock.clerk", Role: "WAREHOUSE_STAFF"})
}

func qty(n int64) decimal.Decimal { return decimal.NewFromInt(n) }

func TestAdjustRequiresActor(t *testing.T) {
	f := newFixture(t)
	f.variant(t, "P-1")

	_, err := f.svc.Adjust(context.Background(), domain.AdjustRequest{SKU: "P-1", Mode: domain.AdjustAdd, Quantity: qty(1)})
	assert.ErrorIs(t, err, actor.ErrActorRequired)
}

func TestAdjustModes(t *testing.T) {
	f := newFixture(t)
	f.variant(t, "P-1")
	ctx := operatorCtx()

	resp, err := f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "p-1", Mode: domain.AdjustAdd, Quantity: qty(10)})
	require.NoError(t, err)
	assert.Equal(t, "10", resp.CurrentStock.String())
	assert.Equal(t, "P-1", resp.SKU)

	_, err = f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "P-1", Mode: domain.AdjustSubtract, Quantity: qty(15)})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	resp, err = f.svc.GetBySKU(ctx, "P-1")
	require.NoError(t, err)
	assert.Equal(t, "10", resp.CurrentStock.String())

	resp, err = f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "P-1", Mode: domain.AdjustSet, Quantity: qty(3), Note: "cycle count"})
	require.NoError(t, err)
	assert.Equal(t, "3", resp.CurrentStock.String())

	_, err = f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "P-1", Mode: "MULTIPLY", Quantity: qty(3)})
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustMode)
	_, err = f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "P-1", Mode: domain.AdjustAdd, Quantity: qty(0)})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	var audits int64
	require.NoError(t, f.conn.Model(&auditdomain.AuditLog{}).Count(&audits).Error)
	assert.Equal(t, int64(2), audits)

	var entries int64
	require.NoError(t, f.conn.Model(&domain.LedgerEntry{}).Count(&entries).Error)
	assert.Equal(t, int64(3), entries)
}

func TestAdjustUnknownSKU(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Adjust(operatorCtx(), domain.AdjustRequest{SKU: "NOPE", Mode: domain.AdjustAdd, Quantity: qty(1)})
	assert.ErrorIs(t, err, catalogdomain.ErrVariantNotFound)
}

func TestBulkAdjustIsolatesFailures(t *testing.T) {
	f := newFixture(t)
	for _, sku := range []string{"A-1", "A-2", "A-4", "A-5"} {
		f.variant(t, sku)
	}

	res, err := f.svc.BulkAdjust(operatorCtx(), domain.BulkAdjustRequest{
		Mode: domain.AdjustAdd,
		Note: "opening balance",
		Items: []domain.BulkAdjustItem{
			{SKU: "A-1", Quantity: qty(1)},
			{SKU: "A-2", Quantity: qty(2)},
			{SKU: "A-3", Quantity: qty(3)},
			{SKU: "A-4", Quantity: qty(4)},
			{SKU: "A-5", Quantity: qty(5)},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 5, res.TotalProcessed)
	assert.Equal(t, 4, res.SuccessCount)
	assert.Equal(t, 1, res.FailureCount)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, 2, res.Failures[0].Index)
	assert.Equal(t, "A-3", res.Failures[0].Key)
	assert.Equal(t, "variant_not_found", res.Failures[0].Code)

	require.Len(t, res.Items, 5)
	for i, item := range res.Items {
		assert.Equal(t, i, item.Index)
	}

	resp, err := f.svc.GetBySKU(context.Background(), "A-5")
	require.NoError(t, err)
	assert.Equal(t, "5", resp.CurrentStock.String())
}

func TestBulkAdjustRejectsEmptyAndBadMode(t *testing.T) {
	f := newFixture(t)
	ctx := operatorCtx()

	_, err := f.svc.BulkAdjust(ctx, domain.BulkAdjustRequest{Mode: domain.AdjustAdd})
	assert.ErrorIs(t, err, domain.ErrEmptyBatch)
	_, err = f.svc.BulkAdjust(ctx, domain.BulkAdjustRequest{Mode: "NOPE", Items: []domain.BulkAdjustItem{{SKU: "X"}}})
	assert.ErrorIs(t, err, domain.ErrInvalidAdjustMode)
}

func TestConcurrentAddsAreSerialised(t *testing.T) {
	f := newFixture(t)
	f.variant(t, "HOT-1")
	ctx := operatorCtx()

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "HOT-1", Mode: domain.AdjustAdd, Quantity: qty(1)})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	resp, err := f.svc.GetBySKU(ctx, "HOT-1")
	require.NoError(t, err)
	assert.Equal(t, "8", resp.CurrentStock.String())
	assert.Equal(t, int64(writers), resp.Version)

	var entries []domain.LedgerEntry
	require.NoError(t, f.conn.Where("stock_type = ?", domain.BucketCurrent).Order("id asc").Find(&entries).Error)
	require.Len(t, entries, writers+1)
	for i := 1; i < len(entries); i++ {
		assert.True(t, entries[i-1].AfterQuantity.Equal(entries[i].BeforeQuantity))
	}
}

func TestUpdateThresholdsDerivesStatus(t *testing.T) {
	f := newFixture(t)
	f.variant(t, "T-1")
	ctx := operatorCtx()

	_, err := f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "T-1", Mode: domain.AdjustAdd, Quantity: qty(10)})
	require.NoError(t, err)

	resp, err := f.svc.UpdateThresholds(ctx, domain.ThresholdRequest{SKU: "T-1", MinAlertStock: qty(20), MaxStockLevel: qty(50)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusLowStock, resp.Status)

	resp, err = f.svc.UpdateThresholds(ctx, domain.ThresholdRequest{SKU: "T-1", MinAlertStock: qty(2), MaxStockLevel: qty(5)})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOverStock, resp.Status)

	_, err = f.svc.UpdateThresholds(ctx, domain.ThresholdRequest{SKU: "T-1", MinAlertStock: qty(10), MaxStockLevel: qty(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidThresholds)
}

func TestGetUnstockedVariantReadsZero(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "NEW-1")

	resp, err := f.svc.Get(context.Background(), v.ID)
	require.NoError(t, err)
	assert.True(t, resp.CurrentStock.IsZero())
	assert.Equal(t, domain.StatusOutOfStock, resp.Status)

	var records int64
	require.NoError(t, f.conn.Model(&domain.Record{}).Count(&records).Error)
	assert.Zero(t, records)

	_, err = f.svc.Get(context.Background(), "not-a-number")
	assert.ErrorIs(t, err, domain.ErrInvalidVariantID)
}

func TestListLedgerPaginates(t *testing.T) {
	f := newFixture(t)
	v := f.variant(t, "L-1")
	ctx := operatorCtx()

	for i := 0; i < 3; i++ {
		_, err := f.svc.Adjust(ctx, domain.AdjustRequest{SKU: "L-1", Mode: domain.AdjustAdd, Quantity: qty(1)})
		require.NoError(t, err)
	}

	page, err := f.svc.ListLedger(ctx, domain.ListLedgerRequest{
		Pagination: pagination.Pagination{PageSize: 3},
		VariantID:  v.ID,
	})
	require.NoError(t, err)
	require.Len(t, page.Entries, 3)
	assert.True(t, page.HasMore)
	assert.Equal(t, "3", page.Entries[0].AfterQuantity.String())

	next, err := f.svc.ListLedger(ctx, domain.ListLedgerRequest{
		Pagination: pagination.Pagination{PageSize: 3, PageToken: page.NextPageToken},
		VariantID:  v.ID,
	})
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	assert.False(t, next.HasMore)
	assert.Equal(t, domain.SourceInventoryInit, next.Entries[0].SourceType)

	_, err = f.svc.ListLedger(ctx, domain.ListLedgerRequest{VariantID: v.ID, Bucket: "SHELF"})
	assert.ErrorIs(t, err, domain.ErrInvalidBucket)
}
