// Package engine is the single code path that changes inventory buckets.
package engine

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Repo       domain.Repository
	Clock      clock.Clock
	Policy     *config.StockPolicyHolder `optional:"true"`
	ObsMetrics *metrics.Metrics          `optional:"true"`
	Outbox     *events.Outbox            `optional:"true"`
}

type Engine struct {
	log        *zap.Logger
	genID      *snowflake.Node
	repo       domain.Repository
	clock      clock.Clock
	policy     *config.StockPolicyHolder
	obsMetrics *metrics.Metrics
	outbox     *events.Outbox
}

func New(p Params) domain.Engine {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Engine{
		log:        p.Log.Named("inventory.engine"),
		genID:      p.GenID,
		repo:       p.Repo,
		clock:      clk,
		policy:     p.Policy,
		obsMetrics: p.ObsMetrics,
		outbox:     p.Outbox,
	}
}

// GetOrCreate locks the record of variantID, inserting a zeroed one first when
// the variant has never been stocked. Creation is recorded as a SET entry of 0.
func (e *Engine) GetOrCreate(ctx context.Context, tx *gorm.DB, variantID int64, who actor.Actor) (*domain.Record, error) {
	if variantID == 0 {
		return nil, domain.ErrInvalidVariantID
	}

	rec, err := e.repo.FindByVariantIDForUpdate(ctx, tx, variantID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}

	policy := e.policy.Get()
	now := e.clock.Now().UTC()
	fresh := &domain.Record{
		ID:             e.genID.Generate().Int64(),
		VariantID:      variantID,
		CurrentStock:   decimal.Zero,
		FutureStock:    decimal.Zero,
		AllocatedStock: decimal.Zero,
		MinAlertStock:  decimal.NewFromFloat(policy.DefaultMinAlertStock),
		MaxStockLevel:  decimal.NewFromFloat(policy.DefaultMaxStockLevel),
		Status:         domain.StatusOutOfStock,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	created, err := e.repo.InsertIfAbsent(ctx, tx, fresh)
	if err != nil {
		return nil, err
	}
	if created {
		entry := e.newEntry(domain.MutationRequest{
			VariantID: variantID,
			Bucket:    domain.BucketCurrent,
			Type:      domain.TransactionSet,
			Quantity:  decimal.Zero,
			Source:    domain.SourceInventoryInit,
			Note:      "inventory record created",
			Actor:     who,
		}, decimal.Zero, decimal.Zero, now)
		if err := e.repo.InsertLedgerEntry(ctx, tx, &entry); err != nil {
			return nil, err
		}
		e.obsMetrics.RecordLedgerEntry(ctx, string(entry.SourceType), string(entry.Bucket))
		obslogger.WithContext(ctx, e.log).Debug("inventory record created", zap.Int64("variant_id", variantID))
	}

	rec, err = e.repo.FindByVariantIDForUpdate(ctx, tx, variantID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, fmt.Errorf("variant %d: %w", variantID, domain.ErrRecordNotFound)
	}
	return rec, nil
}

// Apply mutates one bucket and appends the matching ledger entry on tx.
func (e *Engine) Apply(ctx context.Context, tx *gorm.DB, req domain.MutationRequest) (domain.LedgerEntry, error) {
	if err := validate(req); err != nil {
		return domain.LedgerEntry{}, err
	}

	rec, err := e.GetOrCreate(ctx, tx, req.VariantID, req.Actor)
	if err != nil {
		return domain.LedgerEntry{}, err
	}

	before := rec.Quantity(req.Bucket)
	var after decimal.Decimal
	switch req.Type {
	case domain.TransactionIn:
		if req.Bucket == domain.BucketAllocated && rec.Available().LessThan(req.Quantity) {
			return domain.LedgerEntry{}, &domain.InsufficientStockError{
				VariantID: req.VariantID,
				Bucket:    domain.BucketAllocated,
				Requested: req.Quantity,
				Available: rec.Available(),
			}
		}
		after = before.Add(req.Quantity)
	case domain.TransactionOut:
		after = before.Sub(req.Quantity)
		if after.Sign() < 0 {
			return domain.LedgerEntry{}, &domain.InsufficientStockError{
				VariantID: req.VariantID,
				Bucket:    req.Bucket,
				Requested: req.Quantity,
				Available: before,
			}
		}
		// current stock never drops under what is already promised
		if req.Bucket == domain.BucketCurrent && after.LessThan(rec.AllocatedStock) {
			return domain.LedgerEntry{}, &domain.InsufficientStockError{
				VariantID: req.VariantID,
				Bucket:    domain.BucketCurrent,
				Requested: req.Quantity,
				Available: rec.Available(),
			}
		}
	case domain.TransactionSet:
		after = req.Quantity
		if req.Bucket == domain.BucketCurrent && after.LessThan(rec.AllocatedStock) {
			return domain.LedgerEntry{}, &domain.InsufficientStockError{
				VariantID: req.VariantID,
				Bucket:    domain.BucketCurrent,
				Requested: rec.AllocatedStock,
				Available: after,
			}
		}
	}

	now := e.clock.Now().UTC()
	previous := rec.Status
	rec.SetQuantity(req.Bucket, after)
	rec.Status = domain.DeriveStatus(rec.CurrentStock, rec.MinAlertStock, rec.MaxStockLevel)
	rec.UpdatedAt = now
	if err := e.repo.UpdateBuckets(ctx, tx, rec); err != nil {
		return domain.LedgerEntry{}, err
	}

	entry := e.newEntry(req, before, after, now)
	if err := e.repo.InsertLedgerEntry(ctx, tx, &entry); err != nil {
		return domain.LedgerEntry{}, err
	}

	e.obsMetrics.RecordLedgerEntry(ctx, string(entry.SourceType), string(entry.Bucket))
	if previous != rec.Status && (rec.Status == domain.StatusLowStock || rec.Status == domain.StatusOutOfStock) {
		e.obsMetrics.RecordLowStockAlert(ctx, string(rec.Status))
		if err := e.emitLowStock(ctx, tx, rec, entry); err != nil {
			return domain.LedgerEntry{}, err
		}
	}
	return entry, nil
}

// Execute runs every step of op against one variant. The first failing step
// aborts the call; the caller's transaction discards the earlier steps.
func (e *Engine) Execute(ctx context.Context, tx *gorm.DB, op domain.Operation, req domain.OperationRequest) ([]domain.LedgerEntry, error) {
	steps, ok := op.Steps()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidOperation, op)
	}

	entries := make([]domain.LedgerEntry, 0, len(steps))
	for _, step := range steps {
		entry, err := e.Apply(ctx, tx, domain.MutationRequest{
			VariantID: req.VariantID,
			Bucket:    step.Bucket,
			Type:      step.Type,
			Quantity:  req.Quantity,
			Source:    req.Source,
			Reference: req.Reference,
			Note:      req.Note,
			Actor:     req.Actor,
		})
		if err != nil {
			e.obsMetrics.RecordStockMutation(ctx, string(op), metrics.OutcomeRejected)
			return nil, err
		}
		entries = append(entries, entry)
	}
	e.obsMetrics.RecordStockMutation(ctx, string(op), metrics.OutcomeApplied)
	return entries, nil
}

func (e *Engine) emitLowStock(ctx context.Context, tx *gorm.DB, rec *domain.Record, entry domain.LedgerEntry) error {
	if e.outbox == nil || !e.policy.Get().LowStockEvents {
		return nil
	}
	return e.outbox.PublishTx(ctx, tx, events.Event{
		Type:          events.EventInventoryLowStock,
		AggregateType: "inventory_record",
		AggregateID:   rec.VariantID,
		Payload: map[string]any{
			"variant_id":      strconv.FormatInt(rec.VariantID, 10),
			"status":          string(rec.Status),
			"current_stock":   rec.CurrentStock.String(),
			"min_alert_stock": rec.MinAlertStock.String(),
			"ledger_entry_id": strconv.FormatInt(entry.ID, 10),
		},
		DedupeKey: fmt.Sprintf("inventory:low_stock:%d", entry.ID),
	})
}

func (e *Engine) newEntry(req domain.MutationRequest, before, after decimal.Decimal, now time.Time) domain.LedgerEntry {
	return domain.LedgerEntry{
		ID:              e.genID.Generate().Int64(),
		VariantID:       req.VariantID,
		TransactionType: req.Type,
		SourceType:      req.Source,
		Bucket:          req.Bucket,
		Quantity:        req.Quantity,
		BeforeQuantity:  before,
		AfterQuantity:   after,
		ReferenceType:   req.Reference.Type,
		ReferenceID:     req.Reference.ID,
		Note:            req.Note,
		CreatedByID:     req.Actor.ID,
		CreatedBy:       req.Actor.Username,
		CreatedAt:       now,
	}
}

func validate(req domain.MutationRequest) error {
	if !req.Actor.Valid() {
		return actor.ErrActorRequired
	}
	if req.VariantID == 0 {
		return domain.ErrInvalidVariantID
	}
	if !req.Bucket.Valid() {
		return domain.ErrInvalidBucket
	}
	switch req.Type {
	case domain.TransactionIn, domain.TransactionOut:
		if req.Quantity.Sign() <= 0 {
			return domain.ErrInvalidQuantity
		}
	case domain.TransactionSet:
		if req.Quantity.Sign() < 0 {
			return domain.ErrInvalidQuantity
		}
	default:
		return domain.ErrInvalidOperation
	}
	if req.Source == "" {
		return domain.ErrInvalidOperation
	}
	return nil
}
