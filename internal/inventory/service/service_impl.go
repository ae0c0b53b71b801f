package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	auditdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/audit/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/batch"
	catalogdomain "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db/pagination"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	UOW             *uow.Runner
	Locker          lock.Locker
	Engine          domain.Engine
	Repo            domain.Repository
	Catalog         catalogdomain.Service
	Clock           clock.Clock              `optional:"true"`
	AuditSvc        auditdomain.Service      `optional:"true"`
	WorkflowMetrics *metrics.WorkflowMetrics `optional:"true"`
	ObsMetrics      *metrics.Metrics         `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	uow             *uow.Runner
	locker          lock.Locker
	engine          domain.Engine
	repo            domain.Repository
	catalog         catalogdomain.Service
	clock           clock.Clock
	auditSvc        auditdomain.Service
	workflowMetrics *metrics.WorkflowMetrics
	obsMetrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("inventory.service"),
		uow:             p.UOW,
		locker:          p.Locker,
		engine:          p.Engine,
		repo:            p.Repo,
		catalog:         p.Catalog,
		clock:           clk,
		auditSvc:        p.AuditSvc,
		workflowMetrics: p.WorkflowMetrics,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) Get(ctx context.Context, variantID string) (*domain.Response, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(variantID))
	if err != nil {
		return nil, domain.ErrInvalidVariantID
	}
	variant, err := s.catalog.ResolveID(ctx, id.Int64())
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, variant)
}

func (s *Service) GetBySKU(ctx context.Context, sku string) (*domain.Response, error) {
	variant, err := s.catalog.ResolveSKU(ctx, sku)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, s.db, variant)
}

func (s *Service) ListLedger(ctx context.Context, req domain.ListLedgerRequest) (domain.ListLedgerResponse, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.VariantID))
	if err != nil {
		return domain.ListLedgerResponse{}, domain.ErrInvalidVariantID
	}
	if _, err := s.catalog.ResolveID(ctx, id.Int64()); err != nil {
		return domain.ListLedgerResponse{}, err
	}

	filter := domain.LedgerFilter{
		VariantID: id.Int64(),
		Limit:     pagination.NormalizePageSize(req.PageSize),
	}
	if bucket := strings.ToUpper(strings.TrimSpace(req.Bucket)); bucket != "" {
		filter.Bucket = domain.Bucket(bucket)
		if !filter.Bucket.Valid() {
			return domain.ListLedgerResponse{}, domain.ErrInvalidBucket
		}
	}
	if req.PageToken != "" {
		cursor, err := decodeLedgerCursor(req.PageToken)
		if err != nil {
			return domain.ListLedgerResponse{}, err
		}
		filter.Cursor = cursor
	}

	entries, err := s.repo.ListLedger(ctx, s.db, filter)
	if err != nil {
		return domain.ListLedgerResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(entries, int32(filter.Limit), func(e *domain.LedgerEntry) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        strconv.FormatInt(e.ID, 10),
			CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(entries) > filter.Limit {
		entries = entries[:filter.Limit]
	}

	resp := domain.ListLedgerResponse{Entries: make([]domain.LedgerEntry, 0, len(entries))}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, *e)
	}
	return resp, nil
}

// Adjust applies a manual correction to current stock. ADD and SUBTRACT take
// a positive delta; SET replaces the quantity.
func (s *Service) Adjust(ctx context.Context, req domain.AdjustRequest) (*domain.Response, error) {
	who, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	op, err := adjustOperation(req.Mode)
	if err != nil {
		return nil, err
	}
	variant, err := s.catalog.ResolveSKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}

	var resp *domain.Response
	err = lock.With(ctx, s.locker, []string{lock.VariantKey(variant.ID)}, func() error {
		return s.uow.Do(ctx, "inventory.adjust", func(tx *gorm.DB) error {
			entries, err := s.engine.Execute(ctx, tx, op, domain.OperationRequest{
				VariantID: variant.ID,
				Quantity:  req.Quantity,
				Source:    domain.SourceManualAdjustment,
				Note:      strings.TrimSpace(req.Note),
				Actor:     who,
			})
			if err != nil {
				return err
			}

			if s.auditSvc != nil {
				targetID := strconv.FormatInt(variant.ID, 10)
				entry := entries[len(entries)-1]
				if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.ActionStockAdjusted, "inventory_record", &targetID, map[string]any{
					"sku":             variant.SKU,
					"mode":            string(req.Mode),
					"quantity":        req.Quantity.String(),
					"before_quantity": entry.BeforeQuantity.String(),
					"after_quantity":  entry.AfterQuantity.String(),
					"ledger_entry_id": strconv.FormatInt(entry.ID, 10),
				}); err != nil {
					return err
				}
			}

			view, err := s.view(ctx, tx, variant)
			if err != nil {
				return err
			}
			resp = view
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	obslogger.WithContext(ctx, s.log).Info("stock adjusted",
		zap.Int64("variant_id", variant.ID),
		zap.String("sku", variant.SKU),
		zap.String("mode", string(req.Mode)),
		zap.String("quantity", req.Quantity.String()),
	)
	return resp, nil
}

func (s *Service) UpdateThresholds(ctx context.Context, req domain.ThresholdRequest) (*domain.Response, error) {
	who, err := actor.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.MinAlertStock.Sign() < 0 || req.MaxStockLevel.Sign() < 0 {
		return nil, domain.ErrInvalidThresholds
	}
	if req.MaxStockLevel.Sign() > 0 && req.MaxStockLevel.LessThan(req.MinAlertStock) {
		return nil, domain.ErrInvalidThresholds
	}
	variant, err := s.catalog.ResolveSKU(ctx, req.SKU)
	if err != nil {
		return nil, err
	}

	var resp *domain.Response
	err = lock.With(ctx, s.locker, []string{lock.VariantKey(variant.ID)}, func() error {
		return s.uow.Do(ctx, "inventory.update_thresholds", func(tx *gorm.DB) error {
			rec, err := s.engine.GetOrCreate(ctx, tx, variant.ID, who)
			if err != nil {
				return err
			}
			previousMin, previousMax := rec.MinAlertStock, rec.MaxStockLevel

			rec.MinAlertStock = req.MinAlertStock
			rec.MaxStockLevel = req.MaxStockLevel
			rec.Status = domain.DeriveStatus(rec.CurrentStock, rec.MinAlertStock, rec.MaxStockLevel)
			rec.UpdatedAt = s.clock.Now().UTC()
			if err := s.repo.UpdateThresholds(ctx, tx, rec); err != nil {
				return err
			}

			if s.auditSvc != nil {
				targetID := strconv.FormatInt(variant.ID, 10)
				if err := s.auditSvc.AuditLog(ctx, tx, auditdomain.ActionThresholdsUpdated, "inventory_record", &targetID, map[string]any{
					"sku":                      variant.SKU,
					"previous_min_alert_stock": previousMin.String(),
					"previous_max_stock_level": previousMax.String(),
					"min_alert_stock":          rec.MinAlertStock.String(),
					"max_stock_level":          rec.MaxStockLevel.String(),
				}); err != nil {
					return err
				}
			}

			view := toResponse(rec, variant.SKU)
			resp = &view
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// BulkAdjust adjusts every item independently. Failed items are reported and
// never roll back the ones that succeeded.
func (s *Service) BulkAdjust(ctx context.Context, req domain.BulkAdjustRequest) (batch.Result[domain.Response], error) {
	if _, err := actor.Require(ctx); err != nil {
		return batch.Result[domain.Response]{}, err
	}
	if _, err := adjustOperation(req.Mode); err != nil {
		return batch.Result[domain.Response]{}, err
	}
	if len(req.Items) == 0 {
		return batch.Result[domain.Response]{}, domain.ErrEmptyBatch
	}

	opts := batch.Options{
		Name:       "inventory.bulk_adjust",
		Log:        s.log,
		Metrics:    s.workflowMetrics,
		ObsMetrics: s.obsMetrics,
	}
	res := batch.Run(ctx, opts, req.Items,
		func(_ int, item domain.BulkAdjustItem) string { return catalogdomain.NormalizeSKU(item.SKU) },
		func(ctx context.Context, item domain.BulkAdjustItem) (domain.Response, error) {
			note := strings.TrimSpace(item.Note)
			if note == "" {
				note = req.Note
			}
			resp, err := s.Adjust(ctx, domain.AdjustRequest{
				SKU:      item.SKU,
				Mode:     req.Mode,
				Quantity: item.Quantity,
				Note:     note,
			})
			if err != nil {
				return domain.Response{}, err
			}
			return *resp, nil
		},
	)
	return res, nil
}

// view reads the record without creating it; a never-stocked variant reads as
// all-zero and out of stock.
func (s *Service) view(ctx context.Context, conn *gorm.DB, variant catalogdomain.Variant) (*domain.Response, error) {
	rec, err := s.repo.FindByVariantID(ctx, conn, variant.ID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		rec = &domain.Record{
			VariantID: variant.ID,
			Status:    domain.StatusOutOfStock,
		}
	}
	resp := toResponse(rec, variant.SKU)
	return &resp, nil
}

func adjustOperation(mode domain.AdjustMode) (domain.Operation, error) {
	switch domain.AdjustMode(strings.ToUpper(string(mode))) {
	case domain.AdjustAdd:
		return domain.OpAddToCurrent, nil
	case domain.AdjustSubtract:
		return domain.OpRemoveFromCurrent, nil
	case domain.AdjustSet:
		return domain.OpSetCurrent, nil
	default:
		return "", domain.ErrInvalidAdjustMode
	}
}

func decodeLedgerCursor(token string) (*domain.LedgerCursor, error) {
	cursor, err := pagination.DecodeCursor(token)
	if err != nil {
		return nil, err
	}
	id, err := strconv.ParseInt(cursor.ID, 10, 64)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	createdAt, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
	if err != nil {
		return nil, pagination.ErrInvalidPageToken
	}
	return &domain.LedgerCursor{ID: id, CreatedAt: createdAt}, nil
}

func toResponse(rec *domain.Record, sku string) domain.Response {
	return domain.Response{
		VariantID:      strconv.FormatInt(rec.VariantID, 10),
		SKU:            sku,
		CurrentStock:   rec.CurrentStock,
		FutureStock:    rec.FutureStock,
		AllocatedStock: rec.AllocatedStock,
		AvailableStock: rec.Available(),
		MinAlertStock:  rec.MinAlertStock,
		MaxStockLevel:  rec.MaxStockLevel,
		Status:         rec.Status,
		Version:        rec.Version,
	}
}
