package repository

import (
	"context"
	"fmt"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/inventory/domain"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const recordColumns = `id, variant_id, current_stock, future_stock, allocated_stock,
	min_alert_stock, max_stock_level, status, version, created_at, updated_at`

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByVariantID(ctx context.Context, conn *gorm.DB, variantID int64) (*domain.Record, error) {
	return r.findByVariantID(ctx, conn, variantID, false)
}

func (r *repo) FindByVariantIDForUpdate(ctx context.Context, conn *gorm.DB, variantID int64) (*domain.Record, error) {
	return r.findByVariantID(ctx, conn, variantID, true)
}

func (r *repo) findByVariantID(ctx context.Context, conn *gorm.DB, variantID int64, forUpdate bool) (*domain.Record, error) {
	query := fmt.Sprintf("SELECT %s FROM inventory_records WHERE variant_id = ?", recordColumns)
	if forUpdate {
		query += db.ForUpdate(conn)
	}

	var rec domain.Record
	if err := conn.WithContext(ctx).Raw(query, variantID).Scan(&rec).Error; err != nil {
		return nil, err
	}
	if rec.ID == 0 {
		return nil, nil
	}
	return &rec, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, record *domain.Record) (bool, error) {
	result := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variant_id"}},
			DoNothing: true,
		}).
		Create(record)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// UpdateBuckets writes bucket values guarded by the record version and bumps it.
func (r *repo) UpdateBuckets(ctx context.Context, conn *gorm.DB, record *domain.Record) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE inventory_records
		 SET current_stock = ?, future_stock = ?, allocated_stock = ?, status = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		record.CurrentStock,
		record.FutureStock,
		record.AllocatedStock,
		record.Status,
		record.UpdatedAt,
		record.ID,
		record.Version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("inventory record %d: %w", record.ID, db.ErrConcurrentModification)
	}
	record.Version++
	return nil
}

func (r *repo) UpdateThresholds(ctx context.Context, conn *gorm.DB, record *domain.Record) error {
	result := conn.WithContext(ctx).Exec(
		`UPDATE inventory_records
		 SET min_alert_stock = ?, max_stock_level = ?, status = ?,
		     version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		record.MinAlertStock,
		record.MaxStockLevel,
		record.Status,
		record.UpdatedAt,
		record.ID,
		record.Version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("inventory record %d: %w", record.ID, db.ErrConcurrentModification)
	}
	record.Version++
	return nil
}

func (r *repo) InsertLedgerEntry(ctx context.Context, conn *gorm.DB, entry *domain.LedgerEntry) error {
	return conn.WithContext(ctx).Exec(
		`INSERT INTO inventory_ledger_entries (
			id, variant_id, transaction_type, source_type, stock_type, quantity,
			before_quantity, after_quantity, reference_type, reference_id, note,
			created_by_id, created_by, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.VariantID,
		entry.TransactionType,
		entry.SourceType,
		entry.Bucket,
		entry.Quantity,
		entry.BeforeQuantity,
		entry.AfterQuantity,
		entry.ReferenceType,
		entry.ReferenceID,
		entry.Note,
		entry.CreatedByID,
		entry.CreatedBy,
		entry.CreatedAt,
	).Error
}

func (r *repo) ListLedger(ctx context.Context, conn *gorm.DB, filter domain.LedgerFilter) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	stmt := conn.WithContext(ctx).Model(&domain.LedgerEntry{}).
		Where("variant_id = ?", filter.VariantID)

	if filter.Bucket != "" {
		stmt = stmt.Where("stock_type = ?", filter.Bucket)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}

	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	if err := stmt.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
