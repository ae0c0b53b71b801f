package repository

import (
	"context"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/catalog/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Create(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO variants (id, sku, name, kind, active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		variant.ID,
		variant.SKU,
		variant.Name,
		variant.Kind,
		variant.Active,
		variant.CreatedAt,
		variant.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Variant, error) {
	var v domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, sku, name, kind, active, created_at, updated_at
		 FROM variants WHERE id = ?`,
		id,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*domain.Variant, error) {
	var v domain.Variant
	err := db.WithContext(ctx).Raw(
		`SELECT id, sku, name, kind, active, created_at, updated_at
		 FROM variants WHERE sku = ?`,
		sku,
	).Scan(&v).Error
	if err != nil {
		return nil, err
	}
	if v.ID == 0 {
		return nil, nil
	}
	return &v, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListRequest) ([]domain.Variant, error) {
	var items []domain.Variant
	stmt := db.WithContext(ctx).Model(&domain.Variant{})
	if filter.Kind != "" {
		stmt = stmt.Where("kind = ?", filter.Kind)
	}
	if filter.Active != nil {
		stmt = stmt.Where("active = ?", *filter.Active)
	}
	if err := stmt.Order("sku ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, variant *domain.Variant) error {
	if variant == nil {
		return gorm.ErrInvalidData
	}
	return db.WithContext(ctx).Exec(
		`UPDATE variants SET name = ?, active = ?, updated_at = ? WHERE id = ?`,
		variant.Name,
		variant.Active,
		variant.UpdatedAt,
		variant.ID,
	).Error
}
