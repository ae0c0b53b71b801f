package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	Create(ctx context.Context, db *gorm.DB, variant *Variant) error
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Variant, error)
	FindBySKU(ctx context.Context, db *gorm.DB, sku string) (*Variant, error)
	List(ctx context.Context, db *gorm.DB, filter ListRequest) ([]Variant, error)
	Update(ctx context.Context, db *gorm.DB, variant *Variant) error
}
