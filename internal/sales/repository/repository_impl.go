package repository

import (
	"context"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/sales/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateOrder(ctx context.Context, db *gorm.DB, order *domain.Order, details []domain.OrderDetail) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(order).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}
		return tx.Create(&details).Error
	})
}

func (r *repo) FindOrder(ctx context.Context, db *gorm.DB, id int64) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, customer_name, status, note, created_by, updated_by, created_at, updated_at
		 FROM sales_orders WHERE id = ?`,
		id,
	).Scan(&order).Error
	if err != nil {
		return nil, err
	}
	if order.ID == 0 {
		return nil, nil
	}
	return &order, nil
}

func (r *repo) ListOrders(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Order, error) {
	var orders []*domain.Order
	stmt := db.WithContext(ctx).Model(&domain.Order{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
	}
	if filter.CustomerName != "" {
		stmt = stmt.Where("customer_name = ?", filter.CustomerName)
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
	if err := stmt.Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, orderIDs ...int64) ([]domain.OrderDetail, error) {
	var details []domain.OrderDetail
	if len(orderIDs) == 0 {
		return details, nil
	}
	err := db.WithContext(ctx).
		Where("ticket_id IN ?", orderIDs).
		Order("ticket_id asc, id asc").
		Find(&details).Error
	return details, err
}
