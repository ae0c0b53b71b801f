package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type OrderCursor struct {
	ID        int64
	CreatedAt time.Time
}

type ListFilter struct {
	Status       string
	CustomerName string
	Cursor       *OrderCursor
	Limit        int
}

type Repository interface {
	CreateOrder(ctx context.Context, db *gorm.DB, order *Order, details []OrderDetail) error
	FindOrder(ctx context.Context, db *gorm.DB, id int64) (*Order, error)
	ListOrders(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Order, error)
	ListDetails(ctx context.Context, db *gorm.DB, orderIDs ...int64) ([]OrderDetail, error)
}
