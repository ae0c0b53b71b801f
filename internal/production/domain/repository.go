package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type TicketCursor struct {
	ID        int64
	CreatedAt time.Time
}

type ListFilter struct {
	Status string
	Cursor *TicketCursor
	Limit  int
}

type Repository interface {
	CreateTicket(ctx context.Context, db *gorm.DB, ticket *Ticket, details []Detail) error
	FindTicket(ctx context.Context, db *gorm.DB, id int64) (*Ticket, error)
	ListTickets(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*Ticket, error)
	ListDetails(ctx context.Context, db *gorm.DB, ticketIDs ...int64) ([]Detail, error)
	FindDetail(ctx context.Context, db *gorm.DB, id int64) (*Detail, error)
}
