package repository

import (
	"context"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/production/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) CreateTicket(ctx context.Context, db *gorm.DB, ticket *domain.Ticket, details []domain.Detail) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(ticket).Error; err != nil {
			return err
		}
		if len(details) == 0 {
			return nil
		}
		return tx.Create(&details).Error
	})
}

func (r *repo) FindTicket(ctx context.Context, db *gorm.DB, id int64) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, status, note, created_by, updated_by, created_at, updated_at
		 FROM production_tickets WHERE id = ?`,
		id,
	).Scan(&ticket).Error
	if err != nil {
		return nil, err
	}
	if ticket.ID == 0 {
		return nil, nil
	}
	return &ticket, nil
}

func (r *repo) ListTickets(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket
	stmt := db.WithContext(ctx).Model(&domain.Ticket{})
	if filter.Status != "" {
		stmt = stmt.Where("status = ?", filter.Status)
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
	if err := stmt.Find(&tickets).Error; err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *repo) ListDetails(ctx context.Context, db *gorm.DB, ticketIDs ...int64) ([]domain.Detail, error) {
	var details []domain.Detail
	if len(ticketIDs) == 0 {
		return details, nil
	}
	err := db.WithContext(ctx).
		Where("ticket_id IN ?", ticketIDs).
		Order("ticket_id asc, id asc").
		Find(&details).Error
	return details, err
}

func (r *repo) FindDetail(ctx context.Context, db *gorm.DB, id int64) (*domain.Detail, error) {
	var detail domain.Detail
	err := db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&detail).Error
	if err != nil {
		return nil, err
	}
	if detail.ID == 0 {
		return nil, nil
	}
	return &detail, nil
}
