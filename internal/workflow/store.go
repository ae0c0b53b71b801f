package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TicketColumns are shared by every domain's ticket table.
type TicketColumns struct {
	ID        int64        `json:"id,string" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:varchar(255);not null"`
	Status    TicketStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Note      string       `json:"note,omitempty" gorm:"type:text"`
	CreatedBy string       `json:"created_by" gorm:"type:varchar(128);not null"`
	UpdatedBy string       `json:"updated_by" gorm:"type:varchar(128);not null"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

// DetailColumns are shared by every domain's ticket-detail table.
type DetailColumns struct {
	ID        int64           `json:"id,string" gorm:"primaryKey"`
	TicketID  int64           `json:"ticket_id,string" gorm:"not null;index"`
	VariantID int64           `json:"variant_id,string" gorm:"not null;index"`
	Quantity  decimal.Decimal `json:"quantity" gorm:"type:numeric(18,4);not null"`
	Status    Status          `json:"status" gorm:"type:varchar(32);not null"`
	Note      string          `json:"note,omitempty" gorm:"type:text"`
	Version   int64           `json:"version" gorm:"not null;default:0"`
	CreatedBy string          `json:"created_by" gorm:"type:varchar(128);not null"`
	UpdatedBy string          `json:"updated_by" gorm:"type:varchar(128);not null"`
	CreatedAt time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time       `json:"updated_at" gorm:"not null"`
}

// StatusLog is one detail status change. Rows are never updated.
type StatusLog struct {
	ID            int64     `json:"id,string" gorm:"primaryKey"`
	DetailID      int64     `json:"detail_id,string" gorm:"not null;index"`
	TicketID      int64     `json:"ticket_id,string" gorm:"not null"`
	OldStatus     Status    `json:"old_status" gorm:"type:varchar(32);not null"`
	NewStatus     Status    `json:"new_status" gorm:"type:varchar(32);not null"`
	Note          string    `json:"note,omitempty" gorm:"type:text"`
	Reason        string    `json:"reason,omitempty" gorm:"type:text"`
	ActorID       int64     `json:"actor_id,string"`
	ActorUsername string    `json:"actor_username" gorm:"type:varchar(128);not null"`
	ActorRole     string    `json:"actor_role,omitempty" gorm:"type:varchar(64)"`
	CreatedAt     time.Time `json:"created_at" gorm:"not null"`
}

// DetailState is the part of a detail row the interpreter works on.
type DetailState struct {
	ID        int64           `json:"id,string"`
	TicketID  int64           `json:"ticket_id,string"`
	VariantID int64           `json:"variant_id,string"`
	Quantity  decimal.Decimal `json:"quantity"`
	Status    Status          `json:"status"`
	Version   int64           `json:"version"`
}

// Tables names one domain's ticket, detail and status-log tables.
type Tables struct {
	Tickets string
	Details string
	Logs    string
}

// Store reads and writes workflow columns of one domain's tables.
type Store struct {
	t Tables
}

func NewStore(t Tables) *Store {
	return &Store{t: t}
}

func (s *Store) Tables() Tables { return s.t }

func (s *Store) FindDetail(ctx context.Context, conn *gorm.DB, id int64) (*DetailState, error) {
	return s.findDetail(ctx, conn, id, "")
}

func (s *Store) FindDetailForUpdate(ctx context.Context, conn *gorm.DB, id int64) (*DetailState, error) {
	return s.findDetail(ctx, conn, id, db.ForUpdate(conn))
}

func (s *Store) findDetail(ctx context.Context, conn *gorm.DB, id int64, suffix string) (*DetailState, error) {
	var d DetailState
	err := conn.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id, ticket_id, variant_id, quantity, status, version
		 FROM %s
		 WHERE id = ?%s`, s.t.Details, suffix),
		id,
	).Scan(&d).Error
	if err != nil {
		return nil, err
	}
	if d.ID == 0 {
		return nil, nil
	}
	return &d, nil
}

func (s *Store) ListDetails(ctx context.Context, conn *gorm.DB, ticketID int64) ([]DetailState, error) {
	var rows []DetailState
	err := conn.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id, ticket_id, variant_id, quantity, status, version
		 FROM %s
		 WHERE ticket_id = ?
		 ORDER BY id ASC`, s.t.Details),
		ticketID,
	).Scan(&rows).Error
	return rows, err
}

// UpdateDetailStatus moves d to status guarded by its version.
func (s *Store) UpdateDetailStatus(ctx context.Context, conn *gorm.DB, d *DetailState, status Status, updatedBy string, now time.Time) error {
	result := conn.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s
		 SET status = ?, updated_by = ?, updated_at = ?, version = version + 1
		 WHERE id = ? AND version = ?`, s.t.Details),
		status, updatedBy, now, d.ID, d.Version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s detail %d: %w", s.t.Details, d.ID, db.ErrConcurrentModification)
	}
	d.Status = status
	d.Version++
	return nil
}

func (s *Store) InsertLog(ctx context.Context, conn *gorm.DB, log *StatusLog) error {
	return conn.WithContext(ctx).Table(s.t.Logs).Create(log).Error
}

// ListLogs returns the status history of a detail, oldest first.
func (s *Store) ListLogs(ctx context.Context, conn *gorm.DB, detailID int64) ([]StatusLog, error) {
	var logs []StatusLog
	err := conn.WithContext(ctx).Table(s.t.Logs).
		Where("detail_id = ?", detailID).
		Order("created_at asc, id asc").
		Find(&logs).Error
	return logs, err
}

// FindTicketStatus reports the stored ticket status and whether the ticket exists.
func (s *Store) FindTicketStatus(ctx context.Context, conn *gorm.DB, ticketID int64) (TicketStatus, bool, error) {
	return s.findTicketStatus(ctx, conn, ticketID, "")
}

// FindTicketStatusForUpdate is FindTicketStatus holding the ticket row until
// the transaction ends, so sibling rollups run one after the other.
func (s *Store) FindTicketStatusForUpdate(ctx context.Context, conn *gorm.DB, ticketID int64) (TicketStatus, bool, error) {
	return s.findTicketStatus(ctx, conn, ticketID, db.ForUpdate(conn))
}

func (s *Store) findTicketStatus(ctx context.Context, conn *gorm.DB, ticketID int64, suffix string) (TicketStatus, bool, error) {
	var row struct {
		ID     int64
		Status TicketStatus
	}
	err := conn.WithContext(ctx).Raw(
		fmt.Sprintf(`SELECT id, status FROM %s WHERE id = ?%s`, s.t.Tickets, suffix),
		ticketID,
	).Scan(&row).Error
	if err != nil {
		return "", false, err
	}
	return row.Status, row.ID != 0, nil
}

func (s *Store) UpdateTicketStatus(ctx context.Context, conn *gorm.DB, ticketID int64, status TicketStatus, updatedBy string, now time.Time) error {
	return conn.WithContext(ctx).Exec(
		fmt.Sprintf(`UPDATE %s SET status = ?, updated_by = ?, updated_at = ? WHERE id = ?`, s.t.Tickets),
		status, updatedBy, now, ticketID,
	).Error
}
