package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultLockTimeout    = 30 * time.Second
	defaultInitialBackoff = 2 * time.Second
	maxBackoff            = 10 * time.Minute
)

type DispatcherParams struct {
	fx.In

	DB        *gorm.DB
	Config    config.Config
	Log       *zap.Logger
	Publisher Publisher
	Clock     clock.Clock              `optional:"true"`
	Metrics   *metrics.WorkflowMetrics `optional:"true"`
}

// Dispatcher relays stored outbox events to a Publisher with at-least-once
// delivery. Rows stuck in PROCESSING are reclaimed after the lock timeout.
type Dispatcher struct {
	db        *gorm.DB
	log       *zap.Logger
	publisher Publisher
	clock     clock.Clock
	metrics   *metrics.WorkflowMetrics
	id        string

	maxAttempts    int
	lockTimeout    time.Duration
	initialBackoff time.Duration
}

func NewDispatcher(p DispatcherParams) *Dispatcher {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Dispatcher{
		db:             p.DB,
		log:            p.Log.Named("events.dispatcher"),
		publisher:      p.Publisher,
		clock:          clk,
		metrics:        p.Metrics,
		id:             uuid.NewString(),
		maxAttempts:    p.Config.Events.MaxAttempts,
		lockTimeout:    defaultLockTimeout,
		initialBackoff: defaultInitialBackoff,
	}
}

// envelope is the payload handed to publishers.
type envelope struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	AggregateType string         `json:"aggregate_type"`
	AggregateID   string         `json:"aggregate_id"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"created_at"`
}

// DispatchPending claims up to limit due events and publishes them. It
// returns the number of events delivered.
func (d *Dispatcher) DispatchPending(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	claimed, err := d.claim(ctx, limit)
	if err != nil {
		return 0, err
	}

	sent := 0
	for _, evt := range claimed {
		if evt.Status == StatusDead {
			continue
		}
		if err := d.publish(ctx, evt); err != nil {
			d.metrics.IncOutboxFailed(d.publisher.Name())
			if markErr := d.markFailed(ctx, evt, err); markErr != nil {
				return sent, markErr
			}
			continue
		}
		d.metrics.IncOutboxDispatched(d.publisher.Name())
		if err := d.markDispatched(ctx, evt); err != nil {
			return sent, err
		}
		sent++
	}
	return sent, nil
}

func (d *Dispatcher) claim(ctx context.Context, limit int) ([]OutboxEvent, error) {
	now := d.clock.Now().UTC()
	staleBefore := now.Add(-d.lockTimeout)

	var claimed []OutboxEvent
	err := d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where(
				"(status IN ? AND (next_attempt_at IS NULL OR next_attempt_at <= ?)) OR (status = ? AND locked_at IS NOT NULL AND locked_at <= ?)",
				[]string{StatusPending, StatusFailed}, now, StatusProcessing, staleBefore,
			).
			Order("created_at ASC, id ASC").
			Limit(limit)
		if db.SupportsRowLocks(tx) {
			q = q.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		}
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}

		for i := range claimed {
			if d.maxAttempts > 0 && claimed[i].Attempts >= d.maxAttempts {
				msg := fmt.Sprintf("max publish attempts exceeded (%d)", d.maxAttempts)
				claimed[i].Status = StatusDead
				if err := tx.Model(&OutboxEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]any{
					"status":          StatusDead,
					"last_error":      msg,
					"next_attempt_at": nil,
					"locked_at":       nil,
					"locked_by":       nil,
				}).Error; err != nil {
					return err
				}
				continue
			}

			claimed[i].Status = StatusProcessing
			claimed[i].Attempts++
			claimed[i].LockedAt = &now
			claimed[i].LockedBy = &d.id
			if err := tx.Model(&OutboxEvent{}).Where("id = ?", claimed[i].ID).Updates(map[string]any{
				"status":          StatusProcessing,
				"attempts":        gorm.Expr("attempts + 1"),
				"locked_at":       now,
				"locked_by":       d.id,
				"next_attempt_at": nil,
			}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (d *Dispatcher) publish(ctx context.Context, evt OutboxEvent) error {
	data, err := json.Marshal(envelope{
		ID:            evt.ID,
		Type:          evt.EventType,
		AggregateType: evt.AggregateType,
		AggregateID:   fmt.Sprintf("%d", evt.AggregateID),
		Payload:       evt.Payload,
		CreatedAt:     evt.CreatedAt,
	})
	if err != nil {
		return err
	}
	return d.publisher.Publish(ctx, Message{ID: evt.ID, Type: evt.EventType, Data: data})
}

func (d *Dispatcher) markDispatched(ctx context.Context, evt OutboxEvent) error {
	now := d.clock.Now().UTC()
	return d.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ? AND locked_by = ?", evt.ID, d.id).
		Updates(map[string]any{
			"status":          StatusDispatched,
			"dispatched_at":   now,
			"last_error":      nil,
			"locked_at":       nil,
			"locked_by":       nil,
			"next_attempt_at": nil,
		}).Error
}

func (d *Dispatcher) markFailed(ctx context.Context, evt OutboxEvent, cause error) error {
	msg := cause.Error()
	now := d.clock.Now().UTC()

	if d.maxAttempts > 0 && evt.Attempts >= d.maxAttempts {
		d.log.Error("outbox event moved to DEAD after max attempts",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.EventType),
			zap.Int("attempts", evt.Attempts),
			zap.Error(cause),
		)
		return d.db.WithContext(ctx).Model(&OutboxEvent{}).
			Where("id = ?", evt.ID).
			Updates(map[string]any{
				"status":          StatusDead,
				"last_error":      msg,
				"next_attempt_at": nil,
				"locked_at":       nil,
				"locked_by":       nil,
			}).Error
	}

	next := now.Add(d.backoff(evt.Attempts))
	d.log.Warn("outbox publish failed",
		zap.String("event_id", evt.ID),
		zap.Int("attempts", evt.Attempts),
		zap.Time("next_attempt_at", next),
		zap.Error(cause),
	)
	return d.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("id = ?", evt.ID).
		Updates(map[string]any{
			"status":          StatusFailed,
			"last_error":      msg,
			"next_attempt_at": next,
			"locked_at":       nil,
			"locked_by":       nil,
		}).Error
}

func (d *Dispatcher) backoff(attempt int) time.Duration {
	wait := d.initialBackoff
	for i := 1; i < attempt; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// PurgeDispatched deletes up to limit delivered events dispatched before cutoff.
func (d *Dispatcher) PurgeDispatched(ctx context.Context, cutoff time.Time, limit int) (int64, error) {
	if limit <= 0 {
		limit = 500
	}
	var ids []string
	if err := d.db.WithContext(ctx).Model(&OutboxEvent{}).
		Where("status = ? AND dispatched_at IS NOT NULL AND dispatched_at < ?", StatusDispatched, cutoff.UTC()).
		Order("dispatched_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := d.db.WithContext(ctx).Where("id IN ?", ids).Delete(&OutboxEvent{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
