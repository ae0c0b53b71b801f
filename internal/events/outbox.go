package events

import (
	"context"
	"crypto/rand"
	"errors"
	"strings"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	obscontext "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/context"
	"github.com/oklog/ulid/v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidEvent = errors.New("invalid_event")

// Outbox appends events on the caller's transaction.
type Outbox struct {
	clock clock.Clock
}

func NewOutbox(clk clock.Clock) *Outbox {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Outbox{clock: clk}
}

// PublishTx stores evt on tx. A repeated dedupe key is ignored.
func (o *Outbox) PublishTx(ctx context.Context, tx *gorm.DB, evt Event) error {
	if tx == nil || strings.TrimSpace(evt.Type) == "" {
		return ErrInvalidEvent
	}

	now := o.clock.Now().UTC()
	payload := make(map[string]any, len(evt.Payload)+1)
	for k, v := range evt.Payload {
		payload[k] = v
	}
	if correlationID := obscontext.CorrelationIDFromContext(ctx); correlationID != "" {
		if _, ok := payload["correlation_id"]; !ok {
			payload["correlation_id"] = correlationID
		}
	}

	row := OutboxEvent{
		ID:            ulid.MustNew(ulid.Timestamp(now), rand.Reader).String(),
		EventType:     evt.Type,
		AggregateType: evt.AggregateType,
		AggregateID:   evt.AggregateID,
		Payload:       datatypes.JSONMap(payload),
		Status:        StatusPending,
		CreatedAt:     now,
	}
	if key := strings.TrimSpace(evt.DedupeKey); key != "" {
		row.DedupeKey = &key
	}

	return tx.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row).Error
}
