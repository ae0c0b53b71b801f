// Package uow runs database work as one transaction and replays it on
// retryable conflicts.
package uow

import (
	"context"
	"errors"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/cenkalti/backoff/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("uow",
	fx.Provide(New),
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Config  config.Config
	Log     *zap.Logger
	Metrics *metrics.WorkflowMetrics `optional:"true"`
}

type Runner struct {
	db          *gorm.DB
	log         *zap.Logger
	metrics     *metrics.WorkflowMetrics
	maxAttempts int
	initial     time.Duration
}

func New(p Params) *Runner {
	return NewRunner(p.DB, p.Log, p.Config.UOW, p.Metrics)
}

func NewRunner(conn *gorm.DB, log *zap.Logger, cfg config.UOWConfig, m *metrics.WorkflowMetrics) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	initial := cfg.InitialInterval
	if initial <= 0 {
		initial = 20 * time.Millisecond
	}
	return &Runner{
		db:          conn,
		log:         log.Named("uow"),
		metrics:     m,
		maxAttempts: attempts,
		initial:     initial,
	}
}

// DB returns the connection the runner opens transactions on.
func (r *Runner) DB() *gorm.DB {
	return r.db
}

// Do executes fn inside a transaction. Retryable failures roll back and
// replay fn from scratch, up to the configured number of attempts.
func (r *Runner) Do(ctx context.Context, name string, fn func(tx *gorm.DB) error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initial
	b.MaxInterval = 20 * r.initial

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		if attempt > 1 {
			r.metrics.IncUOWRetry(name)
		}
		err := r.db.WithContext(ctx).Transaction(fn)
		if err == nil {
			return struct{}{}, nil
		}
		if !db.IsRetryableTxErr(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		logger.WithContext(ctx, r.log).Debug("retrying unit of work",
			zap.String("uow", name),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		return struct{}{}, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(uint(r.maxAttempts)))

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	return err
}
