package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	obsmetrics "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

// Relay moves outbox rows to the publisher and prunes delivered ones.
type Relay interface {
	DispatchPending(ctx context.Context, limit int) (int, error)
	PurgeDispatched(ctx context.Context, cutoff time.Time, limit int) (int64, error)
}

type Params struct {
	fx.In

	Log        *zap.Logger
	GenID      *snowflake.Node
	Dispatcher *events.Dispatcher
	Clock      clock.Clock                 `optional:"true"`
	Metrics    *obsmetrics.WorkflowMetrics `optional:"true"`
	Config     Config                      `optional:"true"`
}

type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	genID   *snowflake.Node
	clock   clock.Clock
	relay   Relay
	metrics *obsmetrics.WorkflowMetrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Dispatcher == nil {
		return nil, ErrInvalidConfig
	}
	return newScheduler(p.Log, p.GenID, p.Clock, p.Dispatcher, p.Metrics, p.Config), nil
}

func newScheduler(log *zap.Logger, genID *snowflake.Node, clk clock.Clock, relay Relay, m *obsmetrics.WorkflowMetrics, cfg Config) *Scheduler {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Scheduler{
		log:     log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg.withDefaults(),
		genID:   genID,
		clock:   clk,
		relay:   relay,
		metrics: m,
	}
}

// runJob bounds fn by timeout. A deadline is a soft failure: it is counted
// and logged but not returned, and the next tick picks up the remainder.
func (s *Scheduler) runJob(parent context.Context, name string, timeout time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run := s.startRun(ctx, name)
	s.metrics.IncJobRun(name)

	err := fn(ctx)
	s.metrics.ObserveJobDuration(name, s.clock.Now().Sub(run.startedAt))
	s.finishRun(ctx, run, err)
	if err == nil {
		return nil
	}

	s.metrics.IncJobError(name, err)
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name string
		Run  func(context.Context) error
	}{
		{JobOutboxDispatch, func(ctx context.Context) error {
			return s.runJob(ctx, JobOutboxDispatch, s.cfg.JobTimeout, s.DispatchOutboxJob)
		}},
		{JobOutboxPurge, func(ctx context.Context) error {
			return s.runJob(ctx, JobOutboxPurge, s.cfg.JobTimeout, s.PurgeOutboxJob)
		}},
	}

	for _, job := range jobs {
		if s.isJobEnabled(job.Name) {
			err = errors.Join(err, job.Run(parent))
		}
	}
	return err
}

// DispatchOutboxJob drains due outbox events in batches. It stops once a
// batch comes back short or after MaxDispatchRuns batches.
func (s *Scheduler) DispatchOutboxJob(ctx context.Context) error {
	run := jobRunFromContext(ctx)
	for i := 0; i < s.cfg.MaxDispatchRuns; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		sent, err := s.relay.DispatchPending(ctx, s.cfg.BatchSize)
		run.record(sent)
		if err != nil {
			return err
		}
		if sent < s.cfg.BatchSize {
			return nil
		}
	}
	return nil
}

// PurgeOutboxJob deletes dispatched events older than the retention window.
func (s *Scheduler) PurgeOutboxJob(ctx context.Context) error {
	cutoff := s.clock.Now().Add(-s.cfg.Retention)
	deleted, err := s.relay.PurgeDispatched(ctx, cutoff, s.cfg.PurgeBatchSize)
	if err != nil {
		return err
	}
	jobRunFromContext(ctx).record(int(deleted))
	return nil
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()
	nextRun := time.Now().Add(s.cfg.RunInterval)

	for {
		if runLag := time.Since(nextRun); runLag > 0 {
			s.metrics.ObserveRunLoopLag(runLag)
		}
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}
		nextRun = nextRun.Add(s.cfg.RunInterval)

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if enabled == jobName {
			return true
		}
	}
	return false
}
