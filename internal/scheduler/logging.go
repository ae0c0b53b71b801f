package scheduler

import (
	"context"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/actor"
	obscontext "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/context"
	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"go.uber.org/zap"
)

// jobRun tallies one execution of a job. Jobs reach it through the context.
type jobRun struct {
	job       string
	runID     string
	startedAt time.Time
	rounds    int
	processed int
}

type jobRunKey struct{}

func (r *jobRun) record(processed int) {
	if r == nil {
		return
	}
	r.rounds++
	if processed > 0 {
		r.processed += processed
	}
}

// startRun tags ctx with a fresh run id, the system actor and a correlation
// id so outbox rows touched by the job can be traced back to it.
func (s *Scheduler) startRun(ctx context.Context, job string) (context.Context, *jobRun) {
	run := &jobRun{
		job:       job,
		runID:     s.genID.Generate().String(),
		startedAt: s.clock.Now(),
	}
	ctx = context.WithValue(ctx, jobRunKey{}, run)
	ctx = actor.WithActor(ctx, actor.System)
	ctx = obscontext.WithCorrelationID(ctx, run.runID)
	return ctx, run
}

func jobRunFromContext(ctx context.Context) *jobRun {
	run, _ := ctx.Value(jobRunKey{}).(*jobRun)
	return run
}

func (s *Scheduler) finishRun(ctx context.Context, run *jobRun, err error) {
	fields := []zap.Field{
		zap.String("job", run.job),
		zap.String("run_id", run.runID),
		zap.Int("rounds", run.rounds),
		zap.Int("processed", run.processed),
		zap.Int64("duration_ms", s.clock.Now().Sub(run.startedAt).Milliseconds()),
	}
	log := obslogger.WithContext(ctx, s.log)
	switch {
	case err != nil:
		log.Warn("scheduler job failed", append(fields, zap.Error(err))...)
	case run.processed == 0:
		log.Debug("scheduler job idle", fields...)
	default:
		log.Info("scheduler job done", fields...)
	}
}
