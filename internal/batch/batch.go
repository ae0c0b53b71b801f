// Package batch runs an operation over a list of inputs, isolating each item
// so one failure never aborts the rest.
package batch

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	obslogger "github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/logger"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/errcode"
	"go.uber.org/zap"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

type Options struct {
	// Name labels logs and metrics, e.g. "inventory.bulk_adjust".
	Name       string
	Log        *zap.Logger
	Metrics    *metrics.WorkflowMetrics
	ObsMetrics *metrics.Metrics
}

type Success[R any] struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`
	Result R      `json:"result"`
}

type Failure struct {
	Index  int    `json:"index"`
	Key    string `json:"key"`
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Item is the per-input outcome, in input order.
type Item[R any] struct {
	Index   int    `json:"index"`
	Key     string `json:"key"`
	Outcome string `json:"outcome"`
	Result  *R     `json:"result,omitempty"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type Result[R any] struct {
	Successes      []Success[R] `json:"successes"`
	Failures       []Failure    `json:"failures"`
	Items          []Item[R]    `json:"items"`
	TotalProcessed int          `json:"total_processed"`
	SuccessCount   int          `json:"success_count"`
	FailureCount   int          `json:"failure_count"`
}

// Run applies fn to every item sequentially. key names an item in failure
// reports. A panic in fn is converted into that item's failure. Once ctx is
// done the remaining items are reported as failed without calling fn.
func Run[T, R any](
	ctx context.Context,
	opts Options,
	items []T,
	key func(index int, item T) string,
	fn func(ctx context.Context, item T) (R, error),
) Result[R] {
	log := opts.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = obslogger.WithContext(ctx, log).With(zap.String("batch", opts.Name))
	start := time.Now()

	res := Result[R]{
		Successes: make([]Success[R], 0, len(items)),
		Failures:  make([]Failure, 0),
		Items:     make([]Item[R], 0, len(items)),
	}

	for i, item := range items {
		k := key(i, item)

		var (
			out R
			err error
		)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		} else {
			out, err = runItem(ctx, log, i, item, fn)
		}

		res.TotalProcessed++
		if err != nil {
			failure := Failure{Index: i, Key: k, Code: errcode.Of(err), Reason: err.Error()}
			res.Failures = append(res.Failures, failure)
			res.Items = append(res.Items, Item[R]{
				Index:   i,
				Key:     k,
				Outcome: OutcomeFailure,
				Code:    failure.Code,
				Reason:  failure.Reason,
			})
			res.FailureCount++
			opts.Metrics.IncBatchItem(opts.Name, OutcomeFailure)
			opts.ObsMetrics.RecordBatchItem(ctx, opts.Name, OutcomeFailure)
			log.Debug("batch item failed",
				zap.Int("index", i),
				zap.String("key", k),
				zap.String("code", failure.Code),
				zap.Error(err),
			)
			continue
		}

		result := out
		res.Successes = append(res.Successes, Success[R]{Index: i, Key: k, Result: out})
		res.Items = append(res.Items, Item[R]{Index: i, Key: k, Outcome: OutcomeSuccess, Result: &result})
		res.SuccessCount++
		opts.Metrics.IncBatchItem(opts.Name, OutcomeSuccess)
		opts.ObsMetrics.RecordBatchItem(ctx, opts.Name, OutcomeSuccess)
	}

	log.Info("batch finished",
		zap.Int("total", res.TotalProcessed),
		zap.Int("success_count", res.SuccessCount),
		zap.Int("failure_count", res.FailureCount),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return res
}

func runItem[T, R any](ctx context.Context, log *zap.Logger, index int, item T, fn func(context.Context, T) (R, error)) (out R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", errcode.Internal, r)
			log.Error("batch item panicked",
				zap.Int("index", index),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()
	return fn(ctx, item)
}
