package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability/metrics"
)

type slot struct {
	ch   chan struct{}
	refs int
}

// LocalLocker is a keyed mutex for single-process deployments.
type LocalLocker struct {
	mu      sync.Mutex
	slots   map[string]*slot
	metrics *metrics.WorkflowMetrics
}

func NewLocalLocker(m *metrics.WorkflowMetrics) *LocalLocker {
	return &LocalLocker{
		slots:   make(map[string]*slot),
		metrics: m,
	}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string) (Lease, error) {
	start := time.Now()

	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
		l.metrics.ObserveLockWait(resourceOf(key), time.Since(start))
		return &localLease{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.unref(key, s)
		return nil, fmt.Errorf("%w: %s: %w", ErrLockNotObtained, key, ctx.Err())
	}
}

func (l *LocalLocker) unref(key string, s *slot) {
	l.mu.Lock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
	l.mu.Unlock()
}

type localLease struct {
	locker *LocalLocker
	key    string
	slot   *slot
	once   sync.Once
}

func (l *localLease) Release(context.Context) error {
	l.once.Do(func() {
		<-l.slot.ch
		l.locker.unref(l.key, l.slot)
	})
	return nil
}
