package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the task lifecycle instruments
type Metrics struct {
	LocksAcquired metric.Int64Counter
	Unlocks       metric.Int64Counter
	Splits        metric.Int64Counter
	SplitFailures metric.Int64Counter
	AutoUnlocked  metric.Int64Counter
	LockDuration  metric.Float64Histogram
}

// NewMetrics creates all instruments from meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.LocksAcquired, err = meter.Int64Counter("tasking.task.locks",
		metric.WithDescription("Task locks acquired"),
	)
	if err != nil {
		return nil, err
	}

	m.Unlocks, err = meter.Int64Counter("tasking.task.unlocks",
		metric.WithDescription("Task locks released with a state change"),
	)
	if err != nil {
		return nil, err
	}

	m.Splits, err = meter.Int64Counter("tasking.task.splits",
		metric.WithDescription("Tasks split into four children"),
	)
	if err != nil {
		return nil, err
	}

	m.SplitFailures, err = meter.Int64Counter("tasking.task.split_failures",
		metric.WithDescription("Split attempts that failed after passing preconditions"),
	)
	if err != nil {
		return nil, err
	}

	m.AutoUnlocked, err = meter.Int64Counter("tasking.task.auto_unlocked",
		metric.WithDescription("Stale locks cleared by the sweep"),
	)
	if err != nil {
		return nil, err
	}

	m.LockDuration, err = meter.Float64Histogram("tasking.task.lock_duration",
		metric.WithDescription("Time a task stayed locked in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordLock counts an acquired lock of the given status
func (m *Metrics) RecordLock(ctx context.Context, status string) {
	m.LocksAcquired.Add(ctx, 1, metric.WithAttributes(AttrStatus.String(status)))
}

// RecordUnlock counts a release into status and the time the lock was held
func (m *Metrics) RecordUnlock(ctx context.Context, status string, held time.Duration) {
	attrs := metric.WithAttributes(AttrStatus.String(status))
	m.Unlocks.Add(ctx, 1, attrs)
	m.LockDuration.Record(ctx, held.Seconds(), attrs)
}

// RecordSplit counts a split attempt by outcome and algorithm
func (m *Metrics) RecordSplit(ctx context.Context, algorithm string, err error) {
	attrs := metric.WithAttributes(attribute.String("algorithm", algorithm))
	if err != nil {
		m.SplitFailures.Add(ctx, 1, attrs)
		return
	}
	m.Splits.Add(ctx, 1, attrs)
}
