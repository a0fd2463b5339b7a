package internaltelemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PagingMetrics holds all the metric instruments for one simulated memory manager.
// A nil *PagingMetrics is valid and records nothing.
type PagingMetrics struct {
	PageLoadsCounter           metric.Int64Counter
	PageFaultsCounter          metric.Int64Counter
	EvictionsCounter           metric.Int64Counter
	ThrashingTimeCounter       metric.Int64Counter
	LogicalTimeCounter         metric.Int64Counter
	ResidentPagesUpDownCounter metric.Int64UpDownCounter
	OperationsCounter          metric.Int64Counter
	StepLatencyHistogram       metric.Int64Histogram

	attrs metric.MeasurementOption
}

// NewPagingMetrics creates and registers all the metrics for the paging engine.
func NewPagingMetrics(meter metric.Meter) (*PagingMetrics, error) {
	pageLoadsCounter, err := meter.Int64Counter(
		"pagesim.memory.page_loads_total",
		metric.WithDescription("Total number of pages loaded into a frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	pageFaultsCounter, err := meter.Int64Counter(
		"pagesim.memory.page_faults_total",
		metric.WithDescription("Total number of accesses to a page that was not resident."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	evictionsCounter, err := meter.Int64Counter(
		"pagesim.memory.evictions_total",
		metric.WithDescription("Total number of pages moved from RAM to the virtual store."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	thrashingTimeCounter, err := meter.Int64Counter(
		"pagesim.memory.thrashing_time",
		metric.WithDescription("Logical time spent on loads that required an eviction."),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	logicalTimeCounter, err := meter.Int64Counter(
		"pagesim.memory.logical_time",
		metric.WithDescription("Logical simulation time."),
		metric.WithUnit("{tick}"),
	)
	if err != nil {
		return nil, err
	}

	residentPagesUpDownCounter, err := meter.Int64UpDownCounter(
		"pagesim.memory.resident_pages",
		metric.WithDescription("Number of pages currently occupying a frame."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	operationsCounter, err := meter.Int64Counter(
		"pagesim.simulation.operations_total",
		metric.WithDescription("Total number of instructions applied."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, err
	}

	stepLatencyHistogram, err := meter.Int64Histogram(
		"pagesim.simulation.step_duration",
		metric.WithDescription("Wall time spent applying one instruction."),
		metric.WithUnit("us"),
	)
	if err != nil {
		return nil, err
	}

	return &PagingMetrics{
		PageLoadsCounter:           pageLoadsCounter,
		PageFaultsCounter:          pageFaultsCounter,
		EvictionsCounter:           evictionsCounter,
		ThrashingTimeCounter:       thrashingTimeCounter,
		LogicalTimeCounter:         logicalTimeCounter,
		ResidentPagesUpDownCounter: residentPagesUpDownCounter,
		OperationsCounter:          operationsCounter,
		StepLatencyHistogram:       stepLatencyHistogram,
		attrs:                      metric.WithAttributes(),
	}, nil
}

// ForPolicy returns a copy whose measurements carry the policy attribute,
// so engines running side by side report separate series.
func (m *PagingMetrics) ForPolicy(policy string) *PagingMetrics {
	if m == nil {
		return nil
	}
	scoped := *m
	scoped.attrs = metric.WithAttributes(attribute.String("policy", policy))
	return &scoped
}

// RecordLoad counts a page entering a frame. replaced is true when another
// page had to be evicted to make room.
func (m *PagingMetrics) RecordLoad(replaced bool) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.PageLoadsCounter.Add(ctx, 1, m.attrs)
	m.ResidentPagesUpDownCounter.Add(ctx, 1, m.attrs)
	if !replaced {
		m.LogicalTimeCounter.Add(ctx, 1, m.attrs)
	}
}

// RecordEviction counts a page leaving RAM for the virtual store.
func (m *PagingMetrics) RecordEviction(cost int64) {
	if m == nil {
		return
	}
	ctx := context.Background()
	m.EvictionsCounter.Add(ctx, 1, m.attrs)
	m.ResidentPagesUpDownCounter.Add(ctx, -1, m.attrs)
	m.ThrashingTimeCounter.Add(ctx, cost, m.attrs)
	m.LogicalTimeCounter.Add(ctx, cost, m.attrs)
}

func (m *PagingMetrics) RecordAccess() {
	if m == nil {
		return
	}
	m.LogicalTimeCounter.Add(context.Background(), 1, m.attrs)
}

func (m *PagingMetrics) RecordRelease() {
	if m == nil {
		return
	}
	m.ResidentPagesUpDownCounter.Add(context.Background(), -1, m.attrs)
}

// RecordReset drops the pages still resident when an engine is wiped.
func (m *PagingMetrics) RecordReset(resident int) {
	if m == nil || resident == 0 {
		return
	}
	m.ResidentPagesUpDownCounter.Add(context.Background(), -int64(resident), m.attrs)
}

func (m *PagingMetrics) RecordFault() {
	if m == nil {
		return
	}
	m.PageFaultsCounter.Add(context.Background(), 1, m.attrs)
}

// RecordOperation counts one applied instruction and its wall time.
func (m *PagingMetrics) RecordOperation(ctx context.Context, op string, elapsed time.Duration) {
	if m == nil {
		return
	}
	opAttr := metric.WithAttributes(attribute.String("op", op))
	m.OperationsCounter.Add(ctx, 1, m.attrs, opAttr)
	m.StepLatencyHistogram.Record(ctx, elapsed.Microseconds(), m.attrs, opAttr)
}
