package redlock

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// 指标名使用 "redlock.*" 前缀；OTel Meter 的 scope name 为 "xredlock"
// （tracerName），二者不同，如需统一命名空间应在采集端处理。
const (
	// metricNameAcquireTotal 获取锁次数计数器
	metricNameAcquireTotal = "redlock.acquire.total"
	// metricNameExtendTotal 续期次数计数器
	metricNameExtendTotal = "redlock.extend.total"
	// metricNameReleaseTotal 释放次数计数器
	metricNameReleaseTotal = "redlock.release.total"
	// metricNameAcquireDuration 获取锁耗时直方图（含全部重试）
	metricNameAcquireDuration = "redlock.acquire.duration"
)

// durationBuckets 耗时直方图的桶边界。
var durationBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0}

// Metrics 锁操作指标收集器。
// 提供 Counter 和 Histogram 类型的指标收集。
type Metrics struct {
	meter           metric.Meter
	acquireTotal    metric.Int64Counter
	extendTotal     metric.Int64Counter
	releaseTotal    metric.Int64Counter
	acquireDuration metric.Float64Histogram
}

// NewMetrics 创建指标收集器。
// meterProvider 为 nil 时返回 nil（不收集指标）。
func NewMetrics(meterProvider metric.MeterProvider) (*Metrics, error) {
	if meterProvider == nil {
		return nil, nil
	}

	m := &Metrics{}
	m.meter = meterProvider.Meter(tracerName,
		metric.WithInstrumentationVersion(instrumentationVersion),
	)

	var err error
	if m.acquireTotal, err = m.meter.Int64Counter(metricNameAcquireTotal,
		metric.WithDescription("锁获取次数"), metric.WithUnit("{acquire}")); err != nil {
		return nil, err
	}
	if m.extendTotal, err = m.meter.Int64Counter(metricNameExtendTotal,
		metric.WithDescription("锁续期次数"), metric.WithUnit("{extend}")); err != nil {
		return nil, err
	}
	if m.releaseTotal, err = m.meter.Int64Counter(metricNameReleaseTotal,
		metric.WithDescription("锁释放次数"), metric.WithUnit("{release}")); err != nil {
		return nil, err
	}
	if m.acquireDuration, err = m.meter.Float64Histogram(metricNameAcquireDuration,
		metric.WithDescription("锁获取耗时（含重试）"), metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...)); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordAcquire 记录一次获取结果（含全部重试的总耗时与尝试次数）。
func (m *Metrics) RecordAcquire(ctx context.Context, acquired bool, attempts int, duration time.Duration) {
	if m == nil {
		return
	}

	// 使用 context.WithoutCancel 确保即使 ctx 被取消，指标仍能记录
	metricsCtx := context.WithoutCancel(ctx)

	attrs := []attribute.KeyValue{
		attribute.Bool(attrAcquired, acquired),
		attribute.Int(attrAttempts, attempts),
	}

	m.acquireTotal.Add(metricsCtx, 1, metric.WithAttributes(attrs...))
	m.acquireDuration.Record(metricsCtx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordExtend 记录一次续期结果。
//
// Extend 和 Release 仅记录 counter，不记录 duration histogram，
// 耗时分布可通过 trace span 观测。
func (m *Metrics) RecordExtend(ctx context.Context, success bool) {
	if m == nil {
		return
	}

	metricsCtx := context.WithoutCancel(ctx)
	m.extendTotal.Add(metricsCtx, 1, metric.WithAttributes(
		attribute.Bool(attrSuccess, success),
	))
}

// RecordRelease 记录一次释放结果。
func (m *Metrics) RecordRelease(ctx context.Context, success bool) {
	if m == nil {
		return
	}

	metricsCtx := context.WithoutCancel(ctx)
	m.releaseTotal.Add(metricsCtx, 1, metric.WithAttributes(
		attribute.Bool(attrSuccess, success),
	))
}
