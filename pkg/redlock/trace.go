package redlock

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// =============================================================================
// Tracer 相关常量
// =============================================================================

const (
	// tracerName 追踪器名称
	tracerName = "xredlock"
)

// Span 操作名称
const (
	spanNameAcquire = "redlock.Acquire"
	spanNameExtend  = "redlock.Extend"
	spanNameRelease = "redlock.Release"
	spanNameDo      = "redlock.Do"
)

// Span 属性名称（Metrics 复用这些常量，确保 trace 与 metrics 键名一致）
const (
	attrOp         = "redlock.op"
	attrKeyCount   = "redlock.key_count"
	attrMembership = "redlock.membership"
	attrQuorum     = "redlock.quorum"
	attrVotesFor   = "redlock.votes_for"
	attrAcquired   = "redlock.acquired"
	attrSuccess    = "redlock.success"
	attrAttempts   = "redlock.attempts"
)

// =============================================================================
// Tracer 管理
// =============================================================================

// getTracer 获取 tracer 实例。
// 如果配置了 TracerProvider 则使用它，否则使用全局默认。
func getTracer(tp trace.TracerProvider) trace.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer(tracerName, trace.WithInstrumentationVersion(instrumentationVersion))
}

// =============================================================================
// Span 创建辅助函数
// =============================================================================

// startSpan 创建新的 span。
// tracer 为 nil 时使用全局 tracer（可能是 noop tracer）。
func startSpan(ctx context.Context, tracer trace.Tracer, name string) (context.Context, trace.Span) {
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(tracerName)
	}
	return tracer.Start(ctx, name)
}

// setSpanError 设置 span 错误状态。
func setSpanError(span trace.Span, err error) {
	if err != nil && span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// setSpanOK 设置 span 成功状态。
func setSpanOK(span trace.Span) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
	}
}

// attemptSpanAttributes 构建单次投票结果的 span 属性。
func attemptSpanAttributes(a *Attempt) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(attrMembership, a.Membership),
		attribute.Int(attrQuorum, a.Quorum),
		attribute.Int(attrVotesFor, len(a.VotesFor)),
	}
}
