package redlock

import (
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Option 配置选项。
//
// 选项既可在 New 时设定进程级默认值，也可在 Acquire/Do 时按次覆盖。
// WithMeterProvider、WithTracerProvider 仅在 New 时生效：meter/tracer
// 在构造时解析为实例，按次传入会被忽略。WithLogger 按次传入同样生效。
type Option func(*options)

// options 管理器与单次操作的合并配置。
type options struct {
	keyPrefix           string
	driftFactor         float64
	retryCount          int
	retryDelay          time.Duration
	retryJitter         time.Duration
	autoExtendThreshold time.Duration
	timeoutFactor       float64
	genValue            func() (string, error)

	// 观测类配置：meterProvider/tracerProvider 仅 New 时解析
	logger         Logger
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	// New 时由 provider 解析出的实例，按次克隆时原样携带
	metrics *Metrics
	tracer  trace.Tracer
}

// defaultOptions 返回默认配置。
func defaultOptions() *options {
	return &options{
		driftFactor:         DefaultDriftFactor,
		retryCount:          DefaultRetryCount,
		retryDelay:          DefaultRetryDelay,
		retryJitter:         DefaultRetryJitter,
		autoExtendThreshold: DefaultAutoExtendThreshold,
		timeoutFactor:       DefaultTimeoutFactor,
		genValue:            defaultGenValue,
	}
}

// clone 复制一份配置用于按次覆盖，管理器默认值不受影响。
func (o *options) clone() *options {
	c := *o
	return &c
}

// apply 应用选项，nil 选项被静默忽略。
func (o *options) apply(opts []Option) *options {
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithKeyPrefix 设置资源键前缀。
// 最终键 = prefix + key。默认无前缀。
//
// 注意：集群部署下同一把锁的全部键必须映射到同一 slot，
// 这由调用方通过 hash tag（如 "{order}:a"）保证，前缀不应破坏 hash tag。
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		o.keyPrefix = prefix
	}
}

// WithDriftFactor 设置时钟漂移因子。
// 漂移预算 = ttl * factor + 2ms，从有效期中扣除。
// 默认值：0.01。值必须 > 0，非正值会被忽略（0 会破坏漂移补偿）。
func WithDriftFactor(f float64) Option {
	return func(o *options) {
		if f > 0 {
			o.driftFactor = f
		}
	}
}

// WithRetryCount 设置额外重试次数（不含首次尝试）。
// 总尝试次数 = n + 1。默认值：10。设置为 0 表示只尝试一次。
// 负值会被忽略。
func WithRetryCount(n int) Option {
	return func(o *options) {
		if n >= 0 {
			o.retryCount = n
		}
	}
}

// WithRetryDelay 设置重试基础间隔。
// 默认值：200ms。负值会被忽略；0 表示仅按抖动等待。
func WithRetryDelay(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryDelay = d
		}
	}
}

// WithRetryJitter 设置重试抖动上界。
// 每次重试前等待 delay + uniform(0, jitter)，打散多实例的竞争节奏。
// 默认值：200ms。负值会被忽略。
func WithRetryJitter(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.retryJitter = d
		}
	}
}

// WithAutoExtendThreshold 设置 Do 的自动续期阈值。
// 续期任务保证在距过期不足该阈值前发起；获取锁时已不足阈值则立即续期。
// 默认值：500ms。非正值会被忽略。
func WithAutoExtendThreshold(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.autoExtendThreshold = d
		}
	}
}

// WithTimeoutFactor 设置单节点超时因子。
// 单节点脚本调用超时 = ttl * factor（下限 50ms）。
// 默认值：0.05。非正值会被忽略。
func WithTimeoutFactor(f float64) Option {
	return func(o *options) {
		if f > 0 {
			o.timeoutFactor = f
		}
	}
}

// WithGenValueFunc 设置自定义锁 token 生成函数。
// 默认使用随机 UUID（v4：128 位，其中 122 位加密随机）。
//
// 注意：token 是所有权凭证，必须全局唯一且不可预测，
// 否则其他进程可以伪造 token 释放或续期本进程的锁。
func WithGenValueFunc(fn func() (string, error)) Option {
	return func(o *options) {
		if fn != nil {
			o.genValue = fn
		}
	}
}

// WithLogger 注入日志记录器。
// 用于记录续期失败、回滚失败、重试耗尽等事件。默认不输出日志。
// 可在 New 时设定，也可在 Acquire/Do 时按次覆盖。
func WithLogger(l Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMeterProvider 注入 OTel MeterProvider 以启用指标收集。
// 默认不收集指标。仅在 New 时生效。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		o.meterProvider = mp
	}
}

// WithTracerProvider 注入 OTel TracerProvider 以启用链路追踪。
// 默认使用全局 TracerProvider（未配置时为 noop）。仅在 New 时生效。
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		o.tracerProvider = tp
	}
}
