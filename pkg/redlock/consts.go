package redlock

import "time"

// =============================================================================
// 默认配置常量
// =============================================================================

const (
	// DefaultDriftFactor 默认时钟漂移因子。
	// 漂移预算 = ttl * DriftFactor + driftConstant。
	DefaultDriftFactor = 0.01

	// DefaultRetryCount 默认额外重试次数（不含首次尝试）。
	// 总尝试次数 = RetryCount + 1。
	DefaultRetryCount = 10

	// DefaultRetryDelay 默认重试基础间隔。
	DefaultRetryDelay = 200 * time.Millisecond

	// DefaultRetryJitter 默认重试抖动上界。
	// 每次重试前等待 RetryDelay + uniform(0, RetryJitter)。
	DefaultRetryJitter = 200 * time.Millisecond

	// DefaultAutoExtendThreshold 默认自动续期阈值。
	// Do 的续期任务在距过期不足该阈值时触发。
	DefaultAutoExtendThreshold = 500 * time.Millisecond

	// DefaultTimeoutFactor 默认单节点超时因子。
	// 单节点脚本调用超时 = ttl * TimeoutFactor（下限 minNodeTimeout）。
	DefaultTimeoutFactor = 0.05
)

// =============================================================================
// 内部常量
// =============================================================================

const (
	// driftConstant 漂移预算的固定补偿项。
	// 覆盖 Redis 的毫秒级过期精度与取整误差。
	driftConstant = 2 * time.Millisecond

	// minNodeTimeout 单节点脚本调用的超时下限。
	// 极短 TTL 下避免超时退化到亚毫秒级导致节点全部误判为故障。
	minNodeTimeout = 50 * time.Millisecond

	// cleanupTimeout 释放锁的独立清理上下文超时。
	// 调用方 context 已取消/超时时，Release 切换到此超时的后台上下文，
	// 确保解锁尽力完成，避免锁残留到 TTL 过期。
	cleanupTimeout = 5 * time.Second

	// autoExtendTimeout 自动续期单次操作的超时上限。
	autoExtendTimeout = 10 * time.Second

	// instrumentationVersion 上报到 OTel 的 instrumentation 版本。
	instrumentationVersion = "0.1.0"
)
