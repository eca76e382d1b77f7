package redlock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
)

// =============================================================================
// Redlock 管理器
// =============================================================================

// Redlock 是跨多个独立 Redis 兼容节点的分布式锁管理器。
//
// 单节点即为普通的脚本化 SETNX 锁；多节点时按 Redlock 算法要求
// floor(N/2)+1 个节点投票通过才算获取成功。节点列表与配置在构造后只读。
//
// 同一个 Redlock 可被多个 goroutine 并发使用；返回的 *Mutex 句柄
// 归单个调用方所有，不应被两个任务同时操作。
type Redlock struct {
	nodes  []*node
	quorum int
	opts   *options
	closed atomic.Bool
}

// New 创建锁管理器。
// 客户端的生命周期由调用者管理，Close 不会关闭它们。
func New(clients []redis.UniversalClient, opts ...Option) (*Redlock, error) {
	if len(clients) == 0 {
		return nil, ErrNilClient
	}
	for i, c := range clients {
		if c == nil {
			return nil, fmt.Errorf("%w: client at index %d", ErrNilClient, i)
		}
	}

	cfg := defaultOptions().apply(opts)

	metrics, err := NewMetrics(cfg.meterProvider)
	if err != nil {
		return nil, fmt.Errorf("redlock: create metrics: %w", err)
	}
	cfg.metrics = metrics
	cfg.tracer = getTracer(cfg.tracerProvider)

	nodes := make([]*node, len(clients))
	for i, c := range clients {
		nodes[i] = &node{id: i, client: c}
	}

	return &Redlock{
		nodes:  nodes,
		quorum: len(nodes)/2 + 1,
		opts:   cfg,
	}, nil
}

// defaultGenValue 生成默认锁 token：随机 UUID（v4：128 位，其中 122 位加密随机）。
func defaultGenValue() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Close 关闭管理器。
//
// 仅阻止发起新的获取；已持有的 Mutex 仍可 Extend/Release，
// 避免关闭流程先于业务解锁时锁悬挂等待 TTL 过期。
// 客户端由调用者管理，这里不关闭。
func (r *Redlock) Close() error {
	r.closed.Swap(true)
	return nil
}

// Health 健康检查，对所有节点执行 PING。
func (r *Redlock) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if r.closed.Load() {
		return ErrManagerClosed
	}

	for _, n := range r.nodes {
		if err := n.client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redlock: node[%d] unhealthy: %w", n.id, err)
		}
	}
	return nil
}

// =============================================================================
// Acquire - 获取锁（重试循环）
// =============================================================================

// Acquire 获取锁。
//
// keys 为本次锁定的资源键集合，重复键会被去重，空集合被拒绝。
// ttl 为请求的锁存续时间，必须不小于 1ms；参数校验发生在任何网络 I/O 之前。
//
// 每轮尝试向全部节点并发广播 ACQUIRE 并等待所有节点落定，
// 达到法定多数且剩余有效期为正即成功；否则尽力回滚并按
// retryDelay + uniform(0, retryJitter) 退避重试，最多 retryCount+1 次尝试。
//
// 错误：
//   - 参数类错误（ErrInvalidTTL、ErrNoKeys 等）：不产生网络 I/O
//   - context.Canceled / context.DeadlineExceeded：调用方取消，重试等待被立即打断
//   - *ExecutionError：重试耗尽，携带全部按序尝试记录
func (r *Redlock) Acquire(ctx context.Context, keys []string, ttl time.Duration, opts ...Option) (*Mutex, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if r.closed.Load() {
		return nil, ErrManagerClosed
	}

	cfg := r.opts.clone().apply(opts)

	if err := validateTTL(ttl); err != nil {
		return nil, err
	}
	norm, err := normalizeKeys(keys, cfg.keyPrefix)
	if err != nil {
		return nil, err
	}

	ctx, span := startSpan(ctx, cfg.tracer, spanNameAcquire)
	defer span.End()
	span.SetAttributes(
		attribute.Int(attrKeyCount, len(norm)),
		attribute.Int(attrMembership, len(r.nodes)),
		attribute.Int(attrQuorum, r.quorum),
	)

	start := time.Now()
	m, attempts, err := r.acquireWithRetry(ctx, norm, ttl, cfg)
	duration := time.Since(start)

	cfg.metrics.RecordAcquire(ctx, err == nil, len(attempts), duration)
	span.SetAttributes(attribute.Int(attrAttempts, len(attempts)))

	if err != nil {
		setSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Bool(attrAcquired, true))
	setSpanOK(span)
	return m, nil
}

// acquireWithRetry 执行带重试的获取循环。
// 返回值：mutex、按序尝试记录、错误。
func (r *Redlock) acquireWithRetry(ctx context.Context, keys []string, ttl time.Duration, cfg *options) (*Mutex, []Attempt, error) {
	var (
		attempts []Attempt
		m        *Mutex
	)

	err := retryDo(ctx, cfg, func() error {
		got, att, onceErr := r.acquireOnce(ctx, keys, ttl, cfg)
		if att != nil {
			attempts = append(attempts, *att)
		}
		if onceErr != nil {
			return onceErr
		}
		m = got
		return nil
	})
	if err == nil {
		// 句柄携带包含失败轮次在内的完整尝试历史
		m.attempts = attempts
		return m, attempts, nil
	}

	// context 取消优先按原样返回（重试等待被打断的场景）
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, attempts, ctxErr
	}
	// 非投票类失败（如 token 生成失败）不包装为聚合错误
	if !errors.Is(err, errQuorumNotMet) {
		return nil, attempts, err
	}

	execErr := &ExecutionError{Op: "acquire", Attempts: attempts}
	if cfg.logger != nil {
		cfg.logger.Warn(ctx, "acquire lock failed after retries",
			attrKeys(keys), attrError(execErr))
	}
	return nil, attempts, execErr
}

// retryDo 按配置的退避策略执行重试循环。
// 退避为固定延迟加均匀抖动：delay + uniform(0, jitter)；
// context 取消会立即打断重试等待。总尝试次数 = retryCount + 1。
func retryDo(ctx context.Context, cfg *options, fn func() error) error {
	// jitter 为 0 时退化为纯固定延迟（RandomDelay 不接受零抖动）
	delayType := retry.CombineDelay(retry.FixedDelay, retry.RandomDelay)
	if cfg.retryJitter <= 0 {
		delayType = retry.FixedDelay
	}

	return retry.New(
		retry.Context(ctx),
		// #nosec G115 -- retryCount 经选项校验非负
		retry.Attempts(uint(cfg.retryCount)+1),
		retry.Delay(cfg.retryDelay),
		retry.MaxJitter(cfg.retryJitter),
		retry.DelayType(delayType),
		retry.LastErrorOnly(true),
	).Do(fn)
}

// acquireOnce 执行一次完整的获取尝试。
//
// 时间账目：start 取自广播前的单调时钟，elapsed 包含最慢节点的耗时
// （聚合必须等全部节点落定，否则有效期会被高估），漂移预算再从
// 有效期中扣除。过期时刻 = start + validity。
func (r *Redlock) acquireOnce(ctx context.Context, keys []string, ttl time.Duration, cfg *options) (*Mutex, *Attempt, error) {
	value, err := cfg.genValue()
	if err != nil {
		return nil, nil, retry.Unrecoverable(fmt.Errorf("redlock: generate lock value: %w", err))
	}

	start := time.Now()
	att := r.broadcast(ctx, getScripts().acquire, nodeTimeout(ttl, cfg.timeoutFactor),
		keys, acquireVote, value, ttl.Milliseconds())
	elapsed := time.Since(start)
	att.Validity = ttl - elapsed - driftBudget(ttl, cfg.driftFactor)

	if att.Succeeded() {
		return newMutex(r, cfg, keys, value, ttl, start.Add(att.Validity)), &att, nil
	}

	// 回滚：向全部节点（包括投反对票的）尽力释放——写入可能已落地
	// 而确认丢失。回滚不重试，TTL 是最终的安全网。
	r.rollback(ctx, keys, value, ttl, cfg)

	return nil, &att, errQuorumNotMet
}

// rollback 获取失败后的尽力回滚。
// 使用不随调用方取消的独立上下文：放弃获取的调用方仍希望清理残留写入。
func (r *Redlock) rollback(ctx context.Context, keys []string, value string, ttl time.Duration, cfg *options) {
	rbCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	att := r.broadcast(rbCtx, getScripts().release, nodeTimeout(ttl, cfg.timeoutFactor),
		keys, releaseVote, value)
	if cfg.logger != nil && len(att.VotesFor) == 0 {
		cfg.logger.Debug(ctx, "rollback release confirmed nothing",
			attrKeys(keys), attrAttempt(att))
	}
}

// =============================================================================
// 法定多数广播
// =============================================================================

// voteFunc 将脚本返回值映射为投票结果：nil 为赞成，否则为反对原因。
type voteFunc func(int64) error

// acquireVote ACQUIRE 的投票映射：0 表示键已被其他持有者占用。
func acquireVote(v int64) error {
	if v == 1 {
		return nil
	}
	return ErrResourceLocked
}

// extendVote EXTEND 的投票映射：0 表示 token 已不在该节点。
func extendVote(v int64) error {
	if v == 1 {
		return nil
	}
	return ErrNotHeld
}

// releaseVote RELEASE 的投票映射：删除至少一个键即视为赞成（按任一成功计）。
func releaseVote(v int64) error {
	if v >= 1 {
		return nil
	}
	return ErrNotHeld
}

// broadcast 向全部节点并发广播脚本并收集投票。
//
// 必须等待所有节点落定后才聚合，不做提前达到法定多数的短路：
// elapsed 要包含最慢节点，否则有效期计算不可靠（见 acquireOnce）。
func (r *Redlock) broadcast(ctx context.Context, script *redis.Script, timeout time.Duration,
	keys []string, vote voteFunc, args ...any) Attempt {

	nodeErrs := make([]error, len(r.nodes))

	var wg sync.WaitGroup
	for _, n := range r.nodes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := n.eval(ctx, script, timeout, keys, args...)
			if err != nil {
				nodeErrs[n.id] = err
				return
			}
			nodeErrs[n.id] = vote(v)
		}()
	}
	wg.Wait()

	att := Attempt{
		Membership:   len(r.nodes),
		Quorum:       r.quorum,
		VotesAgainst: make(map[int]error),
	}
	for i, err := range nodeErrs {
		if err == nil {
			att.VotesFor = append(att.VotesFor, i)
		} else {
			att.VotesAgainst[i] = err
		}
	}
	return att
}

// driftBudget 计算漂移预算：ttl * factor + 固定补偿项。
func driftBudget(ttl time.Duration, factor float64) time.Duration {
	return time.Duration(float64(ttl)*factor) + driftConstant
}
