package redlock

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// =============================================================================
// Mutex - 锁句柄
// =============================================================================

// Mutex 表示一次成功的锁获取。
//
// 句柄封装了本次获取的唯一 token：只有持有该 token 的句柄才能续期和
// 释放锁，不同获取之间不会互相干扰。持有 handle 即持有锁。
//
// 资源键与 token 在创建后不变；过期时刻在成功续期时原子更新，
// 句柄的所有引用方都能观察到更新。句柄不应被两个任务并发操作
// （token 复用本身安全，但过期时刻的账目会竞争）。
type Mutex struct {
	r   *Redlock
	cfg *options

	keys  []string
	value string

	// until 使用原子指针保护，续期与读取可能来自不同 goroutine
	//（Do 的续期任务与用户例程共享同一句柄）
	until atomic.Pointer[time.Time]

	// ttl 最近一次请求的存续时间（纳秒），release 的节点超时按此计算
	ttl atomic.Int64

	// attempts 获取阶段的按序尝试记录，创建后只读
	attempts []Attempt

	released atomic.Bool
}

// newMutex 创建锁句柄。
func newMutex(r *Redlock, cfg *options, keys []string, value string, ttl time.Duration, until time.Time) *Mutex {
	m := &Mutex{
		r:     r,
		cfg:   cfg,
		keys:  keys,
		value: value,
	}
	m.until.Store(&until)
	m.ttl.Store(int64(ttl))
	return m
}

// Value 返回锁 token。
func (m *Mutex) Value() string {
	return m.value
}

// Resources 返回本次锁定的资源键（含前缀，去重后的顺序），副本可安全持有。
func (m *Mutex) Resources() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

// Until 返回当前过期时刻（线程安全）。
// 仅当 time.Now() 早于该时刻时锁才可被安全地认为仍然持有。
func (m *Mutex) Until() time.Time {
	if p := m.until.Load(); p != nil {
		return *p
	}
	return time.Time{}
}

// Attempts 返回获取阶段的尝试记录副本，用于诊断。
func (m *Mutex) Attempts() []Attempt {
	out := make([]Attempt, len(m.attempts))
	copy(out, m.attempts)
	return out
}

// setUntil 原子更新过期时刻。
func (m *Mutex) setUntil(t time.Time) {
	m.until.Store(&t)
}

// =============================================================================
// Extend - 续期
// =============================================================================

// Extend 续期锁，把过期时刻向后推。
//
// token 保持不变，仅更新各节点上键的过期时间与句柄的过期时刻
// （不做 token 轮换）。新过期时刻 = 广播起点 + ttl - elapsed - drift；
// 法定多数未达成、有效期非正、或重新计算的过期时刻不晚于当前值时，
// 锁判定为已失去。
//
// 续期与获取走同一重试循环。重试耗尽返回的错误同时匹配
// ErrLockLost 与 *ExecutionError（通过 errors.Is / errors.As）；
// ctx 已取消或超时时返回 ctx.Err()。
// 在已释放的句柄上调用返回 ErrReleased，不产生网络 I/O。
func (m *Mutex) Extend(ctx context.Context, ttl time.Duration) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := validateTTL(ttl); err != nil {
		return err
	}
	if m.released.Load() {
		return ErrReleased
	}

	ctx, span := startSpan(ctx, m.cfg.tracer, spanNameExtend)
	defer span.End()

	err := m.extendWithRetry(ctx, ttl)
	m.cfg.metrics.RecordExtend(ctx, err == nil)
	if err != nil {
		setSpanError(span, err)
		return err
	}

	m.ttl.Store(int64(ttl))
	setSpanOK(span)
	return nil
}

// extendWithRetry 执行带重试的续期循环。
func (m *Mutex) extendWithRetry(ctx context.Context, ttl time.Duration) error {
	var attempts []Attempt

	err := retryDo(ctx, m.cfg, func() error {
		att, onceErr := m.extendOnce(ctx, ttl)
		attempts = append(attempts, att)
		return onceErr
	})
	if err == nil {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	execErr := &ExecutionError{Op: "extend", Attempts: attempts}
	if m.cfg.logger != nil {
		m.cfg.logger.Warn(ctx, "extend lock failed, lock lost",
			attrKeys(m.keys), attrError(execErr))
	}
	return fmt.Errorf("%w: %w", ErrLockLost, execErr)
}

// extendOnce 执行一次续期尝试。时间账目从广播发起时刻起算。
// 续期失败不回滚：各节点上先前的过期时间仍然有效。
func (m *Mutex) extendOnce(ctx context.Context, ttl time.Duration) (Attempt, error) {
	start := time.Now()
	att := m.r.broadcast(ctx, getScripts().extend, nodeTimeout(ttl, m.cfg.timeoutFactor),
		m.keys, extendVote, m.value, ttl.Milliseconds())
	elapsed := time.Since(start)
	att.Validity = ttl - elapsed - driftBudget(ttl, m.cfg.driftFactor)

	newUntil := start.Add(att.Validity)
	if !att.Succeeded() || !newUntil.After(m.Until()) {
		return att, errQuorumNotMet
	}

	m.setUntil(newUntil)
	return att, nil
}

// =============================================================================
// Release - 释放
// =============================================================================

// Release 释放锁，句柄进入终态。
//
// 释放是尽力而为的单轮广播，不要求法定多数：任一节点确认删除即视为
// 成功；全部节点都报告 token 不在（键已自然过期或被本句柄之外释放）
// 同样视为成功。只有存在传输故障且没有任何节点确认时才返回
// *ExecutionError 诊断——此时锁会随 TTL 自然过期。
//
// 调用方 context 已取消/超时时自动切换到独立清理上下文（5 秒超时），
// 确保 defer 路径上的解锁尽力完成。
// 重复释放返回 ErrReleased，不产生网络 I/O。
func (m *Mutex) Release(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if m.released.Swap(true) {
		return ErrReleased
	}

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
		defer cancel()
	}

	ctx, span := startSpan(ctx, m.cfg.tracer, spanNameRelease)
	defer span.End()

	ttl := time.Duration(m.ttl.Load())
	att := m.r.broadcast(ctx, getScripts().release, nodeTimeout(ttl, m.cfg.timeoutFactor),
		m.keys, releaseVote, m.value)
	span.SetAttributes(attemptSpanAttributes(&att)...)

	err := releaseOutcome(att)
	m.cfg.metrics.RecordRelease(ctx, err == nil)
	if err != nil {
		if m.cfg.logger != nil {
			m.cfg.logger.Warn(ctx, "release unconfirmed, lock will expire by ttl",
				attrKeys(m.keys), attrAttempt(att))
		}
		setSpanError(span, err)
		return err
	}

	setSpanOK(span)
	return nil
}

// releaseOutcome 判定释放结果。
// 仅当没有任何节点确认且至少一个反对原因是传输故障时才算失败。
func releaseOutcome(att Attempt) error {
	if len(att.VotesFor) > 0 {
		return nil
	}
	for _, nodeErr := range att.VotesAgainst {
		if !errors.Is(nodeErr, ErrNotHeld) {
			return &ExecutionError{Op: "release", Attempts: []Attempt{att}}
		}
	}
	return nil
}
