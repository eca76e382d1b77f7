package redlock

import (
	"context"
	"errors"
	"time"
)

// =============================================================================
// Do - 作用域锁助手（自动续期的临界区）
// =============================================================================

// Do 在锁的保护下执行 fn，并在 fn 存续期间自动续期。
//
// 流程：
//  1. 获取锁；获取失败直接返回错误，fn 不会被调用。
//  2. 以调用方 ctx 派生出可带原因取消的 lockCtx 传给 fn。
//  3. 后台续期任务保证在距过期不足 autoExtendThreshold 前发起续期
//     （获取时已不足阈值则立即续期），成功后按新过期时刻重新调度。
//  4. 续期失败时以失败原因取消 lockCtx 并停止调度；fn 通过
//     lockCtx.Done() 观察到"锁已失去"，通过 context.Cause(lockCtx)
//     取得具体的执行错误。系统不会强行终止 fn。
//  5. fn 结束（返回、出错或 panic）后，先停止续期任务再释放锁
//     （续期停止先于释放完成），释放在每条退出路径上都会执行。
//
// 错误传播：fn 的错误原样返回，此时释放失败仅记录日志；
// fn 成功而释放失败时返回释放的 *ExecutionError 诊断。
// fn 成功但 lockCtx 已被取消时仍返回 fn 的结果——是否中途放弃
// 由 fn 自行消费取消信号决定。
func (r *Redlock) Do(ctx context.Context, keys []string, ttl time.Duration, fn func(ctx context.Context) error, opts ...Option) (err error) {
	if ctx == nil {
		return ErrNilContext
	}
	if fn == nil {
		return ErrNilRoutine
	}

	cfg := r.opts.clone().apply(opts)

	ctx, span := startSpan(ctx, cfg.tracer, spanNameDo)
	defer span.End()

	m, err := r.Acquire(ctx, keys, ttl, opts...)
	if err != nil {
		setSpanError(span, err)
		return err
	}

	lockCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	stopExtend := m.startAutoExtend(ttl, cfg, cancel)

	defer func() {
		// 续期任务先于释放完成，二者不会竞争同一句柄
		stopExtend()

		relErr := m.Release(ctx)
		if relErr != nil && !errors.Is(relErr, ErrReleased) {
			if err == nil {
				err = relErr
			} else if cfg.logger != nil {
				// fn 的错误优先传播，释放失败降级为诊断日志
				cfg.logger.Warn(ctx, "release after routine failure",
					attrKeys(m.Resources()), attrError(relErr))
			}
		}

		if err != nil {
			setSpanError(span, err)
		} else {
			setSpanOK(span)
		}
	}()

	err = fn(lockCtx)
	return err
}

// =============================================================================
// 自动续期任务
// =============================================================================

// startAutoExtend 启动自动续期任务，返回停止函数。
//
// 停止函数会等待任务 goroutine 退出后才返回（含在途的续期调用），
// 保证停止完成后句柄不再被续期任务触碰。
func (m *Mutex) startAutoExtend(ttl time.Duration, cfg *options, cancel context.CancelCauseFunc) (stop func()) {
	stopCh := make(chan struct{})
	done := make(chan struct{})

	go m.runAutoExtend(ttl, cfg, cancel, stopCh, done)

	return func() {
		close(stopCh)
		<-done
	}
}

// runAutoExtend 自动续期循环。
//
// 每轮在 expiration - threshold 时刻触发；获取时已越过该时刻则
// 立即触发。续期本身带独立超时，不随 fn 的 lockCtx 取消——释放
// 流程靠 stopCh 终止本任务。
func (m *Mutex) runAutoExtend(ttl time.Duration, cfg *options, cancel context.CancelCauseFunc, stopCh <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	timer := time.NewTimer(m.autoExtendDelay(cfg.autoExtendThreshold))
	defer timer.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-timer.C:
			timeout := min(autoExtendTimeout, ttl)
			ectx, ecancel := context.WithTimeout(context.Background(), timeout)
			err := m.Extend(ectx, ttl)
			ecancel()

			if err != nil {
				if cfg.logger != nil {
					cfg.logger.Warn(ectx, "auto extend failed, aborting routine",
						attrKeys(m.keys), attrError(err))
				}
				cancel(err)
				return
			}

			timer.Reset(m.autoExtendDelay(cfg.autoExtendThreshold))
		}
	}
}

// autoExtendDelay 计算距下一次续期触发的等待时长。
// 已越过触发时刻时返回 0（定时器立即到期）。
func (m *Mutex) autoExtendDelay(threshold time.Duration) time.Duration {
	d := time.Until(m.Until()) - threshold
	if d < 0 {
		return 0
	}
	return d
}
