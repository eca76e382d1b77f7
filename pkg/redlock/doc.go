// Package redlock 提供跨多个独立 Redis 兼容节点的客户端分布式锁
// （Redlock 算法），支持有界锁生命周期、法定多数投票与协作式续期。
//
// # 设计理念
//
//   - 互斥在服务端：客户端不持有任何跨暂停点的进程内锁，
//     所有权由各节点上的 token 与 TTL 共同表达
//   - 时间账目保守：每轮尝试等全部节点落定后才计算剩余有效期，
//     漂移预算（ttl*driftFactor + 2ms）从有效期中扣除
//   - 句柄即所有权：每次获取生成唯一 token，Extend/Release 只作用于
//     本次获取，不会干扰其他持有者
//   - 诊断完整：失败携带每轮尝试中每个节点的投票与反对原因
//
// # 核心概念
//
//   - Redlock: 锁管理器，持有节点列表与进程级默认配置
//   - Mutex: 单次锁获取的句柄，提供 Extend/Release
//   - Do: 作用域锁助手，自动续期并保证每条退出路径上释放
//   - Attempt / ExecutionError: 投票记录与重试耗尽后的聚合诊断
//
// # 使用模式
//
//	rl, err := redlock.New([]redis.UniversalClient{c1, c2, c3})
//	if err != nil {
//	    return err
//	}
//
//	mu, err := rl.Acquire(ctx, []string{"{order}:42"}, 8*time.Second)
//	if err != nil {
//	    return err // 重试耗尽或参数错误
//	}
//	defer mu.Release(ctx)
//
// 长临界区建议使用 Do，由后台任务自动续期：
//
//	err := rl.Do(ctx, []string{"{job}:daily"}, 8*time.Second, func(ctx context.Context) error {
//	    for {
//	        select {
//	        case <-ctx.Done():
//	            // 锁已失去：context.Cause(ctx) 携带具体的续期失败原因
//	            return context.Cause(ctx)
//	        default:
//	        }
//	        // 执行一段工作...
//	    }
//	})
//
// # 取消语义
//
// Do 传给例程的 context 即"锁已失去"信号：续期失败时该 context 被
// 取消，context.Cause 返回携带尝试记录的 *ExecutionError。系统不会
// 强行终止例程——例程自行决定观察信号的粒度；例程正常返回的结果
// 始终原样传播。
//
// # 法定多数与有效期
//
// N 个节点的法定阈值为 floor(N/2)+1。一次获取的剩余有效期为
// ttl - elapsed - drift，elapsed 包含最慢节点的往返。达到法定多数但
// 有效期已耗尽的获取同样判定失败并触发回滚释放。
//
// # 集群注意事项
//
// 同一把锁的多个资源键必须映射到同一 hash slot（使用 {tag} 语法），
// 这由调用方保证；键在脚本内逐个操作，跨 slot 会被集群拒绝。
//
// # 脚本兼容性
//
// 三个服务端脚本（ACQUIRE/EXTEND/RELEASE）以内容 SHA1 为稳定标识，
// 执行走 EVALSHA 快路径并在 NOSCRIPT 时自动降级加载。脚本文本跨版本
// 不可变更，节点可能缓存旧摘要。
package redlock
