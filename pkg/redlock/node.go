package redlock

import (
	"context"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// 单节点执行器
// =============================================================================

// node 封装一个独立的 Redis 兼容节点。
// 节点以构造时客户端列表中的下标标识，出现在投票记录与日志中。
type node struct {
	id     int
	client redis.UniversalClient
}

// eval 在本节点上执行脚本并把返回值转为 int64。
//
// 超时由调用方按 ttl * timeoutFactor 计算后传入；每个节点独立计时，
// 慢节点不会阻塞其他节点的投票，但聚合要等全部节点落定（见 quorum 逻辑）。
func (n *node) eval(ctx context.Context, script *redis.Script, timeout time.Duration, keys []string, args ...any) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	val, err := script.Run(ctx, n.client, keys, args...).Result()
	if err != nil {
		return 0, err
	}
	return convertScriptResult(val)
}

// convertScriptResult 将 Lua 脚本返回值安全转换为 int64。
// 提取为纯函数，便于直接测试各种输入类型（int64、int、float64、未知类型）。
func convertScriptResult(val any) (int64, error) {
	switch v := val.(type) {
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, errUnexpectedScriptResult
		}
		return int64(v), nil
	default:
		return 0, errUnexpectedScriptResult
	}
}

// nodeTimeout 计算单节点脚本调用的超时。
// 取 ttl * factor 与 minNodeTimeout 的较大者。
func nodeTimeout(ttl time.Duration, factor float64) time.Duration {
	t := time.Duration(float64(ttl) * factor)
	if t < minNodeTimeout {
		return minNodeTimeout
	}
	return t
}
