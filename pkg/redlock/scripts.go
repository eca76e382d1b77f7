package redlock

import (
	"context"
	_ "embed"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// =============================================================================
// Lua 脚本嵌入
// =============================================================================

var (
	//go:embed lua/acquire.lua
	acquireLuaSource string

	//go:embed lua/extend.lua
	extendLuaSource string

	//go:embed lua/release.lua
	releaseLuaSource string
)

// =============================================================================
// 脚本管理器 - 单例模式确保脚本只创建一次
// =============================================================================

// scripts 持有全部 Redis 脚本实例。
//
// redis.Script 以脚本文本的 SHA1 作为稳定标识：执行时先走 EVALSHA 快路径，
// 节点回复 NOSCRIPT 时自动降级为 EVAL 并在该节点缓存脚本。
// 脚本文本的任何改动都会改变摘要，属于兼容性破坏，不可轻易变更。
type scripts struct {
	acquire *redis.Script
	extend  *redis.Script
	release *redis.Script
}

var (
	globalScripts     *scripts
	globalScriptsOnce sync.Once
)

// getScripts 获取脚本实例（线程安全的单例）。
func getScripts() *scripts {
	globalScriptsOnce.Do(func() {
		globalScripts = &scripts{
			acquire: redis.NewScript(acquireLuaSource),
			extend:  redis.NewScript(extendLuaSource),
			release: redis.NewScript(releaseLuaSource),
		}
	})
	return globalScripts
}

// =============================================================================
// 脚本预热
// =============================================================================

// WarmupScripts 将脚本预加载到所有节点的脚本缓存中。
//
// 建议在应用启动时调用，避免首次加锁时各节点的 NOSCRIPT 降级往返。
// 任一节点加载失败即返回错误，但不影响后续使用（执行时会自动降级重试）。
func (r *Redlock) WarmupScripts(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	if r.closed.Load() {
		return ErrManagerClosed
	}

	s := getScripts()
	load := []struct {
		name   string
		script *redis.Script
	}{
		{"acquire", s.acquire},
		{"extend", s.extend},
		{"release", s.release},
	}

	// 顺序加载而非 Pipeline 批量加载：启动时一次性操作，额外的往返
	// 不影响启动时间，且顺序加载更易于定位失败的节点和脚本。
	for _, n := range r.nodes {
		for _, l := range load {
			if err := l.script.Load(ctx, n.client).Err(); err != nil {
				return fmt.Errorf("load %s script on node[%d]: %w", l.name, n.id, err)
			}
		}
	}
	return nil
}
