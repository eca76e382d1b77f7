package redlock

import (
	"context"
	"log/slog"
)

// Logger 日志接口。
//
// 方法签名只接受 slog.Attr，保证类型安全；所有方法都需要 context.Context，
// 确保追踪信息正确传播。未注入 logger 时（默认）不输出任何日志。
//
// *slog.Logger 可通过 SlogLogger 直接适配。
type Logger interface {
	// Debug 记录 Debug 级别日志
	Debug(ctx context.Context, msg string, attrs ...slog.Attr)

	// Warn 记录 Warn 级别日志
	Warn(ctx context.Context, msg string, attrs ...slog.Attr)
}

// SlogLogger 将 *slog.Logger 适配为 Logger。
// 传入 nil 返回 nil（等价于不记录日志）。
func SlogLogger(l *slog.Logger) Logger {
	if l == nil {
		return nil
	}
	return slogLogger{l: l}
}

// 编译时接口检查
var _ Logger = slogLogger{}

type slogLogger struct {
	l *slog.Logger
}

func (s slogLogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.l.LogAttrs(ctx, slog.LevelDebug, msg, attrs...)
}

func (s slogLogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	s.l.LogAttrs(ctx, slog.LevelWarn, msg, attrs...)
}

// =============================================================================
// 常用属性构建
// =============================================================================

// attrError 构建错误属性。
func attrError(err error) slog.Attr {
	return slog.Any("error", err)
}

// attrKeys 构建资源键属性。
func attrKeys(keys []string) slog.Attr {
	return slog.Any("keys", keys)
}

// attrAttempt 构建投票记录摘要属性。
func attrAttempt(a Attempt) slog.Attr {
	return slog.String("attempt", a.String())
}
