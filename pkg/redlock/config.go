package redlock

import (
	"fmt"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// =============================================================================
// Settings - 可从配置文件加载的进程级默认值
// =============================================================================

// Format 配置数据格式。
type Format string

const (
	// FormatYAML YAML 格式
	FormatYAML Format = "yaml"
	// FormatJSON JSON 格式
	FormatJSON Format = "json"
)

// Settings 锁管理器的可配置默认值。
//
// 时间类字段以毫秒计（与 Redis 的 PX 精度一致）；零值字段表示
// 沿用内置默认。通过 Options 转为 New 的选项。
type Settings struct {
	// KeyPrefix 资源键前缀
	KeyPrefix string `koanf:"keyPrefix"`

	// DriftFactor 时钟漂移因子，默认 0.01
	DriftFactor float64 `koanf:"driftFactor"`

	// RetryCount 额外重试次数，默认 10
	RetryCount int `koanf:"retryCount"`

	// RetryDelayMS 重试基础间隔（毫秒），默认 200
	RetryDelayMS int64 `koanf:"retryDelayMs"`

	// RetryJitterMS 重试抖动上界（毫秒），默认 200
	RetryJitterMS int64 `koanf:"retryJitterMs"`

	// AutoExtendThresholdMS 自动续期阈值（毫秒），默认 500
	AutoExtendThresholdMS int64 `koanf:"autoExtendThresholdMs"`

	// TimeoutFactor 单节点超时因子，默认 0.05
	TimeoutFactor float64 `koanf:"timeoutFactor"`
}

// koanfDelim 配置键分隔符。
const koanfDelim = "."

// SettingsFromBytes 从字节数据解析配置。
// 需要显式指定格式，适用于 ConfigMap 等场景。
func SettingsFromBytes(data []byte, format Format) (*Settings, error) {
	var parser koanf.Parser
	switch format {
	case FormatYAML:
		parser = yaml.Parser()
	case FormatJSON:
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	k := koanf.New(koanfDelim)
	if err := k.Load(rawbytes.Provider(data), parser); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}

	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// validate 校验字段取值。零值放行（表示沿用默认），负值拒绝。
func (s *Settings) validate() error {
	if s.DriftFactor < 0 {
		return fmt.Errorf("%w: driftFactor must not be negative", ErrInvalidSettings)
	}
	if s.RetryCount < 0 {
		return fmt.Errorf("%w: retryCount must not be negative", ErrInvalidSettings)
	}
	if s.RetryDelayMS < 0 {
		return fmt.Errorf("%w: retryDelayMs must not be negative", ErrInvalidSettings)
	}
	if s.RetryJitterMS < 0 {
		return fmt.Errorf("%w: retryJitterMs must not be negative", ErrInvalidSettings)
	}
	if s.AutoExtendThresholdMS < 0 {
		return fmt.Errorf("%w: autoExtendThresholdMs must not be negative", ErrInvalidSettings)
	}
	if s.TimeoutFactor < 0 {
		return fmt.Errorf("%w: timeoutFactor must not be negative", ErrInvalidSettings)
	}
	return nil
}

// Options 将配置转为 New 的选项。
// 零值字段不产生选项，沿用内置默认。
func (s *Settings) Options() []Option {
	var opts []Option
	if s.KeyPrefix != "" {
		opts = append(opts, WithKeyPrefix(s.KeyPrefix))
	}
	if s.DriftFactor > 0 {
		opts = append(opts, WithDriftFactor(s.DriftFactor))
	}
	if s.RetryCount > 0 {
		opts = append(opts, WithRetryCount(s.RetryCount))
	}
	if s.RetryDelayMS > 0 {
		opts = append(opts, WithRetryDelay(time.Duration(s.RetryDelayMS)*time.Millisecond))
	}
	if s.RetryJitterMS > 0 {
		opts = append(opts, WithRetryJitter(time.Duration(s.RetryJitterMS)*time.Millisecond))
	}
	if s.AutoExtendThresholdMS > 0 {
		opts = append(opts, WithAutoExtendThreshold(time.Duration(s.AutoExtendThresholdMS)*time.Millisecond))
	}
	if s.TimeoutFactor > 0 {
		opts = append(opts, WithTimeoutFactor(s.TimeoutFactor))
	}
	return opts
}
