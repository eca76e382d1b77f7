package redlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsFromBytes_YAML(t *testing.T) {
	data := []byte(`
keyPrefix: "lock:"
driftFactor: 0.02
retryCount: 5
retryDelayMs: 100
retryJitterMs: 50
autoExtendThresholdMs: 300
timeoutFactor: 0.1
`)

	s, err := SettingsFromBytes(data, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "lock:", s.KeyPrefix)
	assert.Equal(t, 0.02, s.DriftFactor)
	assert.Equal(t, 5, s.RetryCount)
	assert.Equal(t, int64(100), s.RetryDelayMS)
	assert.Equal(t, int64(50), s.RetryJitterMS)
	assert.Equal(t, int64(300), s.AutoExtendThresholdMS)
	assert.Equal(t, 0.1, s.TimeoutFactor)
}

func TestSettingsFromBytes_JSON(t *testing.T) {
	data := []byte(`{"retryCount": 2, "retryDelayMs": 20}`)

	s, err := SettingsFromBytes(data, FormatJSON)
	require.NoError(t, err)

	assert.Equal(t, 2, s.RetryCount)
	assert.Equal(t, int64(20), s.RetryDelayMS)
	// 未出现的字段保持零值
	assert.Zero(t, s.DriftFactor)
}

func TestSettingsFromBytes_UnsupportedFormat(t *testing.T) {
	_, err := SettingsFromBytes([]byte("a: 1"), Format("toml"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestSettingsFromBytes_MalformedData(t *testing.T) {
	_, err := SettingsFromBytes([]byte("{not json"), FormatJSON)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}

func TestSettingsFromBytes_NegativeValuesRejected(t *testing.T) {
	tests := []string{
		`{"driftFactor": -0.1}`,
		`{"retryCount": -1}`,
		`{"retryDelayMs": -1}`,
		`{"retryJitterMs": -1}`,
		`{"autoExtendThresholdMs": -1}`,
		`{"timeoutFactor": -0.5}`,
	}
	for _, data := range tests {
		_, err := SettingsFromBytes([]byte(data), FormatJSON)
		assert.ErrorIs(t, err, ErrInvalidSettings, "data=%s", data)
	}
}

func TestSettingsFromBytes_EmptyData(t *testing.T) {
	// 空配置合法：全部沿用内置默认
	s, err := SettingsFromBytes(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, s.Options())
}

func TestSettings_Options(t *testing.T) {
	s := &Settings{
		KeyPrefix:             "lock:",
		DriftFactor:           0.02,
		RetryCount:            5,
		RetryDelayMS:          100,
		RetryJitterMS:         50,
		AutoExtendThresholdMS: 300,
		TimeoutFactor:         0.1,
	}

	o := defaultOptions().apply(s.Options())

	assert.Equal(t, "lock:", o.keyPrefix)
	assert.Equal(t, 0.02, o.driftFactor)
	assert.Equal(t, 5, o.retryCount)
	assert.Equal(t, 100*time.Millisecond, o.retryDelay)
	assert.Equal(t, 50*time.Millisecond, o.retryJitter)
	assert.Equal(t, 300*time.Millisecond, o.autoExtendThreshold)
	assert.Equal(t, 0.1, o.timeoutFactor)
}

func TestSettings_Options_ZeroValuesUseDefaults(t *testing.T) {
	o := defaultOptions().apply((&Settings{}).Options())

	assert.Equal(t, DefaultRetryCount, o.retryCount)
	assert.Equal(t, DefaultRetryDelay, o.retryDelay)
	assert.Equal(t, DefaultDriftFactor, o.driftFactor)
}
