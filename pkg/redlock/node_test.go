package redlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConvertScriptResult(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    int64
		wantErr bool
	}{
		{"int64", int64(1), 1, false},
		{"int", 2, 2, false},
		{"float64 integral", float64(3), 3, false},
		{"float64 fractional", 1.5, 0, true},
		{"string", "1", 0, true},
		{"nil", nil, 0, true},
		{"slice", []any{int64(1)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := convertScriptResult(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, errUnexpectedScriptResult)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNodeTimeout(t *testing.T) {
	// ttl * factor 大于下限时按比例
	assert.Equal(t, 3*time.Second, nodeTimeout(time.Minute, 0.05))
	// 极短 TTL 下钳制到下限
	assert.Equal(t, minNodeTimeout, nodeTimeout(100*time.Millisecond, 0.05))
}
