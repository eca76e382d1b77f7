package redlock

import (
	"strings"
	"testing"
)

// FuzzNormalizeKeys 验证键规范化在任意输入下的不变量：
// 不 panic、输出无重复、全部带前缀、空键必被拒绝。
func FuzzNormalizeKeys(f *testing.F) {
	f.Add("a", "b", "lock:")
	f.Add("", "x", "")
	f.Add("k", "k", "p:")
	f.Add(" ", "y", "")
	f.Add("{r}a", "{r}b", "ns:")

	f.Fuzz(func(t *testing.T, k1, k2, prefix string) {
		out, err := normalizeKeys([]string{k1, k2}, prefix)
		if err != nil {
			// 仅允许空键错误（输入非空集合）
			if strings.TrimSpace(k1) != "" && strings.TrimSpace(k2) != "" {
				t.Fatalf("unexpected error for non-blank keys: %v", err)
			}
			return
		}

		seen := make(map[string]struct{}, len(out))
		for _, key := range out {
			if !strings.HasPrefix(key, prefix) {
				t.Fatalf("key %q missing prefix %q", key, prefix)
			}
			if _, dup := seen[key]; dup {
				t.Fatalf("duplicate key %q in output", key)
			}
			seen[key] = struct{}{}
		}

		if len(out) == 0 {
			t.Fatal("non-error result must contain at least one key")
		}
	})
}

// FuzzSettingsFromBytes 验证配置解析对任意字节输入不 panic，
// 且成功解析的配置通过字段校验。
func FuzzSettingsFromBytes(f *testing.F) {
	f.Add([]byte(`{"retryCount": 3}`))
	f.Add([]byte(`retryDelayMs: 100`))
	f.Add([]byte(``))
	f.Add([]byte(`{"driftFactor": -1}`))

	f.Fuzz(func(t *testing.T, data []byte) {
		s, err := SettingsFromBytes(data, FormatJSON)
		if err != nil {
			return
		}
		if s.validate() != nil {
			t.Fatal("parsed settings must pass validation")
		}
	})
}
