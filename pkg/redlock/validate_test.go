package redlock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTTL(t *testing.T) {
	assert.ErrorIs(t, validateTTL(0), ErrInvalidTTL)
	assert.ErrorIs(t, validateTTL(-time.Second), ErrInvalidTTL)
	assert.ErrorIs(t, validateTTL(999*time.Microsecond), ErrInvalidTTL)

	assert.NoError(t, validateTTL(time.Millisecond))
	assert.NoError(t, validateTTL(time.Hour))
}

func TestNormalizeKeys(t *testing.T) {
	t.Run("empty set rejected", func(t *testing.T) {
		_, err := normalizeKeys(nil, "")
		assert.ErrorIs(t, err, ErrNoKeys)

		_, err = normalizeKeys([]string{}, "")
		assert.ErrorIs(t, err, ErrNoKeys)
	})

	t.Run("blank key rejected", func(t *testing.T) {
		_, err := normalizeKeys([]string{""}, "")
		assert.ErrorIs(t, err, ErrEmptyKey)

		_, err = normalizeKeys([]string{"a", " \t"}, "")
		assert.ErrorIs(t, err, ErrEmptyKey)
	})

	t.Run("dedup keeps first occurrence order", func(t *testing.T) {
		got, err := normalizeKeys([]string{"b", "a", "b", "c", "a"}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "a", "c"}, got)
	})

	t.Run("prefix applied after dedup", func(t *testing.T) {
		got, err := normalizeKeys([]string{"a", "a"}, "lock:")
		require.NoError(t, err)
		assert.Equal(t, []string{"lock:a"}, got)
	})

	t.Run("input slice not aliased", func(t *testing.T) {
		in := []string{"a", "b"}
		got, err := normalizeKeys(in, "")
		require.NoError(t, err)
		got[0] = "mutated"
		assert.Equal(t, []string{"a", "b"}, in)
	})
}
