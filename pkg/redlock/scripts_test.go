package redlock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetScripts_Singleton(t *testing.T) {
	s1 := getScripts()
	s2 := getScripts()
	assert.Same(t, s1, s2)

	assert.NotNil(t, s1.acquire)
	assert.NotNil(t, s1.extend)
	assert.NotNil(t, s1.release)
}

func TestScripts_DigestsAreDistinct(t *testing.T) {
	s := getScripts()

	// 三个脚本的 SHA1 互不相同且稳定非空
	hashes := map[string]struct{}{
		s.acquire.Hash(): {},
		s.extend.Hash():  {},
		s.release.Hash(): {},
	}
	assert.Len(t, hashes, 3)
	for h := range hashes {
		assert.Len(t, h, 40)
	}
}

func TestWarmupScripts_LoadsOnAllNodes(t *testing.T) {
	rl, _ := newTestRedlock(t, 2)
	ctx := context.Background()

	require.NoError(t, rl.WarmupScripts(ctx))

	s := getScripts()
	for _, n := range rl.nodes {
		exists, err := n.client.ScriptExists(ctx, s.acquire.Hash(), s.extend.Hash(), s.release.Hash()).Result()
		require.NoError(t, err)
		assert.Equal(t, []bool{true, true, true}, exists, "node[%d]", n.id)
	}
}

func TestWarmupScripts_Validation(t *testing.T) {
	rl, _ := newTestRedlock(t, 1)

	//nolint:staticcheck // 故意传入 nil context 验证防御
	assert.ErrorIs(t, rl.WarmupScripts(nil), ErrNilContext)

	require.NoError(t, rl.Close())
	assert.ErrorIs(t, rl.WarmupScripts(context.Background()), ErrManagerClosed)
}

func TestWarmupScripts_NodeDown_ReturnsError(t *testing.T) {
	rl, servers := newTestRedlock(t, 2)
	servers[1].Close()

	err := rl.WarmupScripts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node[1]")
}
