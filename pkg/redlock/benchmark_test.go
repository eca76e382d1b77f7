package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// newBenchRedlock 为基准测试创建单节点管理器。
func newBenchRedlock(b *testing.B) *Redlock {
	b.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	b.Cleanup(func() { _ = client.Close() })

	rl, err := New([]redis.UniversalClient{client}, WithRetryCount(0))
	if err != nil {
		b.Fatal(err)
	}
	return rl
}

func BenchmarkAcquireRelease(b *testing.B) {
	rl := newBenchRedlock(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		mu, err := rl.Acquire(ctx, []string{"bench"}, time.Minute)
		if err != nil {
			b.Fatal(err)
		}
		if err := mu.Release(ctx); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkExtend(b *testing.B) {
	rl := newBenchRedlock(b)
	ctx := context.Background()

	mu, err := rl.Acquire(ctx, []string{"bench"}, time.Minute)
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { _ = mu.Release(ctx) })

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := mu.Extend(ctx, time.Minute); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTokenGeneration(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := defaultGenValue(); err != nil {
			b.Fatal(err)
		}
	}
}
