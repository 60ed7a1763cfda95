package lock

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iurnickita/coursebot/internal/lock/config"
)

// testRedis подключается к Redis из REDIS_ADDR, без него тест пропускается.
func testRedis(t *testing.T, ttl time.Duration) *redisLocker {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR is not set")
	}
	locker, err := NewRedis(config.Config{
		RedisAddr:     addr,
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		TTL:           ttl,
	})
	require.NoError(t, err)

	l := locker.(*redisLocker)
	t.Cleanup(func() { l.client.Close() })
	return l
}

func testKey(t *testing.T) string {
	return fmt.Sprintf("test:%s:%d", t.Name(), time.Now().UnixNano())
}

func TestRedisSerializesSameKey(t *testing.T) {
	l := testRedis(t, 5*time.Second)
	key := testKey(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
		errs    []error
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, key)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(5 * time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 1, maxSeen)

	// все блокировки сняты
	n, err := l.client.Exists(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRedisWaitTimeout(t *testing.T) {
	l := testRedis(t, 5*time.Second)
	key := testKey(t)

	unlock, err := l.Lock(context.Background(), key)
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, key)
	require.ErrorIs(t, err, ErrLockTimeout)
}

func TestRedisStaleUnlockKeepsNewHolder(t *testing.T) {
	ttl := 300 * time.Millisecond
	l := testRedis(t, ttl)
	key := testKey(t)
	ctx := context.Background()

	unlockOld, err := l.Lock(ctx, key)
	require.NoError(t, err)

	// блокировка истекла, её забирает другой владелец
	time.Sleep(ttl + 50*time.Millisecond)
	unlockNew, err := l.Lock(ctx, key)
	require.NoError(t, err)
	newToken, err := l.client.Get(ctx, keyPrefix+key).Result()
	require.NoError(t, err)

	// старый владелец не должен снять чужую блокировку
	unlockOld()
	got, err := l.client.Get(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	require.Equal(t, newToken, got)

	unlockNew()
	n, err := l.client.Exists(ctx, keyPrefix+key).Result()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestRedisUnlockIdempotent(t *testing.T) {
	l := testRedis(t, 5*time.Second)
	key := testKey(t)
	ctx := context.Background()

	unlock, err := l.Lock(ctx, key)
	require.NoError(t, err)
	unlock()
	unlock()

	unlock, err = l.Lock(ctx, key)
	require.NoError(t, err)
	unlock()
}

func TestNewRedisUnreachable(t *testing.T) {
	_, err := NewLocker(config.Config{RedisAddr: "127.0.0.1:1"})
	require.Error(t, err)
}
