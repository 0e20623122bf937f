package inflight

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedGuard(t *testing.T) {
	g := NewKeyedGuard[int64]()

	assert.True(t, g.TryAcquire(1))
	assert.False(t, g.TryAcquire(1))
	assert.True(t, g.TryAcquire(2))
	assert.True(t, g.Busy(1))
	assert.Equal(t, 2, g.Len())

	g.Release(1)
	assert.False(t, g.Busy(1))
	assert.True(t, g.TryAcquire(1))
}

func TestKeyedGuard_ConcurrentSingleWinner(t *testing.T) {
	g := NewKeyedGuard[string]()
	var wins atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.TryAcquire("group") {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestFlag(t *testing.T) {
	var f Flag

	assert.False(t, f.Running())
	assert.True(t, f.TryAcquire())
	assert.False(t, f.TryAcquire())
	assert.True(t, f.Running())

	f.Release()
	assert.True(t, f.TryAcquire())
}

func TestSeenCache_TTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSeenCacheWithClock(60*time.Second, func() time.Time { return now })

	assert.True(t, c.Mark("h1"))
	assert.False(t, c.Mark("h1"))
	assert.True(t, c.Seen("h1"))

	now = now.Add(59 * time.Second)
	assert.False(t, c.Mark("h1"))

	now = now.Add(time.Second)
	assert.False(t, c.Seen("h1"))
	assert.True(t, c.Mark("h1"))
}

func TestSeenCache_SweepsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewSeenCacheWithClock(time.Second, func() time.Time { return now })

	c.Mark("a")
	c.Mark("b")
	assert.Equal(t, 2, c.Len())

	now = now.Add(2 * time.Second)
	c.Mark("c")
	assert.Equal(t, 1, c.Len())
}

func TestSeenCache_DefaultTTL(t *testing.T) {
	c := NewSeenCache(0)
	assert.Equal(t, DefaultSeenTTL, c.ttl)
}
