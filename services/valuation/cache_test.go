package valuation

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/upb/vehicle-valuation/models"
)

func testValuation(vrm string) *models.Valuation {
	return models.NewValuation(vrm, decimal.NewFromInt(1000), decimal.NewFromInt(2000), "SuperCar Valuations")
}

func newTestCache(size int, ttl time.Duration) (*Cache, *time.Time) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	c := NewCache(size, ttl)
	c.now = func() time.Time { return now }
	return c, &now
}

func TestCache_GetSet(t *testing.T) {
	cache, _ := newTestCache(10, time.Minute)

	assert.Nil(t, cache.Get("ABC123"))

	cache.Set(testValuation("ABC123"))

	got := cache.Get("ABC123")
	require.NotNil(t, got)
	assert.Equal(t, "ABC123", got.VRM)
	assert.True(t, got.LowestValue.Equal(decimal.NewFromInt(1000)))

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCache_KeysAreExact(t *testing.T) {
	cache, _ := newTestCache(10, time.Minute)

	cache.Set(testValuation("ABC123"))
	assert.Nil(t, cache.Get("abc123"))
	assert.NotNil(t, cache.Get("ABC123"))
}

func TestCache_ReturnsCopies(t *testing.T) {
	cache, _ := newTestCache(10, time.Minute)

	v := testValuation("ABC123")
	cache.Set(v)
	v.Provider = "mutated"

	got := cache.Get("ABC123")
	require.NotNil(t, got)
	assert.Equal(t, "SuperCar Valuations", got.Provider)

	got.Provider = "mutated again"
	assert.Equal(t, "SuperCar Valuations", cache.Get("ABC123").Provider)
}

func TestCache_TTLExpiration(t *testing.T) {
	cache, now := newTestCache(10, time.Minute)

	cache.Set(testValuation("ABC123"))

	*now = now.Add(time.Minute)
	assert.NotNil(t, cache.Get("ABC123"), "entry is valid up to its ttl")

	*now = now.Add(time.Second)
	assert.Nil(t, cache.Get("ABC123"))
	assert.Equal(t, 0, cache.Stats().Size)
}

func TestCache_LRUEviction(t *testing.T) {
	cache, _ := newTestCache(2, time.Minute)

	cache.Set(testValuation("AAA111"))
	cache.Set(testValuation("BBB222"))

	// touch AAA111 so BBB222 becomes least recently used
	require.NotNil(t, cache.Get("AAA111"))

	cache.Set(testValuation("CCC333"))

	assert.NotNil(t, cache.Get("AAA111"))
	assert.Nil(t, cache.Get("BBB222"))
	assert.NotNil(t, cache.Get("CCC333"))
	assert.Equal(t, 2, cache.Stats().Size)
}

func TestCache_SetExistingRefreshes(t *testing.T) {
	cache, now := newTestCache(2, time.Minute)

	cache.Set(testValuation("ABC123"))
	*now = now.Add(50 * time.Second)

	updated := testValuation("ABC123")
	updated.Provider = "Premium Car Valuations"
	cache.Set(updated)

	*now = now.Add(50 * time.Second)
	got := cache.Get("ABC123")
	require.NotNil(t, got)
	assert.Equal(t, "Premium Car Valuations", got.Provider)
	assert.Equal(t, 1, cache.Stats().Size)
}

func TestCache_Disabled(t *testing.T) {
	cache, _ := newTestCache(0, time.Minute)

	cache.Set(testValuation("ABC123"))
	assert.Nil(t, cache.Get("ABC123"))
	assert.Equal(t, 0, cache.Stats().Size)

	cache.Set(nil)
}

func TestCache_InvalidateAndClear(t *testing.T) {
	cache, _ := newTestCache(10, time.Minute)

	cache.Set(testValuation("AAA111"))
	cache.Set(testValuation("BBB222"))

	cache.Invalidate("AAA111")
	assert.Nil(t, cache.Get("AAA111"))
	assert.NotNil(t, cache.Get("BBB222"))

	cache.Clear()
	assert.Equal(t, 0, cache.Stats().Size)
	assert.Nil(t, cache.Get("BBB222"))
}

func TestCache_CleanupExpired(t *testing.T) {
	cache, now := newTestCache(10, time.Minute)

	cache.Set(testValuation("AAA111"))
	*now = now.Add(30 * time.Second)
	cache.Set(testValuation("BBB222"))
	*now = now.Add(45 * time.Second)

	assert.Equal(t, 1, cache.CleanupExpired())
	assert.Equal(t, 1, cache.Stats().Size)
	assert.NotNil(t, cache.Get("BBB222"))
}

func TestCache_StartCleanupWorkerStops(t *testing.T) {
	cache := NewCache(10, time.Minute)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		cache.StartCleanupWorker(time.Millisecond, stop)
		close(done)
	}()

	close(stop)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleanup worker did not stop")
	}
}

func TestCache_ConcurrentAccess(t *testing.T) {
	cache := NewCache(100, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			vrm := string(rune('A'+i)) + "12345"
			cache.Set(testValuation(vrm))
			_ = cache.Get(vrm)
			_ = cache.Stats()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 20, cache.Stats().Size)
}
