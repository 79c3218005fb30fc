package cache

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atstailor/internal/config"
	"atstailor/internal/keywords"
	"atstailor/internal/tailor"
)

type fakeRemote struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newFakeRemote() *fakeRemote { return &fakeRemote{data: map[string][]byte{}} }

func (f *fakeRemote) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	d, ok := f.data[key]
	return d, ok, nil
}

func (f *fakeRemote) Set(_ context.Context, key string, data []byte, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = data
	f.sets++
	return nil
}

func (f *fakeRemote) Close() error { return nil }

type countingExtractor struct {
	inner tailor.Extractor
	calls atomic.Int32
	delay time.Duration
}

func (c *countingExtractor) Extract(ctx context.Context, text string, limit int) (keywords.Set, error) {
	c.calls.Add(1)
	time.Sleep(c.delay)
	return c.inner.Extract(ctx, text, limit)
}

func (c *countingExtractor) Dictionary() *keywords.Dictionary { return c.inner.Dictionary() }

func newCounting() *countingExtractor {
	return &countingExtractor{inner: tailor.NewStaticExtractor(keywords.NewExtractor(nil, keywords.DefaultOptions()))}
}

const jobText = "We are hiring a backend engineer with Python, Kubernetes and AWS experience to build data pipelines."

func TestKey(t *testing.T) {
	a := Key("one", "two")
	assert.Equal(t, a, Key("one", "two"))
	assert.NotEqual(t, a, Key("one", "three"))
	assert.Regexp(t, `^atst:kw:[0-9a-f]{24}$`, a)
}

func TestExtractionKeyUsesExactText(t *testing.T) {
	dict := keywords.DefaultDictionary()
	assert.Equal(t,
		ExtractionKey("Senior Go Engineer", 35, dict),
		ExtractionKey("Senior Go Engineer", 35, dict))
	assert.NotEqual(t,
		ExtractionKey("Senior  Go\nEngineer", 35, dict),
		ExtractionKey("Senior Go Engineer", 35, dict))
	assert.NotEqual(t,
		ExtractionKey("senior go engineer", 35, dict),
		ExtractionKey("Senior Go Engineer", 35, dict))
	assert.NotEqual(t,
		ExtractionKey("senior go engineer", 35, dict),
		ExtractionKey("senior go engineer", 10, dict))
}

func TestMemoExtractorMatchesDirectExtraction(t *testing.T) {
	direct := tailor.NewStaticExtractor(keywords.NewExtractor(nil, keywords.DefaultOptions()))
	memo := NewMemoExtractor(direct, New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, nil, nil))
	ctx := context.Background()

	base := "We hire engineers. Engineers build machine learning systems in Python on AWS for engineers."
	texts := []string{base, strings.Replace(base, "machine learning", "machine\nlearning", 1)}
	for _, text := range texts {
		want, err := direct.Extract(ctx, text, 10)
		require.NoError(t, err)
		got, err := memo.Extract(ctx, text, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	for _, text := range texts {
		want, err := direct.Extract(ctx, text, 10)
		require.NoError(t, err)
		got, err := memo.Extract(ctx, text, 10)
		require.NoError(t, err)
		assert.Equal(t, want, got, "cached result")
	}
	assert.Equal(t, 2, memo.Stats().Entries)
}

func TestTieredGetSet(t *testing.T) {
	c := New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, nil, nil)
	ctx := context.Background()

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.Set(ctx, "k", []byte("v"))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Entries)
}

func TestTieredExpiry(t *testing.T) {
	c := New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, nil, nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	c.Set(ctx, "k", []byte("v"))
	now = now.Add(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestTieredEvictsOldest(t *testing.T) {
	c := New(config.CacheConfig{TTL: time.Hour, MaxEntries: 3}, nil, nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for i := range 4 {
		c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"))
		now = now.Add(time.Second)
	}

	assert.Equal(t, 3, c.Stats().Entries)
	_, ok := c.Get(ctx, "k0")
	assert.False(t, ok, "oldest entry should be evicted")
	_, ok = c.Get(ctx, "k3")
	assert.True(t, ok)
}

func TestTieredPurgeExpired(t *testing.T) {
	c := New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, nil, nil)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set(context.Background(), "a", []byte("1"))
	now = now.Add(time.Hour)

	c.purgeExpired()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestTieredL2HitPopulatesL1(t *testing.T) {
	remote := newFakeRemote()
	remote.data["k"] = []byte("shared")
	c := New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, remote, nil)
	ctx := context.Background()

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, "shared", string(got))
	assert.Equal(t, int64(1), c.Stats().L2Hits)

	delete(remote.data, "k")
	_, ok = c.Get(ctx, "k")
	assert.True(t, ok, "second read should come from L1")
}

func TestTieredL2ErrorDegradesToMiss(t *testing.T) {
	remote := newFakeRemote()
	remote.getErr = stderrors.New("connection refused")
	c := New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, remote, nil)

	_, ok := c.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Errors)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestMemoExtractorCaches(t *testing.T) {
	inner := newCounting()
	remote := newFakeRemote()
	memo := NewMemoExtractor(inner, New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, remote, nil))
	ctx := context.Background()

	first, err := memo.Extract(ctx, jobText, 10)
	require.NoError(t, err)
	second, err := memo.Extract(ctx, jobText, 10)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, 1, remote.sets)
	assert.Contains(t, first.All, "python")

	_, err = memo.Extract(ctx, jobText, 5)
	require.NoError(t, err)
	assert.Equal(t, int32(2), inner.calls.Load(), "different limit is a different key")
}

func TestMemoExtractorSharesConcurrentMisses(t *testing.T) {
	inner := newCounting()
	inner.delay = 50 * time.Millisecond
	memo := NewMemoExtractor(inner, New(config.CacheConfig{TTL: time.Minute, MaxEntries: 10}, nil, nil))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := memo.Extract(context.Background(), jobText, 10)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestRedisStoreBreakerOpens(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		MaxRetries:  -1,
		DialTimeout: 100 * time.Millisecond,
	})
	store := newRedisStore(rdb, config.CacheConfig{
		RedisTimeout: 200 * time.Millisecond,
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          true,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          time.Minute,
			MinRequests:      2,
			FailureThreshold: 0.5,
		},
	}, nil)
	defer store.Close()
	ctx := context.Background()

	for range 2 {
		_, _, err := store.Get(ctx, "k")
		require.Error(t, err)
	}

	_, _, err := store.Get(ctx, "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
