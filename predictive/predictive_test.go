package predictive

import (
	"strconv"
	"sync"
	"testing"
	"time"

	agerrors "github.com/agilira/go-errors"

	"github.com/IvanBrykalov/predcache/cache"
	"github.com/IvanBrykalov/predcache/policy/tinylfu"
)

func valueOf(k int) string { return "v:" + strconv.Itoa(k) }

// scanCache builds a single-shard predictive cache with the given tuning
// whose prefetch placeholders carry the key's real value (valueOf).
func scanCache(t *testing.T, capacity int, tuning Tuning) *Cache[int, string] {
	t.Helper()
	c, err := New[int, string](Options[int, string]{
		Capacity:      capacity,
		Shards:        1,
		Tuning:        tuning,
		PrefetchValue: valueOf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

// warmScan walks the cyclic sequence rounds times, loading misses the
// cache-aside way, and reports hits.
func warmScan(c *Cache[int, string], keyspace, rounds int) (hits int) {
	for r := 0; r < rounds; r++ {
		for k := 0; k < keyspace; k++ {
			if _, ok := c.Get(k); ok {
				hits++
			} else {
				c.Put(k, valueOf(k))
			}
		}
	}
	return hits
}

func TestPredictive_New_ConfigErrors(t *testing.T) {
	t.Parallel()

	if _, err := New[int, string](Options[int, string]{Capacity: 0}); err == nil {
		t.Fatal("Capacity 0 must be rejected")
	}
	_, err := New[int, string](Options[int, string]{Capacity: 8, SketchWidth: 1000})
	if err == nil {
		t.Fatal("non-power-of-two sketch width must be rejected")
	}
	if !agerrors.HasCode(err, "PREDCACHE_INVALID_SKETCH_WIDTH") {
		t.Fatalf("want sketch width code, got %v", err)
	}
}

func TestPredictive_PutGetRemove(t *testing.T) {
	t.Parallel()

	c := scanCache(t, 8, Tuning{}) // prefetch off; plain delegation

	c.Put(1, "a")
	if v, ok := c.Get(1); !ok || v != "a" {
		t.Fatalf("Get 1: want a, got %q ok=%v", v, ok)
	}
	if !c.Contains(1) {
		t.Fatal("Contains 1 must be true")
	}
	if !c.Remove(1) {
		t.Fatal("Remove 1 must be true")
	}
	if c.Remove(1) {
		t.Fatal("second Remove must be false")
	}
	if _, ok := c.Get(1); ok {
		t.Fatal("1 must be absent after Remove")
	}
}

// After warmup on a cyclic scan, an access prefetches its learned
// successor even though that key is not resident.
func TestPredictive_PrefetchesLearnedSuccessor(t *testing.T) {
	t.Parallel()

	const keyspace, capacity = 100, 10
	c := scanCache(t, capacity, Tuning{
		EnablePrefetch: true,
		PrefetchTopK:   1,
		MinTransCount:  2,
		MinTransProb:   0.1,
	})

	warmScan(c, keyspace, 3)

	// The cache holds the tail of the scan; key 1 is long gone.
	if c.Contains(1) {
		t.Fatal("key 1 must not be resident before the probe")
	}

	c.Get(0) // learned 0 -> 1; must pull 1 in ahead of demand
	if !c.Contains(1) {
		t.Fatal("successor 1 must be prefetched on access to 0")
	}
	if v, ok := c.Get(1); !ok || v != valueOf(1) {
		t.Fatalf("prefetched entry must carry the supplied value, got %q ok=%v", v, ok)
	}

	if st := c.Stats(); st.Prefetches == 0 || st.Transitions == 0 {
		t.Fatalf("stats must reflect activity: %+v", st)
	}
}

// On a scan that exceeds capacity, prefetch converts cold misses into
// hits; the non-predictive baseline stays near zero.
func TestPredictive_ScanMissRateBeatsBaseline(t *testing.T) {
	t.Parallel()

	const keyspace, capacity, rounds = 100, 10, 5

	baseline := cache.MustNew[int, string](cache.Options[int, string]{
		Capacity: capacity,
		Shards:   1,
		Policy:   tinylfu.Default[int, string](),
	})
	t.Cleanup(func() { _ = baseline.Close() })

	baseHits := 0
	for r := 0; r < rounds; r++ {
		for k := 0; k < keyspace; k++ {
			if _, ok := baseline.Get(k); ok {
				baseHits++
			} else {
				baseline.Set(k, valueOf(k))
			}
		}
	}

	c := scanCache(t, capacity, Tuning{
		EnablePrefetch: true,
		PrefetchTopK:   1,
		MinTransCount:  2,
		MinTransProb:   0.1,
	})
	warmScan(c, keyspace, 3) // train the model

	// Age frequency estimates between rounds: on a scan, recently
	// scanned residents otherwise outweigh the upcoming key and the
	// admission filter declines the speculative insert.
	predHits := 0
	for r := 0; r < rounds; r++ {
		for i := 0; i < 4; i++ {
			c.Decay()
		}
		predHits += warmScan(c, keyspace, 1)
	}

	if predHits <= baseHits {
		t.Fatalf("prefetch must beat the baseline: predictive %d vs baseline %d (of %d)",
			predHits, baseHits, rounds*keyspace)
	}
	if predHits < rounds {
		t.Fatalf("trained scan barely hitting: %d of %d", predHits, rounds*keyspace)
	}
}

// With prefetch disabled the wrapper still learns, so a later enable
// starts warm.
func TestPredictive_LearnsWhileDisabled(t *testing.T) {
	t.Parallel()

	const keyspace, capacity = 100, 10
	c := scanCache(t, capacity, Tuning{
		EnablePrefetch: false,
		PrefetchTopK:   1,
		MinTransCount:  2,
		MinTransProb:   0.1,
	})

	warmScan(c, keyspace, 3)
	st := c.Stats()
	if st.Prefetches != 0 {
		t.Fatalf("disabled prefetch must not insert, got %d", st.Prefetches)
	}
	if st.Transitions == 0 {
		t.Fatal("the model must learn while prefetch is off")
	}

	tune := c.Tuning()
	tune.EnablePrefetch = true
	c.SetTuning(tune)

	if c.Contains(1) {
		t.Fatal("key 1 must not be resident before the probe")
	}
	c.Get(0)
	if !c.Contains(1) {
		t.Fatal("first access after enable must prefetch from the warm model")
	}
}

// PrefetchTopK = 0 disables prefetch regardless of the master switch.
func TestPredictive_TopKZeroDisables(t *testing.T) {
	t.Parallel()

	c := scanCache(t, 10, Tuning{
		EnablePrefetch: true,
		PrefetchTopK:   0,
		MinTransCount:  1,
		MinTransProb:   0,
	})
	warmScan(c, 100, 3)
	if st := c.Stats(); st.Prefetches != 0 {
		t.Fatalf("topK=0 must never prefetch, got %d", st.Prefetches)
	}
}

// Without PrefetchValue, the placeholder is the zero value of V.
func TestPredictive_ZeroValuePlaceholder(t *testing.T) {
	t.Parallel()

	c, err := New[int, string](Options[int, string]{
		Capacity: 10,
		Shards:   1,
		Tuning: Tuning{
			EnablePrefetch: true,
			PrefetchTopK:   1,
			MinTransCount:  2,
			MinTransProb:   0.1,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	warmScan(c, 100, 3)
	if c.Contains(1) {
		t.Fatal("key 1 must not be resident before the probe")
	}
	c.Get(0)
	if v, ok := c.Get(1); !ok || v != "" {
		t.Fatalf("placeholder must be the zero value, got %q ok=%v", v, ok)
	}
}

// DecayModels prunes weak transitions: after enough halvings the model
// stops proposing candidates.
func TestPredictive_DecayModels(t *testing.T) {
	t.Parallel()

	const keyspace, capacity = 100, 10
	c := scanCache(t, capacity, Tuning{
		EnablePrefetch: true,
		PrefetchTopK:   1,
		MinTransCount:  2,
		MinTransProb:   0.1,
	})
	warmScan(c, keyspace, 3) // each adjacency has count 3

	for i := 0; i < 3; i++ {
		c.DecayModels() // 3 -> 1 -> 0: transitions pruned
	}

	before := c.Stats().Prefetches
	c.Get(0)
	if got := c.Stats().Prefetches; got != before {
		t.Fatalf("drained model must not prefetch (before=%d after=%d)", before, got)
	}
}

// Put marks its key as the shard's previous key: the following Get
// records the adjacency.
func TestPredictive_PutSeedsSequence(t *testing.T) {
	t.Parallel()

	c := scanCache(t, 10, Tuning{})

	c.Put(7, "a")
	c.Get(8)
	if st := c.Stats(); st.Transitions != 1 {
		t.Fatalf("put->get adjacency must be learned once, got %d", st.Transitions)
	}
}

// Concurrent gets/puts across shards must be race-free; values never
// cross keys (placeholders carry the same derived value).
func TestPredictive_ConcurrentAccess(t *testing.T) {
	c, err := New[int, string](Options[int, string]{
		Capacity:      4_096,
		Shards:        8,
		Tuning:        DefaultTuning(),
		PrefetchValue: valueOf,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	const workers, ops, keyspace = 8, 5_000, 10_000
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(id int) {
			defer wg.Done()
			for i := 0; i < ops; i++ {
				k := (id*31 + i) % keyspace
				if v, ok := c.Get(k); ok && v != valueOf(k) {
					t.Errorf("key %d returned foreign value %q", k, v)
					return
				}
				if i%4 == 0 {
					c.Put(k, valueOf(k))
				}
			}
		}(w)
	}
	wg.Wait()

	if got := c.Len(); got > 4_096 {
		t.Fatalf("Len %d exceeds capacity", got)
	}
}

// The maintenance goroutine decays models on its own; Close stops it.
func TestPredictive_MaintenanceDecay(t *testing.T) {
	t.Parallel()

	c, err := New[int, string](Options[int, string]{
		Capacity:      100,
		Shards:        1,
		DecayInterval: 10 * time.Millisecond,
		Tuning: Tuning{
			EnablePrefetch: true,
			PrefetchTopK:   1,
			MinTransCount:  2,
			MinTransProb:   0.1,
		},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	for i := 0; i < 3; i++ {
		c.Get(1)
		c.Get(2)
	}
	// Counts are small; a few intervals of halving drain the model.
	time.Sleep(100 * time.Millisecond)
	before := c.Stats().Prefetches
	c.Get(1)
	if got := c.Stats().Prefetches; got != before {
		t.Fatal("decayed model must not prefetch")
	}

	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, ok := c.Get(1); ok {
		t.Fatal("closed cache must miss")
	}
}

// Operations after Close are ignored.
func TestPredictive_ClosedIsInert(t *testing.T) {
	t.Parallel()

	c := scanCache(t, 8, Tuning{})
	c.Put(1, "a")
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	c.Put(2, "b")
	if c.Contains(2) {
		t.Fatal("Put after Close must be ignored")
	}
	if err := c.Close(); err != nil {
		t.Fatalf("double Close must stay nil, got %v", err)
	}
}
