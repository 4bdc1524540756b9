// Command bench runs a synthetic workload against the cache and exposes optional pprof/Prometheus endpoints.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof/* on DefaultServeMux
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/IvanBrykalov/predcache/cache"
	"github.com/IvanBrykalov/predcache/lfu"
	pmet "github.com/IvanBrykalov/predcache/metrics/prom"
	"github.com/IvanBrykalov/predcache/policy/tinylfu"
	"github.com/IvanBrykalov/predcache/policy/twoq"
	"github.com/IvanBrykalov/predcache/predictive"
)

// store is the slice of the cache surface the workload needs; all cache
// variants bind to it at the top of main.
type store interface {
	Get(k string) (string, bool)
	Set(k, v string)
	Len() int
}

// predictiveStore adapts predictive.Cache (Put) to the store surface.
type predictiveStore struct{ *predictive.Cache[string, string] }

func (p predictiveStore) Set(k, v string) { p.Put(k, v) }

// lockedLFU makes the single-threaded LFU reference safe for the
// concurrent workload; it exists for baseline comparisons only.
type lockedLFU struct {
	mu sync.Mutex
	c  *lfu.Cache[string, string]
}

func (l *lockedLFU) Get(k string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Get(k)
}

func (l *lockedLFU) Set(k, v string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Set(k, v)
}

func (l *lockedLFU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}

func main() {
	// ---- Flags ----
	var (
		capacity = flag.Int("cap", 100_000, "cache capacity (entries)")
		shards   = flag.Int("shards", 0, "number of shards (0=auto)")
		policy   = flag.String("policy", "lru", "eviction policy: lru | 2q | tinylfu | predictive | lfu")
		workload = flag.String("workload", "zipf", "key distribution: zipf | uniform | seq")

		workers  = flag.Int("workers", 2*runtime.GOMAXPROCS(0), "number of worker goroutines")
		duration = flag.Duration("duration", 10*time.Second, "benchmark duration")
		readPct  = flag.Int("reads", 80, "read percentage [0..100]")

		keys    = flag.Int("keys", 1_000_000, "keyspace size")
		zipfS   = flag.Float64("zipf_s", 1.1, "Zipf s > 1 (skew)")
		zipfV   = flag.Float64("zipf_v", 1.0, "Zipf v")
		seed    = flag.Int64("seed", time.Now().UnixNano(), "random seed")
		preload = flag.Int("preload", 0, "preload entries (0 = cap/2)")

		decayEvery = flag.Duration("decay", 0, "decay sketches/models at this interval (0=never)")

		topk     = flag.Int("prefetch_topk", 1, "predictive: successors to prefetch per access")
		minCount = flag.Uint("min_count", 4, "predictive: min transition observations")
		minProb  = flag.Float64("min_prob", 0.2, "predictive: min transition probability")

		pprofAddr   = flag.String("pprof", "", "serve pprof at addr (e.g. :6060); empty = disabled")
		metricsAddr = flag.String("http", ":8080", "serve Prometheus metrics at addr")
	)
	flag.Parse()

	// ---- pprof server (on DefaultServeMux) ----
	if *pprofAddr != "" {
		go func() {
			log.Printf("pprof: serving at %s", *pprofAddr)
			log.Println(http.ListenAndServe(*pprofAddr, nil))
		}()
	}

	// ---- Prometheus metrics (on DefaultServeMux) ----
	metrics := pmet.New(nil, "predcache", "bench", nil)
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Printf("metrics: serving at %s", *metricsAddr)
		log.Println(http.ListenAndServe(*metricsAddr, nil))
	}()

	// ---- Build cache ----
	var (
		c    store
		pc   *predictive.Cache[string, string]
		opt  = cache.Options[string, string]{Capacity: *capacity, Shards: *shards, Metrics: metrics}
		base cache.Cache[string, string]
	)
	switch *policy {
	case "lru":
		// nil => LRU by default
		base = cache.MustNew[string, string](opt)
		c = base
	case "2q":
		// split 2Q queues as a simple default
		opt.Policy = twoq.New[string, string](*capacity/4, *capacity/2)
		base = cache.MustNew[string, string](opt)
		c = base
	case "tinylfu":
		opt.Policy = tinylfu.Default[string, string]()
		base = cache.MustNew[string, string](opt)
		c = base
	case "predictive":
		pc = predictive.MustNew[string, string](predictive.Options[string, string]{
			Capacity: *capacity,
			Shards:   *shards,
			Metrics:  metrics,
			Tuning: predictive.Tuning{
				EnablePrefetch: true,
				PrefetchTopK:   *topk,
				MinTransCount:  uint32(*minCount),
				MinTransProb:   *minProb,
			},
		})
		c = predictiveStore{pc}
	case "lfu":
		c = &lockedLFU{c: lfu.MustNew[string, string](*capacity)}
	default:
		log.Fatalf("unknown policy: %q (use lru, 2q, tinylfu, predictive or lfu)", *policy)
	}
	if base != nil {
		defer func() { _ = base.Close() }()
	}
	if pc != nil {
		defer func() { _ = pc.Close() }()
	}

	// ---- Periodic decay keeps frequency state fresh on long runs ----
	if *decayEvery > 0 {
		go func() {
			t := time.NewTicker(*decayEvery)
			defer t.Stop()
			for range t.C {
				if base != nil {
					base.Decay()
				}
				if pc != nil {
					pc.Decay()
					pc.DecayModels()
				}
			}
		}()
	}

	// ---- Preload half capacity to get a realistic hit-rate ----
	pl := *preload
	if pl == 0 {
		pl = *capacity / 2
	}
	for i := 0; i < pl; i++ {
		c.Set("k:"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}

	// ---- Snapshot flags for goroutines ----
	readPctVal := *readPct
	keysN := *keys
	keysMax := uint64(keysN - 1)
	seedBase := *seed
	zipfSVal := *zipfS
	zipfVVal := *zipfV
	workersN := *workers
	if workersN <= 0 {
		workersN = 1
	}

	// ---- Load generation ----
	var reads, writes, hits, misses, total uint64
	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workersN)
	for w := 0; w < workersN; w++ {
		go func(id int) {
			defer wg.Done()

			// Each worker gets its own RNG + Zipf (rand.Rand is NOT goroutine-safe).
			localR := rand.New(rand.NewSource(seedBase + int64(id)*9973))
			localZipf := rand.NewZipf(localR, zipfSVal, zipfVVal, keysMax)
			seq := 0

			nextKey := func() string {
				switch *workload {
				case "uniform":
					return "k:" + strconv.Itoa(localR.Intn(keysN))
				case "seq":
					// A repeating scan; the predictive policy should learn it.
					k := seq
					seq = (seq + 1) % keysN
					return "k:" + strconv.Itoa(k)
				default: // zipf
					return "k:" + strconv.FormatUint(localZipf.Uint64(), 10)
				}
			}

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				atomic.AddUint64(&total, 1)
				if int(localR.Int31n(100)) < readPctVal {
					atomic.AddUint64(&reads, 1)
					if _, ok := c.Get(nextKey()); ok {
						atomic.AddUint64(&hits, 1)
					} else {
						atomic.AddUint64(&misses, 1)
					}
				} else {
					atomic.AddUint64(&writes, 1)
					k := nextKey()
					c.Set(k, "v"+strconv.Itoa(localR.Int()))
				}
			}
		}(w)
	}
	wg.Wait()
	elapsed := time.Since(start)

	// ---- Report ----
	ops := atomic.LoadUint64(&total)
	readsN := atomic.LoadUint64(&reads)
	writesN := atomic.LoadUint64(&writes)
	hitsN := atomic.LoadUint64(&hits)
	missesN := atomic.LoadUint64(&misses)

	hitRate := 0.0
	if readsN > 0 {
		hitRate = float64(hitsN) / float64(readsN) * 100
	}

	fmt.Printf("policy=%s workload=%s cap=%d shards=%d workers=%d keys=%d dur=%v seed=%d\n",
		*policy, *workload, *capacity, *shards, workersN, keysN, elapsed, seedBase)
	fmt.Printf("ops=%d (%.0f ops/s)  reads=%d  writes=%d\n",
		ops, float64(ops)/elapsed.Seconds(), readsN, writesN)
	fmt.Printf("hits=%d  misses=%d  hit-rate=%.2f%%\n", hitsN, missesN, hitRate)
	if pc != nil {
		st := pc.Stats()
		fmt.Printf("transitions=%d prefetches=%d\n", st.Transitions, st.Prefetches)
	}
	fmt.Printf("Len()=%d\n", c.Len())
}
