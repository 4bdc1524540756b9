// Package predict implements a first-order Markov model over key access
// sequences. It learns transition counts between consecutively observed
// keys and ranks likely successors by conditional probability; the
// predictive cache wrapper uses it to drive prefetch.
//
// A Markov model is NOT safe for concurrent use; the owning wrapper
// guards each instance with its shard's lock.
package predict

import (
	"math"
	"sort"

	"github.com/IvanBrykalov/predcache/internal/util"
)

// Markov holds per-predecessor transition counts c[p][k] and the
// per-predecessor totals t[p] = Σₖ c[p][k]. Growth is bounded only by
// the decay schedule: halving prunes entries whose count reaches zero.
type Markov[K comparable] struct {
	trans  map[K]map[K]uint32
	totals map[K]uint32
}

// NewMarkov returns an empty model.
func NewMarkov[K comparable]() *Markov[K] {
	return &Markov[K]{
		trans:  make(map[K]map[K]uint32),
		totals: make(map[K]uint32),
	}
}

// Observe records one prev→cur adjacency. Counts saturate at MaxUint32
// instead of wrapping; the matching total stops advancing at the same
// point so probabilities stay within [0,1].
func (m *Markov[K]) Observe(prev, cur K) {
	row := m.trans[prev]
	if row == nil {
		row = make(map[K]uint32)
		m.trans[prev] = row
	}
	if row[cur] == math.MaxUint32 {
		return
	}
	row[cur]++
	if m.totals[prev] != math.MaxUint32 {
		m.totals[prev]++
	}
}

// TopKNext returns up to topK successors of cur, most probable first.
// A successor s qualifies when c[cur][s] >= minCount and
// c[cur][s]/t[cur] >= minProb. The result is empty when cur has no
// outgoing transitions. Equal probabilities are ordered by key hash —
// deterministic, but not meaningful; callers must not rely on the order
// within a tie.
func (m *Markov[K]) TopKNext(cur K, topK int, minCount uint32, minProb float64) []K {
	if topK <= 0 {
		return nil
	}
	row := m.trans[cur]
	if len(row) == 0 {
		return nil
	}
	total := m.totals[cur]
	if total == 0 {
		return nil
	}

	type candidate struct {
		key  K
		prob float64
	}
	cand := make([]candidate, 0, len(row))
	for next, cnt := range row {
		if cnt < minCount {
			continue
		}
		p := float64(cnt) / float64(total)
		if p < minProb {
			continue
		}
		cand = append(cand, candidate{key: next, prob: p})
	}
	if len(cand) == 0 {
		return nil
	}

	sort.Slice(cand, func(i, j int) bool {
		if cand[i].prob != cand[j].prob {
			return cand[i].prob > cand[j].prob
		}
		return util.Fnv64a(cand[i].key) < util.Fnv64a(cand[j].key)
	})

	if topK > len(cand) {
		topK = len(cand)
	}
	out := make([]K, topK)
	for i := range out {
		out[i] = cand[i].key
	}
	return out
}

// DecayHalf halves every transition count and every total, pruning
// entries that reach zero. Halving totals alongside counts keeps the
// conditional probabilities roughly stable across a decay.
func (m *Markov[K]) DecayHalf() {
	for p, row := range m.trans {
		for k, c := range row {
			c >>= 1
			if c == 0 {
				delete(row, k)
			} else {
				row[k] = c
			}
		}
		if len(row) == 0 {
			delete(m.trans, p)
		}
	}
	for p, t := range m.totals {
		t >>= 1
		if t == 0 {
			delete(m.totals, p)
		} else {
			m.totals[p] = t
		}
	}
}

// Count returns the observed count for the prev→cur transition.
func (m *Markov[K]) Count(prev, cur K) uint32 {
	return m.trans[prev][cur]
}

// Total returns the number of observed transitions out of prev.
func (m *Markov[K]) Total(prev K) uint32 {
	return m.totals[prev]
}

// Predecessors returns the number of keys with at least one outgoing
// transition. Useful for sizing diagnostics.
func (m *Markov[K]) Predecessors() int {
	return len(m.trans)
}
