// Package sketch implements a Count-Min Sketch: a probabilistic frequency
// estimator with one-sided error (it can over-estimate, never under-estimate,
// between decays). It is the frequency source for TinyLFU admission.
//
// The sketch is NOT safe for concurrent use; callers guard it with the
// owning shard's lock.
package sketch

import (
	"math"

	goerrors "github.com/agilira/go-errors"

	"github.com/IvanBrykalov/predcache/internal/util"
)

// Error codes for sketch construction.
const (
	ErrCodeInvalidWidth goerrors.ErrorCode = "PREDCACHE_INVALID_SKETCH_WIDTH"
	ErrCodeInvalidDepth goerrors.ErrorCode = "PREDCACHE_INVALID_SKETCH_DEPTH"
)

// Default dimensions: 4096 columns give a collision error bound of
// roughly e/4096 per row on typical working sets; 4 rows drive the
// over-estimate probability down to a negligible level.
const (
	DefaultWidth = 4096
	DefaultDepth = 4
)

// Row seeds. Each row perturbs the key hash with its own seed so the
// rows behave as independent hash functions.
var seeds = [8]uint64{
	0x9e3779b185ebca87, 0xc2b2ae3d27d4eb4f,
	0x165667b19e3779f9, 0xd6e8feb86659fd93,
	0x94d049bb133111eb, 0x2545f4914f6cdd1d,
	0x60642e2a34326f15, 0x9e3779b97f4a7c15,
}

// Sketch holds depth rows of width saturating uint32 counters.
// Width is a power of two so column selection is a mask, not a modulo.
type Sketch struct {
	width uint64 // power of two
	mask  uint64 // width - 1
	rows  [][]uint32
}

// New constructs a sketch with the given dimensions.
// width must be a power of two (> 0); depth must be >= 1.
func New(width, depth int) (*Sketch, error) {
	if width < 1 || !util.IsPowerOfTwo(uint64(width)) {
		return nil, goerrors.NewWithField(ErrCodeInvalidWidth,
			"sketch width must be a power of two", "width", width)
	}
	if depth < 1 {
		return nil, goerrors.NewWithField(ErrCodeInvalidDepth,
			"sketch depth must be >= 1", "depth", depth)
	}
	rows := make([][]uint32, depth)
	for i := range rows {
		rows[i] = make([]uint32, width)
	}
	return &Sketch{
		width: uint64(width),
		mask:  uint64(width - 1),
		rows:  rows,
	}, nil
}

// MustNew is like New but panics on invalid dimensions.
func MustNew(width, depth int) *Sketch {
	s, err := New(width, depth)
	if err != nil {
		panic(err)
	}
	return s
}

// Observe increments one counter per row for the given key hash.
// Counters saturate at MaxUint32 instead of wrapping.
func (s *Sketch) Observe(keyHash uint64) {
	for i := range s.rows {
		c := &s.rows[i][s.column(keyHash, i)]
		if *c != math.MaxUint32 {
			*c++
		}
	}
}

// Estimate returns the minimum counter across all rows for the key hash.
// The result is an upper bound on the true observation count since the
// last decay (collisions only inflate counters).
func (s *Sketch) Estimate(keyHash uint64) uint32 {
	m := uint32(math.MaxUint32)
	for i := range s.rows {
		if c := s.rows[i][s.column(keyHash, i)]; c < m {
			m = c
		}
	}
	return m
}

// DecayHalf right-shifts every counter by one bit. Periodic halving ages
// out stale popularity so a newly hot key can overtake an old one within
// bounded time. The decay schedule is the caller's policy.
func (s *Sketch) DecayHalf() {
	for i := range s.rows {
		row := s.rows[i]
		for j := range row {
			row[j] >>= 1
		}
	}
}

// Width returns the configured row width.
func (s *Sketch) Width() int { return int(s.width) }

// Depth returns the number of rows.
func (s *Sketch) Depth() int { return len(s.rows) }

// column derives the column for row i from the key hash.
// Rows beyond the seed table reuse seeds cyclically.
func (s *Sketch) column(h uint64, i int) uint64 {
	h ^= seeds[i&7] + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return h & s.mask
}
