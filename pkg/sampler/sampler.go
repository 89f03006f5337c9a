// Package sampler draws weighted random picks from observed value counts.
package sampler

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
)

var (
	// ErrEmpty is returned when there is nothing to draw from.
	ErrEmpty = errors.New("sampler: total count is zero")
	// ErrExhausted is returned when the walk runs past the last weight, which
	// means the weights do not add up to the total.
	ErrExhausted = errors.New("sampler: lottery exhausted the weights")
)

// RandomSource yields uniform integers in the closed range [low, high].
type RandomSource interface {
	IntRange(low, high int64) int64
}

type globalSource struct{}

func (globalSource) IntRange(low, high int64) int64 {
	return low + rand.Int64N(high-low+1)
}

// Default returns a source backed by the process-wide generator. It is safe
// for concurrent use.
func Default() RandomSource {
	return globalSource{}
}

// Seeded is a reproducible source. Draws are serialized, so the sequence is
// only reproducible when a single goroutine uses it.
type Seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

func NewSeeded(seed uint64) *Seeded {
	return &Seeded{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) IntRange(low, high int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return low + s.r.Int64N(high-low+1)
}

// Draw picks an index into counts with probability counts[i]/total. It draws
// lottery from [1, total] and walks the counts in order, subtracting each
// count the lottery exceeds.
func Draw(src RandomSource, counts []int64, total int64) (int, error) {
	if total <= 0 {
		return 0, ErrEmpty
	}
	lottery := src.IntRange(1, total)
	for i, c := range counts {
		if lottery > c {
			lottery -= c
			continue
		}
		return i, nil
	}
	return 0, fmt.Errorf("%w: %d left over after %d weights", ErrExhausted, lottery, len(counts))
}
