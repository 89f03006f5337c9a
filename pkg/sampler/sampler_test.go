package sampler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixed int64

func (f fixed) IntRange(low, high int64) int64 { return int64(f) }

func TestDrawBoundaries(t *testing.T) {
	counts := []int64{5, 3, 2}
	cases := []struct {
		lottery int64
		want    int
	}{
		{1, 0}, {5, 0}, {6, 1}, {8, 1}, {9, 2}, {10, 2},
	}
	for _, c := range cases {
		got, err := Draw(fixed(c.lottery), counts, 10)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "lottery %d", c.lottery)
	}
}

func TestDrawEmptyTotal(t *testing.T) {
	_, err := Draw(Default(), nil, 0)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDrawExhaustedWhenCountsUndershootTotal(t *testing.T) {
	_, err := Draw(fixed(10), []int64{4, 4}, 10)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestSeededIsReproducible(t *testing.T) {
	a, b := NewSeeded(7), NewSeeded(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.IntRange(1, 1000), b.IntRange(1, 1000))
	}
}

func TestSourcesStayInRange(t *testing.T) {
	for _, src := range []RandomSource{Default(), NewSeeded(1)} {
		for i := 0; i < 1000; i++ {
			v := src.IntRange(1, 3)
			assert.True(t, v >= 1 && v <= 3, "got %d", v)
		}
		assert.Equal(t, int64(4), src.IntRange(4, 4))
	}
}

func TestDrawFollowsWeights(t *testing.T) {
	src := NewSeeded(42)
	counts := []int64{9, 1}
	hits := make([]int, 2)
	const n = 100000
	for i := 0; i < n; i++ {
		idx, err := Draw(src, counts, 10)
		require.NoError(t, err)
		hits[idx]++
	}
	assert.InDelta(t, 0.9, float64(hits[0])/n, 0.01)
	assert.InDelta(t, 0.1, float64(hits[1])/n, 0.01)
}
