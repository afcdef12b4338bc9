package rng

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draw(r *rand.Rand, n int) []uint64 {
	out := make([]uint64, n)
	for i := range out {
		out[i] = r.Uint64()
	}
	return out
}

func TestStreamsAreDeterministic(t *testing.T) {
	a := New(5).Stream(StreamNoise)
	b := New(5).Stream(StreamNoise)
	assert.Equal(t, draw(a, 8), draw(b, 8))
}

func TestStreamsAreIndependentByName(t *testing.T) {
	c := New(5)
	assert.NotEqual(t, draw(c.Stream(StreamNoise), 4), draw(c.Stream(StreamShuffle), 4))
	assert.NotEqual(t, draw(New(5).Stream(StreamInit), 4), draw(New(6).Stream(StreamInit), 4))
}

func TestStreamIsCached(t *testing.T) {
	c := New(1)
	require.Same(t, c.Stream(StreamInit), c.Stream(StreamInit))
	assert.Equal(t, uint64(1), c.Seed())
}

func TestSourceRestartsFromBeginning(t *testing.T) {
	c := New(9)
	first := draw(rand.New(c.Source(StreamData)), 3)
	again := draw(rand.New(c.Source(StreamData)), 3)
	assert.Equal(t, first, again)
	assert.Equal(t, first, draw(c.Stream(StreamData), 3))
}
