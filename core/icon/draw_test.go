package icon

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func assertValidShape(t *testing.T, seq Sequence) {
	t.Helper()
	assert.Len(t, seq, SequenceLen)
	seen := map[ID]bool{}
	for _, id := range seq {
		assert.True(t, id >= 1 && id <= 24, "id %d out of range", id)
		assert.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
	}
}

func TestDraw_shape(t *testing.T) {
	for i := 0; i < 2000; i++ {
		assertValidShape(t, DrawSequence())
	}
}

func TestDraw_keepsDrawOrder(t *testing.T) {
	// always pick the last id left: 24, 23, 22, 21
	last := func(n int) int { return n - 1 }
	seq := Draw(SequenceLen, AllIDs(), last)
	assert.Equal(t, Sequence{24, 23, 22, 21}, seq)

	// picks by index on the shrinking pool: [1..24][5]=6, then [..][0]=1, ...
	picks := []int{5, 0, 17, 1}
	i := 0
	scripted := func(int) int { p := picks[i]; i++; return p }
	assert.Equal(t, Sequence{6, 1, 20, 3}, Draw(SequenceLen, AllIDs(), scripted))
}

func TestDraw_notSorted(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	unsorted := 0
	for i := 0; i < 200; i++ {
		seq := Draw(SequenceLen, AllIDs(), r.IntN)
		if !sort.SliceIsSorted(seq, func(a, b int) bool { return seq[a] < seq[b] }) {
			unsorted++
		}
	}
	// 1 in 24 draws is ascending by chance
	assert.Greater(t, unsorted, 150)
}

func TestDraw_uniform(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	counts := make(map[ID]int)
	const rounds = 24000
	for i := 0; i < rounds; i++ {
		counts[Draw(1, AllIDs(), r.IntN)[0]]++
	}
	for id := ID(1); id <= 24; id++ {
		assert.InDelta(t, rounds/24, counts[id], 200, "id %d", id)
	}
}

func TestDraw_doesNotTouchPool(t *testing.T) {
	pool := AllIDs()
	_ = Draw(SequenceLen, pool, func(int) int { return 0 })
	assert.Equal(t, AllIDs(), pool)
}

func TestDraw_smallPoolPanics(t *testing.T) {
	assert.Panics(t, func() { Draw(SequenceLen, []ID{1, 2, 3}, rand.IntN) })
}
