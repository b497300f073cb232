package icon

import (
	"fmt"
	"math/rand/v2"
)

// Draw picks n distinct ids from pool without replacement: each pick removes a
// uniformly chosen id from what is left. The result is the draw order.
// intn(k) must return a uniform int in [0, k).
//
// pool is not modified. Draw panics if pool holds fewer than n ids.
func Draw(n int, pool []ID, intn func(int) int) Sequence {
	if len(pool) < n {
		panic(fmt.Sprintf("icon.Draw: pool of %d ids cannot yield %d", len(pool), n))
	}
	left := append([]ID(nil), pool...)
	seq := make(Sequence, 0, n)
	for i := 0; i < n; i++ {
		idx := intn(len(left))
		seq = append(seq, left[idx])
		left = append(left[:idx], left[idx+1:]...)
	}
	return seq
}

var intnFunc = rand.IntN // mockable

// DrawSequence draws a local passcode from the whole Catalog.
// No uniqueness across students is guaranteed.
func DrawSequence() Sequence {
	return Draw(SequenceLen, AllIDs(), intnFunc)
}
