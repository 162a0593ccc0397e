package sampler

import (
	"math/rand/v2"
	"sync"
)

// Source yields a uniform integer in [0, n).
type Source interface {
	IntN(n int) int
}

type globalSource struct{}

func (globalSource) IntN(n int) int {
	return rand.IntN(n)
}

// Default draws from the runtime's shared generator and is safe for
// concurrent use.
var Default Source = globalSource{}

// Locked serialises access to a Source that is not itself goroutine safe,
// such as a seeded *rand.Rand.
type Locked struct {
	mu  sync.Mutex
	src Source
}

func NewLocked(src Source) *Locked {
	return &Locked{src: src}
}

func (l *Locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

// Pick returns min(k, len(items)) distinct elements of items chosen uniformly
// without replacement. items is never modified.
func Pick[T any](src Source, items []T, k int) []T {
	if k > len(items) {
		k = len(items)
	}
	if k <= 0 {
		return []T{}
	}

	pool := make([]T, len(items))
	copy(pool, items)

	picked := make([]T, 0, k)
	for len(picked) < k {
		i := src.IntN(len(pool))
		picked = append(picked, pool[i])
		pool = append(pool[:i], pool[i+1:]...)
	}
	return picked
}
