// internal/game/rand.go
package game

import "math/rand"

// Rand is the source of randomness for team and board generation. Tests inject
// a seeded implementation to make games deterministic.
type Rand interface {
	Intn(n int) int
	Shuffle(n int, swap func(i, j int))
}

type globalRand struct{}

var _ Rand = globalRand{}

func (globalRand) Intn(n int) int {
	return rand.Intn(n)
}

func (globalRand) Shuffle(n int, swap func(i, j int)) {
	rand.Shuffle(n, swap)
}
