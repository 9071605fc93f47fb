package simcore

import "math/rand"

// NewRNG builds a seeded source shared by a single Simulator and every
// component it owns (Channel, mobility, initial placement). Nothing in
// this package touches the global math/rand state, so two Simulators
// constructed with the same seed are bit-for-bit reproducible
// regardless of what else is running in the process.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
