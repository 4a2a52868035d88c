package combat

import (
	"errors"
	"math/rand"
	"sync"
	"time"
)

// Roller is the only source of randomness the resolver consults.
// Float64 returns a value in [0, 1).
type Roller interface {
	Float64() float64
}

// RNG wraps math/rand.Rand with deterministic position tracking.
// Position increments with every call, enabling replay of an encounter.
type RNG struct {
	mu   sync.Mutex
	seed int64
	src  *rand.Rand
	pos  int64
}

var _ Roller = (*RNG)(nil)

// ErrZeroSeed is returned when restoring from a seed of 0, which NewRNG
// never records.
var ErrZeroSeed = errors.New("rng seed must be non-zero")

// NewRNG creates a deterministic RNG from a seed. A zero seed is replaced by
// the clock, so callers that replay draws must persist Seed(), not the seed
// they passed in.
func NewRNG(seed int64) *RNG {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RNG{
		seed: seed,
		src:  rand.New(rand.NewSource(seed)),
	}
}

// Float64 returns a random value in [0, 1).
func (r *RNG) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pos++
	return r.src.Float64()
}

// Seed returns the seed the RNG was created with.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Position returns the number of draws made since creation.
func (r *RNG) Position() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pos
}

// RestoreRNG recreates the RNG recorded by Seed and Position. A zero seed
// cannot be replayed and is rejected.
func RestoreRNG(seed int64, position int64) (*RNG, error) {
	if seed == 0 {
		return nil, ErrZeroSeed
	}
	rng := NewRNG(seed)
	for i := int64(0); i < position; i++ {
		rng.src.Float64()
	}
	rng.pos = position
	return rng, nil
}
