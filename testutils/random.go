// Package testutils holds fixtures shared by the scene's package tests.
package testutils

import (
	"math/rand/v2"
	"os"
	"strconv"
	"testing"
	"time"
)

// Seed feeds every generator from NewRand. Set TEST_SEED to replay a failing run.
var Seed = loadSeed() //nolint:gochecknoglobals // shared by all property tests of a run

func loadSeed() uint64 {
	if env := os.Getenv("TEST_SEED"); env != "" {
		if parsed, err := strconv.ParseUint(env, 0, 64); err == nil {
			return parsed
		}
	}
	return uint64(time.Now().UnixNano()) //nolint:gosec // sign loss is fine for a seed
}

// NewRand returns a generator seeded from Seed and logs the seed on t.
func NewRand(t testing.TB) *rand.Rand {
	t.Helper()
	t.Logf("to reproduce: TEST_SEED=0x%x", Seed)
	return rand.New(rand.NewPCG(Seed, ^Seed)) //nolint:gosec // weak RNG is fine for tests
}

// WeightedOp is a constraint for operation types that use their value as the weight.
type WeightedOp interface {
	~uint8 | ~uint16 | ~uint32 | ~int
}

// RandWeightedOp returns a random operation from a slice, using each op's value as its weight.
func RandWeightedOp[T WeightedOp](r *rand.Rand, ops []T) T {
	var total int
	for _, op := range ops {
		total += int(op)
	}

	pick := r.IntN(total)
	for _, op := range ops {
		weight := int(op)
		if pick < weight {
			return op
		}
		pick -= weight
	}
	panic("unreachable")
}

// RandFloat32 returns a float in [lo, hi).
func RandFloat32(r *rand.Rand, lo, hi float32) float32 {
	return lo + r.Float32()*(hi-lo)
}
