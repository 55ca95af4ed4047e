// Copyright © 2024 Galvanized Logic Inc.

// Package rng provides a small seeded pseudo-random source used to pick
// search directions when GJK's simplex needs a direction it has no better
// information for, and to seed degenerate friction bases. Everything here
// is deterministic given a seed so that package physics' tests can repeat
// a run exactly.
package rng

import (
	"math/rand/v2"

	"golang.org/x/sys/cpu"
)

// Source is a seeded direction generator.
type Source struct {
	r *rand.Rand
}

// New creates a Source seeded deterministically from seed. The same seed
// always produces the same sequence of directions.
func New(seed uint64) *Source {
	return &Source{r: rand.New(newPCG(seed))}
}

// newPCG builds a PCG rand.Source seeded from a single uint64. Both PCG
// seed halves come from splitmix64 passes over the seed (see mixSeed).
func newPCG(seed uint64) rand.Source {
	hi, lo := mixSeed(seed)
	return rand.NewPCG(hi, lo)
}

// mixSeed derives two seed halves from one input seed. cpu.X86.HasAES (or
// its ARM64 equivalent) selects a different odd multiplier for the second
// half on hardware with AES acceleration, which is a proxy for "this CPU
// has a fast hardware mixing instruction available" — purely a
// seed-quality choice, not a correctness requirement.
func mixSeed(seed uint64) (hi, lo uint64) {
	hi = splitmix64(seed)
	multiplier := uint64(0x9E3779B97F4A7C15)
	if cpu.X86.HasAES || cpu.ARM64.HasAES {
		multiplier = 0xBF58476D1CE4E5B9
	}
	lo = splitmix64(seed*multiplier + 1)
	return hi, lo
}

func splitmix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ (x >> 30)) * 0xBF58476D1CE4E5B9
	x = (x ^ (x >> 27)) * 0x94D049BB133111EB
	return x ^ (x >> 31)
}

// Direction returns a pseudo-random direction component triple, each
// component uniform in [-1, 1); the triple is not normalized. Callers
// in package physics wrap this in lin.V3 to avoid an import cycle between
// rng and the math kernel.
func (s *Source) Direction() (x, y, z float64) {
	x = s.r.Float64()*2 - 1
	y = s.r.Float64()*2 - 1
	z = s.r.Float64()*2 - 1
	return x, y, z
}
