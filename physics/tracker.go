// Copyright © 2024 Galvanized Logic Inc.

package physics

import "log/slog"

// contactTracker caches the last accepted GJK simplex per body pair so
// narrowphase can warm-start instead of searching from scratch every
// step. Entries are order-independent on (bodyA.bid, bodyB.bid) and are
// dropped when either body stops participating in the simulation.
type contactTracker struct {
	simplices map[uint64]*gjk_Simplex
}

// simplexTracker is package-global rather than owned by World because the
// narrowphase collide functions (collideHulls, collideSphereMesh) are
// free functions dispatched through the narrowphase table and do not
// carry a *World reference; a single process is expected to run at most
// one World at a time in the donor's single-threaded usage pattern.
var simplexTracker = newContactTracker()

func newContactTracker() *contactTracker {
	return &contactTracker{simplices: map[uint64]*gjk_Simplex{}}
}

// get returns the cached simplex for pair, creating an empty one on first
// use so gjk_collides can fill and keep it warm on later calls.
func (ct *contactTracker) get(pair uint64) *gjk_Simplex {
	s, ok := ct.simplices[pair]
	if !ok {
		s = &gjk_Simplex{}
		ct.simplices[pair] = s
	}
	return s
}

// evict drops a body's cached simplices when it stops participating in
// the simulation, so a reused body id never warm-starts off a stale
// simplex belonging to a destroyed body.
func (ct *contactTracker) evict(bid uint32) {
	removed := 0
	for key := range ct.simplices {
		if uint32(key>>32) == bid || uint32(key) == bid {
			delete(ct.simplices, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("physics: evicted tracker entries for destroyed body", "body_id", bid, "count", removed)
	}
}

// reset clears every cached simplex. Used when a World is discarded so a
// later World in the same process does not warm-start against simplices
// from an unrelated simulation.
func (ct *contactTracker) reset() {
	clear(ct.simplices)
}
