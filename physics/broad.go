// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"log/slog"

	"github.com/tessellate/rigid/math/lin"
)

// GroupEnvironment is the reserved collision group for static scenery.
// Bodies in this group are never paired against each other during
// broadphase; every other group value, including the zero-value default
// group new bodies get when no group is specified, pairs freely with
// everything, including itself.
const GroupEnvironment uint32 = 1

// broadPair identifies two bodies that are close enough to warrant a
// narrowphase check.
type broadPair struct {
	a, b *body
}

// broadphase finds candidate pairs among the given bodies using
// bounding-sphere proximity. Two bodies are never compared twice and
// Environment bodies are never paired with other Environment bodies.
func broadphase(bodies []*body) []broadPair {
	pairs := []broadPair{}
	for i := 0; i < len(bodies); i++ {
		bi := bodies[i]
		for j := i + 1; j < len(bodies); j++ {
			bj := bodies[j]
			if bi.group == GroupEnvironment && bj.group == GroupEnvironment {
				continue // environment bodies never pair with each other.
			}
			if boundingSpheresOverlap(bi, bj) {
				pairs = append(pairs, broadPair{bi, bj})
			}
		}
	}
	return pairs
}

// boundingSpheresOverlap reports whether two bodies' bounding spheres,
// padded by a small margin for moving objects, are close enough for a
// narrowphase check to be worthwhile.
func boundingSpheresOverlap(a, b *body) bool {
	dist := lin.NewV3().Sub(a.world.Loc, b.world.Loc).Len()
	maxDist := a.boundingRadius() + b.boundingRadius() + 0.1
	return dist <= maxDist
}

// boundingRadius returns the radius of a bounding sphere, centered on
// the body's world location, that fully contains its shape.
func (b *body) boundingRadius() float64 {
	var ab Abox
	b.shape.Aabb(b.world, &ab, 0)
	dx, dy, dz := ab.Lx-b.world.Loc.X, ab.Ly-b.world.Loc.Y, ab.Lz-b.world.Loc.Z
	return lin.NewV3().SetS(dx, dy, dz).Len()
}

// broadphase
// ============================================================================
// simulation islands

// uf_find follows parent pointers in body_to_parent_map to the
// representative of x's set.
func uf_find(body_to_parent_map map[uint32]uint32, x uint32) uint32 {
	p, ok := body_to_parent_map[x]
	if !ok {
		slog.Error("missing body parent", "body_id", x)
		return x
	}
	if p == x {
		return x
	}
	return uf_find(body_to_parent_map, p)
}

// uf_union merges the sets containing x and y.
func uf_union(body_to_parent_map map[uint32]uint32, x, y uint32) {
	key := uf_find(body_to_parent_map, y)
	value := uf_find(body_to_parent_map, x)
	body_to_parent_map[key] = value
}

// simulationIslands groups bodies that are transitively connected by a
// contacting pair. Fixed (immovable) bodies never link two islands
// together since they do not transmit motion.
func simulationIslands(bodies []*body, pairs []broadPair) [][]*body {
	byID := map[uint32]*body{}
	parent := map[uint32]uint32{}
	for _, b := range bodies {
		byID[b.bid] = b
		parent[b.bid] = b.bid
	}
	for _, pair := range pairs {
		if pair.a.movable && pair.b.movable {
			uf_union(parent, pair.a.bid, pair.b.bid)
		}
	}

	islandIdx := map[uint32]int{}
	islands := [][]*body{}
	for _, b := range bodies {
		if !b.movable {
			continue
		}
		root := uf_find(parent, b.bid)
		idx, ok := islandIdx[root]
		if !ok {
			idx = len(islands)
			islands = append(islands, []*body{})
			islandIdx[root] = idx
		}
		islands[idx] = append(islands[idx], b)
	}
	return islands
}
