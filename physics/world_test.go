// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tessellate/rigid/math/lin"
)

// TestWorldIslandsGroupOverlappingBodies checks that a chain of mutually
// overlapping spheres collapses into a single simulation island, mirroring
// the donor's old broadphase-pair-uniqueness coverage.
func TestWorldIslandsGroupOverlappingBodies(t *testing.T) {
	w := NewWorld(DefaultConfig())
	const n = 4
	for i := 0; i < n; i++ {
		_, err := w.CreateRigidBody(RigidBodyDef{
			Shape:       NewSphere(1),
			Mass:        1,
			Translation: lin.V3{X: float64(i) * 0.5},
		}, "")
		require.NoError(t, err)
	}

	islands := w.Islands()
	require.Len(t, islands, 1)
	assert.Len(t, islands[0], n)
}

// TestWorldSphereRestsOnFloor drops a sphere onto a fixed slab and checks
// that, after enough steps, it has come to rest on the slab's surface
// instead of sinking through or floating above it.
func TestWorldSphereRestsOnFloor(t *testing.T) {
	w := NewWorld(DefaultConfig())
	_, err := w.CreateFixedBody(FixedBodyDef{
		Shape:       NewBox(50, 1, 50),
		Translation: lin.V3{Y: -1},
	}, "floor")
	require.NoError(t, err)

	ball, err := w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Restitution: 0, // deterministic settle, no bounce.
		Translation: lin.V3{Y: 5},
	}, "ball")
	require.NoError(t, err)

	dt := 1.0 / 60.0
	for i := 0; i < 300; i++ {
		w.Update(dt)
	}

	loc, _ := ball.Transform()
	assert.InDelta(t, 1.0, loc.Y, 0.2) // floor top at y=0, sphere radius 1.
}

// TestWorldUpdateReportsContactManifold checks that two overlapping bodies
// produce exactly one manifold tagging both participants.
func TestWorldUpdateReportsContactManifold(t *testing.T) {
	w := NewWorld(DefaultConfig())
	_, err := w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Translation: lin.V3{X: 0},
	}, "a")
	require.NoError(t, err)
	_, err = w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Translation: lin.V3{X: 1.5},
	}, "b")
	require.NoError(t, err)

	manifolds := w.Update(1.0 / 60.0)
	require.Len(t, manifolds, 1)
	tags := []string{manifolds[0].HandleA.Tag(), manifolds[0].HandleB.Tag()}
	assert.ElementsMatch(t, []string{"a", "b"}, tags)
}

// TestWorldCreateRigidBodyRejectsNegativeMass checks the phyerr validation
// path added for rigid body construction.
func TestWorldCreateRigidBodyRejectsNegativeMass(t *testing.T) {
	w := NewWorld(DefaultConfig())
	_, err := w.CreateRigidBody(RigidBodyDef{Shape: NewSphere(1), Mass: -1}, "bad")
	require.Error(t, err)
}

// TestWorldRemoveBodyDropsContacts checks that removing a body clears any
// contact pair referencing it so a later Update does not touch stale data.
func TestWorldRemoveBodyDropsContacts(t *testing.T) {
	w := NewWorld(DefaultConfig())
	a, err := w.CreateRigidBody(RigidBodyDef{Shape: NewSphere(1), Mass: 1}, "a")
	require.NoError(t, err)
	_, err = w.CreateRigidBody(RigidBodyDef{Shape: NewSphere(1), Mass: 1, Translation: lin.V3{X: 1.5}}, "b")
	require.NoError(t, err)

	w.Update(1.0 / 60.0)
	require.NotEmpty(t, w.contactPairs)

	require.True(t, w.RemoveBody(a))
	for _, cp := range w.contactPairs {
		assert.NotEqual(t, a.id, cp.bodyA.bid)
		assert.NotEqual(t, a.id, cp.bodyB.bid)
	}
}

// TestWorldElasticHeadOnCollisionSwapsVelocities checks energy conservation
// for a unit-restitution head-on collision between two equal-mass spheres:
// the post-step velocities swap, to within the solver's convergence
// tolerance. Gravity is zeroed so it cannot perturb the result.
func TestWorldElasticHeadOnCollisionSwapsVelocities(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gravity = lin.V3{}
	w := NewWorld(cfg)

	a, err := w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Restitution: 1,
		Translation: lin.V3{X: -0.99},
		Velocity:    lin.V3{X: 5},
	}, "a")
	require.NoError(t, err)
	b, err := w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Restitution: 1,
		Translation: lin.V3{X: 0.99},
		Velocity:    lin.V3{X: -5},
	}, "b")
	require.NoError(t, err)

	w.Update(1.0 / 60.0)

	av, _ := a.Velocity()
	bv, _ := b.Velocity()
	assert.InDelta(t, -5.0, av.X, 0.1)
	assert.InDelta(t, 5.0, bv.X, 0.1)
}

// TestWorldCastRayHitsSphere checks the raycast query surface against the
// simplest supported shape.
func TestWorldCastRayHitsSphere(t *testing.T) {
	w := NewWorld(DefaultConfig())
	_, err := w.CreateRigidBody(RigidBodyDef{
		Shape:       NewSphere(1),
		Mass:        1,
		Translation: lin.V3{X: 5},
	}, "target")
	require.NoError(t, err)

	h, hit, ok := w.CastRay(lin.V3{}, lin.V3{X: 1})
	require.True(t, ok)
	assert.Equal(t, "target", h.Tag())
	assert.InDelta(t, 4.0, hit.X, 1e-6)
}
