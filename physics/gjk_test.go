// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"testing"

	"github.com/tessellate/rigid/math/lin"
)

// cubeCollider builds a convex hull collider for a unit cube (half extent
// 0.5) at the given world location and orientation.
func cubeCollider(loc lin.V3, rot *lin.Q) collider {
	verts, index := boxColliderVertices(0.5, 0.5, 0.5)
	c := collider_convex_hull_create(verts, index)
	collider_update(&c, loc, rot)
	return c
}

// TestGJKCorrectness checks that two unit cubes separated by 2.83*d never
// intersect and separated by 0.49*d always do, for a sample of unit
// directions d and relative orientations q. 2.83 approximates 2*sqrt(2),
// comfortably larger than the sum of the cubes' circumscribed radii;
// 0.49 is comfortably smaller than the sum of their inscribed radii, so
// both bounds hold regardless of orientation.
func TestGJKCorrectness(t *testing.T) {
	directions := []lin.V3{
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 1, Z: 0},
		{X: 0, Y: 0, Z: 1},
		*lin.NewV3().SetS(1, 1, 1).Unit(),
		*lin.NewV3().SetS(1, -1, 0.5).Unit(),
	}
	rotations := []*lin.Q{
		lin.NewQI(),
		lin.NewQ().SetAa(1, 0, 0, lin.Rad(30)),
		lin.NewQ().SetAa(0, 1, 1, lin.Rad(57)),
		lin.NewQ().SetAa(1, 1, 1, lin.Rad(119)),
	}

	origin := lin.V3{}
	for _, d := range directions {
		for _, q := range rotations {
			far := *lin.NewV3().Scale(&d, 2.83)
			c0 := cubeCollider(origin, lin.NewQI())
			c1 := cubeCollider(far, q)
			if gjk_collides(&c0, &c1, nil) {
				t.Errorf("cubes separated by 2.83*%s should not intersect (q=%v)", dumpV3(&d), q)
			}

			near := *lin.NewV3().Scale(&d, 0.49)
			c0 = cubeCollider(origin, lin.NewQI())
			c1 = cubeCollider(near, q)
			if !gjk_collides(&c0, &c1, nil) {
				t.Errorf("cubes separated by 0.49*%s should intersect (q=%v)", dumpV3(&d), q)
			}
		}
	}
}

// TestGJKTouchingBoundary sanity checks that moving the second cube from a
// clearly separated location to a clearly overlapping one flips gjk_collides
// monotonically, with no occurrences of false collisions along the way.
func TestGJKTouchingBoundary(t *testing.T) {
	origin := lin.V3{}
	d := lin.V3{X: 1, Y: 0, Z: 0}
	c0 := cubeCollider(origin, lin.NewQI())

	wasColliding := false
	for i := 20; i >= 0; i-- {
		frac := 0.49 + (2.83-0.49)*float64(i)/20.0
		loc := *lin.NewV3().Scale(&d, frac)
		c1 := cubeCollider(loc, lin.NewQI())
		colliding := gjk_collides(&c0, &c1, nil)
		if wasColliding && !colliding {
			t.Errorf("collision state flipped back to false at fraction %f after being true", frac)
		}
		wasColliding = wasColliding || colliding
	}
	if !wasColliding {
		t.Error("expected at least one overlapping configuration while sweeping from far to near")
	}
}

