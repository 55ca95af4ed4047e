// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"math"
	"testing"

	"github.com/tessellate/rigid/math/lin"
)

// quatMapping returns the quaternion rotating unit vector from onto unit
// vector to, used to set up the exact poses the contact-classification
// scenarios below are built from.
func quatMapping(from, to lin.V3) *lin.Q {
	axis := lin.NewV3().Cross(&from, &to)
	angle := math.Acos(lin.Clamp(from.Dot(&to), -1, 1))
	return lin.NewQ().SetAa(axis.X, axis.Y, axis.Z, angle)
}

// These scenarios each use two cubes with half extent 0.5 (boxColliderVertices
// elsewhere in this package), positioned so the winning support-vertex count
// on each side forces one of the four contact-manifold feature pairs from
// support.go's support_vertex_count-based classification: a single shared
// vertex, a skew edge pair, one edge against a face, and two parallel faces.
// Exact floating point contact coordinates depend on the full GJK/EPA/clipping
// pipeline and aren't reproduced here; each case instead checks the
// contact count and the qualitative normal direction and depth sign that
// the classification predicts, the same style TestCollideBoxBoxFaceContact
// already uses.

func TestContactClassificationVertexFace(t *testing.T) {
	body0 := newBody(NewBox(0.5, 0.5, 0.5))
	body1 := newBody(NewBox(0.5, 0.5, 0.5))
	body1.World().Loc.SetS((0.98+math.Sqrt(3))/2, 0.1, 0)
	body1.World().Rot.Set(quatMapping(*lin.NewV3().SetS(1, 1, 1).Unit(), lin.V3{X: 1}))

	_, _, cs := collideBoxBox(body0, body1, newManifold())
	if len(cs) == 0 {
		t.Fatal("expected a vertex-face contact between the two cubes")
	}
	if cs[0].normal.X >= 0 {
		t.Errorf("expected a normal pointing in -X, got %s", dumpV3(cs[0].normal))
	}
	if cs[0].depth >= 0 {
		t.Errorf("expected a penetrating contact, got depth %f", cs[0].depth)
	}
}

func TestContactClassificationEdgeEdge(t *testing.T) {
	body0 := newBody(NewBox(0.5, 0.5, 0.5))
	body1 := newBody(NewBox(0.5, 0.5, 0.5))
	body1.World().Loc.SetS(0.99, 0.99, 0)
	body1.World().Rot.SetAa(1, 1, 0, lin.Rad(90))

	_, _, cs := collideBoxBox(body0, body1, newManifold())
	if len(cs) == 0 {
		t.Fatal("expected an edge-edge contact between the two cubes")
	}
	if cs[0].normal.X >= 0 || cs[0].normal.Y >= 0 {
		t.Errorf("expected a normal pointing into -X,-Y, got %s", dumpV3(cs[0].normal))
	}
	if cs[0].depth >= 0 {
		t.Errorf("expected a penetrating contact, got depth %f", cs[0].depth)
	}
}

func TestContactClassificationEdgeFace(t *testing.T) {
	body0 := newBody(NewBox(0.5, 0.5, 0.5))
	body1 := newBody(NewBox(0.5, 0.5, 0.5))
	body1.World().Loc.SetS(0.49+math.Sqrt2/2, 0, 0.5)
	body1.World().Rot.SetAa(0, 0, 1, lin.Rad(45))

	_, _, cs := collideBoxBox(body0, body1, newManifold())
	if len(cs) < 2 {
		t.Fatalf("expected at least two contacts for an edge-face manifold, got %d", len(cs))
	}
	for _, c := range cs {
		if c.normal.X >= 0 {
			t.Errorf("expected a normal pointing in -X, got %s", dumpV3(c.normal))
		}
		if c.depth >= 0 {
			t.Errorf("expected a penetrating contact, got depth %f", c.depth)
		}
	}
}

func TestContactClassificationFaceFace(t *testing.T) {
	body0 := newBody(NewBox(0.5, 0.5, 0.5))
	body1 := newBody(NewBox(0.5, 0.5, 0.5))
	body1.World().Loc.SetS(0.99, 0.5, 0.5)

	_, _, cs := collideBoxBox(body0, body1, newManifold())
	if len(cs) < 3 {
		t.Fatalf("expected a multi-point face-face manifold, got %d contacts", len(cs))
	}
	for _, c := range cs {
		if math.Abs(c.normal.X) < 0.9 {
			t.Errorf("expected a normal dominated by X, got %s", dumpV3(c.normal))
		}
		if c.depth >= 0 {
			t.Errorf("expected a penetrating contact, got depth %f", c.depth)
		}
	}
}
