// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"testing"

	"github.com/tessellate/rigid/math/lin"
)

func TestCollideSphereSphere(t *testing.T) {
	a, b, cons := NewBody(NewSphere(1)), NewBody(NewSphere(1)), newManifold()
	if _, _, cs := collideSphereSphere(a, b, cons); len(cs) != 1 || cs[0].depth != -2 {
		t.Errorf("Identical spheres at the origin should overlap by %f.", cs[0].depth)
	}

	// check each axis.
	a.World().Loc.SetS(2, 0, 0)
	if _, _, cs := collideSphereSphere(a, b, cons); cs[0].depth != 0 ||
		dumpV3(cs[0].point) != "{1.0 0.0 0.0}" || dumpV3(cs[0].normal) != "{1.0 0.0 0.0}" {
		t.Errorf("Spheres touching at point (1,0,0) do not overlap. %s", dumpV3(cs[0].point))
	}
	a.World().Loc.SetS(0, 2, 0)
	if _, _, cs := collideSphereSphere(a, b, cons); cs[0].depth != 0 ||
		dumpV3(cs[0].point) != "{0.0 1.0 0.0}" || dumpV3(cs[0].normal) != "{0.0 1.0 0.0}" {
		t.Errorf("Spheres touching at point (0,1,0) do not overlap. %s", dumpV3(cs[0].point))
	}
	a.World().Loc.SetS(0, 0, 2)
	if _, _, cs := collideSphereSphere(a, b, cons); cs[0].depth != 0 ||
		dumpV3(cs[0].point) != "{0.0 0.0 1.0}" || dumpV3(cs[0].normal) != "{0.0 0.0 1.0}" {
		t.Errorf("Spheres touching at point (0,0,1) do not overlap. %s", dumpV3(cs[0].point))
	}

	// check just outside and slightly overlapping.
	a.World().Loc.SetS(2.01, 0, 0)
	if _, _, cs := collideSphereSphere(a, b, cons); len(cs) != 0 {
		t.Error("Spheres not touching")
	}
	a.World().Loc.SetS(0, 0, 1.75)
	if _, _, cs := collideSphereSphere(a, b, cons); cs[0].depth != -0.25 ||
		dumpV3(cs[0].point) != "{0.0 0.0 1.0}" || dumpV3(cs[0].normal) != "{0.0 0.0 1.0}" {
		t.Errorf("Spheres touching at point (0,0,1) overlaps by %2.2f %s", cs[0].depth, dumpV3(cs[0].point))
	}
}

func TestCollideSphereBox(t *testing.T) {
	a, b, cons := NewBody(NewSphere(1)), NewBody(NewBox(1, 1, 1)), newManifold()
	if _, _, cs := collideSphereBox(a, b, cons); cs[0].depth != -2.04 ||
		dumpV3(cs[0].point) != "{1.0 0.0 0.0}" || dumpV3(cs[0].normal) != "{1.0 0.0 0.0}" {
		t.Errorf("Sphere touching box at point A %f %s %s", cs[0].depth, dumpV3(cs[0].point), dumpV3(cs[0].normal))
	}
	a.World().Loc.SetS(0, 2, 0)
	if _, _, cs := collideSphereBox(a, b, cons); !lin.Aeq(cs[0].depth, -margin) ||
		dumpV3(cs[0].point) != "{0.0 1.0 0.0}" || dumpV3(cs[0].normal) != "{0.0 1.0 0.0}" {
		t.Errorf("Sphere touching box at point %f %s %s", cs[0].depth, dumpV3(cs[0].point), dumpV3(cs[0].normal))
	}
	a.World().Loc.SetS(0, 0, 2.15)
	if _, _, cs := collideSphereBox(a, b, cons); len(cs) != 0 {
		t.Errorf("Sphere not touching box %f %s %s", cs[0].depth, dumpV3(cs[0].point), dumpV3(cs[0].normal))
	}

	// close enough to be considered in contact.
	a.World().Loc.SetS(0, 0, 2.1)
	if _, _, cs := collideSphereBox(a, b, cons); !lin.Aeq(cs[0].depth, 0.06) ||
		dumpV3(cs[0].point) != "{0.0 0.0 1.0}" || dumpV3(cs[0].normal) != "{0.0 0.0 1.0}" {
		t.Errorf("Sphere close to touching box %f %s %s", cs[0].depth, dumpV3(cs[0].point), dumpV3(cs[0].normal))
	}
}

// Calling collideBoxSphere directly should produce the same result as
// calling collideSphereBox with the bodies reversed.
func TestCollideBoxSphere(t *testing.T) {
	box, sphere, cons := newBody(NewBox(1, 1, 1)), newBody(NewSphere(1)), newManifold()
	sphere.World().Loc.SetS(0, 2, 0)
	i, j, cs := collideBoxSphere(box, sphere, cons)
	ii, jj := i.(*body), j.(*body)
	if ii.shape.Type() != SphereShape || jj.shape.Type() != BoxShape {
		t.Error("Should have flipped the objects into Sphere, Box")
	}
	if !lin.Aeq(cs[0].depth, -margin) || dumpV3(cs[0].point) != "{0.0 1.0 0.0}" || dumpV3(cs[0].normal) != "{0.0 1.0 0.0}" {
		t.Errorf("Contact info should be the same %f %s %s", cs[0].depth, dumpV3(cs[0].point), dumpV3(cs[0].normal))
	}
}

// Boxes well apart should not produce contacts, and a box fully nested
// inside a larger one should produce contacts.
func TestCollideBoxBox(t *testing.T) {
	a, b, cons := NewBody(NewBox(0.5, 0.5, 0.5)), NewBody(NewBox(1, 1, 1)), newManifold()
	if _, _, cs := collideBoxBox(a, b, cons); len(cs) == 0 {
		t.Error("Boxes should collide since one is inside the other")
	}

	a.World().Loc.SetS(0, 0, 1.6)
	if _, _, cs := collideBoxBox(a, b, cons); len(cs) != 0 {
		t.Errorf("Boxes should not collide, got %d contacts", len(cs))
	}
}

// A small box resting face-down against a large slab should produce a
// contact with a normal pointing away from the slab surface. The moving
// body is passed first, the reference body second, matching the
// sphere-box convention exercised elsewhere.
func TestCollideBoxBoxFaceContact(t *testing.T) {
	slab := newBody(NewBox(50, 50, 50)).setMaterial(0, 0)
	slab.World().Loc.SetS(0, -50, 0)
	box := newBody(NewBox(1, 1, 1)).setMaterial(1, 0)
	box.World().Loc.SetS(0, 0.9, 0)

	_, _, cs := collideBoxBox(box, slab, newManifold())
	if len(cs) == 0 {
		t.Fatal("Expected at least one contact between the box and the slab")
	}
	if cs[0].depth >= 0 {
		t.Errorf("Expected a penetrating contact, got depth %f", cs[0].depth)
	}
	if cs[0].normal.Y <= 0 {
		t.Errorf("Expected the contact normal to point up, away from the slab, got %s", dumpV3(cs[0].normal))
	}
}

// meshBoxShape builds a static mesh shape shaped like an axis-aligned box,
// reusing boxColliderVertices so the mesh and a real box shape describe
// the same volume.
func meshBoxShape(t *testing.T, hx, hy, hz float64) Shape {
	t.Helper()
	verts, index := boxColliderVertices(hx, hy, hz)
	m, err := NewTriangleMesh(verts, index)
	if err != nil {
		t.Fatalf("NewTriangleMesh: %v", err)
	}
	return m
}

// A box resting face-down against a slab built as a triangle mesh should
// collide the same way it does against a real box shape.
func TestCollideBoxMesh(t *testing.T) {
	slab := newBody(meshBoxShape(t, 50, 50, 50)).setMaterial(0, 0)
	slab.World().Loc.SetS(0, -50, 0)
	box := newBody(NewBox(1, 1, 1)).setMaterial(1, 0)
	box.World().Loc.SetS(0, 0.9, 0)

	_, _, cs := collideBoxMesh(box, slab, newManifold())
	if len(cs) == 0 {
		t.Fatal("Expected at least one contact between the box and the mesh slab")
	}
	if cs[0].depth >= 0 {
		t.Errorf("Expected a penetrating contact, got depth %f", cs[0].depth)
	}
	if cs[0].normal.Y <= 0 {
		t.Errorf("Expected the contact normal to point up, away from the slab, got %s", dumpV3(cs[0].normal))
	}
}

// collideMeshBox should produce the same contact as collideBoxMesh with
// the bodies reversed.
func TestCollideMeshBox(t *testing.T) {
	slab := newBody(meshBoxShape(t, 50, 50, 50)).setMaterial(0, 0)
	slab.World().Loc.SetS(0, -50, 0)
	box := newBody(NewBox(1, 1, 1)).setMaterial(1, 0)
	box.World().Loc.SetS(0, 0.9, 0)

	_, _, cs := collideMeshBox(slab, box, newManifold())
	if len(cs) == 0 {
		t.Fatal("Expected at least one contact between the mesh slab and the box")
	}
}

// A sphere resting on a mesh slab should produce a single upward-facing
// contact, matching sphere-box behaviour since sphere-mesh has no
// closed-form shortcut and goes through the same GJK/EPA pipeline.
func TestCollideSphereMesh(t *testing.T) {
	slab := newBody(meshBoxShape(t, 50, 50, 50)).setMaterial(0, 0)
	slab.World().Loc.SetS(0, -50, 0)
	ball := newBody(NewSphere(1)).setMaterial(1, 0)
	ball.World().Loc.SetS(0, 0.9, 0)

	_, _, cs := collideSphereMesh(ball, slab, newManifold())
	if len(cs) == 0 {
		t.Fatal("Expected at least one contact between the sphere and the mesh slab")
	}
	if cs[0].normal.Y <= 0 {
		t.Errorf("Expected the contact normal to point up, away from the slab, got %s", dumpV3(cs[0].normal))
	}
}

// collideMeshSphere should produce the same contact as collideSphereMesh
// with the bodies reversed.
func TestCollideMeshSphere(t *testing.T) {
	slab := newBody(meshBoxShape(t, 50, 50, 50)).setMaterial(0, 0)
	slab.World().Loc.SetS(0, -50, 0)
	ball := newBody(NewSphere(1)).setMaterial(1, 0)
	ball.World().Loc.SetS(0, 0.9, 0)

	_, _, cs := collideMeshSphere(slab, ball, newManifold())
	if len(cs) == 0 {
		t.Fatal("Expected at least one contact between the mesh slab and the sphere")
	}
}

// TestNarrowphaseDispatch checks that every supported shape pair resolves
// to a non-nil collide function and that mesh-mesh is intentionally left
// unsupported.
func TestNarrowphaseDispatch(t *testing.T) {
	supported := [][2]int{
		{SphereShape, SphereShape}, {SphereShape, BoxShape}, {SphereShape, MeshShape},
		{BoxShape, SphereShape}, {BoxShape, BoxShape}, {BoxShape, MeshShape},
		{MeshShape, SphereShape}, {MeshShape, BoxShape},
	}
	for _, pair := range supported {
		if narrowphase[pair[0]][pair[1]] == nil {
			t.Errorf("Expected a collide function for shape pair %v", pair)
		}
	}
	if narrowphase[MeshShape][MeshShape] != nil {
		t.Error("Mesh-mesh narrowphase should be unsupported")
	}
}
