// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package physics

import (
	"math"

	"github.com/tessellate/rigid/math/lin"
)

// margin is a small collision margin used to report contacts for shapes
// that are close but not yet overlapping. This keeps the solver from
// having to wait for visible interpenetration before it starts acting.
const margin = 0.04

// collide is the function prototype for collision algorithms. It takes two
// shapes and returns the list of contact points between the two shapes.
// An empty list means that there was no contact.
//    a : Body.
//    b : Different body.
//    c : Preallocated point of contact structures to be updated and returned.
type collide func(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact)

// collide
// ============================================================================
// sphere-sphere collision

// collideSphereSphere returns 0 or 1 contact points.
func collideSphereSphere(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	aa, bb := a.(*body), b.(*body)
	sa, sb := aa.shape.(*sphere), bb.shape.(*sphere)
	la, lb := aa.world.Loc, bb.world.Loc

	// Separation distance between sphere centers in world space.
	dx, dy, dz := la.X-lb.X, la.Y-lb.Y, la.Z-lb.Z
	separation := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if separation > sa.R+sb.R {
		return a, b, c[0:0] // no contact.
	}
	c0 := c[0]
	c0.depth = separation - (sa.R + sb.R) // how much overlap
	c0.normal.SetS(1, 0, 0)               // sphere's have same center
	if separation > lin.Epsilon {         // sphere's have different center
		c0.normal.SetS(dx/separation, dy/separation, dz/separation) // normalize
	}
	c0.point.Scale(c0.normal, sb.R)      // scale unit normal by radius to ...
	c0.point.Add(bb.world.Loc, c0.point) // ... find point of contact on sphere B.
	return a, b, c[0:1]                  // return single contact
}

// sphere-sphere collision
// ============================================================================
// sphere-box collision

// collideSphereBox can handle arbitrarily rotated boxes. It returns
// 0 or 1 points. Collision margins are used so that close enough objects
// are reported as colliding.
//
// Based on bullet physics btSphereBoxCollisionAlgorithm::getSphereDistance
func collideSphereBox(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	aa, bb := a.(*body), b.(*body)
	sphere, box := aa.shape.(*sphere), bb.shape.(*box)
	scenter := aa.World().Loc
	sradius := sphere.R
	maxContactDistance := 0.1 // contact breaking threshold
	boxMargin := margin

	// Get the box local half extents. Convert sphere's world to the box's local.
	hx, hy, hz := box.Hx, box.Hy, box.Hz
	sx, sy, sz := bb.World().InvS(scenter.X, scenter.Y, scenter.Z)

	// Determine the closest box vertex to the sphere center.
	px, py, pz := sx, sy, sz
	px = math.Min(hx, px)
	px = math.Max(-hx, px)
	py = math.Min(hy, py)
	py = math.Max(-hy, py)
	pz = math.Min(hz, pz)
	pz = math.Max(-hz, pz)

	// use the closest box point to the sphere center as the contact normal
	// (when the box center is outside the sphere)
	intersectionDist := sradius + boxMargin
	contactDist := intersectionDist + maxContactDistance
	nx, ny, nz := sx-px, sy-py, sz-pz

	// No penetration means no collision.
	dsqrd := nx*nx + ny*ny + nz*nz
	if dsqrd > contactDist*contactDist {
		return a, b, c[0:0]
	}

	// Collision occurred, figure out the collision details.
	var distance float64
	if dsqrd <= lin.Epsilon {
		// Handle the sphere center being inside the box. The contact normal is
		// updated to be the normal for the closest box face.
		px, py, pz, nx, ny, nz, distance = sphereBoxPenetration(box, sx, sy, sz)
	} else {
		distance = math.Sqrt(dsqrd)
		nx, ny, nz = nx/distance, ny/distance, nz/distance
	}

	// Apply the box world transform to get back to world space.
	c0 := c[0]
	c0.point.SetS(bb.World().AppS(px+nx*boxMargin, py+ny*boxMargin, pz+nz*boxMargin))
	c0.normal.SetS(bb.World().AppR(nx, ny, nz)) // only need rotation.
	c0.depth = distance - intersectionDist
	return a, b, c[0:1]
}

// sphereBoxPenetration calculates the closest point and normal when the sphere center
// is inside the box. The sphere center is projected onto each of the box faces to find
// the closest.
//
// Based on bullet physics btSphereBoxCollisionAlgorithm::getSpherePenetration
func sphereBoxPenetration(b *box, sx, sy, sz float64) (px, py, pz, nx, ny, nz, depth float64) {
	faceDist := b.Hx - sx
	depth = faceDist
	px, py, pz = b.Hx, sy, sz
	nx, ny, nz = 1, 0, 0
	faceDist = b.Hx + sx
	if faceDist < depth {
		depth = faceDist
		px, py, pz = -b.Hx, sy, sz
		nx, ny, nz = -1, 0, 0
	}
	faceDist = b.Hy - sy
	if faceDist < depth {
		depth = faceDist
		px, py, pz = sx, b.Hy, sz
		nx, ny, nz = 0, 1, 0
	}
	faceDist = b.Hy + sy
	if faceDist < depth {
		depth = faceDist
		px, py, pz = sx, -b.Hy, sz
		nx, ny, nz = 0, -1, 0
	}
	faceDist = b.Hz - sz
	if faceDist < depth {
		depth = faceDist
		px, py, pz = sx, sy, b.Hz
		nx, ny, nz = 0, 0, 1
	}
	faceDist = b.Hz + sz
	if faceDist < depth {
		depth = faceDist
		px, py, pz = sx, sy, -b.Hz
		nx, ny, nz = 0, 0, -1
	}
	depth = -depth // because its inside the box.
	return
}

// collideBoxSphere reverses the collision to be SphereBox.
func collideBoxSphere(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	return collideSphereBox(b, a, c)
}

// sphere-box collision
// ============================================================================
// box-box collision

// boxColliderVertices returns the 8 corner vertices and 12 triangle indices,
// wound outward, for a box of the given half extents. Used to build a
// throwaway convex hull collider for narrowphase.
func boxColliderVertices(hx, hy, hz float64) ([]lin.V3, []uint32) {
	verts := []lin.V3{
		{X: -hx, Y: -hy, Z: -hz}, // 0
		{X: hx, Y: -hy, Z: -hz},  // 1
		{X: hx, Y: hy, Z: -hz},   // 2
		{X: -hx, Y: hy, Z: -hz},  // 3
		{X: -hx, Y: -hy, Z: hz},  // 4
		{X: hx, Y: -hy, Z: hz},   // 5
		{X: hx, Y: hy, Z: hz},    // 6
		{X: -hx, Y: hy, Z: hz},   // 7
	}
	indices := []uint32{
		0, 3, 2, 0, 2, 1, // -Z face
		4, 5, 6, 4, 6, 7, // +Z face
		0, 1, 5, 0, 5, 4, // -Y face
		3, 7, 6, 3, 6, 2, // +Y face
		0, 4, 7, 0, 7, 3, // -X face
		1, 2, 6, 1, 6, 5, // +X face
	}
	return verts, indices
}

// hullVerticesOf returns the local-space vertex and triangle index buffers
// a shape needs for a convex hull collider, or ok=false if the shape has
// no hull representation.
func hullVerticesOf(s Shape) (verts []lin.V3, index []uint32, ok bool) {
	switch t := s.(type) {
	case *box:
		v, i := boxColliderVertices(t.Hx, t.Hy, t.Hz)
		return v, i, true
	case *mesh:
		v, i := t.hullVertices()
		return v, i, true
	}
	return nil, nil, false
}

// collideHulls narrowphases any two shapes that have a convex hull
// representation (boxes, static meshes) using the GJK/EPA and clipping
// pipeline built for general convex hulls. Up to 4 contact points can be
// returned.
func collideHulls(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	aa, bb := a.(*body), b.(*body)
	va, ia, _ := hullVerticesOf(aa.shape)
	vb, ib, _ := hullVerticesOf(bb.shape)
	ca := collider_convex_hull_create(va, ia)
	cb := collider_convex_hull_create(vb, ib)
	collider_update(&ca, *aa.world.Loc, aa.world.Rot)
	collider_update(&cb, *bb.world.Loc, bb.world.Rot)

	contacts := collider_get_contacts(&ca, &cb, simplexTracker.get(aa.pairID(bb)), nil)
	n := len(contacts)
	if n > len(c) {
		n = len(c)
	}
	for idx := 0; idx < n; idx++ {
		cc := contacts[idx]
		poc := c[idx]
		poc.point.Set(&cc.collision_point2)
		poc.normal.Neg(&cc.normal) // collider normal points A to B; contacts use B to A.
		diff := lin.NewV3().Sub(&cc.collision_point1, &cc.collision_point2)
		poc.depth = diff.Dot(poc.normal)
	}
	return a, b, c[0:n]
}

// collideBoxBox narrowphases two oriented boxes through collideHulls.
func collideBoxBox(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	return collideHulls(a, b, c)
}

// collideBoxMesh and collideMeshBox narrowphase a box against a static
// triangle mesh through collideHulls. Mesh bodies are expected fixed.
func collideBoxMesh(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	return collideHulls(a, b, c)
}
func collideMeshBox(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	return collideHulls(a, b, c)
}

// box-box collision
// ============================================================================
// sphere-mesh collision

// collideSphereMesh narrowphases a sphere against a static triangle mesh.
// Sphere-vs-hull has no simple closed form like sphere-vs-box, so this goes
// through the same GJK/EPA/clipping pipeline collideHulls uses, building a
// sphere collider directly instead of a hull for the sphere side.
func collideSphereMesh(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	aa, bb := a.(*body), b.(*body)
	sp := aa.shape.(*sphere)
	vb, ib, _ := hullVerticesOf(bb.shape)

	ca := collider_sphere_create(float32(sp.R))
	cb := collider_convex_hull_create(vb, ib)
	collider_update(&ca, *aa.world.Loc, aa.world.Rot)
	collider_update(&cb, *bb.world.Loc, bb.world.Rot)

	contacts := collider_get_contacts(&ca, &cb, simplexTracker.get(aa.pairID(bb)), nil)
	n := len(contacts)
	if n > len(c) {
		n = len(c)
	}
	for idx := 0; idx < n; idx++ {
		cc := contacts[idx]
		poc := c[idx]
		poc.point.Set(&cc.collision_point2)
		poc.normal.Neg(&cc.normal) // collider normal points A to B; contacts use B to A.
		diff := lin.NewV3().Sub(&cc.collision_point1, &cc.collision_point2)
		poc.depth = diff.Dot(poc.normal)
	}
	return a, b, c[0:n]
}

// collideMeshSphere reverses the collision to be SphereMesh.
func collideMeshSphere(a, b Body, c []*pointOfContact) (i, j Body, k []*pointOfContact) {
	return collideSphereMesh(b, a, c)
}

// sphere-mesh collision
// ============================================================================
// narrowphase dispatch

// narrowphase dispatches a pair of volume-shaped bodies to the matching
// collide function based on shape type. The caller is expected to have
// already excluded non-volume shapes (plane, ray) from the broadphase.
var narrowphase = [VolumeShapes][VolumeShapes]collide{
	SphereShape: {
		SphereShape: collideSphereSphere,
		BoxShape:    collideSphereBox,
		MeshShape:   collideSphereMesh,
	},
	BoxShape: {
		SphereShape: collideBoxSphere,
		BoxShape:    collideBoxBox,
		MeshShape:   collideBoxMesh,
	},
	MeshShape: {
		SphereShape: collideMeshSphere,
		BoxShape:    collideMeshBox,
		// mesh-mesh is not supported; World.Update skips any broadphase
		// pair whose entry here is nil.
	},
}

// narrowphase collision
// ============================================================================
// FUTURE: improving efficiency by running detection in parallel on the GPU.
