// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.
//
// The solverBody/solverPoint bookkeeping below descends from a scaled-down
// golang port of Bullet's btSequentialImpulseConstraintSolver. The actual
// constraint math, lcpSolve and lcpPoint, no longer follows Bullet: contacts
// and their friction are solved as one coupled 3x3 system per point instead
// of Bullet's two decoupled sequential-impulse passes, so that friction
// directly reacts to the normal impulse within the same Gauss-Seidel sweep
// rather than one iteration behind it.
//
//    Bullet Continuous Collision Detection and Physics Library
//    Copyright (c) 2003-2006 Erwin Coumans  http://continuousphysics.com/Bullet/
//
//    This software is provided 'as-is', without any express or implied warranty.
//    In no event will the authors be held liable for any damages arising from the use of this software.
//    Permission is granted to anyone to use this software for any purpose,
//    including commercial applications, and to alter it and redistribute it freely,
//    subject to the following restrictions:
//
//    1. The origin of this software must not be misrepresented; you must not claim that you wrote the original software.
//       If you use this software in a product, an acknowledgment in the product documentation would be appreciated but is not required.
//    2. Altered source versions must be plainly marked as such, and must not be misrepresented as being the original software.
//    3. This notice may not be removed or altered from any source distribution.

package physics

import (
	"log/slog"
	"math"

	"github.com/tessellate/rigid/internal/rng"
	"github.com/tessellate/rigid/math/lin"
)

// solver runs a fully-coupled frictional-contact LCP over the current
// contact manifolds using projected Gauss-Seidel. Each point of contact
// contributes one 3x3 block (one normal axis, two tangent axes) instead
// of Bullet's two separate 1D constraints, so friction couples directly
// to the normal impulse within a single pass.
//
//    http://en.wikipedia.org/wiki/Linear_complementarity_problem
//    http://en.wikipedia.org/wiki/Gauss–Seidel_method
type solver struct {
	info   *solverInfo // Constants for the solver.
	points []*lcpPoint // One coupled constraint block per contact point.

	// scratch variables are optimizations that avoid creating/destroying
	// temporary objects that are needed each timestep.
	v0, v1, v2 *lin.V3 // scratch vectors.
	ra, rb     *lin.V3 // scratch relative positions for converting contacts.
}

// newSolver creates the necessary space for the solver to work.
// This is expected to be called once on engine startup.
func newSolver() *solver {
	sol := &solver{}
	sol.info = newSolverInfo()
	sol.points = []*lcpPoint{}
	sol.v0 = lin.NewV3()
	sol.v1 = lin.NewV3()
	sol.v2 = lin.NewV3()
	sol.ra = lin.NewV3()
	sol.rb = lin.NewV3()
	return sol
}

// solve is expected to be called each physics update. It creates constraints
// based on contact points and then solves the constraints by adjusting bodies
// velocities to satisfy the constraints.
func (sol *solver) solve(bodies map[uint32]*body, contactPairs map[uint64]*contactPair) {
	sol.setupConstraints(bodies, contactPairs)
	for iteration := 0; iteration < sol.info.numIterations; iteration++ {
		sol.solveSingleIteration()
	}
	sol.correctPositions()
	sol.finish(bodies)
}

// correctPositions separates any contact points left penetrating after the
// velocity solve by directly nudging each body along the contact normal,
// half the overlap each, so residual penetration does not accumulate
// step over step. A fixed partner takes none of the correction; its
// movable partner takes all of it.
func (sol *solver) correctPositions() {
	for _, lp := range sol.points {
		depth := lp.oPoint.sp.distance // negative: bodies overlap by -depth.
		if depth >= 0.0 {
			continue
		}
		aMovable := lp.sbodA.oBody != nil
		bMovable := lp.sbodB.oBody != nil
		if !aMovable && !bMovable {
			continue
		}
		fraction := 0.5
		if !aMovable || !bMovable {
			fraction = 1.0
		}
		if aMovable {
			loc := lp.sbodA.oBody.world.Loc
			loc.Add(loc, sol.v0.Scale(lp.normal, -fraction*depth))
		}
		if bMovable {
			loc := lp.sbodB.oBody.world.Loc
			loc.Add(loc, sol.v0.Scale(lp.normal, fraction*depth))
		}
	}
}

// solver top level definitions and kick-off.
// ============================================================================
// solver setup builds one lcpPoint per contacting point. Static bodies do
// not get a solverBody of their own; they share the single fixedSolverBody.

// setupConstraints ensures all data is properly initialized before the solver
// starts. It sets up one coupled constraint block per contact point based on
// a list of bodies and the complete list of all contact information.
func (sol *solver) setupConstraints(bodies map[uint32]*body, contactPairs map[uint64]*contactPair) {

	// Create solver specific information for each movable body.
	// Static bodies do not have associated solver bodies.
	for _, b := range bodies {
		if sb := b.initSolverBody(); sb.oBody != nil {
			{ // scratch v0
				sb.linearVelocity.Add(sb.linearVelocity, sol.v0.Scale(b.lfor, b.imass*sol.info.timestep))
				sb.angularVelocity.Add(sb.angularVelocity, sol.v0.MultMv(b.iitw, b.afor).Scale(sol.v0, sol.info.timestep))
			} // scratch v0 free
		}
	}

	// Reset the point list, keeping allocated memory.
	sol.points = sol.points[:0]

	// Generate one coupled constraint point for each contacting point.
	for _, contactPair := range contactPairs {
		sol.convertContacts(contactPair)
	}
}

// convertContacts turns each point of the given contacting pair into one
// lcpPoint: a single 3x3 block coupling the normal impulse with the two
// tangential (friction) impulses.
func (sol *solver) convertContacts(pair *contactPair) {
	bodyA, bodyB := pair.bodyA, pair.bodyB
	sbodA, sbodB := bodyA.sbod, bodyB.sbod
	if (sbodA == nil || sbodA.oBody == nil) && (sbodB == nil || sbodB.oBody == nil) {
		slog.Warn("physics: ignoring contact between two static bodies")
		return
	}

	for _, poc := range pair.pocs {
		if poc.sp.distance > pair.processingLimit {
			continue // don't create constraints for non-contacting points.
		}
		lp := newLcpPoint()
		lp.sbodA, lp.sbodB = sbodA, sbodB
		lp.oPoint = poc
		lp.normal.Set(poc.sp.normalWorldB)
		lp.ra.Sub(poc.sp.worldA, sbodA.world.Loc)
		lp.rb.Sub(poc.sp.worldB, sbodB.world.Loc)

		// relVel (aliasing sol.v2) stays valid through buildEffectiveMass,
		// which only touches sol.v0/v1, so it is read again below without
		// being recomputed.
		relVel := sol.relativeVelocity(lp)
		buildTangentBasis(lp.normal, relVel, lp.t1, lp.t2)
		sol.buildEffectiveMass(lp)

		normalRelVel := lp.normal.Dot(relVel)
		restitution := poc.sp.combinedRestitution * -normalRelVel
		if restitution < 0.0 {
			restitution = 0.0
		}
		lp.targetNormalVelocity = restitution

		// Jref is a Baumgarte-free reference impulse built from the
		// pre-step relative velocity: it bounds how much normal impulse
		// this step may deliver so a contact approaches, but never
		// overshoots, a resting state.
		jref := 0.0
		if lp.mass[0][0] > lin.Epsilon {
			jref = -(1.0 + poc.sp.combinedRestitution) * normalRelVel / lp.mass[0][0]
		}
		lp.lnMax = jref * sol.info.timestep
		if lp.lnMax < 0.0 {
			lp.lnMax = 0.0
		}

		lp.friction = poc.sp.combinedFriction
		lp.relVelT1 = lp.t1.Dot(relVel)
		lp.relVelT2 = lp.t2.Dot(relVel)

		// warm start: reapply the previous impulse before the first sweep.
		lp.ln = poc.sp.warmImpulse * sol.info.warmstartingFactor
		sol.applyPointImpulse(lp, lp.ln, 0, 0)

		sol.points = append(sol.points, lp)
	}
}

// frictionDirSource seeds buildTangentBasis's degenerate-direction
// fallback the same way gjkInitialDirection seeds GJK: deterministically,
// so narrowphase/solver output stays reproducible across runs.
var frictionDirSource = rng.New(0x1f2e_3d4c_5b6a_7988)

// frictionDirRetryCap bounds how many pseudo-random candidates
// buildTangentBasis samples before giving up on a degenerate contact.
const frictionDirRetryCap = 32

// buildTangentBasis constructs two vectors t1, t2 orthogonal to n and to
// each other, so that (n, t1, t2) forms a right-handed basis at a contact.
// t1 is the tangential component of relVel projected onto the contact
// plane, normalised. When relVel has no component off the normal (a
// head-on impact, or a resting contact with no sliding), t1 is instead
// sampled pseudo-randomly from the plane.
func buildTangentBasis(n, relVel, t1, t2 *lin.V3) {
	t1.Scale(n, n.Dot(relVel))
	t1.Sub(relVel, t1)
	if t1.LenSqr() < lin.Epsilon*lin.Epsilon {
		candidate := lin.NewV3()
		found := false
		for i := 0; i < frictionDirRetryCap; i++ {
			x, y, z := frictionDirSource.Direction()
			candidate.SetS(x, y, z)
			t1.Scale(n, n.Dot(candidate))
			t1.Sub(candidate, t1)
			if t1.LenSqr() >= lin.Epsilon*lin.Epsilon {
				found = true
				break
			}
		}
		if !found {
			bug("solver-degenerate-friction-direction", "failed to seed a non-degenerate friction direction", map[string]any{
				"retries": frictionDirRetryCap,
			})
		}
	}
	t1.Unit()
	t2.Cross(n, t1)
}

// kOperator applies the generalized inverse-mass operator
//
//	K(u) = (ima+imb)*u + ra x (Ia^-1 (ra x u)) + rb x (Ib^-1 (rb x u))
//
// to vector u, writing the result into out and returning it.
func (sol *solver) kOperator(lp *lcpPoint, u *lin.V3, out *lin.V3) *lin.V3 {
	ima, imb := 0.0, 0.0
	if lp.sbodA.oBody != nil {
		ima = lp.sbodA.oBody.imass
	}
	if lp.sbodB.oBody != nil {
		imb = lp.sbodB.oBody.imass
	}
	out.Scale(u, ima+imb)
	if lp.sbodA.oBody != nil {
		torque := sol.v0.Cross(&lp.ra, u)
		torque.MultMv(lp.sbodA.oBody.iitw, torque)
		out.Add(out, sol.v1.Cross(&lp.ra, torque))
	}
	if lp.sbodB.oBody != nil {
		torque := sol.v0.Cross(&lp.rb, u)
		torque.MultMv(lp.sbodB.oBody.iitw, torque)
		out.Add(out, sol.v1.Cross(&lp.rb, torque))
	}
	return out
}

// buildEffectiveMass fills the symmetric 3x3 block
//
//	[ n.K(n)  n.K(t1) n.K(t2) ]
//	[ t1.K(n) t1.K(t1) t1.K(t2) ]
//	[ t2.K(n) t2.K(t1) t2.K(t2) ]
//
// and its inverse, used to solve the coupled normal/friction impulse each
// Gauss-Seidel sweep instead of treating friction as independent of the
// normal direction.
func (sol *solver) buildEffectiveMass(lp *lcpPoint) {
	kn, kt1, kt2 := lin.NewV3(), lin.NewV3(), lin.NewV3()
	sol.kOperator(lp, lp.normal, kn)
	sol.kOperator(lp, lp.t1, kt1)
	sol.kOperator(lp, lp.t2, kt2)

	lp.mass[0][0] = lp.normal.Dot(kn)
	lp.mass[0][1] = lp.normal.Dot(kt1)
	lp.mass[0][2] = lp.normal.Dot(kt2)
	lp.mass[1][0] = lp.t1.Dot(kn)
	lp.mass[1][1] = lp.t1.Dot(kt1)
	lp.mass[1][2] = lp.t1.Dot(kt2)
	lp.mass[2][0] = lp.t2.Dot(kn)
	lp.mass[2][1] = lp.t2.Dot(kt1)
	lp.mass[2][2] = lp.t2.Dot(kt2)
	invert3(&lp.mass, &lp.invMass)
}

// relativeVelocity returns (velocity of A - velocity of B) at the contact
// point, in world space.
func (sol *solver) relativeVelocity(lp *lcpPoint) *lin.V3 {
	va, vb := sol.v0.SetS(0, 0, 0), sol.v1.SetS(0, 0, 0)
	if lp.sbodA.oBody != nil {
		va.Cross(lp.sbodA.angularVelocity, &lp.ra).Add(va, lp.sbodA.linearVelocity)
	}
	if lp.sbodB.oBody != nil {
		vb.Cross(lp.sbodB.angularVelocity, &lp.rb).Add(vb, lp.sbodB.linearVelocity)
	}
	return sol.v2.Sub(va, vb)
}

// applyPointImpulse applies a delta impulse, decomposed along (normal, t1,
// t2), to both bodies of the point.
func (sol *solver) applyPointImpulse(lp *lcpPoint, dln, dlt1, dlt2 float64) {
	impulse := sol.v0.Scale(lp.normal, dln)
	impulse.Add(impulse, sol.v1.Scale(lp.t1, dlt1))
	impulse.Add(impulse, sol.v2.Scale(lp.t2, dlt2))
	if lp.sbodA.oBody != nil {
		a := lp.sbodA.oBody
		lp.sbodA.linearVelocity.Add(lp.sbodA.linearVelocity, sol.v0.Scale(impulse, a.imass))
		torque := sol.v1.Cross(&lp.ra, impulse)
		torque.MultMv(a.iitw, torque)
		lp.sbodA.angularVelocity.Add(lp.sbodA.angularVelocity, torque)
	}
	if lp.sbodB.oBody != nil {
		b := lp.sbodB.oBody
		lp.sbodB.linearVelocity.Add(lp.sbodB.linearVelocity, sol.v0.Scale(impulse, -b.imass))
		torque := sol.v1.Cross(&lp.rb, impulse).Scale(sol.v1, -1)
		torque.MultMv(b.iitw, torque)
		lp.sbodB.angularVelocity.Add(lp.sbodB.angularVelocity, torque)
	}
}

// solveSingleIteration processes every coupled contact point once. The end
// result is updated solverBody velocities that better satisfy the full set
// of normal and friction constraints.
func (sol *solver) solveSingleIteration() {
	for _, lp := range sol.points {
		relVel := sol.relativeVelocity(lp)
		rhsN := lp.targetNormalVelocity - lp.normal.Dot(relVel)
		rhsT1 := -lp.t1.Dot(relVel)
		rhsT2 := -lp.t2.Dot(relVel)

		dln := lp.invMass[0][0]*rhsN + lp.invMass[0][1]*rhsT1 + lp.invMass[0][2]*rhsT2
		dlt1 := lp.invMass[1][0]*rhsN + lp.invMass[1][1]*rhsT1 + lp.invMass[1][2]*rhsT2
		dlt2 := lp.invMass[2][0]*rhsN + lp.invMass[2][1]*rhsT1 + lp.invMass[2][2]*rhsT2

		newLn := lp.ln + dln
		if newLn < 0.0 {
			newLn = 0.0
		} else if newLn > lp.lnMax {
			newLn = lp.lnMax
		}
		dln = newLn - lp.ln
		lp.ln = newLn

		// Coulomb friction cone: clamp (lt1, lt2) to a disc sized by
		// whichever is smaller, the normal impulse solved just above or
		// the impulse that would bring the tangential slip to rest this
		// step.
		newLt1 := lp.lt1 + dlt1
		newLt2 := lp.lt2 + dlt2
		velBound := sol.info.timestep * math.Hypot(lp.relVelT1, lp.relVelT2)
		bound := lp.friction * lp.ln
		if velBound < bound {
			bound = velBound
		}
		mag := math.Hypot(newLt1, newLt2)
		if mag > bound && mag > 0.0 {
			scale := bound / mag
			newLt1 *= scale
			newLt2 *= scale
		}
		dlt1 = newLt1 - lp.lt1
		dlt2 = newLt2 - lp.lt2
		lp.lt1, lp.lt2 = newLt1, newLt2

		sol.applyPointImpulse(lp, dln, dlt1, dlt2)
	}
}

// finish copies the velocities calculated by the solver back into the
// original body and stores the warm-start impulse for the next timestep.
func (sol *solver) finish(bodies map[uint32]*body) {
	for _, lp := range sol.points {
		lp.oPoint.sp.warmImpulse = lp.ln
	}
	for _, b := range bodies {
		if b.movable {
			b.lvel.Set(b.sbod.linearVelocity)
			b.avel.Set(b.sbod.angularVelocity)
		}
	}
}

// invert3 inverts a 3x3 matrix m into out. Falls back to the zero matrix,
// dropping the constraint block for that step, if m is singular; this can
// happen for a contact whose normal is degenerate.
func invert3(m, out *[3][3]float64) {
	a, b, c := m[0][0], m[0][1], m[0][2]
	d, e, f := m[1][0], m[1][1], m[1][2]
	g, h, i := m[2][0], m[2][1], m[2][2]

	det := a*(e*i-f*h) - b*(d*i-f*g) + c*(d*h-e*g)
	if math.Abs(det) < lin.Epsilon {
		*out = [3][3]float64{}
		return
	}
	invDet := 1.0 / det
	out[0][0] = (e*i - f*h) * invDet
	out[0][1] = (c*h - b*i) * invDet
	out[0][2] = (b*f - c*e) * invDet
	out[1][0] = (f*g - d*i) * invDet
	out[1][1] = (a*i - c*g) * invDet
	out[1][2] = (c*d - a*f) * invDet
	out[2][0] = (d*h - e*g) * invDet
	out[2][1] = (b*g - a*h) * invDet
	out[2][2] = (a*e - b*d) * invDet
}

// solver solutions
// ============================================================================
// solverInfo

// solverInfo holds fixed value parameters that act as controls
// for solver results.
type solverInfo struct {
	numIterations      int
	timestep           float64
	warmstartingFactor float64 // damps previous applied impulses.
}

// newSolverInfo initializes the solver information.
func newSolverInfo() *solverInfo {
	si := &solverInfo{}
	si.timestep = 1.0 / 50.0
	si.numIterations = 30
	si.warmstartingFactor = 0.85
	return si
}

// solverInfo
// ============================================================================
// lcpPoint

// lcpPoint is the fully-coupled 3x3 constraint block for a single point of
// contact: one normal axis and two tangent (friction) axes, solved together
// each Gauss-Seidel sweep so that friction responds to the normal impulse
// within the same pass instead of lagging it by an iteration.
type lcpPoint struct {
	sbodA, sbodB *solverBody
	oPoint       *pointOfContact

	normal, t1, t2 *lin.V3
	ra, rb         lin.V3 // contact offsets from each body's center of mass.

	mass, invMass [3][3]float64 // effective mass block and its inverse.

	friction             float64
	targetNormalVelocity float64 // restitution target for the normal row.
	relVelT1, relVelT2   float64 // pre-step relative velocity along t1, t2.
	lnMax                float64 // upper bound on the normal impulse, Δt*Jref.

	ln, lt1, lt2 float64 // accumulated impulses: normal, tangent1, tangent2.
}

// newLcpPoint allocates a coupled constraint block.
func newLcpPoint() *lcpPoint {
	lp := &lcpPoint{}
	lp.normal = lin.NewV3()
	lp.t1 = lin.NewV3()
	lp.t2 = lin.NewV3()
	return lp
}

// lcpPoint
// ============================================================================
// solverBody

// solverBody is used to attach extra solver information to Body objects.
// Impulses are applied directly to linearVelocity/angularVelocity as the
// coupled solver sweeps contact points, rather than accumulated in a
// separate delta and written back afterwards.
type solverBody struct {
	oBody           *body // reference to original body
	world           *lin.T
	linearVelocity  *lin.V3
	angularVelocity *lin.V3
}

// Create a single fixed solver body since they are the same for
// all fixed bodies and nothing should ever update them.
var fsb *solverBody

// fixedSolverBody lazy initializes and returns the single fixed
// solver body that is used by all static solver bodies.
func fixedSolverBody() *solverBody {
	if fsb == nil {
		fsb = &solverBody{}
		fsb.oBody = nil
		fsb.world = lin.NewT().SetI()
		fsb.linearVelocity = lin.NewV3()
		fsb.angularVelocity = lin.NewV3()
	}
	return fsb
}

// newSolverBody allocates space for body specific solver information.
// This is expected to be called for a movable body, ie. one that has mass
// and can have velocity.
func newSolverBody(bod *body) *solverBody {
	sb := &solverBody{}
	sb.oBody = bod // reference
	sb.world = lin.NewT().Set(bod.world)
	sb.linearVelocity = lin.NewV3().Set(bod.lvel)
	sb.angularVelocity = lin.NewV3().Set(bod.avel)
	return sb
}

// reset updates an existing solverBody with new body information.
func (sb *solverBody) reset(bod *body) {
	sb.oBody = bod
	sb.world.Set(bod.world)
	sb.linearVelocity.Set(bod.lvel)
	sb.angularVelocity.Set(bod.avel)
}

// solverBody
// ============================================================================
// solverPoint

// solverPoint amalgamates information from contactPair and pointOfContact
// for easy access by the solver. Where necessary there is one solverPoint
// initialized for each pointOfContact.
type solverPoint struct {
	localA              *lin.V3 // Point of contact for A in A's local space.
	localB              *lin.V3 // Point of contact for B in B's local space.
	worldB              *lin.V3 // Point of contact for B in world space.
	worldA              *lin.V3 // Point of contact for A in world space.
	normalWorldB        *lin.V3 // Contact normal in world space.
	distance            float64 // Distance between A and B.
	combinedFriction    float64 // Total friction.
	combinedRestitution float64 // Total restitution.
	warmImpulse         float64 // Saved warm start impulse (previous impulse).
}

// newSolverPoint allocates memory for a solverPoint.
func newSolverPoint() *solverPoint {
	sp := &solverPoint{}
	sp.localA = &lin.V3{}
	sp.localB = &lin.V3{}
	sp.worldA = &lin.V3{}
	sp.worldB = &lin.V3{}
	sp.normalWorldB = &lin.V3{}
	sp.warmImpulse = 0
	return sp
}

// reuse is expected to be used to transfer old solver point information
// to the current solver point. poc.prepForSolver has already updated
// all the other fields.
func (sp *solverPoint) reuse(oldp *solverPoint) {
	sp.warmImpulse = oldp.warmImpulse // set to 0 to disable warm starting.
}

// set updates sp to have a copy of the given solverPoint information.
func (sp *solverPoint) set(s0 *solverPoint) {
	sp.localA.Set(s0.localA)
	sp.localB.Set(s0.localB)
	sp.worldA.Set(s0.worldA)
	sp.worldB.Set(s0.worldB)
	sp.normalWorldB.Set(s0.normalWorldB)
	sp.distance = s0.distance
	sp.combinedFriction = s0.combinedFriction
	sp.combinedRestitution = s0.combinedRestitution
	sp.warmImpulse = s0.warmImpulse
}
