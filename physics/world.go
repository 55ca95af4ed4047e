// Copyright © 2024 Galvanized Logic Inc.

package physics

import (
	"fmt"
	"io"
	"iter"
	"log/slog"
	"math"

	"github.com/tessellate/rigid/math/lin"
	"github.com/tessellate/rigid/physics/phyerr"
	"gopkg.in/yaml.v3"
)

// Config holds the tunable constants for a World. LoadConfig keeps the
// DefaultConfig value of any field the YAML omits; a field set in the YAML,
// even to zero, replaces it.
type Config struct {
	Tolerance          float64 `yaml:"tolerance"`
	SolverIterations   int     `yaml:"solver_iterations"`
	IterationCap       int     `yaml:"iteration_cap"`
	Gravity            lin.V3  `yaml:"gravity"`
	DefaultFriction    float64 `yaml:"default_friction"`
	DefaultRestitution float64 `yaml:"default_restitution"`
}

// DefaultConfig returns the baseline tuning values.
func DefaultConfig() Config {
	return Config{
		Tolerance:          lin.Epsilon,
		SolverIterations:   30,
		IterationCap:       gjkIterationCap,
		Gravity:            lin.V3{X: 0, Y: -9.8, Z: 0},
		DefaultFriction:    0.7,
		DefaultRestitution: 0.7,
	}
}

// LoadConfig decodes a YAML tuning file into a Config, starting from
// DefaultConfig for any field the document omits.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("physics: decode config: %w", err)
	}
	return cfg, nil
}

// World owns a registry of bodies and advances them through time. It is
// single-threaded by contract: Update never suspends and is never called
// concurrently with itself or with body creation/removal.
type World struct {
	cfg     Config
	log     *slog.Logger
	gravity lin.V3

	bodies       map[uint32]*body
	contactPairs map[uint64]*contactPair
	solver       *solver
	scratch      []*pointOfContact

	lastPairs []broadPair // last broadphase result computed by Update.
}

// Option configures a World at construction time.
type Option func(*World)

// WithLogger routes this World's diagnostics into l instead of slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(w *World) { w.log = l }
}

// NewWorld creates an empty World using cfg's tuning values. A process is
// expected to run at most one World at a time: the contact tracker used
// for GJK warm-starting is a package-level cache (see tracker.go) and is
// reset here so a new World never warm-starts off a previous one's
// simplices, and the body id counter in body.go is shared across Worlds
// so ids stay dense and never reused even if a caller discards a World
// and creates another. Config.Tolerance and Config.IterationCap are
// informational only: the narrowphase tolerance and GJK/EPA iteration
// cap are fixed package constants (lin.Epsilon, gjkIterationCap,
// epaIterationCap) rather than per-World knobs.
func NewWorld(cfg Config, opts ...Option) *World {
	w := &World{
		cfg:          cfg,
		log:          slog.Default(),
		gravity:      cfg.Gravity,
		bodies:       map[uint32]*body{},
		contactPairs: map[uint64]*contactPair{},
		solver:       newSolver(),
		scratch:      newManifold(),
	}
	w.solver.info.numIterations = cfg.SolverIterations
	simplexTracker.reset()
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RigidBodyDef describes a body with mass that the solver is free to move.
// A zero Mass defaults to 1.0; a negative Mass is rejected. A zero
// Friction or Restitution defaults to the World's configured default
// rather than literal zero.
type RigidBodyDef struct {
	Shape           Shape
	Mass            float64
	Friction        float64
	Restitution     float64
	Translation     lin.V3
	Rotation        lin.Q
	Velocity        lin.V3
	AngularVelocity lin.V3
	Group           uint32
}

// FixedBodyDef describes a body with infinite mass that never moves on
// its own but still participates in contacts.
type FixedBodyDef struct {
	Shape       Shape
	Friction    float64
	Restitution float64
	Translation lin.V3
	Rotation    lin.Q
	Group       uint32
}

// identityIfZero treats the zero-value quaternion (never a valid rotation)
// as "caller left this unset" and substitutes the identity rotation.
func identityIfZero(q lin.Q) lin.Q {
	if q.X == 0 && q.Y == 0 && q.Z == 0 && q.W == 0 {
		return *lin.NewQI()
	}
	return q
}

// CreateRigidBody adds a movable body to the registry and returns a
// Handle to it, tagged with the caller-supplied bookkeeping label.
func (w *World) CreateRigidBody(def RigidBodyDef, tag string) (Handle, error) {
	if def.Mass < 0 {
		return Handle{}, phyerr.New(phyerr.NonPositiveMass, "rigid body mass must be positive, got %g", def.Mass)
	}
	mass := def.Mass
	if mass == 0 {
		mass = 1.0
	}
	b := newBody(def.Shape)
	b.tag, b.group = tag, def.Group
	rot := identityIfZero(def.Rotation)
	b.world.Loc.Set(&def.Translation)
	b.world.Rot.Set(&rot)
	b.lvel.Set(&def.Velocity)
	b.avel.Set(&def.AngularVelocity)
	b.friction = w.resolveFriction(def.Friction)
	b.setMaterial(mass, w.resolveRestitution(def.Restitution))
	w.bodies[b.bid] = b
	w.log.Debug("physics: created rigid body", "id", b.bid, "tag", tag)
	return Handle{w: w, id: b.bid}, nil
}

// CreateFixedBody adds an immovable body to the registry and returns a
// Handle to it, tagged with the caller-supplied bookkeeping label.
func (w *World) CreateFixedBody(def FixedBodyDef, tag string) (Handle, error) {
	b := newBody(def.Shape)
	b.tag, b.group = tag, def.Group
	rot := identityIfZero(def.Rotation)
	b.world.Loc.Set(&def.Translation)
	b.world.Rot.Set(&rot)
	b.friction = w.resolveFriction(def.Friction)
	b.setMaterial(0, w.resolveRestitution(def.Restitution))
	w.bodies[b.bid] = b
	w.log.Debug("physics: created fixed body", "id", b.bid, "tag", tag)
	return Handle{w: w, id: b.bid}, nil
}

func (w *World) resolveFriction(f float64) float64 {
	if f == 0 {
		return w.cfg.DefaultFriction
	}
	return f
}

func (w *World) resolveRestitution(r float64) float64 {
	if r == 0 {
		return w.cfg.DefaultRestitution
	}
	return r
}

// RemoveBody drops a body from the registry, evicts its cached narrowphase
// simplices, and discards any contact pair referencing it. Returns false
// if the handle no longer refers to a live body.
func (w *World) RemoveBody(h Handle) bool {
	if _, ok := w.bodies[h.id]; !ok {
		return false
	}
	delete(w.bodies, h.id)
	simplexTracker.evict(h.id)
	for pid, cp := range w.contactPairs {
		if cp.bodyA.bid == h.id || cp.bodyB.bid == h.id {
			delete(w.contactPairs, pid)
		}
	}
	w.log.Debug("physics: removed body", "id", h.id)
	return true
}

// Update advances the simulation by dt seconds: integrate unconstrained
// motion, refresh broadphase/narrowphase contacts, solve the coupled
// frictional LCP over every manifold, then write back new poses. The
// accepted contact manifolds for this step are returned as contact events.
func (w *World) Update(dt float64) []ContactManifold {
	for _, b := range w.bodies {
		b.applyGravity(&w.gravity)
	}
	for _, b := range w.bodies {
		b.integrateVelocities(dt)
		b.applyDamping(dt)
		b.updateInertiaTensor()
	}

	live := make([]*body, 0, len(w.bodies))
	for _, b := range w.bodies {
		live = append(live, b)
	}
	w.lastPairs = broadphase(live)

	seen := make(map[uint64]bool, len(w.lastPairs))
	for _, pair := range w.lastPairs {
		ta, tb := pair.a.shape.Type(), pair.b.shape.Type()
		if ta >= VolumeShapes || tb >= VolumeShapes {
			continue // plane/ray shapes never produce solver contacts.
		}
		fn := narrowphase[ta][tb]
		if fn == nil {
			continue
		}
		_, _, contacts := fn(pair.a, pair.b, w.scratch)
		pid := pair.a.pairID(pair.b)
		if len(contacts) == 0 {
			continue
		}
		seen[pid] = true
		cp, ok := w.contactPairs[pid]
		if !ok {
			cp = newContactPair(pair.a, pair.b)
			w.contactPairs[pid] = cp
		}
		cp.refreshContacts(pair.a.world, pair.b.world)
		cp.mergeContacts(contacts)
	}
	for pid, cp := range w.contactPairs {
		if !seen[pid] {
			delete(w.contactPairs, pid)
		} else if len(cp.pocs) == 0 {
			delete(w.contactPairs, pid)
		}
	}

	w.solver.info.timestep = dt
	w.solver.solve(w.bodies, w.contactPairs)

	for _, b := range w.bodies {
		b.updateWorldTransform(dt)
		b.clearForces()
	}

	manifolds := make([]ContactManifold, 0, len(w.contactPairs))
	for _, cp := range w.contactPairs {
		manifolds = append(manifolds, newContactManifold(w, cp))
	}
	return manifolds
}

// SetGravity changes the gravitational acceleration applied every Update.
func (w *World) SetGravity(g lin.V3) { w.gravity = g }

// Gravity returns the gravitational acceleration currently in effect.
func (w *World) Gravity() lin.V3 { return w.gravity }

// BodiesIter yields a Handle for every live body in the registry. Order is
// unspecified.
func (w *World) BodiesIter() iter.Seq[Handle] {
	return func(yield func(Handle) bool) {
		for id := range w.bodies {
			if !yield(Handle{w: w, id: id}) {
				return
			}
		}
	}
}

// Find returns a Handle for the given body id, or false if no such body
// is currently registered.
func (w *World) Find(id uint32) (Handle, bool) {
	if _, ok := w.bodies[id]; ok {
		return Handle{w: w, id: id}, true
	}
	return Handle{}, false
}

// Islands groups bodies that are transitively connected through a current
// broadphase contact pair. This is a read-only diagnostic; the solver
// processes every contact regardless of island membership.
func (w *World) Islands() [][]Handle {
	live := make([]*body, 0, len(w.bodies))
	for _, b := range w.bodies {
		live = append(live, b)
	}
	pairs := broadphase(live)
	groups := simulationIslands(live, pairs)
	out := make([][]Handle, len(groups))
	for i, group := range groups {
		hs := make([]Handle, len(group))
		for j, b := range group {
			hs[j] = Handle{w: w, id: b.bid}
		}
		out[i] = hs
	}
	return out
}

// CastRay finds the closest body whose shape the ray from origin along dir
// strikes. ok is false if the ray hits nothing.
func (w *World) CastRay(origin, dir lin.V3) (h Handle, hit lin.V3, ok bool) {
	probe := newBody(NewRay(dir.X, dir.Y, dir.Z))
	probe.world.Loc.Set(&origin)

	bestDist := math.Inf(1)
	for id, b := range w.bodies {
		fn, supported := rayCastAlgorithms[b.shape.Type()]
		if !supported {
			continue
		}
		didHit, x, y, z := fn(probe, b)
		if !didHit {
			continue
		}
		d := lin.NewV3().SetS(x-origin.X, y-origin.Y, z-origin.Z).Len()
		if d < bestDist {
			bestDist = d
			h = Handle{w: w, id: id}
			hit = lin.V3{X: x, Y: y, Z: z}
			ok = true
		}
	}
	return h, hit, ok
}

// Handle is a stable, shareable reference to a body owned by a World's
// registry. Its methods read or mutate the underlying body's pose and
// motion directly; Handle itself carries no cached state, so it always
// reflects the body's current condition and becomes inert once the body
// is removed.
type Handle struct {
	w  *World
	id uint32
}

func (h Handle) body() (*body, bool) {
	if h.w == nil {
		return nil, false
	}
	b, ok := h.w.bodies[h.id]
	return b, ok
}

// ID returns the body id this Handle refers to.
func (h Handle) ID() uint32 { return h.id }

// Tag returns the caller-supplied bookkeeping label given at creation, or
// the empty string if the body is gone.
func (h Handle) Tag() string {
	if b, ok := h.body(); ok {
		return b.tag
	}
	return ""
}

// Group returns the body's collision group.
func (h Handle) Group() uint32 {
	if b, ok := h.body(); ok {
		return b.group
	}
	return 0
}

// Fixed reports whether the body has infinite mass.
func (h Handle) Fixed() bool {
	b, ok := h.body()
	return !ok || !b.movable
}

// Shape returns the body's collision shape.
func (h Handle) Shape() Shape {
	if b, ok := h.body(); ok {
		return b.shape
	}
	return nil
}

// Transform returns the body's current world location and rotation.
func (h Handle) Transform() (loc lin.V3, rot lin.Q) {
	if b, ok := h.body(); ok {
		return *b.world.Loc, *b.world.Rot
	}
	return lin.V3{}, lin.Q{}
}

// SetTransform overwrites the body's world location and rotation.
func (h Handle) SetTransform(loc lin.V3, rot lin.Q) {
	if b, ok := h.body(); ok {
		b.world.Loc.Set(&loc)
		b.world.Rot.Set(&rot)
	}
}

// Velocity returns the body's current linear and angular velocity.
func (h Handle) Velocity() (linear, angular lin.V3) {
	if b, ok := h.body(); ok {
		return *b.lvel, *b.avel
	}
	return lin.V3{}, lin.V3{}
}

// Push adds to the body's linear velocity.
func (h Handle) Push(x, y, z float64) {
	if b, ok := h.body(); ok {
		b.Push(x, y, z)
	}
}

// Turn adds to the body's angular velocity.
func (h Handle) Turn(x, y, z float64) {
	if b, ok := h.body(); ok {
		b.Turn(x, y, z)
	}
}

// ContactPoint is one point of a ContactManifold: a position on the
// manifold plane plus the penetration depth measured along the normal.
type ContactPoint struct {
	Point       lin.V3
	Penetration float64
}

// ContactManifold is the contact surface the solver resolved between two
// bodies during one World.Update. Normal points from HandleB toward
// HandleA, matching the (bodyA, bodyB) convention narrowphase produces.
type ContactManifold struct {
	HandleA, HandleB Handle
	Normal           lin.V3
	Points           []ContactPoint
}

// newContactManifold snapshots a solved contactPair into the transient
// event value returned from World.Update.
func newContactManifold(w *World, cp *contactPair) ContactManifold {
	m := ContactManifold{
		HandleA: Handle{w: w, id: cp.bodyA.bid},
		HandleB: Handle{w: w, id: cp.bodyB.bid},
		Points:  make([]ContactPoint, 0, len(cp.pocs)),
	}
	if len(cp.pocs) > 0 {
		m.Normal = *cp.pocs[0].normal
	}
	for _, poc := range cp.pocs {
		m.Points = append(m.Points, ContactPoint{Point: *poc.point, Penetration: poc.depth})
	}
	return m
}
