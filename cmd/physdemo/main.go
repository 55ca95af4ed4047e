// Copyright © 2024 Galvanized Logic Inc.

// Command physdemo loads a scene description, steps the physics world a
// fixed number of times, and prints the contact events produced by each
// step as newline-delimited JSON. It exists to exercise World's external
// interface end to end without pulling in any rendering layer.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/tessellate/rigid/math/lin"
	"github.com/tessellate/rigid/physics"
	"gopkg.in/yaml.v3"
)

func main() {
	scenePath := flag.String("scene", "", "path to a YAML scene file")
	flag.Parse()
	if *scenePath == "" {
		fmt.Fprintln(os.Stderr, "usage: physdemo -scene scene.yaml")
		os.Exit(2)
	}
	if err := run(*scenePath); err != nil {
		slog.Error("physdemo: run failed", "error", err)
		os.Exit(1)
	}
}

// sceneDoc is the top level YAML document physdemo loads.
type sceneDoc struct {
	Config *physics.Config `yaml:"config"`
	Steps  int             `yaml:"steps"`
	DT     float64         `yaml:"dt"`
	Bodies []bodyDoc       `yaml:"bodies"`
}

// shapeDoc describes one body's collision shape by name since YAML has no
// native sum type for physics.Shape.
type shapeDoc struct {
	Type   string   `yaml:"type"` // "box", "sphere", or "mesh".
	Hx     float64  `yaml:"hx"`
	Hy     float64  `yaml:"hy"`
	Hz     float64  `yaml:"hz"`
	Radius float64  `yaml:"radius"`
	Verts  []lin.V3 `yaml:"verts"`
	Index  []uint32 `yaml:"index"`
}

type bodyDoc struct {
	Tag             string   `yaml:"tag"`
	Fixed           bool     `yaml:"fixed"`
	Shape           shapeDoc `yaml:"shape"`
	Mass            float64  `yaml:"mass"`
	Friction        float64  `yaml:"friction"`
	Restitution     float64  `yaml:"restitution"`
	Group           uint32   `yaml:"group"`
	Translation     lin.V3   `yaml:"translation"`
	Rotation        lin.Q    `yaml:"rotation"`
	Velocity        lin.V3   `yaml:"velocity"`
	AngularVelocity lin.V3   `yaml:"angular_velocity"`
}

func buildShape(s shapeDoc) (physics.Shape, error) {
	switch s.Type {
	case "box":
		return physics.NewBox(s.Hx, s.Hy, s.Hz), nil
	case "sphere":
		return physics.NewSphere(s.Radius), nil
	case "mesh":
		return physics.NewTriangleMesh(s.Verts, s.Index)
	default:
		return nil, fmt.Errorf("physdemo: unknown shape type %q", s.Type)
	}
}

func run(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("physdemo: open scene: %w", err)
	}
	defer f.Close()

	var doc sceneDoc
	if err := yaml.NewDecoder(f).Decode(&doc); err != nil {
		return fmt.Errorf("physdemo: decode scene: %w", err)
	}

	cfg := physics.DefaultConfig()
	if doc.Config != nil {
		cfg = *doc.Config
	}
	w := physics.NewWorld(cfg)

	for _, bd := range doc.Bodies {
		shape, err := buildShape(bd.Shape)
		if err != nil {
			return fmt.Errorf("physdemo: body %q: %w", bd.Tag, err)
		}
		if bd.Fixed {
			_, err = w.CreateFixedBody(physics.FixedBodyDef{
				Shape:       shape,
				Friction:    bd.Friction,
				Restitution: bd.Restitution,
				Translation: bd.Translation,
				Rotation:    bd.Rotation,
				Group:       bd.Group,
			}, bd.Tag)
		} else {
			_, err = w.CreateRigidBody(physics.RigidBodyDef{
				Shape:           shape,
				Mass:            bd.Mass,
				Friction:        bd.Friction,
				Restitution:     bd.Restitution,
				Translation:     bd.Translation,
				Rotation:        bd.Rotation,
				Velocity:        bd.Velocity,
				AngularVelocity: bd.AngularVelocity,
				Group:           bd.Group,
			}, bd.Tag)
		}
		if err != nil {
			return fmt.Errorf("physdemo: create body %q: %w", bd.Tag, err)
		}
	}

	steps := doc.Steps
	if steps <= 0 {
		steps = 1
	}
	dt := doc.DT
	if dt <= 0 {
		dt = 1.0 / 60.0
	}

	enc := json.NewEncoder(os.Stdout)
	for step := 0; step < steps; step++ {
		for _, m := range w.Update(dt) {
			if err := enc.Encode(newContactEvent(step, m)); err != nil {
				return fmt.Errorf("physdemo: encode contact event: %w", err)
			}
		}
	}
	return nil
}

// contactEvent is the JSON shape printed for each accepted manifold.
type contactEvent struct {
	Step   int        `json:"step"`
	TagA   string     `json:"tag_a"`
	TagB   string     `json:"tag_b"`
	Normal lin.V3     `json:"normal"`
	Points []pointDoc `json:"points"`
}

type pointDoc struct {
	Point       lin.V3  `json:"point"`
	Penetration float64 `json:"penetration"`
}

func newContactEvent(step int, m physics.ContactManifold) contactEvent {
	pts := make([]pointDoc, len(m.Points))
	for i, p := range m.Points {
		pts[i] = pointDoc{Point: p.Point, Penetration: p.Penetration}
	}
	return contactEvent{
		Step:   step,
		TagA:   m.HandleA.Tag(),
		TagB:   m.HandleB.Tag(),
		Normal: m.Normal,
		Points: pts,
	}
}
