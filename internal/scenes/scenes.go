// Package scenes defines the demo scenarios built on top of the core
// API: each scene is just a Lagrangian, a transform chain, and an
// initial state. Nothing here knows about integration or rendering.
package scenes

import (
	"fmt"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/lagrange"
	"github.com/avasko/laglab/internal/sim"
	"github.com/avasko/laglab/internal/tensor"
)

// Scene bundles everything needed to build and draw one scenario.
type Scene struct {
	Name        string
	Description string
	Lagrangian  lagrange.Lagrangian
	Transforms  []lagrange.Transform
	Initial     lagrange.Local
	// Extent is the world half-width the renderer should map onto the
	// canvas.
	Extent float64
	// Chain tells the renderer to draw rods from the pivot through the
	// rendered points.
	Chain bool
	// Render overrides the drawing projection for scenes whose dynamics
	// run in generalized coordinates directly, like the driven support.
	Render lagrange.Transform
}

// Project maps a frame to drawable coordinates, preferring the scene's
// own projection when it has one.
func (s Scene) Project(sys *sim.System, f sim.FrameState) (*tensor.Struct, error) {
	if s.Render == nil {
		return sys.RenderCoordinates(f)
	}
	var out *tensor.Struct
	err := lagrange.Guard(func() {
		out = s.Render(f.Local.Pos)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Build assembles the scene through the fluent spec.
func (s Scene) Build(opts sim.Options) (*sim.System, error) {
	spec := sim.FromLagrangian(s.Lagrangian)
	for _, f := range s.Transforms {
		spec.Transform(f)
	}
	return spec.Build(s.Initial, opts)
}

// Params carries the tunable quantities shared by the scene
// constructors. Zero values fall back to each scene's defaults.
type Params struct {
	Mass, Mass2      float64
	Length, Length2  float64
	Gravity          float64
	Stiffness        float64
	Amplitude        float64
	Frequency        float64
	Theta, Theta2    float64
	Omega, Omega2    float64
	SemiMajor        float64
	SemiMinor        float64
	X, Y, VX, VY     float64
	ThetaSet, XYSet  bool
	VelSet           bool
}

func (p Params) or(v, def float64) float64 {
	if v != 0 {
		return v
	}
	return def
}

// Names lists the registered scenes in presentation order.
func Names() []string {
	return []string{"free", "gravity", "oscillator", "pendulum", "double", "driven", "ellipse"}
}

// Lookup builds the named scene with the given parameters.
func Lookup(name string, p Params) (Scene, error) {
	switch name {
	case "free":
		return FreeParticle(p), nil
	case "gravity":
		return GravityParticle(p), nil
	case "oscillator":
		return Oscillator(p), nil
	case "pendulum":
		return Pendulum(p), nil
	case "double":
		return DoublePendulum(p), nil
	case "driven":
		return DrivenPendulum(p), nil
	case "ellipse":
		return Ellipse(p), nil
	}
	return Scene{}, fmt.Errorf("scenes: unknown scene %q", name)
}

// cartesianGravity is the workhorse Lagrangian of the pendulum family:
// kinetic energy by one contraction of per-coordinate masses with the
// velocity structure, potential energy by pairing a gravity weight with
// the position structure.
func cartesianGravity(w, gw *tensor.Struct) lagrange.Lagrangian {
	half := diff.Const(0.5)
	return func(l lagrange.Local) diff.Scalar {
		ke := diff.Mul(half, tensor.Contract(w, l.Vel, l.Vel))
		pe := tensor.Inner(gw, l.Pos)
		return diff.Sub(ke, pe)
	}
}

func mustLocal(t float64, pos, vel *tensor.Struct) lagrange.Local {
	l, err := lagrange.NewLocal(t, pos, vel)
	if err != nil {
		panic(err)
	}
	return l
}

// FreeParticle is a 2D particle with no potential: velocity stays
// constant, a useful integrator sanity check.
func FreeParticle(p Params) Scene {
	m := p.or(p.Mass, 1)
	vx, vy := p.VX, p.VY
	if !p.VelSet && vx == 0 && vy == 0 {
		vx, vy = 1.5, 0.7
	}
	return Scene{
		Name:        "free",
		Description: "free 2D particle, constant velocity",
		Lagrangian:  cartesianGravity(tensor.Weights(m, m), tensor.Weights(0, 0)),
		Initial:     mustLocal(0, tensor.FromFloats(p.X, p.Y), tensor.FromFloats(vx, vy)),
		Extent:      10,
	}
}

// GravityParticle is a 2D particle under uniform gravity.
func GravityParticle(p Params) Scene {
	m := p.or(p.Mass, 1)
	g := p.or(p.Gravity, 9.81)
	y := p.Y
	if !p.XYSet && y == 0 {
		y = 5
	}
	vx := p.VX
	if !p.VelSet && vx == 0 {
		vx = 2
	}
	return Scene{
		Name:        "gravity",
		Description: "2D particle in uniform gravity",
		Lagrangian:  cartesianGravity(tensor.Weights(m, m), tensor.Weights(0, m*g)),
		Initial:     mustLocal(0, tensor.FromFloats(p.X, y), tensor.FromFloats(vx, p.VY)),
		Extent:      8,
	}
}

// Oscillator is the one-dimensional harmonic oscillator
// L = m v^2 / 2 - k q^2 / 2.
func Oscillator(p Params) Scene {
	m := diff.Const(p.or(p.Mass, 1))
	k := diff.Const(p.or(p.Stiffness, 1))
	half := diff.Const(0.5)
	q0 := p.X
	if !p.XYSet && q0 == 0 {
		q0 = 1
	}
	lag := func(l lagrange.Local) diff.Scalar {
		q := l.Pos.At(0).Scalar()
		v := l.Vel.At(0).Scalar()
		ke := diff.Mul(half, diff.Mul(m, diff.Mul(v, v)))
		pe := diff.Mul(half, diff.Mul(k, diff.Mul(q, q)))
		return diff.Sub(ke, pe)
	}
	return Scene{
		Name:        "oscillator",
		Description: "harmonic oscillator on one coordinate",
		Lagrangian:  lag,
		Initial:     mustLocal(0, tensor.FromFloats(q0), tensor.FromFloats(p.VX)),
		Extent:      2.5,
	}
}
