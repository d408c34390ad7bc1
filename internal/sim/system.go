package sim

import (
	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/integrators"
	"github.com/avasko/laglab/internal/lagrange"
	"github.com/avasko/laglab/internal/tensor"
)

// colorCycle bounds the cyclic palette counter carried by frames.
const colorCycle = 8

// Options tune a built system.
type Options struct {
	// Tolerance is the integrator's per-step error tolerance.
	// Defaults to 1e-9.
	Tolerance float64
	// MaxStep clamps how much physical time a single Update may
	// advance. A dropped frame then slows the simulation down instead
	// of feeding the integrator a huge interval. Defaults to 0.25s;
	// set negative to disable the clamp.
	MaxStep float64
}

func (o Options) withDefaults() Options {
	if o.Tolerance == 0 {
		o.Tolerance = 1e-9
	}
	if o.MaxStep == 0 {
		o.MaxStep = 0.25
	}
	return o
}

// FrameState is one frame's immutable snapshot: the structured phase
// tuple, its flat linearization, and host bookkeeping counters.
type FrameState struct {
	Local lagrange.Local
	Flat  []float64
	Time  float64
	Tick  int
	Color int
}

// Spec accumulates a Lagrangian and its transform chain before building.
type Spec struct {
	lag      lagrange.Lagrangian
	pipeline lagrange.Pipeline
}

// FromLagrangian starts a spec from a bare Lagrangian.
func FromLagrangian(l lagrange.Lagrangian) *Spec {
	return &Spec{lag: l}
}

// Transform appends a coordinate transform; the first one appended is
// innermost and sees the raw generalized coordinates.
func (s *Spec) Transform(f lagrange.Transform) *Spec {
	s.pipeline.Append(f)
	return s
}

// Build compiles the composed system. The supplied tuple fixes the
// coordinate shape for the lifetime of the simulation and serves as the
// probe point for construction-time validation.
func (s *Spec) Build(initial lagrange.Local, opts Options) (*System, error) {
	opts = opts.withDefaults()

	lifted := s.pipeline.Lifted()
	base := s.lag
	composed := func(l lagrange.Local) diff.Scalar {
		return base(lifted(l))
	}

	compiled, err := lagrange.Compile(composed, initial)
	if err != nil {
		return nil, err
	}

	var flat []float64
	if err := lagrange.Guard(func() {
		flat = initial.Pos.Flatten(nil)
		flat = initial.Vel.Flatten(flat)
	}); err != nil {
		return nil, err
	}

	sys := &System{
		compiled: compiled,
		stepper:  integrators.NewRK45(opts.Tolerance),
		project:  s.pipeline.Positional(),
		template: initial.Pos,
		initFlat: flat,
		opts:     opts,
	}

	// probe the render path too, so a transform that only breaks on
	// projection fails here rather than on the first draw
	if _, err := sys.renderPositions(initial.Pos); err != nil {
		return nil, err
	}
	return sys, nil
}

// System is a built simulation: a compiled state derivative, one stepper
// with its scratch buffers, and the position-only render projection.
type System struct {
	compiled *lagrange.Compiled
	stepper  *integrators.RK45
	project  lagrange.Transform
	template *tensor.Struct
	initFlat []float64
	opts     Options
}

// Dim returns the number of generalized coordinates.
func (s *System) Dim() int { return s.compiled.Dim() }

// Derivative exposes the compiled state-derivative function for offline
// integration and benchmarks. The flat layout is positions then
// velocities.
func (s *System) Derivative() integrators.Derivative {
	return s.compiled.Derivative
}

// Setup returns the initial frame at the given host time.
func (s *System) Setup(now float64) FrameState {
	flat := append([]float64(nil), s.initFlat...)
	return FrameState{
		Local: s.restore(now, flat),
		Flat:  flat,
		Time:  now,
	}
}

// Update advances the simulation from prev's physical time to the host's
// current time (clamped by Options.MaxStep) and returns the next frame.
// prev is untouched; on error the caller keeps its last good frame.
func (s *System) Update(prev FrameState, now float64) (FrameState, error) {
	target := now
	if s.opts.MaxStep > 0 && target > prev.Time+s.opts.MaxStep {
		target = prev.Time + s.opts.MaxStep
	}
	if target < prev.Time {
		target = prev.Time
	}

	flat := append([]float64(nil), prev.Flat...)
	if target > prev.Time {
		if err := s.stepper.Advance(s.compiled.Derivative, flat, prev.Time, target); err != nil {
			return FrameState{}, err
		}
	}
	return FrameState{
		Local: s.restore(target, flat),
		Flat:  flat,
		Time:  target,
		Tick:  prev.Tick + 1,
		Color: (prev.Color + 1) % colorCycle,
	}, nil
}

// RenderCoordinates maps a frame's generalized position through the
// position-only transform chain, yielding drawable coordinates.
func (s *System) RenderCoordinates(f FrameState) (*tensor.Struct, error) {
	return s.renderPositions(f.Local.Pos)
}

// Energy evaluates the system's total energy at a frame, via the
// Legendre transform of the compiled Lagrangian.
func (s *System) Energy(f FrameState) (float64, error) {
	return s.EnergyAt(f.Time, f.Flat)
}

// EnergyAt is the flat-state form of Energy, matching the shape metric
// observers expect.
func (s *System) EnergyAt(t float64, y []float64) (float64, error) {
	return s.compiled.Energy(t, y)
}

func (s *System) renderPositions(pos *tensor.Struct) (out *tensor.Struct, err error) {
	err = lagrange.Guard(func() {
		out = s.project(pos)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *System) restore(t float64, flat []float64) lagrange.Local {
	n := s.compiled.Dim()
	return lagrange.Local{
		T:   diff.Const(t),
		Pos: tensor.Restore(s.template, flat[:n]),
		Vel: tensor.Restore(s.template, flat[n:]),
	}
}
