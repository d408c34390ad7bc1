package sim_test

import (
	"errors"
	"math"
	"testing"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/lagrange"
	"github.com/avasko/laglab/internal/scenes"
	"github.com/avasko/laglab/internal/sim"
	"github.com/avasko/laglab/internal/tensor"
)

func buildScene(t *testing.T, name string, p scenes.Params, opts sim.Options) (scenes.Scene, *sim.System) {
	t.Helper()
	sc, err := scenes.Lookup(name, p)
	if err != nil {
		t.Fatal(err)
	}
	sys, err := sc.Build(opts)
	if err != nil {
		t.Fatalf("build %s: %v", name, err)
	}
	return sc, sys
}

func TestFreeParticleKeepsVelocity(t *testing.T) {
	_, sys := buildScene(t, "free", scenes.Params{VX: 1.5, VY: -0.25}, sim.Options{})

	frame := sys.Setup(0)
	for i := 1; i <= 120; i++ {
		next, err := sys.Update(frame, float64(i)/60)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		frame = next
	}

	n := sys.Dim()
	if math.Abs(frame.Flat[n]-1.5) > 1e-9 || math.Abs(frame.Flat[n+1]+0.25) > 1e-9 {
		t.Errorf("free particle velocity drifted: %v", frame.Flat[n:])
	}
	if math.Abs(frame.Flat[0]-1.5*2) > 1e-9 {
		t.Errorf("free particle position off: %v", frame.Flat[:n])
	}
}

func TestHarmonicOscillatorMatchesClosedForm(t *testing.T) {
	k := 4.0 // period pi
	_, sys := buildScene(t, "oscillator",
		scenes.Params{Mass: 1, Stiffness: k, X: 1, XYSet: true},
		sim.Options{Tolerance: 1e-10, MaxStep: -1})

	frame := sys.Setup(0)
	periods := 10.0
	total := periods * 2 * math.Pi / math.Sqrt(k)
	steps := 2000

	for i := 1; i <= steps; i++ {
		next, err := sys.Update(frame, total*float64(i)/float64(steps))
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		frame = next

		want := math.Cos(math.Sqrt(k) * frame.Time)
		if math.Abs(frame.Flat[0]-want) > 1e-6 {
			t.Fatalf("q(%f) = %.9f, want %.9f", frame.Time, frame.Flat[0], want)
		}
	}
}

func TestPendulumConservesEnergy(t *testing.T) {
	_, sys := buildScene(t, "pendulum", scenes.Params{Theta: 2.0, ThetaSet: true},
		sim.Options{Tolerance: 1e-10})

	frame := sys.Setup(0)
	e0, err := sys.Energy(frame)
	if err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 600; i++ {
		next, err := sys.Update(frame, float64(i)/60)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		frame = next
	}

	e1, err := sys.Energy(frame)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(e1-e0) > 1e-6*(math.Abs(e0)+1) {
		t.Errorf("pendulum energy drifted from %.9f to %.9f", e0, e1)
	}
}

func TestDoublePendulumRenderGeometry(t *testing.T) {
	sc, sys := buildScene(t, "double", scenes.Params{}, sim.Options{})

	frame := sys.Setup(0)
	for i := 1; i <= 60; i++ {
		next, err := sys.Update(frame, float64(i)/60)
		if err != nil {
			t.Fatalf("update %d: %v", i, err)
		}
		frame = next
	}

	pts, err := sc.Project(sys, frame)
	if err != nil {
		t.Fatal(err)
	}

	// rod lengths are invariants of the transform chain
	x1 := pts.At(0).Flatten(nil)
	x2 := pts.At(1).Flatten(nil)
	r1 := math.Hypot(x1[0], x1[1])
	r2 := math.Hypot(x2[0]-x1[0], x2[1]-x1[1])
	if math.Abs(r1-1) > 1e-7 || math.Abs(r2-1) > 1e-7 {
		t.Errorf("rod lengths %f, %f, want 1, 1", r1, r2)
	}
}

func TestUpdateBookkeeping(t *testing.T) {
	_, sys := buildScene(t, "oscillator", scenes.Params{}, sim.Options{})

	frame := sys.Setup(2)
	if frame.Tick != 0 || frame.Time != 2 {
		t.Fatalf("setup frame: %+v", frame)
	}

	next, err := sys.Update(frame, 2.016)
	if err != nil {
		t.Fatal(err)
	}
	if next.Tick != 1 || next.Color != 1 {
		t.Errorf("tick/color not advanced: %+v", next)
	}
	if frame.Tick != 0 || frame.Flat[0] != 1 {
		t.Error("previous frame mutated by update")
	}

	// host clock going backwards must not integrate backwards
	back, err := sys.Update(next, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	if back.Time != next.Time {
		t.Errorf("time moved backwards: %f", back.Time)
	}
}

func TestMaxStepClampsFrameDrop(t *testing.T) {
	_, sys := buildScene(t, "oscillator", scenes.Params{}, sim.Options{MaxStep: 0.25})

	frame := sys.Setup(0)
	next, err := sys.Update(frame, 10) // host stalled for ten seconds
	if err != nil {
		t.Fatal(err)
	}
	if next.Time != 0.25 {
		t.Errorf("clamped advance reached t=%f, want 0.25", next.Time)
	}
}

func TestSingularMassFailsFirstUpdate(t *testing.T) {
	degenerate := func(l lagrange.Local) diff.Scalar {
		s := diff.Add(l.Vel.At(0).Scalar(), l.Vel.At(1).Scalar())
		return diff.Mul(diff.Const(0.5), diff.Mul(s, s))
	}
	initial, err := lagrange.NewLocal(0, tensor.FromFloats(0, 0), tensor.FromFloats(1, 2))
	if err != nil {
		t.Fatal(err)
	}

	sys, err := sim.FromLagrangian(degenerate).Build(initial, sim.Options{})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	frame := sys.Setup(0)
	_, err = sys.Update(frame, 0.016)
	if !errors.Is(err, lagrange.ErrSingularMass) {
		t.Errorf("first update error = %v, want ErrSingularMass", err)
	}
	if frame.Flat[0] != 0 || frame.Flat[2] != 1 {
		t.Error("failed update corrupted the last good frame")
	}
}

func TestShapeIncompatibleTransformFailsBuild(t *testing.T) {
	// the transform expects two coordinates, the initial state has one
	wide := func(q *tensor.Struct) *tensor.Struct {
		return tensor.UpOf(
			tensor.Leaf(q.At(0).Scalar()),
			tensor.Leaf(q.At(1).Scalar()),
		)
	}
	lag := func(l lagrange.Local) diff.Scalar {
		return tensor.Contract(tensor.Weights(1, 1), l.Vel, l.Vel)
	}
	initial, err := lagrange.NewLocal(0, tensor.FromFloats(0.5), tensor.FromFloats(0))
	if err != nil {
		t.Fatal(err)
	}

	_, err = sim.FromLagrangian(lag).Transform(wide).Build(initial, sim.Options{})
	if !errors.Is(err, tensor.ErrShapeMismatch) {
		t.Errorf("build error = %v, want ErrShapeMismatch", err)
	}
}

func TestEmptyTransformChainRendersIdentity(t *testing.T) {
	_, sys := buildScene(t, "free", scenes.Params{X: 1, Y: 2, XYSet: true}, sim.Options{})

	frame := sys.Setup(0)
	pts, err := sys.RenderCoordinates(frame)
	if err != nil {
		t.Fatal(err)
	}
	got := pts.Flatten(nil)
	if got[0] != 1 || got[1] != 2 {
		t.Errorf("identity render = %v", got)
	}
}
