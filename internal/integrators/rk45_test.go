package integrators

import (
	"errors"
	"math"
	"testing"
)

// harmonic oscillator: y = (q, v), q'' = -q
func oscillator(t float64, y, dy []float64) error {
	dy[0] = y[1]
	dy[1] = -y[0]
	return nil
}

func TestRK45AdvanceAccuracy(t *testing.T) {
	r := NewRK45(1e-9)
	y := []float64{1, 0}

	if err := r.Advance(oscillator, y, 0, 10); err != nil {
		t.Fatalf("advance: %v", err)
	}

	if math.Abs(y[0]-math.Cos(10)) > 1e-6 {
		t.Errorf("q(10) = %.9f, want %.9f", y[0], math.Cos(10))
	}
	if math.Abs(y[1]+math.Sin(10)) > 1e-6 {
		t.Errorf("v(10) = %.9f, want %.9f", y[1], -math.Sin(10))
	}
}

func TestRK45EnergyConservation(t *testing.T) {
	r := NewRK45(1e-10)
	y := []float64{1, 0}

	// many short advances, as the frame loop does
	for i := 0; i < 1000; i++ {
		from := float64(i) * 0.05
		if err := r.Advance(oscillator, y, from, from+0.05); err != nil {
			t.Fatalf("advance %d: %v", i, err)
		}
	}

	energy := 0.5 * (y[0]*y[0] + y[1]*y[1])
	if math.Abs(energy-0.5) > 1e-6 {
		t.Errorf("energy drifted to %.12f", energy)
	}
}

func TestRK45ZeroInterval(t *testing.T) {
	r := NewRK45(1e-9)
	y := []float64{1, 2}

	if err := r.Advance(oscillator, y, 3, 3); err != nil {
		t.Fatalf("zero interval: %v", err)
	}
	if y[0] != 1 || y[1] != 2 {
		t.Errorf("state changed over empty interval: %v", y)
	}
}

func TestRK45BackwardsRejected(t *testing.T) {
	r := NewRK45(1e-9)
	y := []float64{1, 0}

	err := r.Advance(oscillator, y, 1, 0)
	if !errors.Is(err, ErrIntegration) {
		t.Errorf("expected ErrIntegration, got %v", err)
	}
}

func TestRK45DerivativeFailurePreservesState(t *testing.T) {
	boom := errors.New("mass matrix singular")
	failing := func(t float64, y, dy []float64) error {
		if t > 0.5 {
			return boom
		}
		return oscillator(t, y, dy)
	}

	r := NewRK45(1e-9)
	y := []float64{1, 0}

	err := r.Advance(failing, y, 0, 2)
	if !errors.Is(err, ErrIntegration) {
		t.Fatalf("expected ErrIntegration, got %v", err)
	}
	if !errors.Is(err, boom) {
		t.Error("cause should remain inspectable through the wrap chain")
	}
	if y[0] != 1 || y[1] != 0 {
		t.Errorf("caller state corrupted on failure: %v", y)
	}
}

func TestRK45NaNDetected(t *testing.T) {
	nan := func(t float64, y, dy []float64) error {
		dy[0] = math.NaN()
		dy[1] = 0
		return nil
	}

	r := NewRK45(1e-9)
	y := []float64{1, 0}

	if err := r.Advance(nan, y, 0, 1); !errors.Is(err, ErrIntegration) {
		t.Errorf("expected ErrIntegration on NaN, got %v", err)
	}
}

func TestRK4Accuracy(t *testing.T) {
	r := NewRK4()
	y := []float64{1, 0}
	dt := 0.01

	for i := 0; i < 100; i++ {
		if err := r.Step(oscillator, y, float64(i)*dt, dt); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	if math.Abs(y[0]-math.Cos(1)) > 1e-4 {
		t.Errorf("q(1) = %.6f, want %.6f", y[0], math.Cos(1))
	}
}
