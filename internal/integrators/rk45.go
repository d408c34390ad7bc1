package integrators

import (
	"fmt"
	"math"
)

// Derivative evaluates dy/dt at (t, y), writing into dy. dy is only
// meaningful when the returned error is nil.
type Derivative func(t float64, y, dy []float64) error

// Dormand-Prince coefficients (RK45)
var (
	a2 = 1.0 / 5.0
	a3 = 3.0 / 10.0
	a4 = 4.0 / 5.0
	a5 = 8.0 / 9.0

	b21 = 1.0 / 5.0
	b31 = 3.0 / 40.0
	b32 = 9.0 / 40.0
	b41 = 44.0 / 45.0
	b42 = -56.0 / 15.0
	b43 = 32.0 / 9.0
	b51 = 19372.0 / 6561.0
	b52 = -25360.0 / 2187.0
	b53 = 64448.0 / 6561.0
	b54 = -212.0 / 729.0
	b61 = 9017.0 / 3168.0
	b62 = -355.0 / 33.0
	b63 = 46732.0 / 5247.0
	b64 = 49.0 / 176.0
	b65 = -5103.0 / 18656.0

	c1 = 35.0 / 384.0
	c3 = 500.0 / 1113.0
	c4 = 125.0 / 192.0
	c5 = -2187.0 / 6784.0
	c6 = 11.0 / 84.0

	dc1 = c1 - 5179.0/57600.0
	dc3 = c3 - 7571.0/16695.0
	dc4 = c4 - 393.0/640.0
	dc5 = c5 - -92097.0/339200.0
	dc6 = c6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is an adaptive Dormand-Prince integrator. One instance owns one
// set of scratch buffers, reused across calls so that a per-frame Advance
// does not allocate; instances must not be shared between goroutines.
type RK45 struct {
	tol      float64
	minStep  float64
	maxTries int
	safety   float64
	minScale float64
	maxScale float64
	lastStep float64

	k1, k2, k3, k4, k5, k6, k7 []float64
	ytmp, ycur, ynew           []float64
}

// NewRK45 builds an integrator with the given mixed absolute/relative
// error tolerance per step.
func NewRK45(tol float64) *RK45 {
	return &RK45{
		tol:      tol,
		minStep:  1e-12,
		maxTries: 100000,
		safety:   0.9,
		minScale: 0.2,
		maxScale: 10.0,
	}
}

func (r *RK45) ensureScratch(n int) {
	if len(r.ycur) == n {
		return
	}
	bufs := []*[]float64{&r.k1, &r.k2, &r.k3, &r.k4, &r.k5, &r.k6, &r.k7, &r.ytmp, &r.ycur, &r.ynew}
	for _, b := range bufs {
		*b = make([]float64, n)
	}
}

// Advance integrates y in place from time from to time to, taking as
// many adaptive steps as the tolerance demands. On error y is left
// exactly as the caller passed it.
func (r *RK45) Advance(f Derivative, y []float64, from, to float64) error {
	if to < from {
		return fmt.Errorf("%w: advance backwards from %g to %g", ErrIntegration, from, to)
	}
	if to == from {
		return nil
	}
	n := len(y)
	r.ensureScratch(n)
	copy(r.ycur, y)

	t := from
	h := r.lastStep
	if h <= 0 || h > to-from {
		h = to - from
	}

	for tries := 0; t < to; tries++ {
		if tries >= r.maxTries {
			return fmt.Errorf("%w: step budget exhausted at t=%g", ErrIntegration, t)
		}
		if h < r.minStep {
			return fmt.Errorf("%w: step size underflow at t=%g", ErrIntegration, t)
		}
		if t+h > to {
			h = to - t
		}

		errRatio, err := r.attempt(f, t, h)
		if err != nil {
			return fmt.Errorf("%w: derivative failed at t=%g: %w", ErrIntegration, t, err)
		}

		if errRatio <= 1 {
			t += h
			copy(r.ycur, r.ynew)
			if !valid(r.ycur) {
				return fmt.Errorf("%w: non-finite state at t=%g", ErrIntegration, t)
			}
			if errRatio > 0 {
				h *= math.Min(r.maxScale, r.safety*math.Pow(errRatio, -0.2))
			} else {
				h *= r.maxScale
			}
		} else {
			h *= math.Max(r.minScale, r.safety*math.Pow(errRatio, -0.25))
		}
	}

	r.lastStep = h
	copy(y, r.ycur)
	return nil
}

// attempt takes one trial step of size h from r.ycur into r.ynew and
// returns the estimated error relative to the tolerance.
func (r *RK45) attempt(f Derivative, t, h float64) (float64, error) {
	n := len(r.ycur)

	if err := f(t, r.ycur, r.k1); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = r.ycur[i] + h*b21*r.k1[i]
	}
	if err := f(t+a2*h, r.ytmp, r.k2); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = r.ycur[i] + h*(b31*r.k1[i]+b32*r.k2[i])
	}
	if err := f(t+a3*h, r.ytmp, r.k3); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = r.ycur[i] + h*(b41*r.k1[i]+b42*r.k2[i]+b43*r.k3[i])
	}
	if err := f(t+a4*h, r.ytmp, r.k4); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = r.ycur[i] + h*(b51*r.k1[i]+b52*r.k2[i]+b53*r.k3[i]+b54*r.k4[i])
	}
	if err := f(t+a5*h, r.ytmp, r.k5); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = r.ycur[i] + h*(b61*r.k1[i]+b62*r.k2[i]+b63*r.k3[i]+b64*r.k4[i]+b65*r.k5[i])
	}
	if err := f(t+h, r.ytmp, r.k6); err != nil {
		return 0, err
	}
	for i := 0; i < n; i++ {
		r.ynew[i] = r.ycur[i] + h*(c1*r.k1[i]+c3*r.k3[i]+c4*r.k4[i]+c5*r.k5[i]+c6*r.k6[i])
	}
	if err := f(t+h, r.ynew, r.k7); err != nil {
		return 0, err
	}

	errMax := 0.0
	for i := 0; i < n; i++ {
		errEst := h * (dc1*r.k1[i] + dc3*r.k3[i] + dc4*r.k4[i] + dc5*r.k5[i] + dc6*r.k6[i] + dc7*r.k7[i])
		scale := math.Abs(r.ycur[i]) + math.Abs(h*r.k1[i]) + 1e-10
		errMax = math.Max(errMax, math.Abs(errEst)/scale)
	}
	return errMax / r.tol, nil
}

func valid(y []float64) bool {
	for _, v := range y {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
