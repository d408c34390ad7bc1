package integrators

import "fmt"

// RK4 is the classic fixed-step fourth-order method, kept for benchmark
// comparisons and for headless runs where a deterministic step count
// matters more than error control.
type RK4 struct {
	k1, k2, k3, k4 []float64
	ytmp           []float64
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) ensureScratch(n int) {
	if len(r.ytmp) == n {
		return
	}
	r.k1 = make([]float64, n)
	r.k2 = make([]float64, n)
	r.k3 = make([]float64, n)
	r.k4 = make([]float64, n)
	r.ytmp = make([]float64, n)
}

// Step advances y in place by one step of size h. On error y is left
// untouched.
func (r *RK4) Step(f Derivative, y []float64, t, h float64) error {
	n := len(y)
	r.ensureScratch(n)

	if err := f(t, y, r.k1); err != nil {
		return fmt.Errorf("%w: derivative failed at t=%g: %w", ErrIntegration, t, err)
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + h*0.5*r.k1[i]
	}
	if err := f(t+h*0.5, r.ytmp, r.k2); err != nil {
		return fmt.Errorf("%w: derivative failed at t=%g: %w", ErrIntegration, t, err)
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + h*0.5*r.k2[i]
	}
	if err := f(t+h*0.5, r.ytmp, r.k3); err != nil {
		return fmt.Errorf("%w: derivative failed at t=%g: %w", ErrIntegration, t, err)
	}
	for i := 0; i < n; i++ {
		r.ytmp[i] = y[i] + h*r.k3[i]
	}
	if err := f(t+h, r.ytmp, r.k4); err != nil {
		return fmt.Errorf("%w: derivative failed at t=%g: %w", ErrIntegration, t, err)
	}

	h6 := h / 6.0
	for i := 0; i < n; i++ {
		y[i] += h6 * (r.k1[i] + 2*r.k2[i] + 2*r.k3[i] + r.k4[i])
	}
	return nil
}
