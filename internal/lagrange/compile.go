package lagrange

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/tensor"
)

// Compiled holds a Lagrangian turned into a state-derivative function.
// All derivative closures and scratch buffers are built once, at compile
// time; evaluation reuses them and is therefore not safe for concurrent
// use, matching the single-threaded host contract.
type Compiled struct {
	lag   Lagrangian
	shape *tensor.Struct
	n     int

	qs, vs []diff.Scalar
	p      []diff.Scalar
	mass   *mat.Dense
	rhs    *mat.VecDense
	acc    *mat.VecDense
	lu     mat.LU
}

// Compile builds the Euler-Lagrange state derivative for l, which must
// already be closed over its transform chain. The initial tuple supplies
// the coordinate shape and the probe point: l is evaluated once here with
// every slot perturbed, so unsupported operations and shape mismatches
// fail at compile time rather than mid-integration. Singularities of the
// mass matrix depend on the reachable states and surface at evaluation
// time instead.
func Compile(l Lagrangian, initial Local) (*Compiled, error) {
	if !tensor.SameShape(initial.Pos, initial.Vel) {
		return nil, fmt.Errorf("%w: position and velocity shapes differ", tensor.ErrShapeMismatch)
	}
	n := initial.Pos.NumLeaves()
	c := &Compiled{
		lag:   l,
		shape: initial.Pos,
		n:     n,
		qs:    make([]diff.Scalar, n),
		vs:    make([]diff.Scalar, n),
		p:     make([]diff.Scalar, n),
		mass:  mat.NewDense(n, n, nil),
		rhs:   mat.NewVecDense(n, nil),
		acc:   mat.NewVecDense(n, nil),
	}
	if err := c.probe(initial); err != nil {
		return nil, err
	}
	return c, nil
}

// Dim returns the number of generalized coordinates; flat state vectors
// carry 2*Dim values, positions first.
func (c *Compiled) Dim() int { return c.n }

func (c *Compiled) probe(initial Local) (err error) {
	defer capture(&err)
	tag := diff.FreshTag()
	perturb := func(s diff.Scalar) diff.Scalar {
		return diff.Bundle(s, diff.Const(1), tag)
	}
	c.lag(Local{
		T:   perturb(initial.T),
		Pos: initial.Pos.Map(perturb),
		Vel: initial.Vel.Map(perturb),
	})
	return nil
}

func (c *Compiled) eval(t diff.Scalar) diff.Scalar {
	return c.lag(Local{
		T:   t,
		Pos: tensor.FromScalars(c.shape, c.qs),
		Vel: tensor.FromScalars(c.shape, c.vs),
	})
}

// gradV fills out with the generalized momenta p_i = dL/dv_i at the
// current qs/vs, under the given (possibly perturbed) time scalar.
func (c *Compiled) gradV(t diff.Scalar, out []diff.Scalar) {
	for i := 0; i < c.n; i++ {
		tag := diff.FreshTag()
		saved := c.vs[i]
		c.vs[i] = diff.Bundle(saved, diff.Const(1), tag)
		out[i] = diff.Tangent(c.eval(t), tag)
		c.vs[i] = saved
	}
}

// Derivative evaluates the equations of motion: given the flat state
// y = (q, v) at time t it writes (v, a) into dy, where a solves
//
//	M a = dL/dq - (dp/dq) v - dp/dt
//
// It returns an error wrapping ErrSingularMass when the mass matrix
// cannot be solved. dy is only valid when the error is nil.
func (c *Compiled) Derivative(t float64, y, dy []float64) (err error) {
	defer capture(&err)
	n := c.n
	if len(y) != 2*n || len(dy) != 2*n {
		return fmt.Errorf("%w: flat state of length %d for %d coordinates", tensor.ErrShapeMismatch, len(y), n)
	}
	for i := 0; i < n; i++ {
		c.qs[i] = diff.Const(y[i])
		c.vs[i] = diff.Const(y[n+i])
	}
	tc := diff.Scalar(diff.Const(t))

	// generalized force dL/dq
	for i := 0; i < n; i++ {
		tag := diff.FreshTag()
		saved := c.qs[i]
		c.qs[i] = diff.Bundle(saved, diff.Const(1), tag)
		c.rhs.SetVec(i, diff.Float(diff.Tangent(c.eval(tc), tag)))
		c.qs[i] = saved
	}

	// explicit time dependence of the momenta: dp/dt
	tagT := diff.FreshTag()
	c.gradV(diff.Bundle(tc, diff.Const(1), tagT), c.p)
	for i := 0; i < n; i++ {
		c.rhs.SetVec(i, c.rhs.AtVec(i)-diff.Float(diff.Tangent(c.p[i], tagT)))
	}

	// velocity transport of the momenta: (dp/dq) v
	for j := 0; j < n; j++ {
		tag := diff.FreshTag()
		saved := c.qs[j]
		c.qs[j] = diff.Bundle(saved, diff.Const(1), tag)
		c.gradV(tc, c.p)
		for i := 0; i < n; i++ {
			c.rhs.SetVec(i, c.rhs.AtVec(i)-diff.Float(diff.Tangent(c.p[i], tag))*y[n+j])
		}
		c.qs[j] = saved
	}

	// mass matrix M_ij = d2L/dv_i dv_j
	for j := 0; j < n; j++ {
		tag := diff.FreshTag()
		saved := c.vs[j]
		c.vs[j] = diff.Bundle(saved, diff.Const(1), tag)
		c.gradV(tc, c.p)
		for i := 0; i < n; i++ {
			c.mass.Set(i, j, diff.Float(diff.Tangent(c.p[i], tag)))
		}
		c.vs[j] = saved
	}

	c.lu.Factorize(c.mass)
	if serr := c.lu.SolveVecTo(c.acc, false, c.rhs); serr != nil {
		return fmt.Errorf("%w at t=%g: %v", ErrSingularMass, t, serr)
	}

	for i := 0; i < n; i++ {
		dy[i] = y[n+i]
		dy[n+i] = c.acc.AtVec(i)
	}
	return nil
}

// Energy evaluates the total energy p·v - L at the flat state y, the
// Legendre transform of the compiled Lagrangian. Conserved whenever L
// has no explicit time dependence, which makes it a cheap drift monitor.
func (c *Compiled) Energy(t float64, y []float64) (e float64, err error) {
	defer capture(&err)
	n := c.n
	if len(y) != 2*n {
		return 0, fmt.Errorf("%w: flat state of length %d for %d coordinates", tensor.ErrShapeMismatch, len(y), n)
	}
	for i := 0; i < n; i++ {
		c.qs[i] = diff.Const(y[i])
		c.vs[i] = diff.Const(y[n+i])
	}
	tc := diff.Scalar(diff.Const(t))
	c.gradV(tc, c.p)
	for i := 0; i < n; i++ {
		e += diff.Float(c.p[i]) * y[n+i]
	}
	e -= diff.Float(c.eval(tc))
	return e, nil
}
