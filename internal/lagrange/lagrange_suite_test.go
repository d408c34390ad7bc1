package lagrange_test

import (
	"math"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/lagrange"
	"github.com/avasko/laglab/internal/tensor"
)

func TestLagrange(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Lagrange Suite")
}

// oscillator returns L = m v^2 / 2 - k q^2 / 2 on one coordinate.
func oscillator(m, k float64) lagrange.Lagrangian {
	half := diff.Const(0.5)
	cm, ck := diff.Const(m), diff.Const(k)
	return func(l lagrange.Local) diff.Scalar {
		q := l.Pos.At(0).Scalar()
		v := l.Vel.At(0).Scalar()
		ke := diff.Mul(half, diff.Mul(cm, diff.Mul(v, v)))
		pe := diff.Mul(half, diff.Mul(ck, diff.Mul(q, q)))
		return diff.Sub(ke, pe)
	}
}

func local(t float64, q, v []float64) lagrange.Local {
	l, err := lagrange.NewLocal(t, tensor.FromFloats(q...), tensor.FromFloats(v...))
	Expect(err).NotTo(HaveOccurred())
	return l
}

var _ = Describe("Promote", func() {
	It("maps velocities by the exact chain rule", func() {
		sine := func(q *tensor.Struct) *tensor.Struct {
			return tensor.UpOf(tensor.Leaf(diff.Sin(q.At(0).Scalar())))
		}
		lifted := lagrange.Promote(sine)

		out := lifted(local(0, []float64{0}, []float64{1}))

		Expect(diff.Float(out.Pos.At(0).Scalar())).To(BeNumerically("~", 0, 1e-15))
		Expect(diff.Float(out.Vel.At(0).Scalar())).To(BeNumerically("~", 1, 1e-15))
	})

	It("scales the velocity by the local Jacobian away from the origin", func() {
		square := func(q *tensor.Struct) *tensor.Struct {
			s := q.At(0).Scalar()
			return tensor.UpOf(tensor.Leaf(diff.Mul(s, s)))
		}
		lifted := lagrange.Promote(square)

		out := lifted(local(0, []float64{3}, []float64{2}))

		Expect(diff.Float(out.Pos.At(0).Scalar())).To(Equal(9.0))
		// d(q^2)/dt = 2 q qdot = 12
		Expect(diff.Float(out.Vel.At(0).Scalar())).To(Equal(12.0))
	})
})

var _ = Describe("Pipeline", func() {
	It("is the identity when empty", func() {
		var p lagrange.Pipeline

		in := local(1.5, []float64{0.3, -2}, []float64{4, 0.25})
		out := p.Lifted()(in)

		Expect(out.Pos.Flatten(nil)).To(Equal(in.Pos.Flatten(nil)))
		Expect(out.Vel.Flatten(nil)).To(Equal(in.Vel.Flatten(nil)))
		Expect(p.Positional()(in.Pos).Flatten(nil)).To(Equal(in.Pos.Flatten(nil)))
	})

	It("applies the first appended transform innermost", func() {
		double := func(q *tensor.Struct) *tensor.Struct {
			return q.Scale(diff.Const(2))
		}
		shift := func(q *tensor.Struct) *tensor.Struct {
			return q.Map(func(s diff.Scalar) diff.Scalar { return diff.Add(s, diff.Const(1)) })
		}

		var p lagrange.Pipeline
		p.Append(double)
		p.Append(shift)

		got := p.Positional()(tensor.FromFloats(5)).Flatten(nil)
		Expect(got).To(Equal([]float64{11})) // shift(double(5))
	})
})

var _ = Describe("Compile", func() {
	It("derives the harmonic oscillator equations of motion", func() {
		c, err := lagrange.Compile(oscillator(2, 8), local(0, []float64{1}, []float64{0}))
		Expect(err).NotTo(HaveOccurred())

		dy := make([]float64, 2)
		Expect(c.Derivative(0, []float64{1, 0.5}, dy)).To(Succeed())

		Expect(dy[0]).To(Equal(0.5))
		Expect(dy[1]).To(BeNumerically("~", -4, 1e-12)) // a = -(k/m) q
	})

	It("handles explicit time dependence through dp/dt", func() {
		// pendulum on a support driven as ys = A cos(wd t)
		m, l, g, amp, wd := 1.0, 1.0, 9.81, 0.2, 7.0
		cm, cl, cg := diff.Const(m), diff.Const(l), diff.Const(g)
		half := diff.Const(0.5)
		driven := func(loc lagrange.Local) diff.Scalar {
			theta := loc.Pos.At(0).Scalar()
			omega := loc.Vel.At(0).Scalar()
			phase := diff.Mul(diff.Const(wd), loc.T)
			ys := diff.Mul(diff.Const(amp), diff.Cos(phase))
			ysDot := diff.Neg(diff.Mul(diff.Const(amp*wd), diff.Sin(phase)))
			lw := diff.Mul(cl, omega)
			v2 := diff.Add(diff.Mul(lw, lw),
				diff.Add(diff.Mul(diff.Const(2), diff.Mul(lw, diff.Mul(diff.Sin(theta), ysDot))),
					diff.Mul(ysDot, ysDot)))
			y := diff.Sub(ys, diff.Mul(cl, diff.Cos(theta)))
			return diff.Sub(diff.Mul(half, diff.Mul(cm, v2)), diff.Mul(cm, diff.Mul(cg, y)))
		}

		c, err := lagrange.Compile(driven, local(0, []float64{0.4}, []float64{0}))
		Expect(err).NotTo(HaveOccurred())

		t0, theta, omega := 0.3, 0.4, 1.1
		dy := make([]float64, 2)
		Expect(c.Derivative(t0, []float64{theta, omega}, dy)).To(Succeed())

		// closed form: a = -sin(theta) (g + ys'') / l
		ysDdot := -amp * wd * wd * math.Cos(wd*t0)
		want := -math.Sin(theta) * (g + ysDdot) / l
		Expect(dy[1]).To(BeNumerically("~", want, 1e-9))
	})

	It("rejects a singular mass matrix with ErrSingularMass", func() {
		// L = (v1 + v2)^2 / 2 has rank-one mass matrix
		degenerate := func(l lagrange.Local) diff.Scalar {
			s := diff.Add(l.Vel.At(0).Scalar(), l.Vel.At(1).Scalar())
			return diff.Mul(diff.Const(0.5), diff.Mul(s, s))
		}

		c, err := lagrange.Compile(degenerate, local(0, []float64{0, 0}, []float64{1, 2}))
		Expect(err).NotTo(HaveOccurred())

		dy := make([]float64, 4)
		err = c.Derivative(0, []float64{0, 0, 1, 2}, dy)
		Expect(err).To(MatchError(lagrange.ErrSingularMass))
	})

	It("rejects value branching at compile time", func() {
		branching := func(l lagrange.Local) diff.Scalar {
			v := l.Vel.At(0).Scalar()
			if diff.Float(v) > 0 { // numeric inspection: not differentiable
				return diff.Mul(v, v)
			}
			return v
		}

		_, err := lagrange.Compile(branching, local(0, []float64{0}, []float64{1}))
		Expect(err).To(MatchError(diff.ErrUnsupported))
	})

	It("rejects mismatched shapes at compile time", func() {
		wrongWeights := tensor.Weights(1, 1, 1)
		bad := func(l lagrange.Local) diff.Scalar {
			return tensor.Contract(wrongWeights, l.Vel, l.Vel)
		}

		_, err := lagrange.Compile(bad, local(0, []float64{0, 0}, []float64{0, 0}))
		Expect(err).To(MatchError(tensor.ErrShapeMismatch))
	})

	It("computes energy as the Legendre transform", func() {
		c, err := lagrange.Compile(oscillator(2, 8), local(0, []float64{1}, []float64{0}))
		Expect(err).NotTo(HaveOccurred())

		e, err := c.Energy(0, []float64{1, 3})
		Expect(err).NotTo(HaveOccurred())
		// E = m v^2/2 + k q^2/2 = 9 + 4
		Expect(e).To(BeNumerically("~", 13, 1e-12))
	})
})
