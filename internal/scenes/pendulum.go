package scenes

import (
	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/lagrange"
	"github.com/avasko/laglab/internal/tensor"
)

// arm maps an angle leaf to the cartesian tip of a rod of length l
// hanging from (px, py), with theta measured from straight down.
func arm(px, py, theta diff.Scalar, l diff.Scalar) (x, y diff.Scalar) {
	x = diff.Add(px, diff.Mul(l, diff.Sin(theta)))
	y = diff.Sub(py, diff.Mul(l, diff.Cos(theta)))
	return x, y
}

// Pendulum is a single planar pendulum. The Lagrangian is written in
// cartesian bob coordinates; the angle-to-cartesian transform carries
// the constraint, so the equations of motion come out in the one angle.
func Pendulum(p Params) Scene {
	m := p.or(p.Mass, 1)
	l := p.or(p.Length, 1)
	g := p.or(p.Gravity, 9.81)
	theta := p.Theta
	if !p.ThetaSet && theta == 0 {
		theta = 2.0
	}

	length := diff.Const(l)
	toCartesian := func(q *tensor.Struct) *tensor.Struct {
		x, y := arm(diff.Const(0), diff.Const(0), q.At(0).Scalar(), length)
		return tensor.UpOf(tensor.Leaf(x), tensor.Leaf(y))
	}

	return Scene{
		Name:        "pendulum",
		Description: "planar pendulum via angle-to-cartesian transform",
		Lagrangian:  cartesianGravity(tensor.Weights(m, m), tensor.Weights(0, m*g)),
		Transforms:  []lagrange.Transform{toCartesian},
		Initial:     mustLocal(0, tensor.FromFloats(theta), tensor.FromFloats(p.Omega)),
		Extent:      1.3 * l,
		Chain:       true,
	}
}

// DoublePendulum chains two bobs. Same cartesian Lagrangian, one more
// transform stage; the coupled equations of motion fall out of the
// Euler-Lagrange construction instead of being derived by hand.
func DoublePendulum(p Params) Scene {
	m1 := p.or(p.Mass, 1)
	m2 := p.or(p.Mass2, 1)
	l1 := p.or(p.Length, 1)
	l2 := p.or(p.Length2, 1)
	g := p.or(p.Gravity, 9.81)
	th1 := p.Theta
	th2 := p.Theta2
	if !p.ThetaSet && th1 == 0 && th2 == 0 {
		th1, th2 = 2.0, 2.5
	}

	len1, len2 := diff.Const(l1), diff.Const(l2)
	toCartesian := func(q *tensor.Struct) *tensor.Struct {
		x1, y1 := arm(diff.Const(0), diff.Const(0), q.At(0).Scalar(), len1)
		x2, y2 := arm(x1, y1, q.At(1).Scalar(), len2)
		return tensor.UpOf(
			tensor.UpOf(tensor.Leaf(x1), tensor.Leaf(y1)),
			tensor.UpOf(tensor.Leaf(x2), tensor.Leaf(y2)),
		)
	}

	w := tensor.DownOf(tensor.Weights(m1, m1), tensor.Weights(m2, m2))
	gw := tensor.DownOf(tensor.Weights(0, m1*g), tensor.Weights(0, m2*g))

	return Scene{
		Name:        "double",
		Description: "double pendulum chain",
		Lagrangian:  cartesianGravity(w, gw),
		Transforms:  []lagrange.Transform{toCartesian},
		Initial:     mustLocal(0, tensor.FromFloats(th1, th2), tensor.FromFloats(p.Omega, p.Omega2)),
		Extent:      1.2 * (l1 + l2),
		Chain:       true,
	}
}

// DrivenPendulum hangs from a support oscillating vertically as
// A cos(omega_d t). The Lagrangian carries the drive explicitly through
// its time slot, exercising the dp/dt term of the Euler-Lagrange
// equations.
func DrivenPendulum(p Params) Scene {
	m := diff.Const(p.or(p.Mass, 1))
	l := p.or(p.Length, 1)
	g := diff.Const(p.or(p.Gravity, 9.81))
	amp := diff.Const(p.or(p.Amplitude, 0.1))
	drive := diff.Const(p.or(p.Frequency, 12))
	theta0 := p.Theta
	if !p.ThetaSet && theta0 == 0 {
		theta0 = 3.0 // near inverted: the drive can stabilize it
	}

	length := diff.Const(l)
	half := diff.Const(0.5)
	lag := func(loc lagrange.Local) diff.Scalar {
		theta := loc.Pos.At(0).Scalar()
		omega := loc.Vel.At(0).Scalar()

		phase := diff.Mul(drive, loc.T)
		ys := diff.Mul(amp, diff.Cos(phase))
		ysDot := diff.Neg(diff.Mul(amp, diff.Mul(drive, diff.Sin(phase))))

		// v^2 = l^2 w^2 + 2 l sin(theta) w ys' + ys'^2
		lw := diff.Mul(length, omega)
		cross := diff.Mul(diff.Const(2), diff.Mul(lw, diff.Mul(diff.Sin(theta), ysDot)))
		v2 := diff.Add(diff.Mul(lw, lw), diff.Add(cross, diff.Mul(ysDot, ysDot)))

		y := diff.Sub(ys, diff.Mul(length, diff.Cos(theta)))
		return diff.Sub(diff.Mul(half, diff.Mul(m, v2)), diff.Mul(m, diff.Mul(g, y)))
	}

	toCartesian := func(q *tensor.Struct) *tensor.Struct {
		// support drawn at the origin; the drive offset is a render
		// nicety the position-only track cannot see (it has no time)
		x, y := arm(diff.Const(0), diff.Const(0), q.At(0).Scalar(), length)
		return tensor.UpOf(tensor.Leaf(x), tensor.Leaf(y))
	}

	return Scene{
		Name:        "driven",
		Description: "pendulum on a vertically driven support",
		Lagrangian:  lag,
		Initial:     mustLocal(0, tensor.FromFloats(theta0), tensor.FromFloats(p.Omega)),
		Render:      toCartesian,
		Extent:      1.4 * l,
		Chain:       true,
	}
}

// Ellipse constrains a particle to the ellipse (a cos t, b sin t) under
// gravity, a one-coordinate system whose mass matrix varies with
// position.
func Ellipse(p Params) Scene {
	m := p.or(p.Mass, 1)
	a := p.or(p.SemiMajor, 2)
	b := p.or(p.SemiMinor, 1)
	g := p.or(p.Gravity, 9.81)
	theta := p.Theta
	if !p.ThetaSet && theta == 0 {
		theta = 0.3
	}

	ca, cb := diff.Const(a), diff.Const(b)
	onEllipse := func(q *tensor.Struct) *tensor.Struct {
		t := q.At(0).Scalar()
		return tensor.UpOf(
			tensor.Leaf(diff.Mul(ca, diff.Cos(t))),
			tensor.Leaf(diff.Mul(cb, diff.Sin(t))),
		)
	}

	return Scene{
		Name:        "ellipse",
		Description: "particle confined to an ellipse under gravity",
		Lagrangian:  cartesianGravity(tensor.Weights(m, m), tensor.Weights(0, m*g)),
		Transforms:  []lagrange.Transform{onEllipse},
		Initial:     mustLocal(0, tensor.FromFloats(theta), tensor.FromFloats(p.Omega)),
		Extent:      1.3 * a,
	}
}
