package diff

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Scalar is a number that can flow through the differentiable primitive
// set. Concrete kinds are Const (a literal) and dual (a tagged
// perturbation used during differentiation).
type Scalar interface {
	scalar()
}

// Const is a literal IEEE double.
type Const float64

func (Const) scalar() {}

// Tag identifies one perturbation direction. Fresh tags come from
// FreshTag; duals with distinct tags never interfere, which is what makes
// nested (second-order) differentiation sound.
type Tag uint64

var tagCounter atomic.Uint64

// FreshTag returns a tag never returned before.
func FreshTag() Tag {
	return Tag(tagCounter.Add(1))
}

// dual is x + dx*eps for the perturbation direction identified by tag,
// with eps^2 = 0. Components may themselves be duals of other tags.
type dual struct {
	tag   Tag
	x, dx Scalar
}

func (dual) scalar() {}

// Bundle attaches a derivative part to x along the direction tag.
func Bundle(x, dx Scalar, tag Tag) Scalar {
	return dual{tag: tag, x: x, dx: dx}
}

// Primal extracts the value part of s with respect to tag, recursing
// through duals of other tags.
func Primal(s Scalar, tag Tag) Scalar {
	d, ok := s.(dual)
	if !ok {
		return s
	}
	if d.tag == tag {
		return d.x
	}
	return dual{tag: d.tag, x: Primal(d.x, tag), dx: Primal(d.dx, tag)}
}

// Tangent extracts the derivative part of s with respect to tag. A scalar
// with no dependence on tag has tangent zero.
func Tangent(s Scalar, tag Tag) Scalar {
	d, ok := s.(dual)
	if !ok {
		return Const(0)
	}
	if d.tag == tag {
		return d.dx
	}
	return dual{tag: d.tag, x: Tangent(d.x, tag), dx: Tangent(d.dx, tag)}
}

// Float returns the literal value of s. It panics with an error wrapping
// ErrUnsupported when s still carries a perturbation: a client function
// calling Float to branch on a value cannot be differentiated, and the
// build-time probe in internal/lagrange converts the panic into a
// construction error.
func Float(s Scalar) float64 {
	c, ok := s.(Const)
	if !ok {
		panic(fmt.Errorf("%w: numeric inspection of a value under differentiation", ErrUnsupported))
	}
	return float64(c)
}

// split reports which operand's tag is active at the top level when the
// two differ. The younger (larger) tag is always treated as outermost so
// that nested seeding extracts in allocation order.
func split(a, b Scalar) (d dual, other Scalar, swapped, both bool) {
	da, aok := a.(dual)
	db, bok := b.(dual)
	switch {
	case aok && bok && da.tag == db.tag:
		return da, b, false, true
	case aok && (!bok || da.tag > db.tag):
		return da, b, false, false
	case bok:
		return db, a, true, false
	}
	return dual{}, nil, false, false
}

// Add returns a + b.
func Add(a, b Scalar) Scalar {
	d, other, _, both := split(a, b)
	switch {
	case both:
		o := other.(dual)
		return dual{tag: d.tag, x: Add(d.x, o.x), dx: Add(d.dx, o.dx)}
	case other != nil:
		// addition commutes, the swapped flag is irrelevant
		return dual{tag: d.tag, x: Add(d.x, other), dx: d.dx}
	}
	return Const(float64(a.(Const)) + float64(b.(Const)))
}

// Sub returns a - b.
func Sub(a, b Scalar) Scalar {
	return Add(a, Neg(b))
}

// Neg returns -a.
func Neg(a Scalar) Scalar {
	if d, ok := a.(dual); ok {
		return dual{tag: d.tag, x: Neg(d.x), dx: Neg(d.dx)}
	}
	return Const(-float64(a.(Const)))
}

// Mul returns a * b, with the product rule on derivative parts.
func Mul(a, b Scalar) Scalar {
	d, other, _, both := split(a, b)
	switch {
	case both:
		o := other.(dual)
		return dual{
			tag: d.tag,
			x:   Mul(d.x, o.x),
			dx:  Add(Mul(d.x, o.dx), Mul(d.dx, o.x)),
		}
	case other != nil:
		return dual{tag: d.tag, x: Mul(d.x, other), dx: Mul(d.dx, other)}
	}
	return Const(float64(a.(Const)) * float64(b.(Const)))
}

// Div returns a / b, with the quotient rule on derivative parts.
func Div(a, b Scalar) Scalar {
	d, other, swapped, both := split(a, b)
	switch {
	case both:
		o := other.(dual)
		num := Sub(Mul(d.dx, o.x), Mul(d.x, o.dx))
		return dual{tag: d.tag, x: Div(d.x, o.x), dx: Div(num, Mul(o.x, o.x))}
	case other != nil && !swapped:
		// numerator carries the perturbation
		return dual{tag: d.tag, x: Div(d.x, other), dx: Div(d.dx, other)}
	case other != nil:
		// denominator carries it: a/(x+eps dx) = a/x - a dx/x^2 eps
		return dual{
			tag: d.tag,
			x:   Div(other, d.x),
			dx:  Neg(Div(Mul(other, d.dx), Mul(d.x, d.x))),
		}
	}
	return Const(float64(a.(Const)) / float64(b.(Const)))
}

// Sin returns sin(a).
func Sin(a Scalar) Scalar {
	if d, ok := a.(dual); ok {
		return dual{tag: d.tag, x: Sin(d.x), dx: Mul(Cos(d.x), d.dx)}
	}
	return Const(math.Sin(float64(a.(Const))))
}

// Cos returns cos(a).
func Cos(a Scalar) Scalar {
	if d, ok := a.(dual); ok {
		return dual{tag: d.tag, x: Cos(d.x), dx: Neg(Mul(Sin(d.x), d.dx))}
	}
	return Const(math.Cos(float64(a.(Const))))
}

// Sqrt returns the square root of a.
func Sqrt(a Scalar) Scalar {
	if d, ok := a.(dual); ok {
		root := Sqrt(d.x)
		return dual{tag: d.tag, x: root, dx: Div(d.dx, Mul(Const(2), root))}
	}
	return Const(math.Sqrt(float64(a.(Const))))
}

// Pow returns a raised to the integer power n.
func Pow(a Scalar, n int) Scalar {
	switch {
	case n == 0:
		return Const(1)
	case n < 0:
		return Div(Const(1), Pow(a, -n))
	}
	if d, ok := a.(dual); ok {
		return dual{
			tag: d.tag,
			x:   Pow(d.x, n),
			dx:  Mul(Mul(Const(float64(n)), Pow(d.x, n-1)), d.dx),
		}
	}
	return Const(math.Pow(float64(a.(Const)), float64(n)))
}
