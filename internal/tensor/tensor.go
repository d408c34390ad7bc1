package tensor

import (
	"fmt"

	"github.com/avasko/laglab/internal/diff"
)

// Variance distinguishes displacement-like slots from weight-like slots.
type Variance uint8

const (
	// Up marks contravariant structures: generalized positions,
	// velocities, anything displacement-like.
	Up Variance = iota
	// Down marks covariant structures: per-coordinate weights such as
	// masses, which pair with Up structures by contraction.
	Down
)

// Struct is a fixed-shape, possibly nested container of scalar leaves.
// A Struct is either a leaf holding one diff.Scalar or a node holding an
// ordered list of children. Shapes are declared once, when a simulation's
// initial state is built, and never inferred from data afterwards.
type Struct struct {
	variance Variance
	leaf     diff.Scalar
	kids     []*Struct
}

// Leaf wraps a single scalar as an Up leaf.
func Leaf(s diff.Scalar) *Struct {
	return &Struct{variance: Up, leaf: s}
}

// UpOf builds a contravariant node from children.
func UpOf(kids ...*Struct) *Struct {
	return &Struct{variance: Up, kids: kids}
}

// DownOf builds a covariant node from children.
func DownOf(kids ...*Struct) *Struct {
	return &Struct{variance: Down, kids: kids}
}

// FromFloats builds a flat Up tuple of literal leaves.
func FromFloats(vs ...float64) *Struct {
	kids := make([]*Struct, len(vs))
	for i, v := range vs {
		kids[i] = Leaf(diff.Const(v))
	}
	return UpOf(kids...)
}

// Weights builds a flat Down tuple of literal leaves.
func Weights(vs ...float64) *Struct {
	kids := make([]*Struct, len(vs))
	for i, v := range vs {
		kids[i] = &Struct{variance: Down, leaf: diff.Const(v)}
	}
	return DownOf(kids...)
}

// IsLeaf reports whether s holds a single scalar.
func (s *Struct) IsLeaf() bool { return s.kids == nil }

// Len returns the number of direct children; zero for a leaf.
func (s *Struct) Len() int { return len(s.kids) }

// At returns the i-th child. Accessing a slot the structure does not
// have is a shape error, so that a transform written against the wrong
// coordinate shape fails the build instead of crashing it.
func (s *Struct) At(i int) *Struct {
	if i < 0 || i >= len(s.kids) {
		panic(fmt.Errorf("%w: slot %d of a %d-slot structure", ErrShapeMismatch, i, len(s.kids)))
	}
	return s.kids[i]
}

// Scalar returns the leaf value.
func (s *Struct) Scalar() diff.Scalar {
	if !s.IsLeaf() {
		panic(fmt.Errorf("%w: scalar access on a %d-slot structure", ErrShapeMismatch, len(s.kids)))
	}
	return s.leaf
}

// Variance returns the covariant/contravariant tag.
func (s *Struct) Variance() Variance { return s.variance }

// NumLeaves counts scalar slots in depth-first order.
func (s *Struct) NumLeaves() int {
	if s.IsLeaf() {
		return 1
	}
	n := 0
	for _, k := range s.kids {
		n += k.NumLeaves()
	}
	return n
}

// SameShape reports whether a and b have identical nesting, ignoring
// variance and leaf values.
func SameShape(a, b *Struct) bool {
	if a.IsLeaf() != b.IsLeaf() || len(a.kids) != len(b.kids) {
		return false
	}
	for i := range a.kids {
		if !SameShape(a.kids[i], b.kids[i]) {
			return false
		}
	}
	return true
}

func mustMatch(op string, a, b *Struct) {
	if !SameShape(a, b) {
		panic(fmt.Errorf("%w: %s over structures of different shape", ErrShapeMismatch, op))
	}
}

// Map applies f to every leaf, preserving shape and variance.
func (s *Struct) Map(f func(diff.Scalar) diff.Scalar) *Struct {
	if s.IsLeaf() {
		return &Struct{variance: s.variance, leaf: f(s.leaf)}
	}
	kids := make([]*Struct, len(s.kids))
	for i, k := range s.kids {
		kids[i] = k.Map(f)
	}
	return &Struct{variance: s.variance, kids: kids}
}

// Zip combines two structures of identical shape leafwise. The result
// takes its variance from a.
func Zip(a, b *Struct, f func(x, y diff.Scalar) diff.Scalar) *Struct {
	mustMatch("zip", a, b)
	return zip(a, b, f)
}

func zip(a, b *Struct, f func(x, y diff.Scalar) diff.Scalar) *Struct {
	if a.IsLeaf() {
		return &Struct{variance: a.variance, leaf: f(a.leaf, b.leaf)}
	}
	kids := make([]*Struct, len(a.kids))
	for i := range a.kids {
		kids[i] = zip(a.kids[i], b.kids[i], f)
	}
	return &Struct{variance: a.variance, kids: kids}
}

// Add returns the elementwise sum of two same-shape structures.
func Add(a, b *Struct) *Struct {
	mustMatch("add", a, b)
	return zip(a, b, diff.Add)
}

// Sub returns the elementwise difference of two same-shape structures.
func Sub(a, b *Struct) *Struct {
	mustMatch("sub", a, b)
	return zip(a, b, diff.Sub)
}

// Mul returns the elementwise product of two same-shape structures of the
// same variance. Pairing covariant with contravariant slots is a
// contraction, not an elementwise product; use Inner or Contract.
func Mul(a, b *Struct) *Struct {
	if a.variance != b.variance {
		panic(fmt.Errorf("%w: elementwise product of mixed variance; use a contraction", ErrShapeMismatch))
	}
	mustMatch("mul", a, b)
	return zip(a, b, diff.Mul)
}

// Div returns the elementwise quotient of two same-shape structures of
// the same variance.
func Div(a, b *Struct) *Struct {
	if a.variance != b.variance {
		panic(fmt.Errorf("%w: elementwise quotient of mixed variance", ErrShapeMismatch))
	}
	mustMatch("div", a, b)
	return zip(a, b, diff.Div)
}

// Scale multiplies every leaf by the scalar c.
func (s *Struct) Scale(c diff.Scalar) *Struct {
	return s.Map(func(x diff.Scalar) diff.Scalar { return diff.Mul(c, x) })
}

// Inner contracts a covariant weight structure with a matching
// contravariant structure: the sum over leaves of w_i * a_i.
func Inner(w, a *Struct) diff.Scalar {
	mustMatch("inner", w, a)
	return foldPair(w, a, func(acc, wi, ai diff.Scalar) diff.Scalar {
		return diff.Add(acc, diff.Mul(wi, ai))
	})
}

// Contract sums w_i * a_i * b_i over leaves: the one-shot combination of
// per-coordinate weights with two displacement structures, e.g. masses
// with velocities twice for kinetic energy.
func Contract(w, a, b *Struct) diff.Scalar {
	mustMatch("contract", w, a)
	mustMatch("contract", a, b)
	var walk func(w, a, b *Struct, acc diff.Scalar) diff.Scalar
	walk = func(w, a, b *Struct, acc diff.Scalar) diff.Scalar {
		if w.IsLeaf() {
			return diff.Add(acc, diff.Mul(w.leaf, diff.Mul(a.leaf, b.leaf)))
		}
		for i := range w.kids {
			acc = walk(w.kids[i], a.kids[i], b.kids[i], acc)
		}
		return acc
	}
	return walk(w, a, b, diff.Const(0))
}

func foldPair(a, b *Struct, f func(acc, x, y diff.Scalar) diff.Scalar) diff.Scalar {
	acc := diff.Scalar(diff.Const(0))
	var walk func(a, b *Struct)
	walk = func(a, b *Struct) {
		if a.IsLeaf() {
			acc = f(acc, a.leaf, b.leaf)
			return
		}
		for i := range a.kids {
			walk(a.kids[i], b.kids[i])
		}
	}
	walk(a, b)
	return acc
}
