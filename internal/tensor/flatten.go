package tensor

import (
	"fmt"

	"github.com/avasko/laglab/internal/diff"
)

// Flatten appends the leaf values of s to dst in depth-first order and
// returns the extended buffer. Every leaf must be a literal; a structure
// still carrying perturbations cannot be linearized.
func (s *Struct) Flatten(dst []float64) []float64 {
	if s.IsLeaf() {
		return append(dst, diff.Float(s.leaf))
	}
	for _, k := range s.kids {
		dst = k.Flatten(dst)
	}
	return dst
}

// Restore rebuilds a structure of template's shape and variance from a
// flat buffer, consuming exactly template.NumLeaves() values. The round
// trip through Flatten is exact, bit for bit.
func Restore(template *Struct, buf []float64) *Struct {
	if len(buf) != template.NumLeaves() {
		panic(fmt.Errorf("%w: restore of %d values into a %d-leaf shape",
			ErrShapeMismatch, len(buf), template.NumLeaves()))
	}
	out, _ := restore(template, buf)
	return out
}

func restore(template *Struct, buf []float64) (*Struct, []float64) {
	if template.IsLeaf() {
		return &Struct{variance: template.variance, leaf: diff.Const(buf[0])}, buf[1:]
	}
	kids := make([]*Struct, len(template.kids))
	for i, k := range template.kids {
		kids[i], buf = restore(k, buf)
	}
	return &Struct{variance: template.variance, kids: kids}, buf
}

// FromScalars rebuilds a structure of template's shape from a slice of
// scalars, which may carry perturbations. Used by the Euler-Lagrange
// construction to seed flat integrator state into structured arguments.
func FromScalars(template *Struct, vals []diff.Scalar) *Struct {
	if len(vals) != template.NumLeaves() {
		panic(fmt.Errorf("%w: %d scalars into a %d-leaf shape",
			ErrShapeMismatch, len(vals), template.NumLeaves()))
	}
	out, _ := fromScalars(template, vals)
	return out
}

func fromScalars(template *Struct, vals []diff.Scalar) (*Struct, []diff.Scalar) {
	if template.IsLeaf() {
		return &Struct{variance: template.variance, leaf: vals[0]}, vals[1:]
	}
	kids := make([]*Struct, len(template.kids))
	for i, k := range template.kids {
		kids[i], vals = fromScalars(k, vals)
	}
	return &Struct{variance: template.variance, kids: kids}, vals
}
