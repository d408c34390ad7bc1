package lagrange

import (
	"fmt"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/tensor"
)

// Local is the instantaneous phase tuple handed to a Lagrangian or a
// lifted transform: time, generalized position, generalized velocity.
// Pos and Vel always share shape.
type Local struct {
	T   diff.Scalar
	Pos *tensor.Struct
	Vel *tensor.Struct
}

// NewLocal builds a phase tuple from literal time and matching
// position/velocity structures.
func NewLocal(t float64, pos, vel *tensor.Struct) (Local, error) {
	if !tensor.SameShape(pos, vel) {
		return Local{}, fmt.Errorf("%w: position and velocity shapes differ", tensor.ErrShapeMismatch)
	}
	return Local{T: diff.Const(t), Pos: pos, Vel: vel}, nil
}

// Lagrangian maps a phase tuple to a scalar energy, built only from the
// internal/diff primitive set.
type Lagrangian func(Local) diff.Scalar

// Transform is a pure map between generalized-position representations,
// e.g. pendulum angle to cartesian bob coordinates. It may change shape.
type Transform func(*tensor.Struct) *tensor.Struct

// LiftedTransform acts on the full phase tuple; the velocity output of a
// promoted transform is the chain-rule image of the incoming velocity.
type LiftedTransform func(Local) Local

// Promote lifts a position map to the phase tuple:
//
//	promoted(t, q, v) = (t, F(q), J_F(q) v)
//
// The directional derivative comes from one dual-number pass with the
// velocity as the perturbation, exact to machine precision.
func Promote(f Transform) LiftedTransform {
	return func(l Local) Local {
		tag := diff.FreshTag()
		seeded := tensor.Zip(l.Pos, l.Vel, func(q, v diff.Scalar) diff.Scalar {
			return diff.Bundle(q, v, tag)
		})
		out := f(seeded)
		return Local{
			T:   l.T,
			Pos: out.Map(func(s diff.Scalar) diff.Scalar { return diff.Primal(s, tag) }),
			Vel: out.Map(func(s diff.Scalar) diff.Scalar { return diff.Tangent(s, tag) }),
		}
	}
}
