package lagrange

import (
	"errors"

	"github.com/avasko/laglab/internal/diff"
	"github.com/avasko/laglab/internal/tensor"
)

// ErrSingularMass indicates a mass matrix that is singular or too
// ill-conditioned to solve at a reachable state. Fatal for the
// simulation instance; never approximated.
var ErrSingularMass = errors.New("lagrange: singular or ill-conditioned mass matrix")

// Guard runs fn and converts the panics raised by the tensor and diff
// packages for caller configuration errors into an ordinary error.
func Guard(fn func()) (err error) {
	defer capture(&err)
	fn()
	return nil
}

// capture converts the panics raised by the tensor and diff packages for
// caller configuration errors into ordinary error returns at the package
// boundary. Anything else keeps propagating.
func capture(err *error) {
	r := recover()
	if r == nil {
		return
	}
	e, ok := r.(error)
	if ok && (errors.Is(e, tensor.ErrShapeMismatch) || errors.Is(e, diff.ErrUnsupported)) {
		*err = e
		return
	}
	panic(r)
}
