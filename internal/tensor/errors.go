package tensor

import "errors"

// ErrShapeMismatch indicates structured operands of incompatible shape or
// variance. Always a configuration error on the caller's side; operations
// panic with an error wrapping this sentinel and the public entry points
// in internal/lagrange recover it into an ordinary error return.
var ErrShapeMismatch = errors.New("tensor: shape mismatch")
