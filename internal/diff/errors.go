package diff

import "errors"

// ErrUnsupported indicates a function used an operation outside the
// differentiable primitive set, typically branching on a numeric value.
var ErrUnsupported = errors.New("diff: operation outside the differentiable primitive set")
