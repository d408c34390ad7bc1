package integrators

import "errors"

// ErrIntegration indicates a step could not be completed: numeric
// divergence, step-size underflow, or a failing derivative. The caller's
// state buffer is never modified when an Advance or Step reports it.
var ErrIntegration = errors.New("integrators: integration failure")
