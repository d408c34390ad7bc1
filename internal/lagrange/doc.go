// Package lagrange derives equations of motion from a scalar Lagrangian.
//
// A mechanical system is described by a [Lagrangian] over a [Local] tuple
// (time, position, velocity) and an optional chain of coordinate
// transforms. [Promote] lifts a pure position map to the full tuple by
// differentiating it along the incoming velocity; [Pipeline] composes a
// chain of such maps. [Compile] turns the composed Lagrangian into a
// state-derivative function for the integrator by solving the
// Euler-Lagrange equation
//
//	M(t,q,v) a = dL/dq - (dp/dq) v - dp/dt
//
// where p = dL/dv and M = dp/dv, with all partials obtained from the
// internal/diff dual-number engine and the linear solve done by gonum.
//
// Construction-time probing evaluates every client-supplied function once
// with fully perturbed inputs, so shape mismatches and non-differentiable
// operations are reported by Compile or Promote, not mid-integration.
package lagrange
