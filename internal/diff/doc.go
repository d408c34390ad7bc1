// Package diff implements forward-mode automatic differentiation over a
// closed primitive set.
//
// Values of type [Scalar] are either literal numbers ([Const]) or tagged
// dual numbers carrying a derivative part. All arithmetic goes through the
// package functions:
//
//   - [Add], [Sub], [Mul], [Div], [Neg]: field operations
//   - [Sin], [Cos], [Sqrt], [Pow]: scalar transcendentals and powers
//   - [Bundle], [Primal], [Tangent]: seed and extract derivatives
//
// Nesting duals with distinct tags yields higher-order derivatives, which
// the Euler-Lagrange construction needs for the mass matrix.
//
// Functions built from these primitives are differentiated exactly, to
// machine precision. A function that inspects a scalar's numeric value
// (via [Float]) while being differentiated triggers ErrUnsupported; the
// callers in internal/lagrange run a probe evaluation at build time so
// such functions are rejected before integration starts.
//
// # Thread Safety
//
// Evaluation is side-effect free. Tag allocation uses an atomic counter
// and is safe for concurrent use, although the simulation itself is
// single-threaded.
package diff
