// Package sim assembles a Lagrangian and a transform chain into the
// three closures the animation host drives: setup, update, and the
// render-coordinate projection.
//
// The host owns the frame clock. Each frame it passes the current time
// to [System.Update], which advances the integrator from the previous
// frame's physical time and returns a fresh [FrameState]; frames have
// value semantics and the previous one is never mutated. The derivative
// closures and their scratch buffers are built once in [Spec.Build];
// per-frame evaluation allocates nothing beyond the dual numbers it
// seeds.
package sim
