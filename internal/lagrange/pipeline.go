package lagrange

import "github.com/avasko/laglab/internal/tensor"

// Pipeline is an ordered chain of coordinate transforms. The first
// appended transform is innermost: it sees raw generalized coordinates
// and feeds the next one, matching function composition read
// right-to-left. The zero Pipeline is the identity on both tracks, so an
// empty chain needs no special casing anywhere.
type Pipeline struct {
	stack []Transform
}

// Append adds a transform outside the current chain.
func (p *Pipeline) Append(f Transform) {
	p.stack = append(p.stack, f)
}

// Len returns the number of transforms in the chain.
func (p *Pipeline) Len() int { return len(p.stack) }

// Lifted returns the composition of all transforms promoted to the full
// phase tuple.
func (p *Pipeline) Lifted() LiftedTransform {
	lifted := make([]LiftedTransform, len(p.stack))
	for i, f := range p.stack {
		lifted[i] = Promote(f)
	}
	return func(l Local) Local {
		for _, lt := range lifted {
			l = lt(l)
		}
		return l
	}
}

// Positional returns the position-only projection of the chain, used by
// the render path, which never needs velocities.
func (p *Pipeline) Positional() Transform {
	stack := p.stack
	return func(q *tensor.Struct) *tensor.Struct {
		for _, f := range stack {
			q = f(q)
		}
		return q
	}
}
