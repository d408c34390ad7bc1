package metrics

import "math"

// Metric observes flat states during a headless run and reduces them to
// one number for the run report.
type Metric interface {
	Name() string
	Observe(t float64, y []float64)
	Value() float64
	Reset()
}

// EnergyFunc evaluates a system's total energy at a flat state.
type EnergyFunc func(t float64, y []float64) (float64, error)

// EnergyDrift tracks the worst relative deviation of total energy from
// its first observed value. For a time-independent Lagrangian any drift
// is integrator error, which makes this the main accuracy report of a
// run.
type EnergyDrift struct {
	energy   EnergyFunc
	initial  float64
	maxDrift float64
	samples  int
	skipped  int
}

func NewEnergyDrift(energy EnergyFunc) *EnergyDrift {
	return &EnergyDrift{energy: energy}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(t float64, y []float64) {
	val, err := e.energy(t, y)
	if err != nil {
		e.skipped++
		return
	}
	if e.samples == 0 {
		e.initial = val
	}
	e.samples++
	denom := math.Abs(e.initial)
	if denom < 1 {
		denom = 1
	}
	drift := math.Abs(val-e.initial) / denom
	e.maxDrift = math.Max(e.maxDrift, drift)
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

// Skipped reports how many observations were dropped because the energy
// function failed, so a drift of zero over a failing run is not mistaken
// for conservation.
func (e *EnergyDrift) Skipped() int { return e.skipped }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
	e.samples = 0
	e.skipped = 0
}

// Excursion records the largest absolute value reached by one slot of
// the flat state, e.g. the peak angle of a pendulum run.
type Excursion struct {
	index int
	max   float64
}

func NewExcursion(index int) *Excursion {
	return &Excursion{index: index}
}

func (m *Excursion) Name() string { return "excursion" }

func (m *Excursion) Observe(t float64, y []float64) {
	if m.index < len(y) {
		m.max = math.Max(m.max, math.Abs(y[m.index]))
	}
}

func (m *Excursion) Value() float64 { return m.max }

func (m *Excursion) Reset() { m.max = 0 }
