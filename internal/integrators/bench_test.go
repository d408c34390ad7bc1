package integrators

import "testing"

func BenchmarkRK4(b *testing.B) {
	r := NewRK4()
	y := []float64{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = r.Step(oscillator, y, 0, 0.01)
	}
}

func BenchmarkRK45Advance(b *testing.B) {
	r := NewRK45(1e-9)
	y := []float64{1, 0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		from := float64(i) * 0.016
		_ = r.Advance(oscillator, y, from, from+0.016)
	}
}
