package gen

import "testing"

func TestNoiseDeterministic(t *testing.T) {
	n1 := NewField(99)
	n2 := NewField(99)

	for i := 0; i < 100; i++ {
		x := float64(i) * 0.15
		y := float64(i) * 0.25
		z := float64(i) * 0.35
		if n1.At(x, y, z) != n2.At(x, y, z) {
			t.Fatalf("At not deterministic at (%f, %f, %f)", x, y, z)
		}
	}
}

func TestNoiseRange(t *testing.T) {
	n := NewField(42)

	for i := 0; i < 10000; i++ {
		x := float64(i)*0.37 - 500
		y := float64(i)*0.53 - 500
		z := float64(i)*0.71 - 500
		if v := n.At(x, y, z); v < -1.0 || v > 1.0 {
			t.Fatalf("At(%f, %f, %f) = %f, out of [-1,1]", x, y, z, v)
		}
	}
}

func TestOctavesRange(t *testing.T) {
	n := NewField(123)

	for i := 0; i < 1000; i++ {
		x := float64(i)*0.1 - 50
		v := n.Octaves(x, x*2, x*3, 4, 0.5)
		if v < -1.0 || v > 1.0 {
			t.Fatalf("Octaves = %f, out of [-1,1]", v)
		}
	}
}

func TestDifferentSeedsDifferentNoise(t *testing.T) {
	n1 := NewField(1)
	n2 := NewField(2)

	for i := 0; i < 100; i++ {
		x := float64(i) * 0.1
		if n1.At(x, x*2, x*3) != n2.At(x, x*2, x*3) {
			return
		}
	}
	t.Error("different seeds should produce different noise")
}
