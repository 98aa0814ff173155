package search

import "testing"

func TestNormalize_MapsToUnitRange(t *testing.T) {
	got := Normalize([]float64{1, 5, 3})
	want := []float64{0, 1, 0.5}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("index %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNormalize_ZeroRangeMapsToNeutralMidpoint(t *testing.T) {
	got := Normalize([]float64{4, 4, 4})
	for i, v := range got {
		if v != 0.5 {
			t.Fatalf("index %d: got %v, want 0.5 (not 1.0) for a zero-range input", i, v)
		}
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	got := Normalize(nil)
	if len(got) != 0 {
		t.Fatalf("expected empty output, got %v", got)
	}
}
