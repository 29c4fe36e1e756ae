package ta

import (
	"math"
	"testing"
)

func TestLast(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5}
	if got := Last(s, 0); got != 5 {
		t.Errorf("Last(s, 0) = %v, want 5", got)
	}
	if got := Last(s, 2); got != 3 {
		t.Errorf("Last(s, 2) = %v, want 3", got)
	}
}

func TestLastValues(t *testing.T) {
	s := []float64{1, 2, 3, 4, 5}
	got := LastValues(s, 3)
	if len(got) != 3 || got[0] != 3 || got[2] != 5 {
		t.Errorf("LastValues(s, 3) = %v", got)
	}
	if got := LastValues(s, 10); len(got) != 5 {
		t.Errorf("LastValues(s, 10) = %v, want full slice", got)
	}
}

func TestHighestLowest(t *testing.T) {
	s := []float64{5, 9, 2, 7, 4}
	if got := Highest(s, 3); got != 7 {
		t.Errorf("Highest(s, 3) = %v, want 7", got)
	}
	if got := Lowest(s, 3); got != 2 {
		t.Errorf("Lowest(s, 3) = %v, want 2", got)
	}
	if got := Highest(s, 5); got != 9 {
		t.Errorf("Highest(s, 5) = %v, want 9", got)
	}
}

func TestChangePercent(t *testing.T) {
	s := []float64{100, 105, 110}
	if got := ChangePercent(s, 2); math.Abs(got-10) > 1e-9 {
		t.Errorf("ChangePercent(s, 2) = %v, want 10", got)
	}
	// period 超过序列长度时退化到首尾
	if got := ChangePercent(s, 10); math.Abs(got-10) > 1e-9 {
		t.Errorf("ChangePercent(s, 10) = %v, want 10", got)
	}
	if got := ChangePercent([]float64{100}, 5); got != 0 {
		t.Errorf("ChangePercent(single) = %v, want 0", got)
	}
}

func TestCrossoverCrossunder(t *testing.T) {
	up := []float64{1, 3}
	down := []float64{2, 2}

	if !Crossover(up, down) {
		t.Error("expected crossover")
	}
	if Crossunder(up, down) {
		t.Error("unexpected crossunder")
	}
	if !Crossunder(down, up) {
		t.Error("expected crossunder for reversed series")
	}
}
