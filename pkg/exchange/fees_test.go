package exchange

import (
	"math"
	"testing"
)

func TestDefaultHKFeeScheduleCalculate(t *testing.T) {
	fees := DefaultHKFeeSchedule()

	tests := []struct {
		name     string
		notional float64
		want     float64
	}{
		{name: "zero notional", notional: 0, want: 0},
		{name: "35000 notional", notional: 35000, want: 48.895},
		{name: "100000 notional", notional: 100000, want: 139.7},
		{name: "small notional", notional: 1000, want: 1.397},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := fees.Calculate(tt.notional)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Calculate(%v) = %v, want %v", tt.notional, got, tt.want)
			}
		})
	}
}

func TestCombinedRate(t *testing.T) {
	fees := DefaultHKFeeSchedule()
	if got, want := fees.CombinedRate(), 0.001397; math.Abs(got-want) > 1e-12 {
		t.Errorf("CombinedRate() = %v, want %v", got, want)
	}
}
