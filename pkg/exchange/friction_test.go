package exchange

import (
	"math"
	"math/rand"
	"testing"
)

func TestApplyFrictionsDisabled(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	price, breakdown := ApplyFrictions(350.0, OrderSideBuy, 10, DisabledRealismConfig(), rng)

	if price != 350.0 {
		t.Errorf("price = %v, want 350.0", price)
	}
	if breakdown.TotalBps() != 0 {
		t.Errorf("TotalBps() = %v, want 0", breakdown.TotalBps())
	}
	if breakdown.Delay != 0 {
		t.Errorf("Delay = %v, want 0", breakdown.Delay)
	}
}

func TestApplyFrictionsAdverseDirection(t *testing.T) {
	// min=max 时采样结果固定，便于断言方向
	cfg := RealismConfig{
		Slippage: SlippageConfig{Enabled: true, MinBps: 10, MaxBps: 10},
	}
	rng := rand.New(rand.NewSource(1))

	buyPrice, _ := ApplyFrictions(350.0, OrderSideBuy, 1, cfg, rng)
	if math.Abs(buyPrice-350.35) > 1e-9 {
		t.Errorf("buy price = %v, want 350.35", buyPrice)
	}

	sellPrice, _ := ApplyFrictions(350.0, OrderSideSell, 1, cfg, rng)
	if math.Abs(sellPrice-349.65) > 1e-9 {
		t.Errorf("sell price = %v, want 349.65", sellPrice)
	}

	if buyPrice <= 350.0 {
		t.Error("buy price should be above reference")
	}
	if sellPrice >= 350.0 {
		t.Error("sell price should be below reference")
	}
}

func TestApplyFrictionsDeterministic(t *testing.T) {
	cfg := DefaultRealismConfig()

	rng1 := rand.New(rand.NewSource(42))
	rng2 := rand.New(rand.NewSource(42))

	price1, b1 := ApplyFrictions(350.0, OrderSideBuy, 600, cfg, rng1)
	price2, b2 := ApplyFrictions(350.0, OrderSideBuy, 600, cfg, rng2)

	if price1 != price2 {
		t.Errorf("same seed produced different prices: %v vs %v", price1, price2)
	}
	if b1 != b2 {
		t.Errorf("same seed produced different breakdowns: %+v vs %+v", b1, b2)
	}
}

func TestImpactBps(t *testing.T) {
	cfg := ImpactConfig{
		Enabled:        true,
		ThresholdLots:  500,
		BpsPer1000Lots: 5,
		MaxBps:         100,
	}

	tests := []struct {
		name string
		lots int64
		want float64
	}{
		{name: "below threshold", lots: 100, want: 0},
		{name: "at threshold", lots: 500, want: 0},
		{name: "1500 lots", lots: 1500, want: 5},
		{name: "2500 lots", lots: 2500, want: 10},
		{name: "capped", lots: 500 + 30000, want: 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ImpactBps(tt.lots, cfg); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ImpactBps(%d) = %v, want %v", tt.lots, got, tt.want)
			}
		})
	}
}

func TestImpactBpsMonotonic(t *testing.T) {
	cfg := ImpactConfig{
		Enabled:        true,
		ThresholdLots:  500,
		BpsPer1000Lots: 5,
		MaxBps:         100,
	}

	prev := 0.0
	for lots := int64(0); lots <= 40000; lots += 100 {
		got := ImpactBps(lots, cfg)
		if got < prev {
			t.Fatalf("impact decreased at %d lots: %v < %v", lots, got, prev)
		}
		if got > cfg.MaxBps {
			t.Fatalf("impact exceeded cap at %d lots: %v", lots, got)
		}
		prev = got
	}
}

func TestImpactBpsDisabled(t *testing.T) {
	cfg := ImpactConfig{ThresholdLots: 500, BpsPer1000Lots: 5, MaxBps: 100}
	if got := ImpactBps(10000, cfg); got != 0 {
		t.Errorf("ImpactBps with disabled config = %v, want 0", got)
	}
}
