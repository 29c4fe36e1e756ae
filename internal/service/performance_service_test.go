package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

func TestMaxDrawdownPercent(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   float64
	}{
		{name: "empty", values: nil, want: 0},
		{name: "monotonic up", values: []float64{100, 110, 120}, want: 0},
		{name: "single drawdown", values: []float64{100, 120, 90, 110}, want: 25},
		{name: "recovers then deeper", values: []float64{100, 80, 120, 60}, want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			points := make([]models.PerformancePoint, len(tt.values))
			for i, v := range tt.values {
				points[i] = models.PerformancePoint{TotalValue: v}
			}
			if got := maxDrawdownPercent(points); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("maxDrawdownPercent = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	// 采样点不足时返回0
	if got := sharpeRatio([]models.PerformancePoint{{TotalValue: 100}, {TotalValue: 110}}); got != 0 {
		t.Errorf("sharpeRatio with 2 points = %v, want 0", got)
	}

	// 收益率恒定时标准差为0，返回0
	constant := []models.PerformancePoint{
		{TotalValue: 100}, {TotalValue: 110}, {TotalValue: 121},
	}
	if got := sharpeRatio(constant); got != 0 {
		t.Errorf("sharpeRatio with constant returns = %v, want 0", got)
	}

	// 整体上涨且有波动时为正
	up := []models.PerformancePoint{
		{TotalValue: 100}, {TotalValue: 105}, {TotalValue: 103}, {TotalValue: 112}, {TotalValue: 118},
	}
	if got := sharpeRatio(up); got <= 0 {
		t.Errorf("sharpeRatio for uptrend = %v, want > 0", got)
	}
}

func TestRecordAndCurve(t *testing.T) {
	db := testDB(t)
	svc := NewPerformanceService(db, zap.NewNop())
	ctx := context.Background()

	balance := exchange.Balance{Cash: 950_000, PositionsValue: 70_000, TotalAssets: 1_020_000}
	if err := svc.Record(ctx, "s1", balance, 1_000_000); err != nil {
		t.Fatalf("Record: %v", err)
	}

	points, err := svc.Curve(ctx, "s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 1 {
		t.Fatalf("len(points) = %d, want 1", len(points))
	}
	if math.Abs(points[0].Pnl-20_000) > 1e-9 {
		t.Errorf("pnl = %v, want 20000", points[0].Pnl)
	}
	if math.Abs(points[0].PnlPercent-2) > 1e-9 {
		t.Errorf("pnl percent = %v, want 2", points[0].PnlPercent)
	}
}

func TestSummarizeWinRate(t *testing.T) {
	db := testDB(t)
	svc := NewPerformanceService(db, zap.NewNop())
	ctx := context.Background()

	now := time.Now()
	trades := []models.Trade{
		{ID: ulid.Make().String(), StrategyID: "s1", OrderID: "o1", Symbol: "00700", Side: "BUY", Quantity: 100, Price: 350, ExecutedAt: now.Add(-3 * time.Hour)},
		{ID: ulid.Make().String(), StrategyID: "s1", OrderID: "o2", Symbol: "00700", Side: "SELL", Quantity: 100, Price: 360, Pnl: 949.7, ExecutedAt: now.Add(-2 * time.Hour)},
		{ID: ulid.Make().String(), StrategyID: "s1", OrderID: "o3", Symbol: "00941", Side: "SELL", Quantity: 200, Price: 65, Pnl: -1010, ExecutedAt: now.Add(-time.Hour)},
	}
	for i := range trades {
		if err := svc.TradeRepo.Create(ctx, &trades[i]); err != nil {
			t.Fatal(err)
		}
	}

	balance := exchange.Balance{Cash: 1_000_000, TotalAssets: 1_000_000}
	summary, err := svc.Summarize(ctx, "s1", balance, 1_000_000)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}

	if summary.TradeCount != 3 {
		t.Errorf("trade count = %d, want 3", summary.TradeCount)
	}
	// 胜率只看卖出：1胜1负
	if summary.WinCount != 1 || summary.LossCount != 1 {
		t.Errorf("win/loss = %d/%d, want 1/1", summary.WinCount, summary.LossCount)
	}
	if math.Abs(summary.WinRate-50) > 1e-9 {
		t.Errorf("win rate = %v, want 50", summary.WinRate)
	}
}
