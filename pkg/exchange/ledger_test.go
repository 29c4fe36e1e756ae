package exchange

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/dushixiang/spectrum/pkg/market"
	"go.uber.org/zap"
)

// stubProvider 固定价格行情源
type stubProvider struct {
	prices map[string]float64
	err    error
}

func (p *stubProvider) GetReferencePrice(_ context.Context, symbol string) (float64, error) {
	if p.err != nil {
		return 0, p.err
	}
	price, ok := p.prices[symbol]
	if !ok {
		return 0, market.ErrUnavailable
	}
	return price, nil
}

func (p *stubProvider) GetHistory(_ context.Context, _ string, _ int) ([]market.Bar, error) {
	return nil, market.ErrUnavailable
}

func newTestLedger(prices map[string]float64, initialCash float64) (*Ledger, *stubProvider) {
	provider := &stubProvider{prices: prices}
	ledger := NewLedger(provider, initialCash, zap.NewNop())
	ledger.ConfigureRealism(DisabledRealismConfig())
	return ledger, provider
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestLedgerBuyFlow(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	order, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Status != OrderStatusPending {
		t.Errorf("order status = %v, want pending", order.Status)
	}

	trade, err := ledger.ExecuteOrder(ctx, order)
	if err != nil {
		t.Fatalf("ExecuteOrder: %v", err)
	}

	// 35000 * 0.001397 = 48.895
	if !almostEqual(trade.Fee, 48.895) {
		t.Errorf("fee = %v, want 48.895", trade.Fee)
	}
	if !almostEqual(trade.Price, 350.0) {
		t.Errorf("price = %v, want 350.0", trade.Price)
	}
	if !almostEqual(ledger.Cash(), 964951.105) {
		t.Errorf("cash = %v, want 964951.105", ledger.Cash())
	}
	if order.Status != OrderStatusFilled {
		t.Errorf("order status = %v, want filled", order.Status)
	}

	positions := ledger.GetPositions()
	pos, ok := positions["00700"]
	if !ok {
		t.Fatal("position not found")
	}
	if pos.Quantity != 100 || !almostEqual(pos.AvgPrice, 350.0) {
		t.Errorf("position = %+v, want 100 @ 350.0", pos)
	}

	balance := ledger.GetBalance(ctx)
	if !almostEqual(balance.TotalAssets, 999951.105) {
		t.Errorf("total assets = %v, want 999951.105", balance.TotalAssets)
	}
}

func TestLedgerSellFlow(t *testing.T) {
	ctx := context.Background()
	ledger, provider := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	order, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if _, err := ledger.ExecuteOrder(ctx, order); err != nil {
		t.Fatalf("ExecuteOrder buy: %v", err)
	}

	// 价格上涨后卖出
	provider.prices["00700"] = 360.0

	sellOrder, err := ledger.PlaceOrder(ctx, "00700", OrderSideSell, 100, nil)
	if err != nil {
		t.Fatalf("PlaceOrder sell: %v", err)
	}
	trade, err := ledger.ExecuteOrder(ctx, sellOrder)
	if err != nil {
		t.Fatalf("ExecuteOrder sell: %v", err)
	}

	// 36000 * 0.001397 = 50.292
	if !almostEqual(trade.Fee, 50.292) {
		t.Errorf("fee = %v, want 50.292", trade.Fee)
	}
	// (360-350)*100 - 50.292
	if !almostEqual(trade.Pnl, 949.708) {
		t.Errorf("pnl = %v, want 949.708", trade.Pnl)
	}
	if !almostEqual(ledger.Cash(), 1000900.813) {
		t.Errorf("cash = %v, want 1000900.813", ledger.Cash())
	}

	if len(ledger.GetPositions()) != 0 {
		t.Error("position should be removed after full close")
	}
}

func TestLedgerWeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	ledger, provider := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	first, _ := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if _, err := ledger.ExecuteOrder(ctx, first); err != nil {
		t.Fatalf("first buy: %v", err)
	}

	provider.prices["00700"] = 360.0
	second, _ := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if _, err := ledger.ExecuteOrder(ctx, second); err != nil {
		t.Fatalf("second buy: %v", err)
	}

	pos := ledger.GetPositions()["00700"]
	if pos.Quantity != 200 || !almostEqual(pos.AvgPrice, 355.0) {
		t.Errorf("position = %+v, want 200 @ 355.0", pos)
	}
}

func TestLedgerLotValidation(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	tests := []struct {
		name     string
		quantity int64
	}{
		{name: "not a lot multiple", quantity: 150},
		{name: "zero", quantity: 0},
		{name: "negative", quantity: -100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, tt.quantity, nil)
			if !errors.Is(err, ErrInvalidLotSize) {
				t.Errorf("err = %v, want ErrInvalidLotSize", err)
			}
		})
	}
}

func TestLedgerLotSizeOverride(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"12345": 10.0}, 1_000_000)

	ledger.SetLotSize("12345", 2000)
	if got := ledger.LotSize("12345"); got != 2000 {
		t.Fatalf("LotSize = %d, want 2000", got)
	}

	if _, err := ledger.PlaceOrder(ctx, "12345", OrderSideBuy, 1000, nil); !errors.Is(err, ErrInvalidLotSize) {
		t.Errorf("err = %v, want ErrInvalidLotSize", err)
	}
	if _, err := ledger.PlaceOrder(ctx, "12345", OrderSideBuy, 2000, nil); err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

func TestLedgerUnknownSymbol(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{}, 1_000_000)

	_, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if !errors.Is(err, ErrSymbolNotFound) {
		t.Errorf("err = %v, want ErrSymbolNotFound", err)
	}
}

func TestLedgerInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 10_000)

	order, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	_, err = ledger.ExecuteOrder(ctx, order)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
	if order.Status != OrderStatusRejected {
		t.Errorf("order status = %v, want rejected", order.Status)
	}
	if !almostEqual(ledger.Cash(), 10_000) {
		t.Errorf("cash changed after rejected order: %v", ledger.Cash())
	}
}

func TestLedgerInsufficientPosition(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	buy, _ := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if _, err := ledger.ExecuteOrder(ctx, buy); err != nil {
		t.Fatalf("buy: %v", err)
	}

	sell, _ := ledger.PlaceOrder(ctx, "00700", OrderSideSell, 200, nil)
	_, err := ledger.ExecuteOrder(ctx, sell)
	if !errors.Is(err, ErrInsufficientPosition) {
		t.Errorf("err = %v, want ErrInsufficientPosition", err)
	}

	// 持仓不变
	if pos := ledger.GetPositions()["00700"]; pos.Quantity != 100 {
		t.Errorf("position quantity = %d, want 100", pos.Quantity)
	}
}

func TestLedgerPriceCacheFallback(t *testing.T) {
	ctx := context.Background()
	ledger, provider := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	buy, _ := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if _, err := ledger.ExecuteOrder(ctx, buy); err != nil {
		t.Fatalf("buy: %v", err)
	}

	// 行情不可用时估值退化到最近缓存价
	provider.err = market.ErrUnavailable

	price, err := ledger.ReferencePrice(ctx, "00700")
	if err != nil {
		t.Fatalf("ReferencePrice with cache: %v", err)
	}
	if !almostEqual(price, 350.0) {
		t.Errorf("cached price = %v, want 350.0", price)
	}

	balance := ledger.GetBalance(ctx)
	if !almostEqual(balance.PositionsValue, 35000) {
		t.Errorf("positions value = %v, want 35000", balance.PositionsValue)
	}
}

func TestLedgerGetTradesOrder(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0, "00941": 70.0}, 1_000_000)

	first, _ := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, nil)
	if _, err := ledger.ExecuteOrder(ctx, first); err != nil {
		t.Fatal(err)
	}
	second, _ := ledger.PlaceOrder(ctx, "00941", OrderSideBuy, 200, nil)
	if _, err := ledger.ExecuteOrder(ctx, second); err != nil {
		t.Fatal(err)
	}

	trades := ledger.GetTrades(10)
	if len(trades) != 2 {
		t.Fatalf("len(trades) = %d, want 2", len(trades))
	}
	if trades[0].Symbol != "00941" || trades[1].Symbol != "00700" {
		t.Errorf("trades not in newest-first order: %v, %v", trades[0].Symbol, trades[1].Symbol)
	}

	if got := ledger.GetTrades(1); len(got) != 1 || got[0].Symbol != "00941" {
		t.Errorf("GetTrades(1) = %+v", got)
	}
}

func TestLedgerDeterministicWithSeed(t *testing.T) {
	ctx := context.Background()
	cfg := RealismConfig{
		Slippage: SlippageConfig{Enabled: true, MinBps: 3, MaxBps: 10},
		Impact:   ImpactConfig{Enabled: true, ThresholdLots: 500, BpsPer1000Lots: 5, MaxBps: 100},
	}

	run := func() float64 {
		ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 100_000_000)
		ledger.ConfigureRealism(cfg)
		ledger.SetRand(rand.New(rand.NewSource(7)))
		order, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100_000, nil)
		if err != nil {
			t.Fatalf("PlaceOrder: %v", err)
		}
		trade, err := ledger.ExecuteOrder(ctx, order)
		if err != nil {
			t.Fatalf("ExecuteOrder: %v", err)
		}
		return trade.Price
	}

	price1 := run()
	price2 := run()
	if price1 != price2 {
		t.Errorf("same seed produced different fill prices: %v vs %v", price1, price2)
	}
	if price1 <= 350.0 {
		t.Errorf("buy fill price %v should be above reference with frictions on", price1)
	}
}

func TestLedgerRestoreState(t *testing.T) {
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	createdAt := time.Now().Add(-24 * time.Hour)
	err := ledger.RestoreState(900_000, []Position{
		{Symbol: "00700", Quantity: 200, AvgPrice: 345.5},
	}, createdAt)
	if err != nil {
		t.Fatalf("RestoreState: %v", err)
	}

	if !almostEqual(ledger.Cash(), 900_000) {
		t.Errorf("cash = %v, want 900000", ledger.Cash())
	}
	if pos := ledger.GetPositions()["00700"]; pos.Quantity != 200 || !almostEqual(pos.AvgPrice, 345.5) {
		t.Errorf("position = %+v", pos)
	}
	if !ledger.CreatedAt().Equal(createdAt) {
		t.Errorf("createdAt = %v, want %v", ledger.CreatedAt(), createdAt)
	}
}

func TestLedgerRestoreStateCorrupted(t *testing.T) {
	ledger, _ := newTestLedger(nil, 1_000_000)

	if err := ledger.RestoreState(-1, nil, time.Now()); err == nil {
		t.Error("negative cash should be rejected")
	}
	if err := ledger.RestoreState(100, []Position{{Symbol: "00700", Quantity: 0}}, time.Now()); err == nil {
		t.Error("non-positive position quantity should be rejected")
	}
}

func TestLedgerLimitOrderFillsAtLimit(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(map[string]float64{"00700": 350.0}, 1_000_000)

	limit := 348.0
	order, err := ledger.PlaceOrder(ctx, "00700", OrderSideBuy, 100, &limit)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	if order.Type != OrderTypeLimit {
		t.Errorf("order type = %v, want LIMIT", order.Type)
	}

	trade, err := ledger.ExecuteOrder(ctx, order)
	if err != nil {
		t.Fatalf("ExecuteOrder: %v", err)
	}
	if !almostEqual(trade.Price, 348.0) {
		t.Errorf("fill price = %v, want 348.0", trade.Price)
	}
}
