package exchange

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/dushixiang/spectrum/pkg/market"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

// 订单校验与执行错误
var (
	ErrInvalidLotSize       = errors.New("quantity is not a positive multiple of lot size")
	ErrSymbolNotFound       = errors.New("no reference price available for symbol")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrInsufficientPosition = errors.New("insufficient position")
)

// Ledger 模拟交易账本
// 一个策略独占一个账本，是该账户现金与持仓的唯一修改者；
// 内部互斥锁保证定时调仓与手动交易对同一账户的执行串行化
type Ledger struct {
	provider market.Provider
	logger   *zap.Logger

	mu          sync.Mutex
	cash        float64
	initialCash float64
	createdAt   time.Time
	positions   map[string]*Position
	lastPrices  map[string]float64 // symbol -> 最近一次成功获取的参考价
	lotSizes    map[string]int64   // 每手股数覆盖表
	trades      []Trade            // 按成交时间追加

	fees    FeeSchedule
	realism RealismConfig
	rng     *rand.Rand
	sleepFn func(ctx context.Context, d time.Duration)
}

// NewLedger 创建模拟账本
func NewLedger(provider market.Provider, initialCash float64, logger *zap.Logger) *Ledger {
	return &Ledger{
		provider:    provider,
		logger:      logger,
		cash:        initialCash,
		initialCash: initialCash,
		createdAt:   time.Now(),
		positions:   make(map[string]*Position),
		lastPrices:  make(map[string]float64),
		lotSizes:    make(map[string]int64),
		fees:        DefaultHKFeeSchedule(),
		realism:     DefaultRealismConfig(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		sleepFn:     sleepWithContext,
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// SetRand 注入确定性随机源，同一种子下摩擦采样结果一致，用于测试
func (l *Ledger) SetRand(rng *rand.Rand) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rng = rng
}

// SetFeeSchedule 替换费率表
func (l *Ledger) SetFeeSchedule(fees FeeSchedule) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fees = fees
}

// SetLotSize 覆盖某只股票的每手股数
func (l *Ledger) SetLotSize(symbol string, size int64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lotSizes[NormalizeSymbol(symbol)] = size
}

// ConfigureRealism 原子替换摩擦参数，下一次 ExecuteOrder 生效，不影响历史成交
func (l *Ledger) ConfigureRealism(cfg RealismConfig) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.realism = cfg
}

// Realism 当前摩擦参数
func (l *Ledger) Realism() RealismConfig {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.realism
}

// LotSize 查询每手股数
func (l *Ledger) LotSize(symbol string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lotSize(symbol)
}

func (l *Ledger) lotSize(symbol string) int64 {
	if size, ok := l.lotSizes[NormalizeSymbol(symbol)]; ok {
		return size
	}
	return defaultLotSize(symbol)
}

// Cash 当前现金
func (l *Ledger) Cash() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cash
}

// InitialCash 初始资金
func (l *Ledger) InitialCash() float64 {
	return l.initialCash
}

// CreatedAt 账户创建时间
func (l *Ledger) CreatedAt() time.Time {
	return l.createdAt
}

// RestoreState 进程重启后从持久化状态重建账本
func (l *Ledger) RestoreState(cash float64, positions []Position, createdAt time.Time) error {
	if cash < 0 {
		return fmt.Errorf("corrupted account state: negative cash %.2f", cash)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.cash = cash
	l.createdAt = createdAt
	l.positions = make(map[string]*Position, len(positions))
	for i := range positions {
		p := positions[i]
		if p.Quantity <= 0 {
			return fmt.Errorf("corrupted account state: position %s quantity %d", p.Symbol, p.Quantity)
		}
		l.positions[p.Symbol] = &p
	}
	return nil
}

// ReferencePrice 获取参考价，行情不可用时回退到最近缓存价
func (l *Ledger) ReferencePrice(ctx context.Context, symbol string) (float64, error) {
	symbol = NormalizeSymbol(symbol)

	price, err := l.provider.GetReferencePrice(ctx, symbol)
	if err == nil && price > 0 {
		l.mu.Lock()
		l.lastPrices[symbol] = price
		l.mu.Unlock()
		return price, nil
	}

	l.mu.Lock()
	cached, ok := l.lastPrices[symbol]
	l.mu.Unlock()
	if ok {
		return cached, nil
	}

	return 0, fmt.Errorf("%w: %s", ErrSymbolNotFound, symbol)
}

// PlaceOrder 创建订单
// 数量必须是每手股数的正整数倍；市价单要求该股票当前有可用参考价
func (l *Ledger) PlaceOrder(ctx context.Context, symbol string, side OrderSide, quantity int64, limitPrice *float64) (*Order, error) {
	symbol = NormalizeSymbol(symbol)

	lotSize := l.LotSize(symbol)
	if quantity <= 0 || quantity%lotSize != 0 {
		return nil, fmt.Errorf("%w: %s quantity %d, lot size %d", ErrInvalidLotSize, symbol, quantity, lotSize)
	}

	orderType := OrderTypeLimit
	if limitPrice == nil {
		orderType = OrderTypeMarket
		if _, err := l.ReferencePrice(ctx, symbol); err != nil {
			return nil, err
		}
	}

	order := &Order{
		ID:          ulid.Make().String(),
		Symbol:      symbol,
		Side:        side,
		Type:        orderType,
		Quantity:    quantity,
		LimitPrice:  limitPrice,
		Status:      OrderStatusPending,
		SubmittedAt: time.Now(),
	}

	l.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("symbol", symbol),
		zap.String("side", side.String()),
		zap.Int64("quantity", quantity),
		zap.String("type", orderType.String()))

	return order, nil
}

// ExecuteOrder 执行订单
// 成交流程：参考价 → 延迟漂移 → 滑点 → 市场冲击 → 费用 → 资金/持仓变更
func (l *Ledger) ExecuteOrder(ctx context.Context, order *Order) (*Trade, error) {
	basePrice, err := l.basePrice(ctx, order)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	lots := order.Quantity / l.lotSize(order.Symbol)
	fillPrice, breakdown := ApplyFrictions(basePrice, order.Side, lots, l.realism, l.rng)

	if breakdown.Delay > 0 && l.realism.Latency.Await {
		l.sleepFn(ctx, breakdown.Delay)
	}

	notional := fillPrice * float64(order.Quantity)
	fee := l.fees.Calculate(notional)

	var pnl float64
	switch order.Side {
	case OrderSideBuy:
		cost := notional + fee
		if cost > l.cash {
			order.Status = OrderStatusRejected
			return nil, fmt.Errorf("%w: need %.2f, have %.2f", ErrInsufficientFunds, cost, l.cash)
		}

		l.cash -= cost
		l.applyBuy(order.Symbol, order.Quantity, fillPrice)

	case OrderSideSell:
		pos, ok := l.positions[order.Symbol]
		if !ok || pos.Quantity < order.Quantity {
			held := int64(0)
			if ok {
				held = pos.Quantity
			}
			order.Status = OrderStatusRejected
			return nil, fmt.Errorf("%w: %s held %d, selling %d", ErrInsufficientPosition, order.Symbol, held, order.Quantity)
		}

		l.cash += notional - fee
		pnl = (fillPrice-pos.AvgPrice)*float64(order.Quantity) - fee
		pos.Quantity -= order.Quantity
		if pos.Quantity == 0 {
			delete(l.positions, order.Symbol)
		}

	default:
		return nil, fmt.Errorf("unknown order side: %s", order.Side)
	}

	l.lastPrices[order.Symbol] = fillPrice

	trade := Trade{
		ID:         ulid.Make().String(),
		OrderID:    order.ID,
		Symbol:     order.Symbol,
		Side:       order.Side,
		Quantity:   order.Quantity,
		Price:      fillPrice,
		Fee:        fee,
		Pnl:        pnl,
		ExecutedAt: time.Now(),
	}
	l.trades = append(l.trades, trade)
	order.Status = OrderStatusFilled

	l.logger.Info("order filled",
		zap.String("order_id", order.ID),
		zap.String("symbol", order.Symbol),
		zap.String("side", order.Side.String()),
		zap.Int64("quantity", order.Quantity),
		zap.Float64("base_price", basePrice),
		zap.Float64("fill_price", fillPrice),
		zap.Float64("friction_bps", breakdown.TotalBps()),
		zap.Float64("fee", fee),
		zap.Float64("cash", l.cash))

	return &trade, nil
}

// basePrice 确定成交基准价：限价单用限价，市价单用参考价
func (l *Ledger) basePrice(ctx context.Context, order *Order) (float64, error) {
	if order.LimitPrice != nil {
		return *order.LimitPrice, nil
	}
	return l.ReferencePrice(ctx, order.Symbol)
}

// applyBuy 加权平均法更新持仓成本，调用方需持有锁
func (l *Ledger) applyBuy(symbol string, quantity int64, price float64) {
	pos, ok := l.positions[symbol]
	if !ok {
		l.positions[symbol] = &Position{
			Symbol:   symbol,
			Quantity: quantity,
			AvgPrice: price,
		}
		return
	}

	totalCost := pos.AvgPrice*float64(pos.Quantity) + price*float64(quantity)
	pos.Quantity += quantity
	pos.AvgPrice = totalCost / float64(pos.Quantity)
}

// GetBalance 账户估值，永不失败
// 行情暂不可用时使用最近缓存价，再退化到持仓成本价
func (l *Ledger) GetBalance(ctx context.Context) Balance {
	l.mu.Lock()
	symbols := make([]string, 0, len(l.positions))
	for symbol := range l.positions {
		symbols = append(symbols, symbol)
	}
	l.mu.Unlock()

	prices := make(map[string]float64, len(symbols))
	for _, symbol := range symbols {
		if price, err := l.ReferencePrice(ctx, symbol); err == nil {
			prices[symbol] = price
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	positionsValue := 0.0
	for symbol, pos := range l.positions {
		price, ok := prices[symbol]
		if !ok {
			price = pos.AvgPrice
		}
		positionsValue += price * float64(pos.Quantity)
	}

	return Balance{
		Cash:           l.cash,
		PositionsValue: positionsValue,
		TotalAssets:    l.cash + positionsValue,
	}
}

// GetPositions 持仓快照
func (l *Ledger) GetPositions() map[string]Position {
	l.mu.Lock()
	defer l.mu.Unlock()

	result := make(map[string]Position, len(l.positions))
	for symbol, pos := range l.positions {
		result[symbol] = *pos
	}
	return result
}

// GetTrades 最近成交记录，最新的在前
func (l *Ledger) GetTrades(limit int) []Trade {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.trades)
	if limit <= 0 || limit > n {
		limit = n
	}

	result := make([]Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, l.trades[i])
	}
	return result
}
