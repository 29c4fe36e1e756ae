package service

import (
	"context"

	"github.com/dushixiang/spectrum/pkg/market"
	"github.com/dushixiang/spectrum/pkg/ta"
	"github.com/markcheno/go-talib"
	"go.uber.org/zap"
)

// IndicatorService 技术指标计算服务
// 基于日K线为推荐服务提供每只股票的市场背景
type IndicatorService struct {
	provider market.Provider
	logger   *zap.Logger
}

// NewIndicatorService 创建技术指标服务
func NewIndicatorService(provider market.Provider, logger *zap.Logger) *IndicatorService {
	return &IndicatorService{
		provider: provider,
		logger:   logger,
	}
}

// SymbolContext 单只股票的市场背景
type SymbolContext struct {
	Symbol         string  `json:"symbol"`
	Price          float64 `json:"price"`
	Change5d       float64 `json:"change_5d"`  // 近5日涨跌幅（百分比）
	Change20d      float64 `json:"change_20d"` // 近20日涨跌幅（百分比）
	EMA20          float64 `json:"ema20"`
	EMA50          float64 `json:"ema50"`
	MACD           float64 `json:"macd"`
	MACDSignal     float64 `json:"macd_signal"`
	MACDHist       float64 `json:"macd_hist"`
	RSI14          float64 `json:"rsi14"`
	High20d        float64 `json:"high_20d"` // 近20日最高价
	Low20d         float64 `json:"low_20d"`  // 近20日最低价
	GoldenCross    bool    `json:"golden_cross"` // EMA20 上穿 EMA50
	DeathCross     bool    `json:"death_cross"`  // EMA20 下穿 EMA50
}

// 指标计算所需的最少K线数
const minBars = 50

// CalculateContext 计算单只股票的市场背景，数据不足时返回 nil
func (s *IndicatorService) CalculateContext(ctx context.Context, symbol string) *SymbolContext {
	bars, err := s.provider.GetHistory(ctx, symbol, 120)
	if err != nil {
		s.logger.Warn("failed to fetch history", zap.String("symbol", symbol), zap.Error(err))
		return nil
	}
	if len(bars) < minBars {
		s.logger.Debug("not enough bars for indicators",
			zap.String("symbol", symbol),
			zap.Int("bars", len(bars)))
		return nil
	}

	closes := make([]float64, len(bars))
	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, bar := range bars {
		closes[i] = bar.Close
		highs[i] = bar.High
		lows[i] = bar.Low
	}

	ema20 := talib.Ema(closes, 20)
	ema50 := talib.Ema(closes, 50)
	macd, signal, hist := talib.Macd(closes, 12, 26, 9)
	rsi14 := talib.Rsi(closes, 14)

	return &SymbolContext{
		Symbol:      symbol,
		Price:       ta.Last(closes, 0),
		Change5d:    ta.ChangePercent(closes, 5),
		Change20d:   ta.ChangePercent(closes, 20),
		EMA20:       ta.Last(ema20, 0),
		EMA50:       ta.Last(ema50, 0),
		MACD:        ta.Last(macd, 0),
		MACDSignal:  ta.Last(signal, 0),
		MACDHist:    ta.Last(hist, 0),
		RSI14:       ta.Last(rsi14, 0),
		High20d:     ta.Highest(highs, 20),
		Low20d:      ta.Lowest(lows, 20),
		GoldenCross: ta.Crossover(ema20, ema50),
		DeathCross:  ta.Crossunder(ema20, ema50),
	}
}

// CalculateAll 计算股票池的市场背景，单只失败不影响其余
func (s *IndicatorService) CalculateAll(ctx context.Context, symbols []string) map[string]*SymbolContext {
	result := make(map[string]*SymbolContext, len(symbols))
	for _, symbol := range symbols {
		if sc := s.CalculateContext(ctx, symbol); sc != nil {
			result[symbol] = sc
		}
	}
	return result
}
