package service

import (
	"context"
	"math"
	"time"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/internal/repo"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/go-orz/orz"
	"github.com/montanaflynn/stats"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PerformanceService 绩效记录与统计服务
type PerformanceService struct {
	logger *zap.Logger

	*orz.Service
	*repo.PerformancePointRepo
	*repo.TradeRepo
	*repo.DecisionRepo
	*repo.RecommenderLogRepo
}

// NewPerformanceService 创建绩效服务
func NewPerformanceService(db *gorm.DB, logger *zap.Logger) *PerformanceService {
	return &PerformanceService{
		logger:               logger,
		Service:              orz.NewService(db),
		PerformancePointRepo: repo.NewPerformancePointRepo(db),
		TradeRepo:            repo.NewTradeRepo(db),
		DecisionRepo:         repo.NewDecisionRepo(db),
		RecommenderLogRepo:   repo.NewRecommenderLogRepo(db),
	}
}

// Record 记录一个绩效采样点
func (s *PerformanceService) Record(ctx context.Context, strategyID string, balance exchange.Balance, initialCash float64) error {
	pnl := balance.TotalAssets - initialCash
	pnlPercent := 0.0
	if initialCash > 0 {
		pnlPercent = pnl / initialCash * 100
	}

	point := models.PerformancePoint{
		ID:             ulid.Make().String(),
		StrategyID:     strategyID,
		TotalValue:     balance.TotalAssets,
		Cash:           balance.Cash,
		PositionsValue: balance.PositionsValue,
		Pnl:            pnl,
		PnlPercent:     pnlPercent,
		RecordedAt:     time.Now(),
	}
	return s.PerformancePointRepo.Create(ctx, &point)
}

// Curve 绩效曲线，按时间升序
func (s *PerformanceService) Curve(ctx context.Context, strategyID string) ([]models.PerformancePoint, error) {
	return s.PerformancePointRepo.FindByStrategyID(ctx, strategyID)
}

// RecentTrades 最近成交，最新的在前
func (s *PerformanceService) RecentTrades(ctx context.Context, strategyID string, limit int) ([]models.Trade, error) {
	return s.TradeRepo.FindRecentByStrategyID(ctx, strategyID, limit)
}

// RecentDecisions 最近决策记录，最新的在前
func (s *PerformanceService) RecentDecisions(ctx context.Context, strategyID string, limit int) ([]models.Decision, error) {
	return s.DecisionRepo.FindRecentByStrategyID(ctx, strategyID, limit)
}

// RecommenderLogs 最近推荐日志，最新的在前
func (s *PerformanceService) RecommenderLogs(ctx context.Context, strategyID string, limit int) ([]models.RecommenderLog, error) {
	return s.RecommenderLogRepo.FindRecentByStrategyID(ctx, strategyID, limit)
}

// Summary 策略绩效摘要
type Summary struct {
	TotalValue         float64 `json:"total_value"`
	Cash               float64 `json:"cash"`
	PositionsValue     float64 `json:"positions_value"`
	Pnl                float64 `json:"pnl"`
	PnlPercent         float64 `json:"pnl_percent"`
	MaxDrawdownPercent float64 `json:"max_drawdown_percent"`
	SharpeRatio        float64 `json:"sharpe_ratio"`
	TradeCount         int64   `json:"trade_count"`
	WinCount           int     `json:"win_count"`
	LossCount          int     `json:"loss_count"`
	WinRate            float64 `json:"win_rate"`
}

// Summarize 基于绩效曲线与成交记录计算摘要
func (s *PerformanceService) Summarize(ctx context.Context, strategyID string, balance exchange.Balance, initialCash float64) (*Summary, error) {
	points, err := s.PerformancePointRepo.FindByStrategyID(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalValue:     balance.TotalAssets,
		Cash:           balance.Cash,
		PositionsValue: balance.PositionsValue,
		Pnl:            balance.TotalAssets - initialCash,
	}
	if initialCash > 0 {
		summary.PnlPercent = summary.Pnl / initialCash * 100
	}

	summary.MaxDrawdownPercent = maxDrawdownPercent(points)
	summary.SharpeRatio = sharpeRatio(points)

	tradeCount, err := s.TradeRepo.CountByStrategyID(ctx, strategyID)
	if err != nil {
		return nil, err
	}
	summary.TradeCount = tradeCount

	// 胜率只统计卖出（平仓）成交
	trades, err := s.TradeRepo.FindRecentByStrategyID(ctx, strategyID, 1000)
	if err != nil {
		return nil, err
	}
	for _, trade := range trades {
		if trade.Side != exchange.OrderSideSell.String() {
			continue
		}
		if trade.Pnl > 0 {
			summary.WinCount++
		} else {
			summary.LossCount++
		}
	}
	if closed := summary.WinCount + summary.LossCount; closed > 0 {
		summary.WinRate = float64(summary.WinCount) / float64(closed) * 100
	}

	return summary, nil
}

// maxDrawdownPercent 从绩效曲线计算最大回撤百分比
func maxDrawdownPercent(points []models.PerformancePoint) float64 {
	var peak, maxDrawdown float64
	for _, point := range points {
		if point.TotalValue > peak {
			peak = point.TotalValue
		}
		if peak > 0 {
			drawdown := (peak - point.TotalValue) / peak * 100
			if drawdown > maxDrawdown {
				maxDrawdown = drawdown
			}
		}
	}
	return maxDrawdown
}

// sharpeRatio 基于采样点之间的收益率计算年化夏普比率
// 按日频采样近似，少于3个采样点时返回0
func sharpeRatio(points []models.PerformancePoint) float64 {
	if len(points) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(points)-1)
	for i := 1; i < len(points); i++ {
		prev := points[i-1].TotalValue
		if prev <= 0 {
			continue
		}
		returns = append(returns, (points[i].TotalValue-prev)/prev)
	}
	if len(returns) < 2 {
		return 0
	}

	mean, err := stats.Mean(returns)
	if err != nil {
		return 0
	}
	stdDev, err := stats.StandardDeviationSample(returns)
	if err != nil || stdDev == 0 {
		return 0
	}

	return mean / stdDev * math.Sqrt(252)
}
