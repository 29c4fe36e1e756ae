package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/internal/repo"
	"github.com/dushixiang/spectrum/internal/telegram"
	"github.com/dushixiang/spectrum/internal/xe"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/oklog/ulid/v2"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RebalanceScheduler 调仓调度器
// 所有运行中的策略共用一个 cron 实例，每个策略一个定时条目；
// 每个策略有独立的 tick 互斥锁，上一轮未结束时跳过本轮
type RebalanceScheduler struct {
	logger *zap.Logger
	conf   *config.Config

	strategyService    *StrategyService
	indicatorService   *IndicatorService
	performanceService *PerformanceService
	recommender        Recommender
	decisionRepo       *repo.DecisionRepo
	tg                 *telegram.Telegram

	cron    *cron.Cron
	mu      sync.Mutex
	entries map[string]cron.EntryID
	ticking map[string]*sync.Mutex
}

// NewRebalanceScheduler 创建调仓调度器
func NewRebalanceScheduler(
	db *gorm.DB,
	conf *config.Config,
	strategyService *StrategyService,
	indicatorService *IndicatorService,
	performanceService *PerformanceService,
	recommender Recommender,
	tg *telegram.Telegram,
	logger *zap.Logger,
) *RebalanceScheduler {
	return &RebalanceScheduler{
		logger:             logger,
		conf:               conf,
		strategyService:    strategyService,
		indicatorService:   indicatorService,
		performanceService: performanceService,
		recommender:        recommender,
		decisionRepo:       repo.NewDecisionRepo(db),
		tg:                 tg,
		cron:               cron.New(cron.WithSeconds()),
		entries:            make(map[string]cron.EntryID),
		ticking:            make(map[string]*sync.Mutex),
	}
}

// Start 启动调度器
func (r *RebalanceScheduler) Start() {
	r.cron.Start()
	r.logger.Info("rebalance scheduler started")
}

// Shutdown 停止调度器，等待进行中的调仓完成
func (r *RebalanceScheduler) Shutdown() {
	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.Info("rebalance scheduler stopped")
}

// Resume 进程启动时恢复所有运行中策略的调度
func (r *RebalanceScheduler) Resume(ctx context.Context) error {
	strategies, err := r.strategyService.StrategyRepo.FindByStatus(ctx, models.StrategyStatusRunning)
	if err != nil {
		return err
	}

	for i := range strategies {
		strategy := strategies[i]
		if _, err := r.strategyService.Ledger(strategy.ID); err != nil {
			// 账本恢复失败的策略已被标记为 failed
			continue
		}
		r.schedule(&strategy)
		r.logger.Info("strategy rebalance resumed",
			zap.String("strategy_id", strategy.ID),
			zap.String("name", strategy.Name),
			zap.Int("interval_seconds", strategy.RebalanceIntervalSeconds))
	}
	return nil
}

// StartStrategy 启动策略的周期调仓，并立刻执行一次
func (r *RebalanceScheduler) StartStrategy(ctx context.Context, strategyID string) error {
	strategy, err := r.strategyService.GetStrategy(ctx, strategyID)
	if err != nil {
		return err
	}
	if strategy.Status == models.StrategyStatusRunning {
		return xe.ErrCurrentNotAllowed
	}
	if strategy.Status == models.StrategyStatusFailed {
		return xe.ErrStrategyFailed
	}
	if _, err := r.strategyService.Ledger(strategyID); err != nil {
		return err
	}

	if err := r.strategyService.StrategyRepo.UpdateStatus(ctx, strategyID, models.StrategyStatusRunning); err != nil {
		return err
	}
	strategy.Status = models.StrategyStatusRunning
	r.schedule(strategy)

	go func() {
		if err := r.Tick(context.Background(), strategyID); err != nil {
			r.logger.Error("first rebalance tick failed",
				zap.String("strategy_id", strategyID),
				zap.Error(err))
		}
	}()

	r.logger.Info("strategy started",
		zap.String("strategy_id", strategyID),
		zap.String("name", strategy.Name))
	return nil
}

// StopStrategy 停止策略的周期调仓，幂等，任何状态下都可安全调用
// 进行中的调仓会执行完毕，之后不再触发新的调仓
func (r *RebalanceScheduler) StopStrategy(ctx context.Context, strategyID string) error {
	strategy, err := r.strategyService.GetStrategy(ctx, strategyID)
	if err != nil {
		return err
	}

	r.unschedule(strategyID)
	if strategy.Status != models.StrategyStatusRunning {
		return nil
	}

	if err := r.strategyService.StrategyRepo.UpdateStatus(ctx, strategyID, models.StrategyStatusStopped); err != nil {
		return err
	}

	r.logger.Info("strategy stopped",
		zap.String("strategy_id", strategyID),
		zap.String("name", strategy.Name))
	return nil
}

func (r *RebalanceScheduler) schedule(strategy *models.Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entryID, ok := r.entries[strategy.ID]; ok {
		r.cron.Remove(entryID)
	}

	strategyID := strategy.ID
	spec := fmt.Sprintf("@every %ds", strategy.RebalanceIntervalSeconds)
	entryID, err := r.cron.AddFunc(spec, func() {
		if err := r.Tick(context.Background(), strategyID); err != nil {
			r.logger.Error("rebalance tick failed",
				zap.String("strategy_id", strategyID),
				zap.Error(err))
		}
	})
	if err != nil {
		r.logger.Error("failed to schedule strategy", zap.String("strategy_id", strategyID), zap.Error(err))
		return
	}
	r.entries[strategyID] = entryID
}

func (r *RebalanceScheduler) unschedule(strategyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entryID, ok := r.entries[strategyID]; ok {
		r.cron.Remove(entryID)
		delete(r.entries, strategyID)
	}
}

func (r *RebalanceScheduler) tickMutex(strategyID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.ticking[strategyID]
	if !ok {
		m = &sync.Mutex{}
		r.ticking[strategyID] = m
	}
	return m
}

// Tick 执行一轮调仓
// 上一轮尚未结束时直接跳过；推荐服务失败时记录空决策，策略保持运行
func (r *RebalanceScheduler) Tick(ctx context.Context, strategyID string) error {
	tickMu := r.tickMutex(strategyID)
	if !tickMu.TryLock() {
		r.logger.Warn("previous rebalance still in progress, skipping",
			zap.String("strategy_id", strategyID))
		return nil
	}
	defer tickMu.Unlock()

	strategy, err := r.strategyService.GetStrategy(ctx, strategyID)
	if err != nil {
		return err
	}
	if strategy.Status != models.StrategyStatusRunning {
		return nil
	}

	ledger, err := r.strategyService.Ledger(strategyID)
	if err != nil {
		return err
	}

	tickStarted := time.Now()
	balance := ledger.GetBalance(ctx)
	positions := ledger.GetPositions()

	marketContext := r.indicatorService.CalculateAll(ctx, strategy.Symbols)
	lotSizes := make(map[string]int64, len(strategy.Symbols))
	for _, symbol := range strategy.Symbols {
		lotSizes[symbol] = ledger.LotSize(symbol)
	}
	recentTrades, err := r.performanceService.RecentTrades(ctx, strategyID, 10)
	if err != nil {
		r.logger.Warn("failed to load recent trades", zap.Error(err))
	}

	rc := &RecommendContext{
		StrategyID:      strategy.ID,
		Rules:           strategy.Rules,
		Symbols:         strategy.Symbols,
		Balance:         balance,
		Positions:       positions,
		Market:          marketContext,
		LotSizes:        lotSizes,
		MaxPositionSize: strategy.MaxPositionSize,
		MaxPositions:    strategy.MaxPositions,
		RecentTrades:    recentTrades,
	}

	recommendations, recErr := r.recommender.Recommend(ctx, rc)
	if recErr != nil {
		r.logger.Error("recommender failed, skipping this tick",
			zap.String("strategy_id", strategyID),
			zap.Error(recErr))
	} else {
		for i := range recommendations {
			r.executeRecommendation(ctx, strategy, ledger, &recommendations[i])
		}
	}

	if err := r.saveDecision(ctx, strategy, balance, len(positions), recommendations, recErr, tickStarted); err != nil {
		r.logger.Error("failed to save decision", zap.Error(err))
	}

	finalBalance := ledger.GetBalance(ctx)
	if err := r.performanceService.Record(ctx, strategyID, finalBalance, ledger.InitialCash()); err != nil {
		r.logger.Error("failed to record performance", zap.Error(err))
	}
	if err := r.strategyService.MarkRebalanced(ctx, strategyID, time.Now()); err != nil {
		r.logger.Error("failed to mark rebalance time", zap.Error(err))
	}

	r.notify(strategy, finalBalance, recommendations)

	r.logger.Info("rebalance tick finished",
		zap.String("strategy_id", strategyID),
		zap.Int("recommendations", len(recommendations)),
		zap.Float64("total_assets", finalBalance.TotalAssets),
		zap.Duration("elapsed", time.Since(tickStarted)))
	return nil
}

// executeRecommendation 执行单条建议，结果写回建议本身
func (r *RebalanceScheduler) executeRecommendation(ctx context.Context, strategy *models.Strategy, ledger *exchange.Ledger, rec *Recommendation) {
	if rec.Action == ActionHold {
		return
	}

	symbol := exchange.NormalizeSymbol(rec.Symbol)
	rec.Symbol = symbol

	if !containsSymbol(strategy.Symbols, symbol) {
		rec.Reason += "；未执行：不在股票池中"
		return
	}
	if rec.Lots <= 0 {
		rec.Reason += "；未执行：手数无效"
		return
	}

	quantity := rec.Lots * ledger.LotSize(symbol)

	if rec.Action == ActionBuy {
		adjusted, reason := r.capBuyQuantity(ctx, strategy, ledger, symbol, quantity)
		if adjusted <= 0 {
			rec.Reason += "；未执行：" + reason
			return
		}
		if adjusted < quantity {
			rec.Reason += fmt.Sprintf("；已按持仓上限缩减至 %d 股", adjusted)
			quantity = adjusted
		}
	}

	trade, err := r.strategyService.ExecuteTrade(ctx, strategy.ID, symbol, rec.Action, quantity, nil, rec.Reason)
	if err != nil {
		rec.Reason += "；未执行：" + err.Error()
		r.logger.Warn("recommendation not executed",
			zap.String("strategy_id", strategy.ID),
			zap.String("symbol", symbol),
			zap.String("action", rec.Action),
			zap.Error(err))
		return
	}

	rec.Executed = true
	rec.TradeID = trade.ID
}

// capBuyQuantity 应用持仓品种数与单一持仓规模限制
// 返回允许买入的股数（可能小于请求值）与不可执行时的原因
func (r *RebalanceScheduler) capBuyQuantity(ctx context.Context, strategy *models.Strategy, ledger *exchange.Ledger, symbol string, quantity int64) (int64, string) {
	positions := ledger.GetPositions()

	pos, held := positions[symbol]
	if !held && len(positions) >= strategy.MaxPositions {
		return 0, xe.ErrCapacityExceeded.Error()
	}

	price, err := ledger.ReferencePrice(ctx, symbol)
	if err != nil {
		return 0, xe.ErrSymbolNotFound.Error()
	}

	balance := ledger.GetBalance(ctx)
	maxValue := strategy.MaxPositionSize * balance.TotalAssets
	currentValue := float64(pos.Quantity) * price
	allowedValue := maxValue - currentValue
	if allowedValue <= 0 {
		return 0, xe.ErrPositionSizeExceeded.Error()
	}

	lotSize := ledger.LotSize(symbol)
	maxLots := int64(allowedValue / (price * float64(lotSize)))
	maxQuantity := maxLots * lotSize
	if maxQuantity <= 0 {
		return 0, xe.ErrPositionSizeExceeded.Error()
	}
	if maxQuantity < quantity {
		return maxQuantity, ""
	}
	return quantity, ""
}

func (r *RebalanceScheduler) saveDecision(ctx context.Context, strategy *models.Strategy, balance exchange.Balance, positionCount int, recommendations []Recommendation, recErr error, tickStarted time.Time) error {
	if recommendations == nil {
		recommendations = []Recommendation{}
	}
	payload, err := json.Marshal(recommendations)
	if err != nil {
		return err
	}

	decision := models.Decision{
		ID:                  ulid.Make().String(),
		StrategyID:          strategy.ID,
		PortfolioValue:      balance.TotalAssets,
		Cash:                balance.Cash,
		PositionCount:       positionCount,
		RecommendationCount: len(recommendations),
		Recommendations:     payload,
		TickStartedAt:       tickStarted,
	}
	if recErr != nil {
		decision.Error = recErr.Error()
	}
	return r.decisionRepo.Create(ctx, &decision)
}

// notify 推送本轮执行摘要
func (r *RebalanceScheduler) notify(strategy *models.Strategy, balance exchange.Balance, recommendations []Recommendation) {
	if r.tg == nil || r.conf.Telegram.ChatID == "" {
		return
	}

	executed := make([]Recommendation, 0, len(recommendations))
	for _, rec := range recommendations {
		if rec.Executed {
			executed = append(executed, rec)
		}
	}
	if len(executed) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("*%s* 调仓完成\n", strategy.Name))
	for _, rec := range executed {
		sb.WriteString(fmt.Sprintf("- %s %s %d 手\n", rec.Action, rec.Symbol, rec.Lots))
	}
	sb.WriteString(fmt.Sprintf("总资产：%.2f HKD", balance.TotalAssets))

	if err := r.tg.Notify(r.conf.Telegram.ChatID, sb.String()); err != nil {
		r.logger.Warn("failed to send telegram notification", zap.Error(err))
	}
}

func containsSymbol(symbols []string, symbol string) bool {
	for _, s := range symbols {
		if s == symbol {
			return true
		}
	}
	return false
}
