package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/internal/repo"
	"github.com/dushixiang/spectrum/internal/xe"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/dushixiang/spectrum/pkg/market"
	"github.com/go-orz/orz"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// StrategyService 策略生命周期与交易执行服务
// 每个策略独占一个内存账本，数据库中的账户/持仓是账本的持久化镜像，
// 成交后在同一事务内落盘，进程重启时据此重建账本
type StrategyService struct {
	logger *zap.Logger

	*orz.Service
	*repo.StrategyRepo
	*repo.AccountRepo
	*repo.PositionRepo
	*repo.OrderRepo
	*repo.TradeRepo

	provider market.Provider
	conf     *config.Config

	mu      sync.RWMutex
	ledgers map[string]*ledgerEntry
}

type ledgerEntry struct {
	ledger    *exchange.Ledger
	accountID string
}

// NewStrategyService 创建策略服务
func NewStrategyService(db *gorm.DB, provider market.Provider, conf *config.Config, logger *zap.Logger) *StrategyService {
	return &StrategyService{
		logger:       logger,
		Service:      orz.NewService(db),
		StrategyRepo: repo.NewStrategyRepo(db),
		AccountRepo:  repo.NewAccountRepo(db),
		PositionRepo: repo.NewPositionRepo(db),
		OrderRepo:    repo.NewOrderRepo(db),
		TradeRepo:    repo.NewTradeRepo(db),
		provider:     provider,
		conf:         conf,
		ledgers:      make(map[string]*ledgerEntry),
	}
}

// CreateStrategyParams 创建策略参数
type CreateStrategyParams struct {
	Name                     string   `json:"name" validate:"required"`
	Symbols                  []string `json:"symbols" validate:"required,min=1"`
	Rules                    string   `json:"rules"`
	InitialCapital           float64  `json:"initial_capital"`
	MaxPositionSize          float64  `json:"max_position_size"`
	MaxPositions             int      `json:"max_positions"`
	RebalanceIntervalSeconds int      `json:"rebalance_interval_seconds"`
}

// CreateStrategy 创建策略及其账户，未填参数使用全局默认值
func (s *StrategyService) CreateStrategy(ctx context.Context, params CreateStrategyParams) (*models.Strategy, error) {
	exists, err := s.StrategyRepo.ExistsByName(ctx, params.Name)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, xe.ErrStrategyNameUsed
	}

	if params.InitialCapital <= 0 {
		params.InitialCapital = s.conf.Trading.DefaultInitialCapital
	}
	if params.MaxPositionSize <= 0 || params.MaxPositionSize > 1 {
		params.MaxPositionSize = s.conf.Trading.DefaultMaxPositionSize
	}
	if params.MaxPositions <= 0 {
		params.MaxPositions = s.conf.Trading.DefaultMaxPositions
	}
	if params.RebalanceIntervalSeconds <= 0 {
		params.RebalanceIntervalSeconds = s.conf.Trading.DefaultIntervalSeconds
	}

	symbols := make([]string, 0, len(params.Symbols))
	for _, symbol := range params.Symbols {
		symbols = append(symbols, exchange.NormalizeSymbol(symbol))
	}

	strategy := models.Strategy{
		ID:                       ulid.Make().String(),
		Name:                     params.Name,
		Symbols:                  symbols,
		Rules:                    params.Rules,
		InitialCapital:           params.InitialCapital,
		MaxPositionSize:          params.MaxPositionSize,
		MaxPositions:             params.MaxPositions,
		RebalanceIntervalSeconds: params.RebalanceIntervalSeconds,
		Status:                   models.StrategyStatusCreated,
	}
	account := models.Account{
		ID:          ulid.Make().String(),
		StrategyID:  strategy.ID,
		Cash:        params.InitialCapital,
		InitialCash: params.InitialCapital,
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		if err := s.StrategyRepo.Create(ctx, &strategy); err != nil {
			return err
		}
		return s.AccountRepo.Create(ctx, &account)
	})
	if err != nil {
		return nil, err
	}

	ledger := exchange.NewLedger(s.provider, account.InitialCash, s.logger)
	ledger.ConfigureRealism(s.conf.RealismConfig())
	s.putLedger(strategy.ID, ledger, account.ID)

	s.logger.Info("strategy created",
		zap.String("strategy_id", strategy.ID),
		zap.String("name", strategy.Name),
		zap.Float64("initial_capital", strategy.InitialCapital))

	return &strategy, nil
}

// UpdateStrategyParams 更新策略参数，nil 表示不修改
type UpdateStrategyParams struct {
	Name                     *string  `json:"name"`
	Rules                    *string  `json:"rules"`
	Symbols                  []string `json:"symbols"`
	MaxPositionSize          *float64 `json:"max_position_size"`
	MaxPositions             *int     `json:"max_positions"`
	RebalanceIntervalSeconds *int     `json:"rebalance_interval_seconds"`
}

// UpdateStrategy 更新策略配置
// 股票池仅在策略未运行时可改；调仓周期变更在下次启动时生效
func (s *StrategyService) UpdateStrategy(ctx context.Context, id string, params UpdateStrategyParams) (*models.Strategy, error) {
	strategy, err := s.GetStrategy(ctx, id)
	if err != nil {
		return nil, err
	}

	if params.Name != nil && *params.Name != strategy.Name {
		exists, err := s.StrategyRepo.ExistsByName(ctx, *params.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, xe.ErrStrategyNameUsed
		}
		strategy.Name = *params.Name
	}
	if params.Rules != nil {
		strategy.Rules = *params.Rules
	}
	if len(params.Symbols) > 0 {
		if strategy.Status == models.StrategyStatusRunning {
			return nil, xe.ErrCurrentNotAllowed
		}
		symbols := make([]string, 0, len(params.Symbols))
		for _, symbol := range params.Symbols {
			symbols = append(symbols, exchange.NormalizeSymbol(symbol))
		}
		strategy.Symbols = symbols
	}
	if params.MaxPositionSize != nil && *params.MaxPositionSize > 0 && *params.MaxPositionSize <= 1 {
		strategy.MaxPositionSize = *params.MaxPositionSize
	}
	if params.MaxPositions != nil && *params.MaxPositions > 0 {
		strategy.MaxPositions = *params.MaxPositions
	}
	if params.RebalanceIntervalSeconds != nil && *params.RebalanceIntervalSeconds > 0 {
		strategy.RebalanceIntervalSeconds = *params.RebalanceIntervalSeconds
	}

	if err := s.StrategyRepo.Save(ctx, strategy); err != nil {
		return nil, err
	}
	return strategy, nil
}

// GetStrategy 查询策略
func (s *StrategyService) GetStrategy(ctx context.Context, id string) (*models.Strategy, error) {
	strategy, err := s.StrategyRepo.FindById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, xe.ErrStrategyNotFound
		}
		return nil, err
	}
	return &strategy, nil
}

// ListStrategies 查询全部策略
func (s *StrategyService) ListStrategies(ctx context.Context) ([]models.Strategy, error) {
	return s.StrategyRepo.FindAll(ctx)
}

// DeleteStrategy 删除策略及其账户数据，运行中的策略不允许删除
func (s *StrategyService) DeleteStrategy(ctx context.Context, id string) error {
	strategy, err := s.GetStrategy(ctx, id)
	if err != nil {
		return err
	}
	if strategy.Status == models.StrategyStatusRunning {
		return xe.ErrStrategyNotStopped
	}

	account, err := s.AccountRepo.FindByStrategyID(ctx, id)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	err = s.Transaction(ctx, func(ctx context.Context) error {
		if account.ID != "" {
			if err := s.PositionRepo.DeleteByAccountID(ctx, account.ID); err != nil {
				return err
			}
			if err := s.AccountRepo.DeleteByStrategyID(ctx, id); err != nil {
				return err
			}
		}
		return s.StrategyRepo.DeleteById(ctx, id)
	})
	if err != nil {
		return err
	}

	s.removeLedger(id)
	s.logger.Info("strategy deleted", zap.String("strategy_id", id))
	return nil
}

// Ledger 获取策略账本
func (s *StrategyService) Ledger(id string) (*exchange.Ledger, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.ledgers[id]
	if !ok {
		return nil, xe.ErrStrategyNotFound
	}
	return entry.ledger, nil
}

func (s *StrategyService) putLedger(strategyID string, ledger *exchange.Ledger, accountID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledgers[strategyID] = &ledgerEntry{ledger: ledger, accountID: accountID}
}

func (s *StrategyService) removeLedger(strategyID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.ledgers, strategyID)
}

// LoadStrategies 进程启动时重建全部策略账本
// 账户状态损坏的策略标记为 failed，不影响其他策略恢复
func (s *StrategyService) LoadStrategies(ctx context.Context) error {
	strategies, err := s.StrategyRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	for i := range strategies {
		strategy := strategies[i]
		if err := s.restoreLedger(ctx, &strategy); err != nil {
			s.logger.Error("failed to restore strategy, marking as failed",
				zap.String("strategy_id", strategy.ID),
				zap.String("name", strategy.Name),
				zap.Error(err))
			if err := s.StrategyRepo.UpdateStatus(ctx, strategy.ID, models.StrategyStatusFailed); err != nil {
				s.logger.Error("failed to update strategy status", zap.Error(err))
			}
			continue
		}
		s.logger.Info("strategy restored",
			zap.String("strategy_id", strategy.ID),
			zap.String("name", strategy.Name),
			zap.String("status", strategy.Status))
	}
	return nil
}

func (s *StrategyService) restoreLedger(ctx context.Context, strategy *models.Strategy) error {
	account, err := s.AccountRepo.FindByStrategyID(ctx, strategy.ID)
	if err != nil {
		return fmt.Errorf("load account: %w", err)
	}

	rows, err := s.PositionRepo.FindByAccountID(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}

	positions := make([]exchange.Position, 0, len(rows))
	for _, row := range rows {
		positions = append(positions, exchange.Position{
			Symbol:   row.Symbol,
			Quantity: row.Quantity,
			AvgPrice: row.AvgPrice,
		})
	}

	ledger := exchange.NewLedger(s.provider, account.InitialCash, s.logger)
	ledger.ConfigureRealism(s.conf.RealismConfig())
	if err := ledger.RestoreState(account.Cash, positions, account.CreatedAt); err != nil {
		return err
	}

	s.putLedger(strategy.ID, ledger, account.ID)
	return nil
}

// ExecuteTrade 执行一笔交易并持久化结果
// 定时调仓与手动交易都走这里，由账本内部互斥锁保证串行
func (s *StrategyService) ExecuteTrade(ctx context.Context, strategyID, symbol, side string, quantity int64, limitPrice *float64, reason string) (*models.Trade, error) {
	strategy, err := s.GetStrategy(ctx, strategyID)
	if err != nil {
		return nil, err
	}

	ledger, err := s.Ledger(strategyID)
	if err != nil {
		return nil, err
	}

	orderSide, err := parseOrderSide(side)
	if err != nil {
		return nil, err
	}

	order, err := ledger.PlaceOrder(ctx, symbol, orderSide, quantity, limitPrice)
	if err != nil {
		return nil, mapExchangeError(err)
	}

	orderRow := models.Order{
		ID:          order.ID,
		StrategyID:  strategy.ID,
		Symbol:      order.Symbol,
		Side:        order.Side.String(),
		Type:        order.Type.String(),
		Quantity:    order.Quantity,
		LimitPrice:  order.LimitPrice,
		Status:      order.Status.String(),
		Reason:      reason,
		SubmittedAt: order.SubmittedAt,
	}
	if err := s.OrderRepo.Create(ctx, &orderRow); err != nil {
		return nil, err
	}

	fill, err := ledger.ExecuteOrder(ctx, order)
	if err != nil {
		orderRow.Status = order.Status.String()
		if saveErr := s.OrderRepo.Save(ctx, &orderRow); saveErr != nil {
			s.logger.Error("failed to persist rejected order", zap.Error(saveErr))
		}
		return nil, mapExchangeError(err)
	}

	tradeRow := models.Trade{
		ID:         fill.ID,
		OrderID:    fill.OrderID,
		StrategyID: strategy.ID,
		Symbol:     fill.Symbol,
		Side:       fill.Side.String(),
		Quantity:   fill.Quantity,
		Price:      fill.Price,
		Fee:        fill.Fee,
		Pnl:        fill.Pnl,
		ExecutedAt: fill.ExecutedAt,
	}

	if err := s.persistFill(ctx, strategyID, &orderRow, &tradeRow, ledger); err != nil {
		return nil, err
	}

	return &tradeRow, nil
}

// persistFill 成交后将订单、成交与账户快照写入同一事务
func (s *StrategyService) persistFill(ctx context.Context, strategyID string, orderRow *models.Order, tradeRow *models.Trade, ledger *exchange.Ledger) error {
	s.mu.RLock()
	entry, ok := s.ledgers[strategyID]
	s.mu.RUnlock()
	if !ok {
		return xe.ErrStrategyNotFound
	}

	positions := ledger.GetPositions()
	rows := make([]models.Position, 0, len(positions))
	for _, pos := range positions {
		rows = append(rows, models.Position{
			ID:        ulid.Make().String(),
			AccountID: entry.accountID,
			Symbol:    pos.Symbol,
			Quantity:  pos.Quantity,
			AvgPrice:  pos.AvgPrice,
		})
	}
	cash := ledger.Cash()

	return s.Transaction(ctx, func(ctx context.Context) error {
		orderRow.Status = exchange.OrderStatusFilled.String()
		if err := s.OrderRepo.Save(ctx, orderRow); err != nil {
			return err
		}
		if err := s.TradeRepo.Create(ctx, tradeRow); err != nil {
			return err
		}
		if err := s.AccountRepo.UpdateCash(ctx, entry.accountID, cash); err != nil {
			return err
		}
		return s.PositionRepo.ReplaceAll(ctx, entry.accountID, rows)
	})
}

// ConfigureRealism 运行时调整摩擦参数
func (s *StrategyService) ConfigureRealism(ctx context.Context, strategyID string, cfg exchange.RealismConfig) error {
	ledger, err := s.Ledger(strategyID)
	if err != nil {
		return err
	}
	ledger.ConfigureRealism(cfg)
	s.logger.Info("realism config updated", zap.String("strategy_id", strategyID))
	return nil
}

// Balance 策略账户估值
func (s *StrategyService) Balance(ctx context.Context, strategyID string) (exchange.Balance, error) {
	ledger, err := s.Ledger(strategyID)
	if err != nil {
		return exchange.Balance{}, err
	}
	return ledger.GetBalance(ctx), nil
}

// Positions 策略当前持仓
func (s *StrategyService) Positions(ctx context.Context, strategyID string) (map[string]exchange.Position, error) {
	ledger, err := s.Ledger(strategyID)
	if err != nil {
		return nil, err
	}
	return ledger.GetPositions(), nil
}

// MarkRebalanced 记录调仓完成时间
func (s *StrategyService) MarkRebalanced(ctx context.Context, strategyID string, at time.Time) error {
	return s.StrategyRepo.UpdateLastRebalanceAt(ctx, strategyID, at)
}

func parseOrderSide(side string) (exchange.OrderSide, error) {
	switch strings.ToUpper(strings.TrimSpace(side)) {
	case exchange.OrderSideBuy.String():
		return exchange.OrderSideBuy, nil
	case exchange.OrderSideSell.String():
		return exchange.OrderSideSell, nil
	default:
		return "", xe.ErrInvalidParams
	}
}

// mapExchangeError 将账本错误映射为对外错误码
func mapExchangeError(err error) error {
	switch {
	case errors.Is(err, exchange.ErrInvalidLotSize):
		return xe.ErrInvalidLotSize
	case errors.Is(err, exchange.ErrSymbolNotFound):
		return xe.ErrSymbolNotFound
	case errors.Is(err, exchange.ErrInsufficientFunds):
		return xe.ErrInsufficientFunds
	case errors.Is(err, exchange.ErrInsufficientPosition):
		return xe.ErrInsufficientPosition
	default:
		return err
	}
}
