package handler

import (
	"net/http"

	"github.com/dushixiang/spectrum/internal/service"
	"github.com/dushixiang/spectrum/pkg/exchange"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// StrategyHandler 策略管理HTTP处理器
type StrategyHandler struct {
	strategyService    *service.StrategyService
	performanceService *service.PerformanceService
	scheduler          *service.RebalanceScheduler
	logger             *zap.Logger
}

// NewStrategyHandler 创建策略处理器
func NewStrategyHandler(
	strategyService *service.StrategyService,
	performanceService *service.PerformanceService,
	scheduler *service.RebalanceScheduler,
	logger *zap.Logger,
) *StrategyHandler {
	return &StrategyHandler{
		strategyService:    strategyService,
		performanceService: performanceService,
		scheduler:          scheduler,
		logger:             logger,
	}
}

// Create 创建策略
// POST /api/strategies
func (h *StrategyHandler) Create(c echo.Context) error {
	var params service.CreateStrategyParams
	if err := c.Bind(&params); err != nil {
		return err
	}
	if err := c.Validate(&params); err != nil {
		return err
	}

	strategy, err := h.strategyService.CreateStrategy(c.Request().Context(), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, strategy)
}

// List 策略列表
// GET /api/strategies
func (h *StrategyHandler) List(c echo.Context) error {
	strategies, err := h.strategyService.ListStrategies(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":      len(strategies),
		"strategies": strategies,
	})
}

// Get 策略详情，附带账户估值
// GET /api/strategies/:id
func (h *StrategyHandler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	strategy, err := h.strategyService.GetStrategy(ctx, id)
	if err != nil {
		return err
	}

	result := map[string]interface{}{
		"strategy": strategy,
	}
	if balance, err := h.strategyService.Balance(ctx, id); err == nil {
		result["balance"] = balance
	}
	return c.JSON(http.StatusOK, result)
}

// Update 更新策略配置
// PUT /api/strategies/:id
func (h *StrategyHandler) Update(c echo.Context) error {
	var params service.UpdateStrategyParams
	if err := c.Bind(&params); err != nil {
		return err
	}

	strategy, err := h.strategyService.UpdateStrategy(c.Request().Context(), c.Param("id"), params)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, strategy)
}

// Start 启动策略
// POST /api/strategies/:id/start
func (h *StrategyHandler) Start(c echo.Context) error {
	if err := h.scheduler.StartStrategy(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "strategy started",
	})
}

// Stop 停止策略
// POST /api/strategies/:id/stop
func (h *StrategyHandler) Stop(c echo.Context) error {
	if err := h.scheduler.StopStrategy(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "strategy stopped",
	})
}

// Delete 删除策略
// DELETE /api/strategies/:id
func (h *StrategyHandler) Delete(c echo.Context) error {
	if err := h.strategyService.DeleteStrategy(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "strategy deleted",
	})
}

// GetPositions 当前持仓
// GET /api/strategies/:id/positions
func (h *StrategyHandler) GetPositions(c echo.Context) error {
	positions, err := h.strategyService.Positions(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(positions),
		"positions": positions,
	})
}

// GetTrades 成交历史
// GET /api/strategies/:id/trades?limit=20
func (h *StrategyHandler) GetTrades(c echo.Context) error {
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}

	trades, err := h.performanceService.RecentTrades(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":  len(trades),
		"trades": trades,
	})
}

// GetDecisions 决策历史
// GET /api/strategies/:id/decisions?limit=10
func (h *StrategyHandler) GetDecisions(c echo.Context) error {
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 10
	}

	decisions, err := h.performanceService.RecentDecisions(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":     len(decisions),
		"decisions": decisions,
	})
}

// GetPerformance 绩效曲线
// GET /api/strategies/:id/performance
func (h *StrategyHandler) GetPerformance(c echo.Context) error {
	points, err := h.performanceService.Curve(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(points),
		"data":  points,
	})
}

// GetSummary 绩效摘要
// GET /api/strategies/:id/summary
func (h *StrategyHandler) GetSummary(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ledger, err := h.strategyService.Ledger(id)
	if err != nil {
		return err
	}

	summary, err := h.performanceService.Summarize(ctx, id, ledger.GetBalance(ctx), ledger.InitialCash())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// GetRecommenderLogs 推荐服务通信日志
// GET /api/strategies/:id/recommender-logs?limit=20
func (h *StrategyHandler) GetRecommenderLogs(c echo.Context) error {
	limit := cast.ToInt(c.QueryParam("limit"))
	if limit <= 0 {
		limit = 20
	}

	logs, err := h.performanceService.RecommenderLogs(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(logs),
		"logs":  logs,
	})
}

// TradeRequest 手动交易请求，lots 为手数
type TradeRequest struct {
	Symbol     string   `json:"symbol" validate:"required"`
	Side       string   `json:"side" validate:"required,oneof=BUY SELL buy sell"`
	Lots       int64    `json:"lots" validate:"required,gt=0"`
	LimitPrice *float64 `json:"limit_price"`
	Reason     string   `json:"reason"`
}

// Trade 手动交易，与定时调仓共用同一执行路径
// POST /api/strategies/:id/trade
func (h *StrategyHandler) Trade(c echo.Context) error {
	var req TradeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	id := c.Param("id")
	ledger, err := h.strategyService.Ledger(id)
	if err != nil {
		return err
	}

	symbol := exchange.NormalizeSymbol(req.Symbol)
	quantity := req.Lots * ledger.LotSize(symbol)

	reason := req.Reason
	if reason == "" {
		reason = "手动交易"
	}

	trade, err := h.strategyService.ExecuteTrade(c.Request().Context(),
		id, symbol, req.Side, quantity, req.LimitPrice, reason)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, trade)
}

// UpdateRealism 运行时调整摩擦参数
// PUT /api/strategies/:id/realism
func (h *StrategyHandler) UpdateRealism(c echo.Context) error {
	var cfg exchange.RealismConfig
	if err := c.Bind(&cfg); err != nil {
		return err
	}

	if err := h.strategyService.ConfigureRealism(c.Request().Context(), c.Param("id"), cfg); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "realism config updated",
	})
}

// RegisterRoutes 注册路由
func (h *StrategyHandler) RegisterRoutes(g *echo.Group) {
	strategies := g.Group("/strategies")

	strategies.POST("", h.Create)
	strategies.GET("", h.List)
	strategies.GET("/:id", h.Get)
	strategies.PUT("/:id", h.Update)
	strategies.DELETE("/:id", h.Delete)

	strategies.POST("/:id/start", h.Start)
	strategies.POST("/:id/stop", h.Stop)

	strategies.GET("/:id/positions", h.GetPositions)
	strategies.GET("/:id/trades", h.GetTrades)
	strategies.GET("/:id/decisions", h.GetDecisions)
	strategies.GET("/:id/performance", h.GetPerformance)
	strategies.GET("/:id/summary", h.GetSummary)
	strategies.GET("/:id/recommender-logs", h.GetRecommenderLogs)

	strategies.POST("/:id/trade", h.Trade)
	strategies.PUT("/:id/realism", h.UpdateRealism)
}
