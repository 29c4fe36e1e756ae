package internal

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/handler"
	"github.com/dushixiang/spectrum/internal/models"
	"github.com/dushixiang/spectrum/internal/service"
	"github.com/dushixiang/spectrum/internal/telegram"
	"github.com/dushixiang/spectrum/pkg/nostd"
	"github.com/dushixiang/spectrum/web"
	"github.com/go-orz/orz"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func Run(configPath string) error {
	app := NewSpectrumApp()

	framework, err := orz.NewFramework(
		orz.WithConfig(configPath),
		orz.WithLoggerFromConfig(),
		orz.WithDatabase(),
		orz.WithHTTP(),
		orz.WithApplication(app),
	)
	if err != nil {
		return err
	}

	return framework.Run()
}

func NewSpectrumApp() orz.Application {
	return &SpectrumApp{}
}

var _ orz.Application = (*SpectrumApp)(nil)

type AppComponents struct {
	StrategyHandler *handler.StrategyHandler

	StrategyService    *service.StrategyService
	IndicatorService   *service.IndicatorService
	PerformanceService *service.PerformanceService
	Scheduler          *service.RebalanceScheduler
	Recommender        service.Recommender

	tg *telegram.Telegram
}

type SpectrumApp struct {
	components *AppComponents
	conf       *config.Config
}

// GetComponents 获取应用组件
func (r *SpectrumApp) GetComponents() *AppComponents {
	return r.components
}

func (r *SpectrumApp) Configure(app *orz.App) error {
	logger := app.Logger()
	e := app.GetEcho()
	db := app.GetDatabase()

	var conf config.Config
	err := app.GetConfig().App.Unmarshal(&conf)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %v", err)
	}
	conf.Normalize()

	components, err := InitializeApp(logger, db, &conf)
	if err != nil {
		return fmt.Errorf("failed to initialize app: %v", err)
	}
	r.components = components
	r.conf = &conf

	if err := db.AutoMigrate(
		models.Strategy{}, models.Account{}, models.Position{},
		models.Order{}, models.Trade{},
		models.PerformancePoint{}, models.Decision{}, models.RecommenderLog{},
	); err != nil {
		logger.Fatal("database auto migrate failed", zap.Error(err))
	}

	if err := r.Init(logger); err != nil {
		logger.Fatal("app init failed", zap.Error(err))
	}

	e.HidePort = true
	e.HideBanner = true

	e.Use(middleware.Gzip())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		Skipper:      middleware.DefaultSkipper,
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPatch, http.MethodPost, http.MethodDelete},
	}))
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			sugar := logger.Sugar()
			sugar.Error(fmt.Sprintf("[PANIC RECOVER] %v %s\n", err, stack))
			return err
		},
	}))
	e.Use(WithErrorHandler(logger))
	customValidator := nostd.CustomValidator{Validator: validator.New()}
	if err := customValidator.TransInit(); err != nil {
		logger.Sugar().Fatal("failed to init custom validator", zap.Error(err))
	}
	e.Validator = &customValidator

	e.Use(middleware.StaticWithConfig(middleware.StaticConfig{
		Skipper: func(c echo.Context) bool {
			path := c.Request().RequestURI
			if strings.HasPrefix(path, "/api") {
				return true
			}
			return false
		},
		Root:       "",
		Index:      "index.html",
		HTML5:      true,
		Browse:     false,
		IgnoreBase: false,
		Filesystem: http.FS(web.Assets()),
	}))

	api := e.Group("/api")
	{
		if r.components.StrategyHandler != nil {
			r.components.StrategyHandler.RegisterRoutes(api)
		}
	}

	return nil
}

func (r *SpectrumApp) Init(logger *zap.Logger) error {
	logger.Info("=================================================")
	logger.Info("Spectrum Paper Trading System Starting...")
	logger.Info("=================================================")

	components := r.GetComponents()
	if components == nil {
		return fmt.Errorf("components not initialized")
	}

	ctx := context.Background()

	// 重建全部策略账本，损坏的策略标记为 failed
	if err := components.StrategyService.LoadStrategies(ctx); err != nil {
		return fmt.Errorf("failed to load strategies: %w", err)
	}

	// 恢复运行中策略的周期调仓
	components.Scheduler.Start()
	if err := components.Scheduler.Resume(ctx); err != nil {
		return fmt.Errorf("failed to resume strategies: %w", err)
	}

	if components.tg != nil {
		components.tg.Start()
	}

	return nil
}
