//go:build wireinject
// +build wireinject

package internal

import (
	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/handler"
	"github.com/dushixiang/spectrum/internal/service"
	"github.com/google/wire"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	handlerSet = wire.NewSet(
		handler.NewStrategyHandler,
	)

	tradingSet = wire.NewSet(
		provideMarketProvider,
		provideOpenAIClient,
		provideRecommender,
		service.NewIndicatorService,
		service.NewStrategyService,
		service.NewPerformanceService,
		service.NewRebalanceScheduler,
	)
)

// InitializeApp 初始化应用
func InitializeApp(logger *zap.Logger, db *gorm.DB, conf *config.Config) (*AppComponents, error) {
	wire.Build(
		handlerSet,
		tradingSet,
		provideTelegram,
		wire.Struct(new(AppComponents), "*"),
	)
	return nil, nil
}
