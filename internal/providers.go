package internal

import (
	"net/http"
	"net/url"
	"time"

	"github.com/dushixiang/spectrum/internal/config"
	"github.com/dushixiang/spectrum/internal/service"
	"github.com/dushixiang/spectrum/internal/telegram"
	"github.com/dushixiang/spectrum/pkg/market"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const telegramHTTPTimeout = 10 * time.Second

// provideMarketProvider 行情网关客户端
func provideMarketProvider(conf *config.Config, logger *zap.Logger) market.Provider {
	client := market.NewGatewayClient(conf.Market.GatewayURL, time.Duration(conf.Market.TimeoutSeconds)*time.Second)
	logger.Info("market gateway client initialized", zap.String("gateway_url", conf.Market.GatewayURL))
	return client
}

// provideOpenAIClient LLM客户端
func provideOpenAIClient(conf *config.Config, logger *zap.Logger) *openai.Client {
	var options = []option.RequestOption{
		option.WithBaseURL(conf.Recommender.BaseURL),
		option.WithAPIKey(conf.Recommender.APIKey),
	}
	if conf.Recommender.ProxyURL != "" {
		u, err := url.Parse(conf.Recommender.ProxyURL)
		if err != nil {
			logger.Fatal("failed to parse proxy URL", zap.Error(err))
		}
		httpClient := &http.Client{
			Timeout: time.Minute,
			Transport: &http.Transport{
				Proxy: http.ProxyURL(u),
			},
		}
		options = append(options, option.WithHTTPClient(httpClient))
	}

	client := openai.NewClient(options...)

	logger.Info("OpenAI client initialized", zap.String("model", conf.Recommender.Model))
	return &client
}

// provideRecommender 大模型推荐服务
func provideRecommender(db *gorm.DB, client *openai.Client, conf *config.Config, logger *zap.Logger) service.Recommender {
	timeout := time.Duration(conf.Recommender.TimeoutSeconds) * time.Second
	return service.NewLLMRecommender(db, client, conf.Recommender.Model, timeout, logger)
}

// provideTelegram 推送通道，未启用时返回 nil
func provideTelegram(logger *zap.Logger, conf *config.Config) *telegram.Telegram {
	if !conf.Telegram.Enabled {
		return nil
	}

	httpClient := &http.Client{Timeout: telegramHTTPTimeout}

	tg, err := telegram.NewTelegram(logger, telegram.Settings{
		Token:  conf.Telegram.Token,
		Client: httpClient,
	})
	if err != nil {
		logger.Error("failed to init telegram", zap.Error(err))
		return nil
	}
	return tg
}
