package config

import "github.com/dushixiang/spectrum/pkg/exchange"

type Config struct {
	Market      MarketConf      `json:"market"`
	Recommender RecommenderConf `json:"recommender"`
	Trading     TradingConf     `json:"trading"`
	Telegram    TelegramConf    `json:"telegram"`
}

type MarketConf struct {
	GatewayURL     string `json:"gateway_url"`     // 行情网关地址，例如: http://127.0.0.1:8900
	TimeoutSeconds int    `json:"timeout_seconds"` // 单次行情请求超时，默认5秒
}

type RecommenderConf struct {
	BaseURL        string `json:"base_url"`        // LLM API基础URL
	APIKey         string `json:"api_key"`         // LLM API密钥
	Model          string `json:"model"`           // 模型名称
	TimeoutSeconds int    `json:"timeout_seconds"` // 单次推荐超时，默认30秒
	ProxyURL       string `json:"proxy_url"`       // 代理地址，例如: http://127.0.0.1:7890
}

type TradingConf struct {
	DefaultInitialCapital   float64                 `json:"default_initial_capital"`   // 默认初始资金（HKD），默认1000000
	DefaultMaxPositionSize  float64                 `json:"default_max_position_size"` // 默认单一持仓占比上限，默认0.30
	DefaultMaxPositions     int                     `json:"default_max_positions"`     // 默认最大持仓品种数，默认10
	DefaultIntervalSeconds  int                     `json:"default_interval_seconds"`  // 默认调仓周期（秒），默认3600
	Realism                 *exchange.RealismConfig `json:"realism"`                   // 摩擦模拟参数，缺省时使用内置默认值
}

type TelegramConf struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token"`
	ChatID  string `json:"chat_id"`
}

// Normalize 补齐缺省配置
func (c *Config) Normalize() {
	if c.Market.TimeoutSeconds <= 0 {
		c.Market.TimeoutSeconds = 5
	}
	if c.Recommender.TimeoutSeconds <= 0 {
		c.Recommender.TimeoutSeconds = 30
	}
	if c.Trading.DefaultInitialCapital <= 0 {
		c.Trading.DefaultInitialCapital = 1_000_000
	}
	if c.Trading.DefaultMaxPositionSize <= 0 {
		c.Trading.DefaultMaxPositionSize = 0.30
	}
	if c.Trading.DefaultMaxPositions <= 0 {
		c.Trading.DefaultMaxPositions = 10
	}
	if c.Trading.DefaultIntervalSeconds <= 0 {
		c.Trading.DefaultIntervalSeconds = 3600
	}
}

// RealismConfig 生效的摩擦模拟参数
func (c *Config) RealismConfig() exchange.RealismConfig {
	if c.Trading.Realism != nil {
		return *c.Trading.Realism
	}
	return exchange.DefaultRealismConfig()
}
