package exchange

import (
	"math/rand"
	"time"
)

// 摩擦模拟：滑点、订单延迟、市场冲击
// 纯函数计算，随机源由调用方注入，同一种子产生同一结果

// SlippageConfig 滑点配置
type SlippageConfig struct {
	Enabled bool    `json:"enabled"`
	MinBps  float64 `json:"min_bps"` // 最小滑点（基点）
	MaxBps  float64 `json:"max_bps"` // 最大滑点（基点）
}

// LatencyConfig 订单延迟配置
// 延迟期间价格可能变动，用独立采样的漂移基点模拟
type LatencyConfig struct {
	Enabled     bool    `json:"enabled"`
	Await       bool    `json:"await"` // 是否真实等待采样出的延迟时长
	MinMs       int     `json:"min_ms"`
	MaxMs       int     `json:"max_ms"`
	DriftMinBps float64 `json:"drift_min_bps"`
	DriftMaxBps float64 `json:"drift_max_bps"`
}

// ImpactConfig 市场冲击配置
type ImpactConfig struct {
	Enabled        bool    `json:"enabled"`
	ThresholdLots  int64   `json:"threshold_lots"`     // 超过该手数开始产生冲击
	BpsPer1000Lots float64 `json:"bps_per_1000_lots"`  // 每1000手的额外冲击
	MaxBps         float64 `json:"max_bps"`            // 冲击上限
}

// RealismConfig 真实度模拟配置
type RealismConfig struct {
	Slippage SlippageConfig `json:"slippage"`
	Latency  LatencyConfig  `json:"latency"`
	Impact   ImpactConfig   `json:"impact"`
}

// DefaultRealismConfig 默认真实度配置，参数贴近港股实盘
func DefaultRealismConfig() RealismConfig {
	return RealismConfig{
		Slippage: SlippageConfig{
			Enabled: true,
			MinBps:  3,
			MaxBps:  10,
		},
		Latency: LatencyConfig{
			Enabled:     true,
			Await:       true,
			MinMs:       70,
			MaxMs:       350,
			DriftMinBps: 1,
			DriftMaxBps: 5,
		},
		Impact: ImpactConfig{
			Enabled:        true,
			ThresholdLots:  500,
			BpsPer1000Lots: 5,
			MaxBps:         100,
		},
	}
}

// DisabledRealismConfig 全部关闭，成交价等于参考价，用于确定性测试
func DisabledRealismConfig() RealismConfig {
	return RealismConfig{}
}

// FrictionBreakdown 单笔成交的摩擦明细
type FrictionBreakdown struct {
	SlippageBps     float64       `json:"slippage_bps"`
	LatencyDriftBps float64       `json:"latency_drift_bps"`
	ImpactBps       float64       `json:"impact_bps"`
	Delay           time.Duration `json:"delay"`
}

// TotalBps 摩擦合计基点
func (b FrictionBreakdown) TotalBps() float64 {
	return b.SlippageBps + b.LatencyDriftBps + b.ImpactBps
}

// ApplyFrictions 对参考价施加摩擦，返回调整后的成交价与明细
// 方向永远不利于交易者：买入付更多，卖出收更少
func ApplyFrictions(price float64, side OrderSide, lots int64, cfg RealismConfig, rng *rand.Rand) (float64, FrictionBreakdown) {
	var breakdown FrictionBreakdown

	if cfg.Latency.Enabled {
		breakdown.Delay = sampleLatency(cfg.Latency, rng)
		breakdown.LatencyDriftBps = sampleUniform(cfg.Latency.DriftMinBps, cfg.Latency.DriftMaxBps, rng)
	}

	if cfg.Slippage.Enabled {
		breakdown.SlippageBps = sampleUniform(cfg.Slippage.MinBps, cfg.Slippage.MaxBps, rng)
	}

	if cfg.Impact.Enabled {
		breakdown.ImpactBps = ImpactBps(lots, cfg.Impact)
	}

	factor := breakdown.TotalBps() / 10000
	if side == OrderSideSell {
		factor = -factor
	}

	return price * (1 + factor), breakdown
}

// ImpactBps 计算市场冲击基点，超过阈值后随手数单调递增，封顶于 MaxBps
func ImpactBps(lots int64, cfg ImpactConfig) float64 {
	if !cfg.Enabled || lots <= cfg.ThresholdLots {
		return 0
	}

	excess := float64(lots - cfg.ThresholdLots)
	bps := excess / 1000 * cfg.BpsPer1000Lots
	if bps > cfg.MaxBps {
		bps = cfg.MaxBps
	}
	return bps
}

func sampleLatency(cfg LatencyConfig, rng *rand.Rand) time.Duration {
	ms := sampleUniform(float64(cfg.MinMs), float64(cfg.MaxMs), rng)
	return time.Duration(ms * float64(time.Millisecond))
}

func sampleUniform(min, max float64, rng *rand.Rand) float64 {
	if max <= min {
		return min
	}
	return min + rng.Float64()*(max-min)
}
