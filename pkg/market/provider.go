package market

import (
	"context"
	"errors"
	"time"
)

// 行情数据边界：引擎只依赖这里的接口，具体数据源由适配器实现

// ErrUnavailable 行情暂不可用（数据源超时、股票未收录等）
var ErrUnavailable = errors.New("market: quote unavailable")

// Bar K线
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Provider 行情数据提供方
type Provider interface {
	// GetReferencePrice 获取当前参考价，行情不可用时返回 ErrUnavailable
	GetReferencePrice(ctx context.Context, symbol string) (float64, error)

	// GetHistory 获取最近 limit 根日K线，时间升序
	GetHistory(ctx context.Context, symbol string, limit int) ([]Bar, error)
}
