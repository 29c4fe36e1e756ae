package exchange

import "github.com/shopspring/decimal"

// FeeSchedule 港股交易费率表
// 各项费率均按成交金额计收，买卖双边收取
type FeeSchedule struct {
	StampDutyRate       float64 `json:"stamp_duty_rate"`       // 印花税 0.13%
	TradingFeeRate      float64 `json:"trading_fee_rate"`      // 交易费 0.005%
	SettlementFeeRate   float64 `json:"settlement_fee_rate"`   // 结算费 0.002%
	TransactionLevyRate float64 `json:"transaction_levy_rate"` // 交易征费 0.0027%
}

// DefaultHKFeeSchedule 港交所默认费率
func DefaultHKFeeSchedule() FeeSchedule {
	return FeeSchedule{
		StampDutyRate:       0.0013,
		TradingFeeRate:      0.00005,
		SettlementFeeRate:   0.00002,
		TransactionLevyRate: 0.000027,
	}
}

// CombinedRate 合计费率
func (f FeeSchedule) CombinedRate() float64 {
	rate := decimal.NewFromFloat(f.StampDutyRate).
		Add(decimal.NewFromFloat(f.TradingFeeRate)).
		Add(decimal.NewFromFloat(f.SettlementFeeRate)).
		Add(decimal.NewFromFloat(f.TransactionLevyRate))
	v, _ := rate.Float64()
	return v
}

// Calculate 计算一笔成交的总费用
// 使用 decimal 计算避免浮点累计误差
func (f FeeSchedule) Calculate(notional float64) float64 {
	n := decimal.NewFromFloat(notional)

	total := n.Mul(decimal.NewFromFloat(f.StampDutyRate)).
		Add(n.Mul(decimal.NewFromFloat(f.TradingFeeRate))).
		Add(n.Mul(decimal.NewFromFloat(f.SettlementFeeRate))).
		Add(n.Mul(decimal.NewFromFloat(f.TransactionLevyRate)))

	v, _ := total.Float64()
	return v
}
