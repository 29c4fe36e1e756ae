package exchange

import "time"

// 通用交易类型定义，独立于任何特定券商
// 模拟盘与真实券商适配器共用同一套类型

// OrderSide 订单方向
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderType 订单类型
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET" // 市价单
	OrderTypeLimit  OrderType = "LIMIT"  // 限价单
)

// OrderStatus 订单状态
type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusRejected OrderStatus = "rejected"
)

// String 方法用于日志输出
func (s OrderSide) String() string {
	return string(s)
}

func (t OrderType) String() string {
	return string(t)
}

func (s OrderStatus) String() string {
	return string(s)
}

// Order 订单
type Order struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Side        OrderSide   `json:"side"`
	Type        OrderType   `json:"type"`
	Quantity    int64       `json:"quantity"`              // 股数（必须是每手股数的整数倍）
	LimitPrice  *float64    `json:"limit_price,omitempty"` // 限价，nil 表示市价单
	Status      OrderStatus `json:"status"`
	SubmittedAt time.Time   `json:"submitted_at"`
}

// Position 持仓
type Position struct {
	Symbol   string  `json:"symbol"`
	Quantity int64   `json:"quantity"`  // 股数
	AvgPrice float64 `json:"avg_price"` // 加权平均成本
}

// Trade 成交记录，写入后不可变
type Trade struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"order_id"`
	Symbol     string    `json:"symbol"`
	Side       OrderSide `json:"side"`
	Quantity   int64     `json:"quantity"`
	Price      float64   `json:"price"` // 含摩擦的实际成交价
	Fee        float64   `json:"fee"`
	Pnl        float64   `json:"pnl"` // 平仓盈亏（仅卖出时有值）
	ExecutedAt time.Time `json:"executed_at"`
}

// Balance 账户估值
type Balance struct {
	Cash           float64 `json:"cash"`
	PositionsValue float64 `json:"positions_value"`
	TotalAssets    float64 `json:"total_assets"`
}
