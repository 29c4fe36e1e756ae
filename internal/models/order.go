package models

import (
	"time"

	"gorm.io/gorm"
)

// Order 订单记录
type Order struct {
	ID          string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	StrategyID  string         `gorm:"not null;index" json:"strategy_id"`
	Symbol      string         `gorm:"not null;index" json:"symbol"`
	Side        string         `gorm:"not null" json:"side"`                  // BUY/SELL
	Type        string         `gorm:"not null" json:"type"`                  // MARKET/LIMIT
	Quantity    int64          `gorm:"not null" json:"quantity"`              // 股数
	LimitPrice  *float64       `gorm:"type:decimal(20,8)" json:"limit_price"` // 限价，市价单为空
	Status      string         `gorm:"not null;index" json:"status"`          // pending/filled/rejected
	Reason      string         `json:"reason"`                                // 下单理由
	SubmittedAt time.Time      `gorm:"not null;index" json:"submitted_at"`
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
