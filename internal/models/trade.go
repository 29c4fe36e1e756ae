package models

import (
	"time"

	"gorm.io/gorm"
)

// Trade 成交记录，一经写入不再修改
type Trade struct {
	ID         string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	OrderID    string         `gorm:"not null;index" json:"order_id"`
	StrategyID string         `gorm:"not null;index" json:"strategy_id"`
	Symbol     string         `gorm:"not null;index" json:"symbol"`
	Side       string         `gorm:"not null" json:"side"`                    // BUY/SELL
	Quantity   int64          `gorm:"not null" json:"quantity"`                // 成交股数
	Price      float64        `gorm:"type:decimal(20,8);not null" json:"price"` // 含摩擦的成交价
	Fee        float64        `gorm:"type:decimal(20,8)" json:"fee"`           // 交易费用
	Pnl        float64        `gorm:"type:decimal(20,8)" json:"pnl"`           // 已实现盈亏，卖出时有值
	ExecutedAt time.Time      `gorm:"not null;index" json:"executed_at"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Trade) TableName() string {
	return "trades"
}
