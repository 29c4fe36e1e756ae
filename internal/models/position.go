package models

import (
	"time"

	"gorm.io/gorm"
)

// Position 持仓记录
type Position struct {
	ID        string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	AccountID string         `gorm:"not null;index:idx_account_symbol,unique" json:"account_id"`
	Symbol    string         `gorm:"not null;index:idx_account_symbol,unique" json:"symbol"` // 股票代码，如 00700
	Quantity  int64          `gorm:"not null" json:"quantity"`                               // 持仓股数
	AvgPrice  float64        `gorm:"type:decimal(20,8);not null" json:"avg_price"`           // 加权平均成本
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (*Position) TableName() string {
	return "positions"
}
