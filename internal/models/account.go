package models

import (
	"time"

	"gorm.io/gorm"
)

// Account 策略账户，与策略一一对应
type Account struct {
	ID          string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	StrategyID  string         `gorm:"not null;uniqueIndex" json:"strategy_id"`
	Cash        float64        `gorm:"type:decimal(20,8);not null" json:"cash"`         // 现金余额
	InitialCash float64        `gorm:"type:decimal(20,8);not null" json:"initial_cash"` // 初始资金
	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Account) TableName() string {
	return "accounts"
}
