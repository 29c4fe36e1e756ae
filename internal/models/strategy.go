package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 策略生命周期状态
const (
	StrategyStatusCreated = "created" // 已创建，尚未开始调仓
	StrategyStatusRunning = "running" // 运行中，按周期调仓
	StrategyStatusStopped = "stopped" // 已停止，可重新启动
	StrategyStatusFailed  = "failed"  // 恢复失败，需人工处理
)

// Strategy 交易策略
type Strategy struct {
	ID                       string                       `gorm:"primaryKey;type:varchar(26)" json:"id"`
	Name                     string                       `gorm:"not null;uniqueIndex" json:"name"`                       // 策略名称
	Symbols                  datatypes.JSONSlice[string]  `json:"symbols"`                                                // 股票池
	Rules                    string                       `json:"rules"`                                                  // 自然语言交易规则
	InitialCapital           float64                      `gorm:"type:decimal(20,8);not null" json:"initial_capital"`     // 初始资金（HKD）
	MaxPositionSize          float64                      `gorm:"type:decimal(10,4)" json:"max_position_size"`            // 单一持仓占比上限
	MaxPositions             int                          `json:"max_positions"`                                          // 最大持仓品种数
	RebalanceIntervalSeconds int                          `json:"rebalance_interval_seconds"`                             // 调仓周期（秒）
	Status                   string                       `gorm:"not null;index" json:"status"`                           // created/running/stopped/failed
	LastRebalanceAt          *time.Time                   `json:"last_rebalance_at"`                                      // 最近一次调仓完成时间
	CreatedAt                time.Time                    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt                time.Time                    `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt                gorm.DeletedAt               `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Strategy) TableName() string {
	return "strategies"
}
