package models

import (
	"time"

	"gorm.io/gorm"
)

// PerformancePoint 绩效曲线采样点，每次调仓周期结束后记录一条
type PerformancePoint struct {
	ID             string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	StrategyID     string         `gorm:"not null;index" json:"strategy_id"`
	TotalValue     float64        `gorm:"type:decimal(20,8);not null" json:"total_value"` // 总资产
	Cash           float64        `gorm:"type:decimal(20,8)" json:"cash"`                 // 现金
	PositionsValue float64        `gorm:"type:decimal(20,8)" json:"positions_value"`      // 持仓市值
	Pnl            float64        `gorm:"type:decimal(20,8)" json:"pnl"`                  // 相对初始资金的盈亏
	PnlPercent     float64        `gorm:"type:decimal(10,4)" json:"pnl_percent"`          // 盈亏百分比
	RecordedAt     time.Time      `gorm:"not null;index" json:"recorded_at"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (PerformancePoint) TableName() string {
	return "performance_points"
}
