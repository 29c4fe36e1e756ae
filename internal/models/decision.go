package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Decision AI决策记录，每次调仓周期写入一条，推荐为空也记录
type Decision struct {
	ID                  string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	StrategyID          string         `gorm:"not null;index" json:"strategy_id"`
	PortfolioValue      float64        `gorm:"type:decimal(20,8)" json:"portfolio_value"` // 决策时总资产
	Cash                float64        `gorm:"type:decimal(20,8)" json:"cash"`            // 决策时现金
	PositionCount       int            `json:"position_count"`                            // 决策时持仓品种数
	RecommendationCount int            `json:"recommendation_count"`                      // 推荐条数
	Recommendations     datatypes.JSON `json:"recommendations"`                           // 推荐明细及执行结果
	Error               string         `json:"error"`                                     // 推荐失败原因（如果有）
	TickStartedAt       time.Time      `gorm:"not null;index" json:"tick_started_at"`     // 本轮调仓开始时间
	CreatedAt           time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt           gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Decision) TableName() string {
	return "decisions"
}
