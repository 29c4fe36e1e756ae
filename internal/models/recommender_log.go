package models

import (
	"time"

	"gorm.io/gorm"
)

// RecommenderLog 推荐服务通信日志
type RecommenderLog struct {
	ID               string         `gorm:"primaryKey;type:varchar(26)" json:"id"`
	StrategyID       string         `gorm:"not null;index" json:"strategy_id"`
	Model            string         `json:"model"`                             // 使用的AI模型
	Prompt           string         `json:"prompt"`                            // 提示词
	Response         string         `json:"response"`                          // 原始返回内容
	PromptTokens     int            `json:"prompt_tokens"`                     // 提示词token数
	CompletionTokens int            `json:"completion_tokens"`                 // 完成token数
	Duration         int64          `json:"duration"`                          // 请求耗时(毫秒)
	Error            string         `json:"error"`                             // 错误信息(如果有)
	ExecutedAt       time.Time      `gorm:"not null;index" json:"executed_at"` // 请求时间
	CreatedAt        time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt        gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (RecommenderLog) TableName() string {
	return "recommender_logs"
}
