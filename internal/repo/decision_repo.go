package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewDecisionRepo(db *gorm.DB) *DecisionRepo {
	return &DecisionRepo{
		Repository: orz.NewRepository[models.Decision, string](db),
	}
}

type DecisionRepo struct {
	orz.Repository[models.Decision, string]
}

// FindRecentByStrategyID 查找策略最近的决策记录，最新的在前
func (r DecisionRepo) FindRecentByStrategyID(ctx context.Context, strategyID string, limit int) ([]models.Decision, error) {
	var decisions []models.Decision
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("strategy_id = ?", strategyID).
		Order("tick_started_at DESC").
		Limit(limit).
		Find(&decisions).Error
	return decisions, err
}
