package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewRecommenderLogRepo(db *gorm.DB) *RecommenderLogRepo {
	return &RecommenderLogRepo{
		Repository: orz.NewRepository[models.RecommenderLog, string](db),
	}
}

type RecommenderLogRepo struct {
	orz.Repository[models.RecommenderLog, string]
}

// FindRecentByStrategyID 查找策略最近的推荐日志，最新的在前
func (r RecommenderLogRepo) FindRecentByStrategyID(ctx context.Context, strategyID string, limit int) ([]models.RecommenderLog, error) {
	var logs []models.RecommenderLog
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("strategy_id = ?", strategyID).
		Order("executed_at DESC").
		Limit(limit).
		Find(&logs).Error
	return logs, err
}
