package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewPerformancePointRepo(db *gorm.DB) *PerformancePointRepo {
	return &PerformancePointRepo{
		Repository: orz.NewRepository[models.PerformancePoint, string](db),
	}
}

type PerformancePointRepo struct {
	orz.Repository[models.PerformancePoint, string]
}

// FindByStrategyID 查找策略的绩效曲线，按时间升序
func (r PerformancePointRepo) FindByStrategyID(ctx context.Context, strategyID string) ([]models.PerformancePoint, error) {
	var points []models.PerformancePoint
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("strategy_id = ?", strategyID).
		Order("recorded_at ASC").
		Find(&points).Error
	return points, err
}
