package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewOrderRepo(db *gorm.DB) *OrderRepo {
	return &OrderRepo{
		Repository: orz.NewRepository[models.Order, string](db),
	}
}

type OrderRepo struct {
	orz.Repository[models.Order, string]
}

// FindRecentByStrategyID 查找策略最近的订单
func (r OrderRepo) FindRecentByStrategyID(ctx context.Context, strategyID string, limit int) ([]models.Order, error) {
	var orders []models.Order
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("strategy_id = ?", strategyID).
		Order("submitted_at DESC").
		Limit(limit).
		Find(&orders).Error
	return orders, err
}
