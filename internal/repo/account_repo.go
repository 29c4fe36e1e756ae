package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewAccountRepo(db *gorm.DB) *AccountRepo {
	return &AccountRepo{
		Repository: orz.NewRepository[models.Account, string](db),
	}
}

type AccountRepo struct {
	orz.Repository[models.Account, string]
}

// FindByStrategyID 查找策略对应的账户
func (r AccountRepo) FindByStrategyID(ctx context.Context, strategyID string) (m models.Account, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("strategy_id = ?", strategyID).
		First(&m).Error
	return m, err
}

// UpdateCash 更新现金余额
func (r AccountRepo) UpdateCash(ctx context.Context, id string, cash float64) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("cash", cash).Error
}

// DeleteByStrategyID 删除策略对应的账户
func (r AccountRepo) DeleteByStrategyID(ctx context.Context, strategyID string) error {
	db := r.GetDB(ctx)
	return db.Where("strategy_id = ?", strategyID).Delete(&models.Account{}).Error
}
