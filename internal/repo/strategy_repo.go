package repo

import (
	"context"
	"errors"
	"time"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewStrategyRepo(db *gorm.DB) *StrategyRepo {
	return &StrategyRepo{
		Repository: orz.NewRepository[models.Strategy, string](db),
	}
}

type StrategyRepo struct {
	orz.Repository[models.Strategy, string]
}

// ExistsByName 检查策略名称是否已被使用
func (r StrategyRepo) ExistsByName(ctx context.Context, name string) (bool, error) {
	db := r.GetDB(ctx)
	var count int64
	err := db.Table(r.GetTableName()).
		Where("name = ?", name).
		Count(&count).Error
	return count > 0, err
}

// FindByStatus 按状态查找策略
func (r StrategyRepo) FindByStatus(ctx context.Context, status string) ([]models.Strategy, error) {
	var strategies []models.Strategy
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("status = ?", status).
		Find(&strategies).Error
	return strategies, err
}

// UpdateStatus 更新策略状态
func (r StrategyRepo) UpdateStatus(ctx context.Context, id, status string) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("status", status).Error
}

// UpdateLastRebalanceAt 记录最近一次调仓完成时间
func (r StrategyRepo) UpdateLastRebalanceAt(ctx context.Context, id string, at time.Time) error {
	db := r.GetDB(ctx)
	return db.Table(r.GetTableName()).
		Where("id = ?", id).
		Update("last_rebalance_at", at).Error
}

// FindLatestByName 按名称查找策略
func (r StrategyRepo) FindLatestByName(ctx context.Context, name string) (m models.Strategy, ok bool, err error) {
	db := r.GetDB(ctx)
	err = db.Table(r.GetTableName()).
		Where("name = ?", name).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m, false, nil
	}
	return m, err == nil, err
}
