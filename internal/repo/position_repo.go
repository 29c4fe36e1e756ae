package repo

import (
	"context"

	"github.com/dushixiang/spectrum/internal/models"
	"github.com/go-orz/orz"
	"gorm.io/gorm"
)

func NewPositionRepo(db *gorm.DB) *PositionRepo {
	return &PositionRepo{
		Repository: orz.NewRepository[models.Position, string](db),
	}
}

type PositionRepo struct {
	orz.Repository[models.Position, string]
}

// FindByAccountID 查找账户的全部持仓
func (r PositionRepo) FindByAccountID(ctx context.Context, accountID string) ([]models.Position, error) {
	var positions []models.Position
	db := r.GetDB(ctx)
	err := db.Table(r.GetTableName()).
		Where("account_id = ?", accountID).
		Order("symbol ASC").
		Find(&positions).Error
	return positions, err
}

// DeleteByAccountID 删除账户的全部持仓
func (r PositionRepo) DeleteByAccountID(ctx context.Context, accountID string) error {
	db := r.GetDB(ctx)
	return db.Where("account_id = ?", accountID).Delete(&models.Position{}).Error
}

// ReplaceAll 以最新快照整体替换账户持仓
func (r PositionRepo) ReplaceAll(ctx context.Context, accountID string, positions []models.Position) error {
	db := r.GetDB(ctx)
	if err := db.Unscoped().
		Where("account_id = ?", accountID).
		Delete(&models.Position{}).Error; err != nil {
		return err
	}
	if len(positions) == 0 {
		return nil
	}
	return db.Create(&positions).Error
}
