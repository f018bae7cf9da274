package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/cart"
)

type cartRepo struct {
	db *gorm.DB
}

// NewCartRepository 创建购物车仓储
func NewCartRepository(db *gorm.DB) cart.Repository {
	return &cartRepo{db: db}
}

func (r *cartRepo) ListByEmail(ctx context.Context, email string) ([]*cart.Item, error) {
	var list []*cart.Item
	if err := r.db.WithContext(ctx).
		Where("email = ?", email).
		Order("id ASC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// Upsert 同一商品重复加购时累加数量
func (r *cartRepo) Upsert(ctx context.Context, item *cart.Item) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "email"}, {Name: "product_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity": gorm.Expr("quantity + ?", item.Quantity),
		}),
	}).Create(item).Error
}

func (r *cartRepo) UpdateQuantity(ctx context.Context, email string, productID, quantity int64) error {
	return r.db.WithContext(ctx).
		Model(&cart.Item{}).
		Where("email = ? AND product_id = ?", email, productID).
		UpdateColumn("quantity", quantity).Error
}

func (r *cartRepo) Delete(ctx context.Context, email string, productID int64) error {
	return r.db.WithContext(ctx).
		Where("email = ? AND product_id = ?", email, productID).
		Delete(&cart.Item{}).Error
}

func (r *cartRepo) Clear(ctx context.Context, email string) error {
	return r.db.WithContext(ctx).
		Where("email = ?", email).
		Delete(&cart.Item{}).Error
}
