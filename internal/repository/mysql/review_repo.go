package mysql

import (
	"context"

	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/review"
)

type reviewRepo struct {
	db *gorm.DB
}

// NewReviewRepository 创建商品评价仓储
func NewReviewRepository(db *gorm.DB) review.Repository {
	return &reviewRepo{db: db}
}

func (r *reviewRepo) ListByProduct(ctx context.Context, productID int64, afterID int64, limit int) ([]*review.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 30
	}
	var list []*review.Review
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id DESC").
		Limit(limit)
	if afterID > 0 {
		q = q.Where("id < ?", afterID)
	}
	if err := q.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *reviewRepo) GetByID(ctx context.Context, id int64) (*review.Review, error) {
	var rv review.Review
	if err := r.db.WithContext(ctx).First(&rv, id).Error; err != nil {
		return nil, err
	}
	return &rv, nil
}

func (r *reviewRepo) Create(ctx context.Context, rv *review.Review) error {
	return r.db.WithContext(ctx).Create(rv).Error
}

func (r *reviewRepo) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Delete(&review.Review{}, id).Error
}
