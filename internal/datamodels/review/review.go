package review

import (
	"context"
	"time"
)

// Review 商品评价
type Review struct {
	ID        int64  `gorm:"primaryKey"`
	ProductID int64  `gorm:"index;not null"`
	Email     string `gorm:"size:128;index;not null"` // 作者邮箱
	Rating    int    `gorm:"not null"`                // 1-5
	Content   string `gorm:"size:1024"`
	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// Repository 评价仓储接口
type Repository interface {
	ListByProduct(ctx context.Context, productID int64, afterID int64, limit int) ([]*Review, error)
	GetByID(ctx context.Context, id int64) (*Review, error)
	Create(ctx context.Context, r *Review) error
	Delete(ctx context.Context, id int64) error
}
