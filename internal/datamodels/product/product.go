package product

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInsufficientStock 条件扣减未命中任何行且商品存在（库存不足）
var ErrInsufficientStock = errors.New("insufficient stock")

// Product 商品模型
type Product struct {
	ID          int64           `gorm:"primaryKey"`
	Name        string          `gorm:"size:128;not null"`
	Description string          `gorm:"size:512"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock       int64           `gorm:"not null"`
	Category    string          `gorm:"size:32;index"` // 分类：men(男士)、women(女士)、accessories(饰品)
	ImagePath   string          `gorm:"size:256"`
	Status      int             `gorm:"index"` // 0:下线 1:正常
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Repository 商品仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Product, error)
	ListByIDs(ctx context.Context, ids []int64) ([]*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
	ListOnline(ctx context.Context) ([]*Product, error)
	ListByCategory(ctx context.Context, category string) ([]*Product, error)
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id int64) error
	// DecrementStock 单条条件扣减：stock >= qty 才生效，避免并发下单把库存扣成负数。
	// 商品不存在时返回查找错误而不是 ErrInsufficientStock。
	DecrementStock(ctx context.Context, id, qty int64) error
	// RestoreStock 回补库存（取消/补偿用）
	RestoreStock(ctx context.Context, id, qty int64) error
}
