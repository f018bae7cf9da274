package cart

import (
	"context"
	"time"
)

// Item 购物车条目，(email, product_id) 唯一
type Item struct {
	ID        int64  `gorm:"primaryKey"`
	Email     string `gorm:"size:128;not null;uniqueIndex:uk_cart_email_product"`
	ProductID int64  `gorm:"not null;uniqueIndex:uk_cart_email_product"`
	Quantity  int64  `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 购物车仓储接口
type Repository interface {
	ListByEmail(ctx context.Context, email string) ([]*Item, error)
	// Upsert 已存在同商品条目时累加数量
	Upsert(ctx context.Context, item *Item) error
	UpdateQuantity(ctx context.Context, email string, productID, quantity int64) error
	Delete(ctx context.Context, email string, productID int64) error
	Clear(ctx context.Context, email string) error
}
