package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Status 订单状态
type Status string

const (
	StatusPending  Status = "PENDING"  // 已创建，下游副作用未完成
	StatusOrdered  Status = "ORDERED"  // 已确认：库存扣减成功、购物车已清空
	StatusCanceled Status = "CANCELED" // 已取消（终态）
)

// ParseStatus 解析状态字符串，未知值返回 false
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusOrdered, StatusCanceled:
		return Status(s), true
	}
	return "", false
}

// CanTransition 状态迁移校验。唯一硬规则：CANCELED 是终态，不允许再迁出
func (s Status) CanTransition(to Status) bool {
	return s != StatusCanceled
}

// Order 订单聚合根。Email 与 Address 是下单时的快照，用户后续改地址不回写历史订单
type Order struct {
	ID         int64           `gorm:"primaryKey"`
	Email      string          `gorm:"size:128;index;not null"`
	Address    string          `gorm:"size:256"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Status     Status          `gorm:"size:16;index;not null"`
	OrderedAt  time.Time
	Lines      []Line `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Line 订单明细。UnitPrice 为下单时的商品价格快照，之后调价不影响历史订单
type Line struct {
	ID        int64           `gorm:"primaryKey"`
	OrderID   int64           `gorm:"index;not null"`
	ProductID int64           `gorm:"index;not null"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// Repository 订单仓储接口
type Repository interface {
	Create(ctx context.Context, o *Order) error
	Save(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id int64) (*Order, error)
	ListByEmail(ctx context.Context, email string) ([]*Order, error)
	ListRecent(ctx context.Context, limit int) ([]*Order, error)
}
