package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/cart"
)

// CartService 购物车服务。对下单编排暴露 GetCart / ClearCart 两个入口。
type CartService struct {
	repo cart.Repository
}

func NewCartService(repo cart.Repository) *CartService {
	return &CartService{repo: repo}
}

// GetCart 读取当前购物车
func (s *CartService) GetCart(ctx context.Context, email string) ([]*cart.Item, error) {
	return s.repo.ListByEmail(ctx, email)
}

// AddItem 加购，已有同商品时累加数量
func (s *CartService) AddItem(ctx context.Context, email string, productID, quantity int64) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	return s.repo.Upsert(ctx, &cart.Item{
		Email:     email,
		ProductID: productID,
		Quantity:  quantity,
	})
}

// UpdateQuantity 覆盖数量，0 视为删除
func (s *CartService) UpdateQuantity(ctx context.Context, email string, productID, quantity int64) error {
	if quantity < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, quantity)
	}
	if quantity == 0 {
		return s.repo.Delete(ctx, email, productID)
	}
	return s.repo.UpdateQuantity(ctx, email, productID, quantity)
}

// RemoveItem 删除单个条目
func (s *CartService) RemoveItem(ctx context.Context, email string, productID int64) error {
	err := s.repo.Delete(ctx, email, productID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// ClearCart 清空购物车，订单落库之后才允许调用
func (s *CartService) ClearCart(ctx context.Context, email string) error {
	return s.repo.Clear(ctx, email)
}
