package service

import (
	"context"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
)

type ProductService struct {
	repo product.Repository
}

func NewProductService(repo product.Repository) *ProductService {
	return &ProductService{repo: repo}
}

func (s *ProductService) ListOnline(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListOnline(ctx)
}

func (s *ProductService) ListAll(ctx context.Context) ([]*product.Product, error) {
	return s.repo.ListAll(ctx)
}

func (s *ProductService) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return s.repo.ListByCategory(ctx, category)
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// BatchGet 批量查商品，返回 productID -> Product。
// 不存在的 ID 缺席返回值，不报错，由调用方决定如何处理。
func (s *ProductService) BatchGet(ctx context.Context, ids []int64) (map[int64]*product.Product, error) {
	list, err := s.repo.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	m := make(map[int64]*product.Product, len(list))
	for _, p := range list {
		m[p.ID] = p
	}
	return m, nil
}

// DecrementStock 条件扣减库存，不足时返回 product.ErrInsufficientStock
func (s *ProductService) DecrementStock(ctx context.Context, id, qty int64) error {
	return s.repo.DecrementStock(ctx, id, qty)
}

// RestoreStock 批量回补库存
func (s *ProductService) RestoreStock(ctx context.Context, items map[int64]int64) error {
	for id, qty := range items {
		if err := s.repo.RestoreStock(ctx, id, qty); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p *product.Product) error {
	return s.repo.Create(ctx, p)
}

func (s *ProductService) Update(ctx context.Context, p *product.Product) error {
	return s.repo.Update(ctx, p)
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}
