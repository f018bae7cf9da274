package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
)

type fakeProductRepo struct {
	products map[int64]*product.Product
}

func newFakeProductRepo(ps ...*product.Product) *fakeProductRepo {
	r := &fakeProductRepo{products: make(map[int64]*product.Product)}
	for _, p := range ps {
		r.products[p.ID] = p
	}
	return r
}

func (r *fakeProductRepo) GetByID(ctx context.Context, id int64) (*product.Product, error) {
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *fakeProductRepo) ListByIDs(ctx context.Context, ids []int64) ([]*product.Product, error) {
	var list []*product.Product
	for _, id := range ids {
		if p, ok := r.products[id]; ok {
			list = append(list, p)
		}
	}
	return list, nil
}

func (r *fakeProductRepo) ListAll(ctx context.Context) ([]*product.Product, error)    { return nil, nil }
func (r *fakeProductRepo) ListOnline(ctx context.Context) ([]*product.Product, error) { return nil, nil }
func (r *fakeProductRepo) ListByCategory(ctx context.Context, category string) ([]*product.Product, error) {
	return nil, nil
}
func (r *fakeProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.products[p.ID] = p
	return nil
}
func (r *fakeProductRepo) Update(ctx context.Context, p *product.Product) error { return nil }
func (r *fakeProductRepo) Delete(ctx context.Context, id int64) error           { return nil }

func (r *fakeProductRepo) DecrementStock(ctx context.Context, id, qty int64) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if p.Stock < qty {
		return product.ErrInsufficientStock
	}
	p.Stock -= qty
	return nil
}

func (r *fakeProductRepo) RestoreStock(ctx context.Context, id, qty int64) error {
	p, ok := r.products[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Stock += qty
	return nil
}

func TestBatchGetOmitsMissing(t *testing.T) {
	svc := NewProductService(newFakeProductRepo(
		&product.Product{ID: 1, Name: "a", Price: decimal.NewFromInt(1), Stock: 1},
		&product.Product{ID: 2, Name: "b", Price: decimal.NewFromInt(2), Stock: 2},
	))

	m, err := svc.BatchGet(context.Background(), []int64{1, 2, 99})
	require.NoError(t, err)
	assert.Len(t, m, 2)
	assert.Contains(t, m, int64(1))
	assert.Contains(t, m, int64(2))
	assert.NotContains(t, m, int64(99))
}

func TestDecrementStockDistinguishesMissingProduct(t *testing.T) {
	repo := newFakeProductRepo(&product.Product{ID: 1, Stock: 1})
	svc := NewProductService(repo)
	ctx := context.Background()

	// 库存不足与商品不存在是两类错误
	assert.ErrorIs(t, svc.DecrementStock(ctx, 1, 2), product.ErrInsufficientStock)
	assert.ErrorIs(t, svc.DecrementStock(ctx, 99, 1), gorm.ErrRecordNotFound)

	require.NoError(t, svc.DecrementStock(ctx, 1, 1))
	assert.Equal(t, int64(0), repo.products[1].Stock)
}

func TestRestoreStockAppliesAllItems(t *testing.T) {
	repo := newFakeProductRepo(
		&product.Product{ID: 1, Stock: 5},
		&product.Product{ID: 2, Stock: 0},
	)
	svc := NewProductService(repo)

	err := svc.RestoreStock(context.Background(), map[int64]int64{1: 2, 2: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(7), repo.products[1].Stock)
	assert.Equal(t, int64(3), repo.products[2].Stock)
}
