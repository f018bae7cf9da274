package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/cart"
)

type fakeCartRepo struct {
	items map[string]map[int64]*cart.Item // email -> productID -> item
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{items: make(map[string]map[int64]*cart.Item)}
}

func (r *fakeCartRepo) ListByEmail(ctx context.Context, email string) ([]*cart.Item, error) {
	var list []*cart.Item
	for _, it := range r.items[email] {
		list = append(list, it)
	}
	return list, nil
}

func (r *fakeCartRepo) Upsert(ctx context.Context, item *cart.Item) error {
	if r.items[item.Email] == nil {
		r.items[item.Email] = make(map[int64]*cart.Item)
	}
	if existing, ok := r.items[item.Email][item.ProductID]; ok {
		existing.Quantity += item.Quantity
		return nil
	}
	r.items[item.Email][item.ProductID] = item
	return nil
}

func (r *fakeCartRepo) UpdateQuantity(ctx context.Context, email string, productID, quantity int64) error {
	it, ok := r.items[email][productID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	it.Quantity = quantity
	return nil
}

func (r *fakeCartRepo) Delete(ctx context.Context, email string, productID int64) error {
	if _, ok := r.items[email][productID]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.items[email], productID)
	return nil
}

func (r *fakeCartRepo) Clear(ctx context.Context, email string) error {
	delete(r.items, email)
	return nil
}

func TestCartAddItemAccumulates(t *testing.T) {
	svc := NewCartService(newFakeCartRepo())
	ctx := context.Background()

	require.NoError(t, svc.AddItem(ctx, "a@test.com", 10, 2))
	require.NoError(t, svc.AddItem(ctx, "a@test.com", 10, 3))

	items, err := svc.GetCart(ctx, "a@test.com")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(5), items[0].Quantity)
}

func TestCartAddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc := NewCartService(newFakeCartRepo())
	ctx := context.Background()

	assert.ErrorIs(t, svc.AddItem(ctx, "a@test.com", 10, 0), ErrInvalidQuantity)
	assert.ErrorIs(t, svc.AddItem(ctx, "a@test.com", 10, -1), ErrInvalidQuantity)
}

func TestCartUpdateQuantity(t *testing.T) {
	svc := NewCartService(newFakeCartRepo())
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, "a@test.com", 10, 2))

	require.NoError(t, svc.UpdateQuantity(ctx, "a@test.com", 10, 7))
	items, _ := svc.GetCart(ctx, "a@test.com")
	require.Len(t, items, 1)
	assert.Equal(t, int64(7), items[0].Quantity)

	// 0 视为删除
	require.NoError(t, svc.UpdateQuantity(ctx, "a@test.com", 10, 0))
	items, _ = svc.GetCart(ctx, "a@test.com")
	assert.Empty(t, items)

	assert.ErrorIs(t, svc.UpdateQuantity(ctx, "a@test.com", 10, -2), ErrInvalidQuantity)
}

func TestCartRemoveItemIdempotent(t *testing.T) {
	svc := NewCartService(newFakeCartRepo())
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, "a@test.com", 10, 1))

	require.NoError(t, svc.RemoveItem(ctx, "a@test.com", 10))
	// 再删一次不算错
	require.NoError(t, svc.RemoveItem(ctx, "a@test.com", 10))
}

func TestCartClear(t *testing.T) {
	svc := NewCartService(newFakeCartRepo())
	ctx := context.Background()
	require.NoError(t, svc.AddItem(ctx, "a@test.com", 10, 1))
	require.NoError(t, svc.AddItem(ctx, "a@test.com", 11, 2))

	require.NoError(t, svc.ClearCart(ctx, "a@test.com"))
	items, err := svc.GetCart(ctx, "a@test.com")
	require.NoError(t, err)
	assert.Empty(t, items)
}
