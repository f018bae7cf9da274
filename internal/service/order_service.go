package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	radix "github.com/mediocregopher/radix/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/cart"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/order"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
)

// redisDecrementMarkKey 库存扣减幂等标记：orderID, productID
const redisDecrementMarkKey = "order:deckey:%d:%d"

const decrementMarkTTLSeconds = 86400

// IdentityClient 身份协作方：按邮箱解析用户（取收货地址、角色）
type IdentityClient interface {
	ResolveByEmail(ctx context.Context, email string) (*user.User, error)
}

// CartClient 购物车协作方
type CartClient interface {
	GetCart(ctx context.Context, email string) ([]*cart.Item, error)
	ClearCart(ctx context.Context, email string) error
}

// CatalogClient 商品目录协作方。BatchGet 缺失的 ID 缺席返回值而不报错；
// DecrementStock 是条件扣减，库存不足返回 product.ErrInsufficientStock。
type CatalogClient interface {
	BatchGet(ctx context.Context, ids []int64) (map[int64]*product.Product, error)
	DecrementStock(ctx context.Context, productID, qty int64) error
}

// OrderService 下单编排与订单查询
type OrderService struct {
	repo     order.Repository
	identity IdentityClient
	cart     CartClient
	catalog  CatalogClient
	comp     CompensationPublisher
	redis    radix.Client
	cfg      config.OrderConfig
}

// NewOrderService 创建订单服务。redisClient / comp 允许为 nil（降级运行）。
func NewOrderService(
	repo order.Repository,
	identity IdentityClient,
	cartClient CartClient,
	catalog CatalogClient,
	comp CompensationPublisher,
	redisClient radix.Client,
	cfg config.OrderConfig,
) *OrderService {
	return &OrderService{
		repo:     repo,
		identity: identity,
		cart:     cartClient,
		catalog:  catalog,
		comp:     comp,
		redis:    redisClient,
		cfg:      cfg,
	}
}

// CreateOrder 下单编排：
// 解析身份 -> 读购物车 -> 批查商品 -> 算总价 -> 落库 PENDING ->
// 清购物车 -> 逐行扣库存 -> 置 ORDERED。
// PENDING 落库一定先于任何不可廉价撤销的外部副作用；
// 扣减中断时已扣的部分走 MQ 补偿回补，订单留在 PENDING。
func (s *OrderService) CreateOrder(ctx context.Context, ident Identity) (int64, error) {
	GetMonitor().RecordOrderRequest()

	if ident.Email == "" {
		GetMonitor().RecordOrderFailed()
		return 0, fmt.Errorf("%w: empty email", ErrIdentityResolution)
	}

	// 1. 身份解析，拿收货地址快照
	var u *user.User
	err := s.retryRead(ctx, func(c context.Context) error {
		var err error
		u, err = s.identity.ResolveByEmail(c, ident.Email)
		return err
	})
	if err != nil {
		GetMonitor().RecordOrderFailed()
		if errors.Is(err, ErrIdentityResolution) || errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: %s", ErrIdentityResolution, ident.Email)
		}
		return 0, fmt.Errorf("%w: resolve identity: %v", ErrDownstreamUnavailable, err)
	}

	// 2. 读购物车
	var items []*cart.Item
	err = s.retryRead(ctx, func(c context.Context) error {
		var err error
		items, err = s.cart.GetCart(c, ident.Email)
		return err
	})
	if err != nil {
		GetMonitor().RecordOrderFailed()
		return 0, fmt.Errorf("%w: read cart: %v", ErrDownstreamUnavailable, err)
	}
	if len(items) == 0 {
		GetMonitor().RecordOrderFailed()
		return 0, ErrEmptyCart
	}

	// 3. 批查商品价格与库存
	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProductID]; ok {
			continue
		}
		seen[it.ProductID] = struct{}{}
		ids = append(ids, it.ProductID)
	}

	var products map[int64]*product.Product
	err = s.retryRead(ctx, func(c context.Context) error {
		var err error
		products, err = s.catalog.BatchGet(c, ids)
		return err
	})
	if err != nil || products == nil {
		GetMonitor().RecordOrderFailed()
		return 0, fmt.Errorf("%w: %v", ErrCatalogLookup, err)
	}

	// 4/5. 生成订单明细：数量照抄购物车，单价取目录快照
	lines := make([]order.Line, 0, len(items))
	total := decimal.Zero
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			// 缺失的商品不允许静默丢行
			GetMonitor().RecordOrderFailed()
			return 0, fmt.Errorf("%w: id=%d", ErrProductNotFound, it.ProductID)
		}
		lines = append(lines, order.Line{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: p.Price,
		})
		// 6. 总价 = Σ 单价 * 数量，全程 decimal，无浮点误差
		total = total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
	}

	// 7. 以 PENDING 落库。此时尚无任何外部副作用，失败可直接返回
	o := &order.Order{
		Email:      ident.Email,
		Address:    u.Address,
		TotalPrice: total,
		Status:     order.StatusPending,
		OrderedAt:  time.Now(),
		Lines:      lines,
	}
	if err := s.repo.Create(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		GetMonitor().RecordOrderFailed()
		return 0, err
	}

	// 8. 清空购物车。失败只上报，不回滚已落库的订单
	if err := s.callWithTimeout(ctx, func(c context.Context) error {
		return s.cart.ClearCart(c, ident.Email)
	}); err != nil {
		zap.L().Error("clear cart failed after order persisted",
			zap.Int64("order_id", o.ID),
			zap.String("email", ident.Email),
			zap.Error(err))
		GetMonitor().RecordOrderFailed()
		return o.ID, fmt.Errorf("%w: clear cart: %v", ErrDownstreamUnavailable, err)
	}

	// 9. 逐行扣减库存。任何一行失败即中止，已扣的部分发补偿事件回补
	applied := make(map[int64]int64, len(o.Lines))
	for _, line := range o.Lines {
		already, markErr := s.markDecrement(ctx, o.ID, line.ProductID)
		if markErr == nil && already {
			// 这一行已经扣过（同一订单被重放），跳过
			applied[line.ProductID] += line.Quantity
			continue
		}

		if err := s.callWithTimeout(ctx, func(c context.Context) error {
			return s.catalog.DecrementStock(c, line.ProductID, line.Quantity)
		}); err != nil {
			s.unmarkDecrement(ctx, o.ID, line.ProductID)
			GetMonitor().RecordDecrementError()
			GetMonitor().RecordOrderFailed()
			zap.L().Error("stock decrement failed, order stays PENDING",
				zap.Int64("order_id", o.ID),
				zap.Int64("product_id", line.ProductID),
				zap.Int64("quantity", line.Quantity),
				zap.Error(err))
			s.publishRestore(ctx, o.ID, applied)
			if errors.Is(err, product.ErrInsufficientStock) {
				return o.ID, fmt.Errorf("%w: product %d", product.ErrInsufficientStock, line.ProductID)
			}
			return o.ID, fmt.Errorf("%w: decrement stock for product %d: %v", ErrDownstreamUnavailable, line.ProductID, err)
		}
		applied[line.ProductID] += line.Quantity
	}

	// 10. 全部扣减成功，确认订单
	o.Status = order.StatusOrdered
	if err := s.repo.Save(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		GetMonitor().RecordOrderFailed()
		return o.ID, err
	}

	GetMonitor().RecordOrderCreated()
	zap.L().Info("order created",
		zap.Int64("order_id", o.ID),
		zap.String("email", ident.Email),
		zap.String("total", total.String()),
		zap.Int("lines", len(o.Lines)))
	return o.ID, nil
}

// markDecrement 在 Redis 打扣减幂等标记。返回 true 表示标记已存在（之前扣过）。
// 正常链路一个订单只驱动一次扣减循环，订单 ID 每次都是新的；标记的价值在
// 进程中途崩溃后的排查，以及同一订单的扣减被重放时不重复扣已扣的行。
func (s *OrderService) markDecrement(ctx context.Context, orderID, productID int64) (bool, error) {
	if s.redis == nil {
		return false, nil
	}
	key := fmt.Sprintf(redisDecrementMarkKey, orderID, productID)
	var resp string
	if err := s.redis.Do(radix.FlatCmd(&resp, "SET", key, "1", "NX", "EX", decrementMarkTTLSeconds)); err != nil {
		GetMonitor().RecordRedisError()
		// Redis 不可用时退化为直接扣减
		return false, err
	}
	return resp == "", nil
}

// unmarkDecrement 扣减失败时撤掉标记，让重试可以再次尝试这一行
func (s *OrderService) unmarkDecrement(ctx context.Context, orderID, productID int64) {
	if s.redis == nil {
		return
	}
	key := fmt.Sprintf(redisDecrementMarkKey, orderID, productID)
	if err := s.redis.Do(radix.Cmd(nil, "DEL", key)); err != nil {
		GetMonitor().RecordRedisError()
	}
}

// publishRestore 把已经扣掉的明细发到补偿队列，由 order-worker 回补
func (s *OrderService) publishRestore(ctx context.Context, orderID int64, applied map[int64]int64) {
	if len(applied) == 0 || s.comp == nil {
		return
	}
	ev := &StockRestoreEvent{
		EventID: uuid.NewString(),
		OrderID: orderID,
		Items:   applied,
	}
	if err := s.comp.PublishStockRestore(ctx, ev); err != nil {
		GetMonitor().RecordMQError()
		zap.L().Error("failed to publish stock restore event",
			zap.Int64("order_id", orderID),
			zap.Error(err))
		return
	}
	GetMonitor().RecordCompensationPublished()
}

// retryRead 幂等读的小重试：每次调用带独立超时，not-found 不重试
func (s *OrderService) retryRead(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := s.cfg.ReadRetries + 1
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = s.callWithTimeout(ctx, fn)
		if err == nil {
			return nil
		}
		if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrIdentityResolution) {
			return err
		}
		if i < attempts-1 {
			time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
		}
	}
	return err
}

func (s *OrderService) callWithTimeout(ctx context.Context, fn func(ctx context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout())
	defer cancel()
	return fn(callCtx)
}

// OrderLineView 查询返回的明细，含目录补充信息（名称/图片/分类）。
// 补充信息查不到时留空，不影响订单本身。
type OrderLineView struct {
	ProductID   int64           `json:"product_id"`
	Quantity    int64           `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	ProductName string          `json:"product_name"`
	ImagePath   string          `json:"image_path"`
	Category    string          `json:"category"`
}

// OrderView 查询返回的订单
type OrderView struct {
	ID         int64           `json:"id"`
	Email      string          `json:"email"`
	Address    string          `json:"address"`
	TotalPrice decimal.Decimal `json:"total_price"`
	Status     order.Status    `json:"status"`
	OrderedAt  time.Time       `json:"ordered_at"`
	Lines      []OrderLineView `json:"lines"`
}

func (s *OrderService) toView(o *order.Order, products map[int64]*product.Product) *OrderView {
	view := &OrderView{
		ID:         o.ID,
		Email:      o.Email,
		Address:    o.Address,
		TotalPrice: o.TotalPrice,
		Status:     o.Status,
		OrderedAt:  o.OrderedAt,
		Lines:      make([]OrderLineView, 0, len(o.Lines)),
	}
	for _, line := range o.Lines {
		lv := OrderLineView{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if p, ok := products[line.ProductID]; ok {
			lv.ProductName = p.Name
			lv.ImagePath = p.ImagePath
			lv.Category = p.Category
		}
		view.Lines = append(view.Lines, lv)
	}
	return view
}

// enrich 尽力批查目录信息，失败时降级为空 map（展示字段留空）
func (s *OrderService) enrich(ctx context.Context, ids []int64) map[int64]*product.Product {
	if len(ids) == 0 {
		return nil
	}
	products, err := s.catalog.BatchGet(ctx, ids)
	if err != nil {
		zap.L().Warn("catalog enrichment failed, degrading to bare order data", zap.Error(err))
		return nil
	}
	return products
}

func collectProductIDs(orders ...*order.Order) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range orders {
		for _, line := range o.Lines {
			if _, ok := seen[line.ProductID]; ok {
				continue
			}
			seen[line.ProductID] = struct{}{}
			ids = append(ids, line.ProductID)
		}
	}
	return ids
}

// GetOrder 单笔订单查询，仅本人或管理员可见
func (s *OrderService) GetOrder(ctx context.Context, ident Identity, orderID int64) (*OrderView, error) {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	if !ident.IsAdmin() && o.Email != ident.Email {
		return nil, fmt.Errorf("%w: order %d belongs to another customer", ErrAccessDenied, orderID)
	}
	products := s.enrich(ctx, collectProductIDs(o))
	return s.toView(o, products), nil
}

// ListOrdersByEmail 按邮箱列订单，CANCELED 不出现在列表里
func (s *OrderService) ListOrdersByEmail(ctx context.Context, ident Identity, email string) ([]*OrderView, error) {
	if !ident.IsAdmin() && email != ident.Email {
		return nil, fmt.Errorf("%w: can only list own orders", ErrAccessDenied)
	}

	all, err := s.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	orders := make([]*order.Order, 0, len(all))
	for _, o := range all {
		if o.Status == order.StatusCanceled {
			continue
		}
		orders = append(orders, o)
	}

	products := s.enrich(ctx, collectProductIDs(orders...))
	views := make([]*OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, s.toView(o, products))
	}
	return views, nil
}

// ListRecent 最新订单（后台用）
func (s *OrderService) ListRecent(ctx context.Context, limit int) ([]*order.Order, error) {
	return s.repo.ListRecent(ctx, limit)
}

// UpdateStatus 管理员修改订单状态。除了 CANCELED 不可迁出，不限制其它迁移
func (s *OrderService) UpdateStatus(ctx context.Context, ident Identity, orderID int64, statusStr string) (*OrderView, error) {
	if !ident.IsAdmin() {
		return nil, fmt.Errorf("%w: only admin can update order status", ErrAccessDenied)
	}

	st, ok := order.ParseStatus(statusStr)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, statusStr)
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrOrderNotFound, orderID)
		}
		return nil, err
	}
	if !o.Status.CanTransition(st) {
		return nil, fmt.Errorf("%w: cannot leave %s", ErrInvalidStatus, o.Status)
	}

	o.Status = st
	if err := s.repo.Save(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		return nil, err
	}
	return s.GetOrder(ctx, ident, orderID)
}

// CancelOrder 取消订单，本人或管理员。已取消的订单再取消报 ErrAlreadyCanceled。
// 本编排不自动回补库存，回补是目录侧的独立操作。
func (s *OrderService) CancelOrder(ctx context.Context, ident Identity, orderID int64) error {
	o, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id=%d", ErrOrderNotFound, orderID)
		}
		return err
	}
	if !ident.IsAdmin() && o.Email != ident.Email {
		return fmt.Errorf("%w: order %d belongs to another customer", ErrAccessDenied, orderID)
	}
	if o.Status == order.StatusCanceled {
		return fmt.Errorf("%w: id=%d", ErrAlreadyCanceled, orderID)
	}

	o.Status = order.StatusCanceled
	if err := s.repo.Save(ctx, o); err != nil {
		GetMonitor().RecordDBError()
		return err
	}
	zap.L().Info("order canceled", zap.Int64("order_id", orderID), zap.String("by", ident.Email))
	return nil
}
