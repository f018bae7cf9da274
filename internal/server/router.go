package server

import (
	"errors"
	"strings"
	"time"

	"github.com/kataras/iris/v12"

	"github.com/hoyoungleee/say4team-eks/internal/auth"
	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
	"github.com/hoyoungleee/say4team-eks/internal/infra/mq"
	"github.com/hoyoungleee/say4team-eks/internal/infra/redis"
	"github.com/hoyoungleee/say4team-eks/internal/middleware"
	"github.com/hoyoungleee/say4team-eks/internal/repository/mysql"
	"github.com/hoyoungleee/say4team-eks/internal/service"
)

// httpError 把业务错误分类映射到 HTTP 状态码，统一返回 code/msg 信封
func httpError(ctx iris.Context, err error) {
	code := 500
	switch {
	case errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrVerifyCodeMismatch):
		code = 400
	case errors.Is(err, service.ErrInvalidCredentials):
		code = 401
	case errors.Is(err, service.ErrAccessDenied):
		code = 403
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrIdentityResolution),
		errors.Is(err, service.ErrReviewNotFound):
		code = 404
	case errors.Is(err, service.ErrAlreadyCanceled),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrInsufficientStock):
		code = 409
	case errors.Is(err, service.ErrVerifyBlocked):
		code = 429
	case errors.Is(err, service.ErrDownstreamUnavailable),
		errors.Is(err, service.ErrCatalogLookup):
		code = 502
	}
	ctx.StopWithJSON(code, iris.Map{"code": code, "msg": err.Error()})
}

// identityMiddleware 解析 Authorization 头，把 email/role 放进请求上下文。
// 解析结果先走 Redis 缓存（一致性哈希分片），未命中再验签。
func identityMiddleware(cfg *config.Config, cache *auth.TokenCache) iris.Handler {
	return func(ctx iris.Context) {
		token := ctx.GetHeader("Authorization")
		token = strings.TrimPrefix(token, "Bearer ")
		if token == "" {
			ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "missing token"})
			return
		}

		claims, hit, err := cache.Get(ctx.Request().Context(), token)
		if err != nil || !hit {
			claims, err = auth.ParseToken(&cfg.JWT, token)
			if err != nil {
				ctx.StopWithJSON(401, iris.Map{"code": 401, "msg": "invalid token"})
				return
			}
			_ = cache.Set(ctx.Request().Context(), token, claims)
		}

		ctx.Values().Set("email", claims.Email)
		ctx.Values().Set("role", string(claims.Role))
		ctx.Next()
	}
}

// identityFrom 从请求上下文取出显式身份
func identityFrom(ctx iris.Context) service.Identity {
	return service.Identity{
		Email: ctx.Values().GetString("email"),
		Role:  user.Role(ctx.Values().GetString("role")),
	}
}

// RegisterRoutes 注册前台 HTTP 路由
func RegisterRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)
	mqConn := mq.Init(&cfg.RabbitMQ)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	cartRepo := mysql.NewCartRepository(db)
	orderRepo := mysql.NewOrderRepository(db)
	reviewRepo := mysql.NewReviewRepository(db)

	userSvc := service.NewUserService(userRepo, redisClient, &cfg.JWT, nil)
	productSvc := service.NewProductService(productRepo)
	cartSvc := service.NewCartService(cartRepo)
	reviewSvc := service.NewReviewService(reviewRepo)
	orderSvc := service.NewOrderService(
		orderRepo,
		userSvc,
		cartSvc,
		productSvc,
		service.NewMQCompensationPublisher(mqConn),
		redisClient,
		cfg.Order,
	)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api")

	// 健康检查
	api.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "msg": "ok"})
	})

	// 用户注册/登录
	api.Post("/register", func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Name     string `json:"name"`
			Address  string `json:"address"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.Register(ctx.Request().Context(), req.Email, req.Password, req.Name, req.Address)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"id": u.ID, "email": u.Email}})
	})

	api.Post("/login", func(ctx iris.Context) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		token, err := userSvc.Login(ctx.Request().Context(), req.Email, req.Password)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"token": token}})
	})

	// 邮箱验证码
	api.Post("/email/code", func(ctx iris.Context) {
		var req struct {
			Email string `json:"email"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := userSvc.SendVerificationCode(ctx.Request().Context(), req.Email); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "sent"})
	})

	api.Post("/email/verify", func(ctx iris.Context) {
		var req struct {
			Email string `json:"email"`
			Code  string `json:"code"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := userSvc.VerifyCode(ctx.Request().Context(), req.Email, req.Code); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "verified"})
	})

	// 商品浏览不需要登录
	api.Get("/products", func(ctx iris.Context) {
		category := ctx.URLParam("category") // men, women, accessories, 或空（全部）
		keyword := ctx.URLParam("q")
		var list []*product.Product
		var err error
		if category != "" {
			list, err = productSvc.ListByCategory(ctx.Request().Context(), category)
		} else {
			list, err = productSvc.ListOnline(ctx.Request().Context())
		}
		if err != nil {
			httpError(ctx, err)
			return
		}

		// 带关键字时在内存里按名称做简单过滤
		if keyword != "" {
			kw := strings.ToLower(keyword)
			filtered := make([]*product.Product, 0, len(list))
			for _, p := range list {
				if strings.Contains(strings.ToLower(p.Name), kw) {
					filtered = append(filtered, p)
				}
			}
			list = filtered
		}

		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/products/{id:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		p, err := productSvc.GetByID(ctx.Request().Context(), int64(pid))
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Get("/products/{id:uint64}/reviews", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		afterID := ctx.URLParamInt64Default("after", 0)
		limit := ctx.URLParamIntDefault("limit", 30)
		list, err := reviewSvc.ListByProduct(ctx.Request().Context(), int64(pid), afterID, limit)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	// 需要登录的接口
	authAPI := api.Party("/", identityMiddleware(cfg, tokenCache))

	authAPI.Get("/me", func(ctx iris.Context) {
		ident := identityFrom(ctx)
		u, err := userSvc.ResolveByEmail(ctx.Request().Context(), ident.Email)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{
			"email":   u.Email,
			"name":    u.Name,
			"address": u.Address,
			"role":    u.Role,
		}})
	})

	authAPI.Put("/me/address", func(ctx iris.Context) {
		var req struct {
			Address string `json:"address"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		u, err := userSvc.UpdateAddress(ctx.Request().Context(), identityFrom(ctx), req.Address)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"address": u.Address}})
	})

	// ---------------- 购物车 ----------------

	authAPI.Get("/cart", func(ctx iris.Context) {
		items, err := cartSvc.GetCart(ctx.Request().Context(), identityFrom(ctx).Email)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": items})
	})

	authAPI.Post("/cart/items", func(ctx iris.Context) {
		var req struct {
			ProductID int64 `json:"product_id"`
			Quantity  int64 `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := cartSvc.AddItem(ctx.Request().Context(), identityFrom(ctx).Email, req.ProductID, req.Quantity); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "added"})
	})

	authAPI.Put("/cart/items/{pid:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("pid")
		var req struct {
			Quantity int64 `json:"quantity"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := cartSvc.UpdateQuantity(ctx.Request().Context(), identityFrom(ctx).Email, int64(pid), req.Quantity); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "updated"})
	})

	authAPI.Delete("/cart/items/{pid:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("pid")
		if err := cartSvc.RemoveItem(ctx.Request().Context(), identityFrom(ctx).Email, int64(pid)); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "removed"})
	})

	authAPI.Delete("/cart", func(ctx iris.Context) {
		if err := cartSvc.ClearCart(ctx.Request().Context(), identityFrom(ctx).Email); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "cleared"})
	})

	// ---------------- 订单 ----------------

	// 从当前购物车下单
	authAPI.Post("/orders", middleware.OrderRateLimit(), func(ctx iris.Context) {
		orderID, err := orderSvc.CreateOrder(ctx.Request().Context(), identityFrom(ctx))
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": iris.Map{"order_id": orderID}})
	})

	// 我的订单（CANCELED 不返回）
	authAPI.Get("/orders", func(ctx iris.Context) {
		ident := identityFrom(ctx)
		views, err := orderSvc.ListOrdersByEmail(ctx.Request().Context(), ident, ident.Email)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": views})
	})

	authAPI.Get("/orders/{id:uint64}", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		view, err := orderSvc.GetOrder(ctx.Request().Context(), identityFrom(ctx), int64(oid))
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": view})
	})

	authAPI.Delete("/orders/{id:uint64}", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		if err := orderSvc.CancelOrder(ctx.Request().Context(), identityFrom(ctx), int64(oid)); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "canceled"})
	})

	// ---------------- 评价 ----------------

	authAPI.Post("/products/{id:uint64}/reviews", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		var req struct {
			Rating  int    `json:"rating"`
			Content string `json:"content"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		rv, err := reviewSvc.Create(ctx.Request().Context(), identityFrom(ctx), int64(pid), req.Rating, req.Content)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": rv})
	})

	authAPI.Delete("/reviews/{id:uint64}", func(ctx iris.Context) {
		rid, _ := ctx.Params().GetUint64("id")
		if err := reviewSvc.Delete(ctx.Request().Context(), identityFrom(ctx), int64(rid)); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})
}
