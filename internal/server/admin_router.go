package server

import (
	"time"

	"github.com/kataras/iris/v12"
	"github.com/shopspring/decimal"

	"github.com/hoyoungleee/say4team-eks/internal/auth"
	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
	"github.com/hoyoungleee/say4team-eks/internal/infra/redis"
	"github.com/hoyoungleee/say4team-eks/internal/repository/mysql"
	"github.com/hoyoungleee/say4team-eks/internal/service"
)

// productRequest 后台商品创建/更新请求体
type productRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"` // 十进制字符串，如 "15.00"
	Stock       *int64 `json:"stock"`
	Category    string `json:"category"`
	ImagePath   string `json:"image_path"`
	Status      *int   `json:"status"`
}

func (r *productRequest) applyTo(p *product.Product, partial bool) error {
	if r.Name != "" || !partial {
		p.Name = r.Name
	}
	if r.Description != "" || !partial {
		p.Description = r.Description
	}
	if r.Price != "" {
		price, err := decimal.NewFromString(r.Price)
		if err != nil {
			return err
		}
		p.Price = price
	}
	if r.Stock != nil {
		p.Stock = *r.Stock
	}
	if r.Category != "" || !partial {
		p.Category = r.Category
	}
	if r.ImagePath != "" || !partial {
		p.ImagePath = r.ImagePath
	}
	if r.Status != nil {
		p.Status = *r.Status
	}
	return nil
}

// adminOnly 在身份中间件之后再卡一道管理员角色
func adminOnly() iris.Handler {
	return func(ctx iris.Context) {
		if user.Role(ctx.Values().GetString("role")) != user.RoleAdmin {
			ctx.StopWithJSON(403, iris.Map{"code": 403, "msg": "admin only"})
			return
		}
		ctx.Next()
	}
}

// RegisterAdminRoutes 注册后台管理端的 HTTP 路由
// 端口通常是 8081，与前台 Web 服务分离。
func RegisterAdminRoutes(app *iris.Application, cfg *config.Config) {
	// 初始化基础设施
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)

	// 仓储与服务
	userRepo := mysql.NewUserRepository(db)
	productRepo := mysql.NewProductRepository(db)
	orderRepo := mysql.NewOrderRepository(db)

	userSvc := service.NewUserService(userRepo, redisClient, &cfg.JWT, nil)
	productSvc := service.NewProductService(productRepo)
	// 后台不做下单编排，购物车/补偿协作方留空
	orderSvc := service.NewOrderService(orderRepo, userSvc, nil, productSvc, nil, redisClient, cfg.Order)

	ring := auth.NewConsistentHashRing(cfg.Auth.Nodes, cfg.Auth.HashReplicas)
	tokenCache := auth.NewTokenCache(redisClient, ring, time.Duration(cfg.Auth.TokenCacheTTLSeconds)*time.Second)

	api := app.Party("/api", identityMiddleware(cfg, tokenCache), adminOnly())

	// ---------- 商品管理 ----------

	api.Get("/products", func(ctx iris.Context) {
		list, err := productSvc.ListAll(ctx.Request().Context())
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Post("/products", func(ctx iris.Context) {
		var req productRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		p := &product.Product{}
		if err := req.applyTo(p, false); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := productSvc.Create(ctx.Request().Context(), p); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Put("/products/{id:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		p, err := productSvc.GetByID(ctx.Request().Context(), int64(pid))
		if err != nil {
			httpError(ctx, err)
			return
		}
		var req productRequest
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := req.applyTo(p, true); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := productSvc.Update(ctx.Request().Context(), p); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": p})
	})

	api.Delete("/products/{id:uint64}", func(ctx iris.Context) {
		pid, _ := ctx.Params().GetUint64("id")
		if err := productSvc.Delete(ctx.Request().Context(), int64(pid)); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "deleted"})
	})

	// 手工回补库存（目录侧独立操作，取消订单后由运营决定是否回补）
	api.Post("/products/restore-stock", func(ctx iris.Context) {
		var req map[int64]int64 // productID -> quantity
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		if err := productSvc.RestoreStock(ctx.Request().Context(), req); err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "msg": "restored"})
	})

	// ---------- 订单管理 ----------

	// 最新订单，或按邮箱过滤
	api.Get("/orders", func(ctx iris.Context) {
		email := ctx.URLParam("email")
		if email != "" {
			views, err := orderSvc.ListOrdersByEmail(ctx.Request().Context(), identityFrom(ctx), email)
			if err != nil {
				httpError(ctx, err)
				return
			}
			ctx.JSON(iris.Map{"code": 0, "data": views})
			return
		}
		limit := ctx.URLParamIntDefault("limit", 20)
		list, err := orderSvc.ListRecent(ctx.Request().Context(), limit)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": list})
	})

	api.Get("/orders/{id:uint64}", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		view, err := orderSvc.GetOrder(ctx.Request().Context(), identityFrom(ctx), int64(oid))
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": view})
	})

	api.Put("/orders/{id:uint64}/status", func(ctx iris.Context) {
		oid, _ := ctx.Params().GetUint64("id")
		var req struct {
			Status string `json:"status"`
		}
		if err := ctx.ReadJSON(&req); err != nil {
			ctx.StopWithJSON(400, iris.Map{"code": 400, "msg": err.Error()})
			return
		}
		view, err := orderSvc.UpdateStatus(ctx.Request().Context(), identityFrom(ctx), int64(oid), req.Status)
		if err != nil {
			httpError(ctx, err)
			return
		}
		ctx.JSON(iris.Map{"code": 0, "data": view})
	})

	// ---------- 用户 / 监控 ----------

	api.Get("/users", func(ctx iris.Context) {
		list, err := userSvc.ListAll(ctx.Request().Context())
		if err != nil {
			httpError(ctx, err)
			return
		}
		out := make([]iris.Map, 0, len(list))
		for _, u := range list {
			out = append(out, iris.Map{
				"id":      u.ID,
				"email":   u.Email,
				"name":    u.Name,
				"address": u.Address,
				"role":    u.Role,
			})
		}
		ctx.JSON(iris.Map{"code": 0, "data": out})
	})

	api.Get("/monitor", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"code": 0, "data": service.GetMonitor().GetStats()})
	})
}
