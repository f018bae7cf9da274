package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"github.com/hoyoungleee/say4team-eks/internal/config"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
	"github.com/hoyoungleee/say4team-eks/internal/datamodels/user"
	"github.com/hoyoungleee/say4team-eks/internal/infra/redis"
	"github.com/hoyoungleee/say4team-eks/internal/repository/mysql"
	"github.com/hoyoungleee/say4team-eks/internal/service"
)

// 往库里种一个管理员、一个普通用户和一批演示商品，方便本地联调
func main() {
	cfg := config.Load()
	db := mysql.Init(&cfg.MySQL)
	redisClient := redis.Init(&cfg.Redis)

	ctx := context.Background()

	userRepo := mysql.NewUserRepository(db)
	userSvc := service.NewUserService(userRepo, redisClient, &cfg.JWT, nil)

	if u, err := userSvc.Register(ctx, "admin@say4team.com", "admin123", "管理员", "서울특별시 강남구"); err != nil {
		log.Printf("admin exists or create failed: %v", err)
	} else {
		u.Role = user.RoleAdmin
		if err := userRepo.Update(ctx, u); err != nil {
			log.Fatalf("failed to promote admin: %v", err)
		}
		log.Printf("admin created: %s", u.Email)
	}

	if u, err := userSvc.Register(ctx, "demo@say4team.com", "demo123", "데모", "부산광역시 해운대구"); err != nil {
		log.Printf("demo user exists or create failed: %v", err)
	} else {
		log.Printf("demo user created: %s", u.Email)
	}

	productRepo := mysql.NewProductRepository(db)
	seeds := []*product.Product{
		{Name: "클래식 셔츠", Description: "면 100%", Price: decimal.NewFromFloat(15.00), Stock: 100, Category: "men", ImagePath: "/assets/img/shop/1/product_1.jpg", Status: 1},
		{Name: "린넨 팬츠", Description: "여름용", Price: decimal.NewFromFloat(7.50), Stock: 80, Category: "men", ImagePath: "/assets/img/shop/2/product_2.jpg", Status: 1},
		{Name: "플라워 원피스", Description: "신상", Price: decimal.NewFromFloat(29.90), Stock: 50, Category: "women", ImagePath: "/assets/img/shop/3/product_3.jpg", Status: 1},
		{Name: "실버 목걸이", Description: "925 실버", Price: decimal.NewFromFloat(12.00), Stock: 200, Category: "accessories", ImagePath: "/assets/img/shop/4/product_4.jpg", Status: 1},
	}
	for _, p := range seeds {
		if err := productRepo.Create(ctx, p); err != nil {
			log.Printf("seed product %q failed: %v", p.Name, err)
			continue
		}
		log.Printf("seeded product #%d %s", p.ID, p.Name)
	}
}
