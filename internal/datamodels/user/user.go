package user

import (
	"context"
	"time"
)

// Role 用户角色
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User 用户模型，Email 为业务主键（订单按邮箱归属）
type User struct {
	ID        int64  `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;size:128;not null"`
	Password  string `gorm:"size:255;not null"` // 已加密密码
	Salt      string `gorm:"size:64"`
	Name      string `gorm:"size:64"`
	Address   string `gorm:"size:256"`
	Role      Role   `gorm:"size:16;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository 用户仓储接口
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, u *User) error
	Update(ctx context.Context, u *User) error
	ListAll(ctx context.Context) ([]*User, error)
}
