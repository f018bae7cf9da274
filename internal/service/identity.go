package service

import "github.com/hoyoungleee/say4team-eks/internal/datamodels/user"

// Identity 请求方身份。由 JWT 中间件解析后显式传入各服务方法，
// 不依赖任何线程/协程局部的隐式状态。
type Identity struct {
	Email string
	Role  user.Role
}

// IsAdmin 是否管理员
func (id Identity) IsAdmin() bool {
	return id.Role == user.RoleAdmin
}
