package service

import (
	"errors"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/product"
)

// 业务错误分类。调用方用 errors.Is 判定，HTTP 层据此映射状态码。
var (
	ErrIdentityResolution    = errors.New("identity not found")
	ErrCatalogLookup         = errors.New("catalog lookup failed")
	ErrProductNotFound       = errors.New("product not found")
	ErrAccessDenied          = errors.New("access denied")
	ErrInvalidStatus         = errors.New("invalid order status")
	ErrAlreadyCanceled       = errors.New("order already canceled")
	ErrOrderNotFound         = errors.New("order not found")
	ErrDownstreamUnavailable = errors.New("downstream unavailable")
	ErrEmptyCart             = errors.New("cart is empty")
	ErrEmailTaken            = errors.New("email already registered")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrVerifyBlocked         = errors.New("verification temporarily blocked")
	ErrVerifyCodeMismatch    = errors.New("verification code mismatch")
	ErrInvalidQuantity       = errors.New("quantity must be positive")
	ErrReviewNotFound        = errors.New("review not found")
)

// ErrInsufficientStock 库存不足，由商品仓储的条件扣减产生
var ErrInsufficientStock = product.ErrInsufficientStock
