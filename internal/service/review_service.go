package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hoyoungleee/say4team-eks/internal/datamodels/review"
)

// ReviewService 商品评价
type ReviewService struct {
	repo review.Repository
}

func NewReviewService(repo review.Repository) *ReviewService {
	return &ReviewService{repo: repo}
}

// Create 发表评价，作者取 token 身份
func (s *ReviewService) Create(ctx context.Context, ident Identity, productID int64, rating int, content string) (*review.Review, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("rating must be 1-5, got %d", rating)
	}
	rv := &review.Review{
		ProductID: productID,
		Email:     ident.Email,
		Rating:    rating,
		Content:   content,
	}
	if err := s.repo.Create(ctx, rv); err != nil {
		return nil, err
	}
	return rv, nil
}

// ListByProduct 按商品分页列评价
func (s *ReviewService) ListByProduct(ctx context.Context, productID, afterID int64, limit int) ([]*review.Review, error) {
	return s.repo.ListByProduct(ctx, productID, afterID, limit)
}

// Delete 删除评价，作者本人或管理员
func (s *ReviewService) Delete(ctx context.Context, ident Identity, id int64) error {
	rv, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: id=%d", ErrReviewNotFound, id)
		}
		return err
	}
	if !ident.IsAdmin() && rv.Email != ident.Email {
		return fmt.Errorf("%w: review %d belongs to another user", ErrAccessDenied, id)
	}
	return s.repo.Delete(ctx, id)
}
