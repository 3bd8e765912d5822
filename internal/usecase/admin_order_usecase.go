package usecase

import (
	"context"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"
)

// 管理者向けの注文参照（変更はしない）
type AdminOrderUsecase struct {
	orders repo.OrderRepository
}

func NewAdminOrderUsecase(orders repo.OrderRepository) *AdminOrderUsecase {
	return &AdminOrderUsecase{orders: orders}
}

type AdminOrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

func (u *AdminOrderUsecase) List(ctx context.Context, f repo.AdminOrderListFilter) (AdminOrderListOutput, error) {
	if f.Page < 1 {
		return AdminOrderListOutput{}, validation("invalid page")
	}
	if f.Limit < 1 || f.Limit > 100 {
		return AdminOrderListOutput{}, validation("invalid limit")
	}
	if f.UserID != nil && *f.UserID <= 0 {
		return AdminOrderListOutput{}, validation("invalid user_id")
	}
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return AdminOrderListOutput{}, validation("from must be before to")
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return AdminOrderListOutput{}, internalError(err)
	}
	if orders == nil {
		orders = []model.Order{}
	}

	return AdminOrderListOutput{
		Items: orders,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	}, nil
}
