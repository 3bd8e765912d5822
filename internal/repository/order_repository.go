package repository

import (
	"context"
	"time"

	"gamestore/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page   int
	Limit  int
	UserID *int64
	From   *time.Time
	To     *time.Time
}

type OrderRepository interface {
	// 明細ごと作成。IDとCreatedAtが埋まる
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID int64) (model.Order, error)
	// 新しい順
	ListByUserID(ctx context.Context, userID int64) ([]model.Order, error)
	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)
}
