package repository

import (
	"context"

	"gamestore/internal/domain/model"
)

type CartRepository interface {
	// 明細込みで取得。無ければ ErrNotFound
	FindByUserID(ctx context.Context, userID int64) (model.Cart, error)
	// checkout用。カート行をロックして取得
	FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error)
	// カートと明細を保存（IDが0なら新規作成）
	Save(ctx context.Context, cart *model.Cart) error
}
