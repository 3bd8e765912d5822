package repository

import (
	"context"
	"time"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

func (r *CartGormRepository) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	return r.find(ctx, userID, false)
}

// 同じユーザーのcheckoutが同時に走ったら後ろは待つ
func (r *CartGormRepository) FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	return r.find(ctx, userID, true)
}

func (r *CartGormRepository) find(ctx context.Context, userID int64, lock bool) (model.Cart, error) {
	var cart model.Cart

	q := r.db.WithContext(ctx)
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.
		Where("user_id = ?", userID).
		First(&cart).Error
	if isNotFound(err) {
		return model.Cart{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Cart{}, err
	}

	items := []model.CartItem{}
	if err := r.db.WithContext(ctx).
		Where("cart_id = ?", cart.ID).
		Order("id asc").
		Find(&items).Error; err != nil {
		return model.Cart{}, err
	}
	cart.Items = items

	return cart, nil
}

// カートを保存し、明細を入れ替える
func (r *CartGormRepository) Save(ctx context.Context, cart *model.Cart) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cart.ID == 0 {
			// 明細は下でまとめて作る
			if err := tx.Omit("Items").Create(cart).Error; err != nil {
				if isUniqueViolation(err) {
					return repo.ErrConflict
				}
				return err
			}
		} else {
			if err := tx.Model(&model.Cart{}).Where("id = ?", cart.ID).Update("updated_at", time.Now()).Error; err != nil {
				return err
			}
		}

		//cart_itemsを全削除して作り直す
		if err := tx.Where("cart_id = ?", cart.ID).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			cart.Items = []model.CartItem{}
			return nil
		}

		for i := range cart.Items {
			cart.Items[i].ID = 0
			cart.Items[i].CartID = cart.ID
		}
		return tx.Create(&cart.Items).Error
	})
}
