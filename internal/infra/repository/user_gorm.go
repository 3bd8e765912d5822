package repository

import (
	"context"

	"gamestore/internal/domain/model"
	domainrepo "gamestore/internal/repository"

	"gorm.io/gorm"
)

type userGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewUserGormRepository(db *gorm.DB) domainrepo.UserRepository {
	return &userGormRepository{db: db}
}

// Create はユーザーを新規作成
func (r *userGormRepository) Create(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueViolation(err) {
			return domainrepo.ErrConflict
		}
		return err
	}
	return nil
}

// emailでユーザーを1件取得
func (r *userGormRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.first(ctx, "email = ?", email)
}

// IDでユーザーを1件取得
func (r *userGormRepository) FindByID(ctx context.Context, id int64) (*model.User, error) {
	return r.first(ctx, "id = ?", id)
}

// 期限は usecase 側で見る
func (r *userGormRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	return r.first(ctx, "reset_password_token_hash = ?", tokenHash)
}

func (r *userGormRepository) first(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var u model.User

	err := r.db.WithContext(ctx).
		Where(query, arg).
		First(&u).Error
	if isNotFound(err) {
		return nil, domainrepo.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

// ユーザーを更新。
func (r *userGormRepository) Update(ctx context.Context, user *model.User) error {
	if err := r.db.WithContext(ctx).Save(user).Error; err != nil {
		return err
	}
	return nil
}

// token_versionを+1して新しい値を返す
func (r *userGormRepository) IncrementTokenVersion(ctx context.Context, id int64) (int, error) {
	var version int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.
			Model(&model.User{}).
			Where("id = ?", id).
			UpdateColumn("token_version", gorm.Expr("token_version + ?", 1))
		if res.Error != nil {
			return res.Error
		}

		// 0件更新は「対象がない」
		if res.RowsAffected == 0 {
			return domainrepo.ErrNotFound
		}

		return tx.Model(&model.User{}).Where("id = ?", id).Select("token_version").Scan(&version).Error
	})
	if err != nil {
		return 0, err
	}
	return version, nil
}
