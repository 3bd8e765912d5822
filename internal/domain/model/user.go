package model

import "time"

type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Name         string `gorm:"type:varchar(255);not null;default:''"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"column:password_hash;not null"`
	Role         Role   `gorm:"type:varchar(20);not null;default:'USER'"`
	TokenVersion int    `gorm:"not null;default:0"`
	IsActive     bool   `gorm:"not null;default:true"`
	// パスワード再設定（平文トークンは保存しない）
	ResetPasswordTokenHash *string    `gorm:"column:reset_password_token_hash;index"`
	ResetPasswordExpiresAt *time.Time `gorm:"column:reset_password_expires_at"`
	LastLoginAt            *time.Time
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
