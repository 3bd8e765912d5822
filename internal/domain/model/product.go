package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 商品カテゴリ（固定の列挙）
type Category string

const (
	CategoryPS5                Category = "PS5"
	CategoryXbox               Category = "Xbox"
	CategoryPS4                Category = "PS4"
	CategoryNintendo           Category = "Nintendo"
	CategoryPC                 Category = "PC"
	CategoryAccessories        Category = "Accessories"
	CategoryGames              Category = "Games"
	CategoryMerchandise        Category = "Merchandise"
	CategoryPCGaming           Category = "PC Gaming"
	CategorySubscriptions      Category = "Subscriptions"
	CategoryStreamingEquipment Category = "Streaming Equipment"
	CategorySalesAndBundles    Category = "Sales & Bundles"
)

var categories = []Category{
	CategoryPS5,
	CategoryXbox,
	CategoryPS4,
	CategoryNintendo,
	CategoryPC,
	CategoryAccessories,
	CategoryGames,
	CategoryMerchandise,
	CategoryPCGaming,
	CategorySubscriptions,
	CategoryStreamingEquipment,
	CategorySalesAndBundles,
}

// Categories は定義済みカテゴリの一覧を返す。
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

func (c Category) Valid() bool {
	for _, v := range categories {
		if v == c {
			return true
		}
	}
	return false
}

type Product struct {
	ID          int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string          `gorm:"type:varchar(255);not null" json:"name"`
	Description string          `gorm:"type:text;not null" json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Category    Category        `gorm:"type:varchar(50);not null;index" json:"category"`
	Stock       int64           `gorm:"not null;check:stock >= 0" json:"stock"`
	ImageURL    string          `gorm:"type:varchar(512)" json:"image_url"`
	CreatedAt   time.Time       `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;autoUpdateTime" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"-"`
}
