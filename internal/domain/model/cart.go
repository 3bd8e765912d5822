package model

import (
	"errors"
	"time"
)

// 1明細に入れられる上限
const MaxLineQuantity int64 = 10000

var ErrInvalidQuantity = errors.New("invalid cart quantity")

// 1ユーザーにつきカートは1つ（最初の追加時に作る）
type Cart struct {
	ID        int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64      `gorm:"not null;uniqueIndex" json:"user_id"`
	Items     []CartItem `gorm:"foreignKey:CartID" json:"items"`
	CreatedAt time.Time  `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 同じ商品の明細があればその位置を返す
func (c *Cart) IndexOf(productID int64) int {
	for i, it := range c.Items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// 明細の数量を加算（無ければ追加）。合計が上限を超えるなら何も変えない
func (c *Cart) Add(productID int64, qty int64) error {
	if qty <= 0 || qty > MaxLineQuantity {
		return ErrInvalidQuantity
	}
	if i := c.IndexOf(productID); i >= 0 {
		if c.Items[i].Quantity > MaxLineQuantity-qty {
			return ErrInvalidQuantity
		}
		c.Items[i].Quantity += qty
		return nil
	}
	c.Items = append(c.Items, CartItem{CartID: c.ID, ProductID: productID, Quantity: qty})
	return nil
}

// 明細の数量を置き換え（無ければ追加）
func (c *Cart) Set(productID int64, qty int64) {
	if i := c.IndexOf(productID); i >= 0 {
		c.Items[i].Quantity = qty
		return
	}
	c.Items = append(c.Items, CartItem{CartID: c.ID, ProductID: productID, Quantity: qty})
}

// 明細を削除。無ければ何もしない
func (c *Cart) Remove(productID int64) {
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ProductID != productID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
