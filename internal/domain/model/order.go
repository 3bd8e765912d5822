package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 配送先（注文時点の値をそのまま保存）
type ShippingAddress struct {
	Address    string `gorm:"type:varchar(255);not null" json:"address"`
	City       string `gorm:"type:varchar(255);not null" json:"city"`
	PostalCode string `gorm:"type:varchar(20);not null" json:"postal_code"`
	Country    string `gorm:"type:varchar(100);not null" json:"country"`
}

// 注文は作成後に変更しない
type Order struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID          int64           `gorm:"not null;index" json:"user_id"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
	ShippingAddress ShippingAddress `gorm:"embedded;embeddedPrefix:shipping_" json:"shipping_address"`
	PaymentMethod   string          `gorm:"type:varchar(100);not null" json:"payment_method"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"total_price"`
	CreatedAt       time.Time       `gorm:"not null;autoCreateTime;index" json:"created_at"`
}

// 明細の合計（価格×数量）
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}
