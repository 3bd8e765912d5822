package usecase

import (
	"context"
	"io"

	"gamestore/internal/domain/model"
)

type PaymentRequest struct {
	UserID          int64
	Amount          int64
	Currency        string
	PaymentMethodID string
	// 再試行でも同じキーを送る
	IdempotencyKey string
}

type PaymentIntent struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	ClientSecret string `json:"client_secret,omitempty"`
}

// 決済代行。拒否は *PaymentError、通信系は TransientError で返す
type PaymentProcessor interface {
	CreatePaymentIntent(ctx context.Context, req PaymentRequest) (PaymentIntent, error)
}

type Email struct {
	To      string
	Subject string
	HTML    string
}

type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// 注文確定をほかのサービスへ知らせる
type OrderEventPublisher interface {
	PublishOrderPlaced(ctx context.Context, order model.Order) error
}

// 商品キャッシュの破棄
type ProductInvalidator interface {
	Invalidate(ctx context.Context, ids ...int64)
}

type ImageStore interface {
	Save(ctx context.Context, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}
