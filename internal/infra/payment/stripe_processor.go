package payment

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"gamestore/internal/usecase"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
)

// StripeProcessor は Stripe の PaymentIntent を作って即時confirmする。
type StripeProcessor struct {
	api *client.API
}

func NewStripeProcessor(secretKey string) *StripeProcessor {
	sc := &client.API{}
	// リトライは usecase 側で1回だけ行う
	backends := &stripe.Backends{
		API: stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
			MaxNetworkRetries: stripe.Int64(0),
		}),
	}
	sc.Init(secretKey, backends)
	return &StripeProcessor{api: sc}
}

var _ usecase.PaymentProcessor = (*StripeProcessor)(nil)

func (p *StripeProcessor) CreatePaymentIntent(ctx context.Context, req usecase.PaymentRequest) (usecase.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		PaymentMethod: stripe.String(req.PaymentMethodID),
		Confirm:       stripe.Bool(true),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled:        stripe.Bool(true),
			AllowRedirects: stripe.String("never"),
		},
	}
	params.Context = ctx

	// 同じキーで再送すれば二重請求にならない
	key := req.IdempotencyKey
	if key == "" {
		key = uuid.NewString()
	}
	params.SetIdempotencyKey(key)
	if req.UserID > 0 {
		params.AddMetadata("user_id", strconv.FormatInt(req.UserID, 10))
	}

	pi, err := p.api.PaymentIntents.New(params)
	if err != nil {
		return usecase.PaymentIntent{}, classifyStripeError(err)
	}

	return usecase.PaymentIntent{
		ID:           pi.ID,
		Status:       string(pi.Status),
		Amount:       pi.Amount,
		Currency:     string(pi.Currency),
		ClientSecret: pi.ClientSecret,
	}, nil
}

// カード拒否などは PaymentError、通信断や5xxは再試行可能なエラーにする
func classifyStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return usecase.NewTransientError(err)
	}

	if se.HTTPStatusCode >= http.StatusInternalServerError ||
		se.HTTPStatusCode == http.StatusTooManyRequests ||
		se.Type == stripe.ErrorTypeAPI {
		return usecase.NewTransientError(err)
	}

	msg := se.Msg
	if msg == "" {
		msg = "payment failed"
	}
	return &usecase.PaymentError{Message: msg, Code: string(se.Code)}
}
