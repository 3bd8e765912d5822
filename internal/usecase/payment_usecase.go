package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PaymentUsecase struct {
	processor PaymentProcessor
	policy    RetryPolicy
	log       *zap.Logger
}

func NewPaymentUsecase(processor PaymentProcessor, policy RetryPolicy, log *zap.Logger) *PaymentUsecase {
	return &PaymentUsecase{processor: processor, policy: policy, log: log}
}

type PaymentInput struct {
	Amount          int64
	Currency        string
	PaymentMethodID string
}

// Pay はPaymentIntentを作成して即時確定する。
// カード拒否などは 400、代行サービスに繋がらないときは 500。
func (u *PaymentUsecase) Pay(ctx context.Context, userID int64, in PaymentInput) (PaymentIntent, error) {
	if userID <= 0 {
		return PaymentIntent{}, unauthorized()
	}
	if in.Amount <= 0 {
		return PaymentIntent{}, validation("amount must be greater than 0")
	}
	currency := strings.ToLower(strings.TrimSpace(in.Currency))
	if len(currency) != 3 {
		return PaymentIntent{}, validation("invalid currency")
	}
	if strings.TrimSpace(in.PaymentMethodID) == "" {
		return PaymentIntent{}, validation("payment_method_id required")
	}
	if u.processor == nil {
		return PaymentIntent{}, NewHTTPError(http.StatusServiceUnavailable, "payment is not configured")
	}

	req := PaymentRequest{
		UserID:          userID,
		Amount:          in.Amount,
		Currency:        currency,
		PaymentMethodID: strings.TrimSpace(in.PaymentMethodID),
		IdempotencyKey:  uuid.NewString(),
	}

	attempt := 0
	intent, err := withRetry(ctx, u.policy, func(ctx context.Context) (PaymentIntent, error) {
		attempt++
		if attempt > 1 {
			u.log.Info("retry payment", zap.Int64("user_id", userID), zap.Int("attempt", attempt))
		}
		return u.processor.CreatePaymentIntent(ctx, req)
	})
	if err != nil {
		var pe *PaymentError
		if errors.As(err, &pe) {
			return PaymentIntent{}, WrapHTTPError(http.StatusBadRequest, pe.Message, pe)
		}
		u.log.Error("payment processor failed",
			zap.Int64("user_id", userID),
			zap.Int("attempts", attempt),
			zap.Error(err),
		)
		return PaymentIntent{}, internalError(err)
	}
	return intent, nil
}
