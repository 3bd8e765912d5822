package handler

import (
	"net/http"

	"gamestore/internal/middleware"
	"gamestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type PaymentHandler struct {
	uc *usecase.PaymentUsecase
}

// DI
func NewPaymentHandler(uc *usecase.PaymentUsecase) *PaymentHandler {
	return &PaymentHandler{uc: uc}
}

// amount は最小通貨単位（centなど）
type PaymentRequest struct {
	Amount          int64  `json:"amount" validate:"gt=0"`
	Currency        string `json:"currency" validate:"required,len=3"`
	PaymentMethodID string `json:"payment_method_id" validate:"required"`
}

type PaymentResponse struct {
	Message       string                `json:"message"`
	PaymentIntent usecase.PaymentIntent `json:"payment_intent"`
}

func (h *PaymentHandler) RegisterRoutes(api *echo.Group, g Guards) {
	api.POST("/payment", h.pay, g.User...)
}

func (h *PaymentHandler) pay(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req PaymentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	pi, err := h.uc.Pay(c.Request().Context(), userID, usecase.PaymentInput{
		Amount:          req.Amount,
		Currency:        req.Currency,
		PaymentMethodID: req.PaymentMethodID,
	})
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, PaymentResponse{Message: "Payment successful", PaymentIntent: pi})
}
