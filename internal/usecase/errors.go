package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// HandlerがそのままHTTPレスポンスに変換するエラー。
// Err に原因を入れておくと errors.Is / errors.As で辿れる。
type HTTPError struct {
	Status  int
	Message string
	Err     error
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

func NewHTTPError(status int, message string) error {
	return &HTTPError{
		Status:  status,
		Message: message,
	}
}

func WrapHTTPError(status int, message string, err error) error {
	return &HTTPError{
		Status:  status,
		Message: message,
		Err:     err,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	ok := errors.As(err, &he)
	return he, ok
}

var (
	//400 入力不正
	ErrValidation = errors.New("validation error")
	//401
	ErrUnauthorized = errors.New("unauthorized")
	//403
	ErrForbidden = errors.New("forbidden")
	//404
	ErrNotFound = errors.New("not found")
	//409 email重複など
	ErrConflict = errors.New("conflict")
	//400 空カートでcheckout
	ErrEmptyCart = errors.New("Your cart is empty")
	//500 メール送信失敗
	ErrEmailDelivery = errors.New("email could not be sent")
	//500
	ErrInternal = errors.New("internal error")
)

var (
	ErrUnsupportedImage = WrapHTTPError(http.StatusBadRequest, "Only .jpg, .jpeg, .png, and .webp files are allowed!", ErrValidation)
	ErrImageTooLarge    = WrapHTTPError(http.StatusBadRequest, "image must be 5MB or smaller", ErrValidation)
)

// カートの商品がカタログに無い
type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("Product %d not found", e.ProductID)
}

// 在庫不足。どの商品がいくつ足りないかを持つ
type InsufficientStockError struct {
	ProductID int64
	Name      string
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s (short by %d)", e.Name, e.Shortfall())
}

func (e *InsufficientStockError) Shortfall() int64 {
	if e.Available >= e.Requested {
		return 0
	}
	return e.Requested - e.Available
}

// 決済が拒否された（カード拒否など）
type PaymentError struct {
	Message string
	Code    string
}

func (e *PaymentError) Error() string {
	return e.Message
}

// 一時的な失敗。リトライしてよい
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return "transient: " + e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

func NewTransientError(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// タイムアウトも一時的な失敗として扱う
func IsTransient(err error) bool {
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func productNotFound(id int64) error {
	e := &ProductNotFoundError{ProductID: id}
	return WrapHTTPError(http.StatusNotFound, e.Error(), e)
}

func insufficientStock(p int64, name string, requested, available int64) error {
	e := &InsufficientStockError{ProductID: p, Name: name, Requested: requested, Available: available}
	return WrapHTTPError(http.StatusBadRequest, e.Error(), e)
}

func internalError(err error) error {
	return WrapHTTPError(http.StatusInternalServerError, ErrInternal.Error(), err)
}

func unauthorized() error {
	return WrapHTTPError(http.StatusUnauthorized, "unauthorized", ErrUnauthorized)
}

func validation(message string) error {
	return WrapHTTPError(http.StatusBadRequest, message, ErrValidation)
}

func notFound(message string) error {
	return WrapHTTPError(http.StatusNotFound, message, ErrNotFound)
}
