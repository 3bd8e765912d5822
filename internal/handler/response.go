package handler

import (
	"errors"
	"net/http"

	"gamestore/internal/middleware"
	repo "gamestore/internal/repository"
	"gamestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

type SuccessResponse struct {
	Message string `json:"message"`
}

// ログイン必須 / 管理者限定 のミドルウェア
type Guards struct {
	User  []echo.MiddlewareFunc
	Admin []echo.MiddlewareFunc
}

func NewGuards(jwtSecret string, users repo.UserRepository) Guards {
	user := []echo.MiddlewareFunc{
		middleware.AuthJWT(jwtSecret),
		middleware.TokenVersionGuard(users),
	}
	admin := append(append([]echo.MiddlewareFunc{}, user...), middleware.AdminRoleGuard())
	return Guards{User: user, Admin: admin}
}

// usecaseのエラーを {"error": msg} で返す。
// 500系はechoのエラーハンドラに回してログに原因を残す
func writeError(c echo.Context, err error) error {
	if err == nil {
		return nil
	}
	if he, ok := usecase.AsHTTPError(err); ok {
		if he.Status >= http.StatusInternalServerError {
			return echo.NewHTTPError(he.Status, he.Message).SetInternal(err)
		}
		return c.JSON(he.Status, ErrorResponse{Error: he.Message})
	}

	//500
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
}

// e.HTTPErrorHandler に設定する
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	msg := "internal error"

	var ee *echo.HTTPError
	if errors.As(err, &ee) {
		status = ee.Code
		if m, ok := ee.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(status)
		}
	} else if he, ok := usecase.AsHTTPError(err); ok {
		status = he.Status
		msg = he.Message
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, ErrorResponse{Error: msg})
}

// Bind と Validate をまとめて行う。失敗は writeError に渡す
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return usecase.WrapHTTPError(http.StatusBadRequest, "invalid body", usecase.ErrValidation)
	}
	if err := c.Validate(req); err != nil {
		return usecase.WrapHTTPError(http.StatusBadRequest, err.Error(), usecase.ErrValidation)
	}
	return nil
}

func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
}
