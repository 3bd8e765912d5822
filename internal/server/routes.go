package server

import (
	"net/http"

	"gamestore/internal/handler"

	"github.com/labstack/echo/v4"
)

// 全Handlerをまとめて渡す
type Handlers struct {
	Auth         *handler.AuthHandler
	AdminUser    *handler.AdminUserHandler
	Product      *handler.ProductHandler
	AdminProduct *handler.AdminProductHandler
	Cart         *handler.CartHandler
	Order        *handler.OrderHandler
	AdminOrder   *handler.AdminOrderHandler
	Payment      *handler.PaymentHandler
}

func RegisterRoutes(e *echo.Echo, h Handlers, g handler.Guards) {
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome to the eCommerce API")
	})

	api := e.Group("/api")

	h.Auth.RegisterRoutes(api)
	h.Product.RegisterRoutes(api)

	h.AdminProduct.RegisterRoutes(api, g)
	h.Cart.RegisterRoutes(api, g)
	h.Order.RegisterRoutes(api, g)
	h.Payment.RegisterRoutes(api, g)

	h.AdminOrder.RegisterRoutes(api, g)
	h.AdminUser.RegisterRoutes(api, g)
}
