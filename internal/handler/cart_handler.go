package handler

import (
	"net/http"
	"strconv"

	"gamestore/internal/middleware"
	"gamestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

// /cart のHTTP
type CartHandler struct {
	uc *usecase.CartUsecase
}

// DI
func NewCartHandler(uc *usecase.CartUsecase) *CartHandler {
	return &CartHandler{uc: uc}
}

type CartItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"gt=0,lte=10000"`
}

type CartMessageResponse struct {
	Message string               `json:"message"`
	Cart    usecase.CartResponse `json:"cart"`
}

func (h *CartHandler) RegisterRoutes(api *echo.Group, g Guards) {
	cart := api.Group("/cart", g.User...)

	cart.GET("", h.getCart)
	cart.POST("/add", h.addToCart)
	cart.PUT("/update", h.updateItem)
	cart.DELETE("/remove/:id", h.removeItem)
	cart.DELETE("/clear", h.clearCart)
}

func (h *CartHandler) getCart(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	cart, err := h.uc.GetCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) addToCart(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req CartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	cart, err := h.uc.AddToCart(c.Request().Context(), userID, usecase.CartItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) updateItem(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	var req CartItemRequest
	if err := bindAndValidate(c, &req); err != nil {
		return writeError(c, err)
	}

	cart, err := h.uc.UpdateCartItem(c.Request().Context(), userID, usecase.CartItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CartMessageResponse{Message: "Cart updated successfully", Cart: cart})
}

// :id は商品ID
func (h *CartHandler) removeItem(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	productID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || productID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	cart, err := h.uc.RemoveFromCart(c.Request().Context(), userID, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cart)
}

func (h *CartHandler) clearCart(c echo.Context) error {
	userID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	cart, err := h.uc.ClearCart(c.Request().Context(), userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, CartMessageResponse{Message: "Cart cleared successfully", Cart: cart})
}
