package handler

import (
	"net/http"
	"strconv"

	"gamestore/internal/middleware"
	"gamestore/internal/usecase"

	"github.com/labstack/echo/v4"
)

type AdminUserHandler struct {
	uc *usecase.AuthUsecase
}

func NewAdminUserHandler(uc *usecase.AuthUsecase) *AdminUserHandler {
	return &AdminUserHandler{uc: uc}
}

// /admin 配下は JWT必須 + token_version一致 + ADMIN限定
func (h *AdminUserHandler) RegisterRoutes(api *echo.Group, g Guards) {
	admin := api.Group("/admin", g.Admin...)

	admin.POST("/users/:id/force-logout", h.forceLogout)
}

func (h *AdminUserHandler) forceLogout(c echo.Context) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || userID <= 0 {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid user_id"})
	}

	res, err := h.uc.ForceLogout(c.Request().Context(), adminID, userID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}
