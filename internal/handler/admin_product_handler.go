package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"gamestore/internal/middleware"
	"gamestore/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// 商品の作成・更新の入力。JSONでもmultipartでも受ける
type ProductRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Category    *string          `json:"category"`
	Stock       *int64           `json:"stock"`
	ImageURL    *string          `json:"image_url"`
}

// 商品の管理と監査ログ
type AdminProductHandler struct {
	uc *usecase.ProductUsecase
}

// DI
func NewAdminProductHandler(uc *usecase.ProductUsecase) *AdminProductHandler {
	return &AdminProductHandler{uc: uc}
}

func (h *AdminProductHandler) RegisterRoutes(api *echo.Group, g Guards) {
	api.POST("/products", h.createProduct, g.Admin...)
	api.PUT("/products/:id", h.updateProduct, g.Admin...)
	api.DELETE("/products/:id", h.deleteProduct, g.Admin...)

	api.GET("/admin/audit-logs", h.listAuditLogs, g.Admin...)
}

func (h *AdminProductHandler) createProduct(c echo.Context) error {
	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	req, img, closeImg, err := readProductRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	defer closeImg()

	if req.Name == nil || req.Price == nil || req.Category == nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "name, price and category are required"})
	}

	in := usecase.CreateProductInput{
		Name:     *req.Name,
		Price:    *req.Price,
		Category: *req.Category,
		Image:    img,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.Stock != nil {
		in.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		in.ImageURL = *req.ImageURL
	}

	p, err := h.uc.AdminCreateProduct(c.Request().Context(), adminID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *AdminProductHandler) updateProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	req, img, closeImg, err := readProductRequest(c)
	if err != nil {
		return writeError(c, err)
	}
	defer closeImg()

	p, err := h.uc.AdminUpdateProduct(c.Request().Context(), adminID, id, usecase.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
		ImageURL:    req.ImageURL,
		Image:       img,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *AdminProductHandler) deleteProduct(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid id"})
	}

	adminID, ok := middleware.UserID(c)
	if !ok {
		return unauthorized(c)
	}

	if err := h.uc.AdminDeleteProduct(c.Request().Context(), adminID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "Product removed"})
}

func (h *AdminProductHandler) listAuditLogs(c echo.Context) error {
	limit, err := intQuery(c, "limit", 50)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit"})
	}
	offset, err := intQuery(c, "offset", 0)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid offset"})
	}

	in := usecase.ListAuditLogsInput{
		Action: c.QueryParam("action"),
		Limit:  limit,
		Offset: offset,
	}
	if v := c.QueryParam("resource_id"); v != "" {
		rid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid resource_id"})
		}
		in.ResourceID = &rid
	}

	logs, err := h.uc.ListAuditLogs(c.Request().Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}

// multipart なら image ファイルも取り出す。閉じる関数は必ず呼ぶ
func readProductRequest(c echo.Context) (ProductRequest, *usecase.ProductImage, func(), error) {
	noop := func() {}

	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		var req ProductRequest
		if err := c.Bind(&req); err != nil {
			return ProductRequest{}, nil, noop, usecase.WrapHTTPError(http.StatusBadRequest, "invalid body", usecase.ErrValidation)
		}
		return req, nil, noop, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return ProductRequest{}, nil, noop, usecase.WrapHTTPError(http.StatusBadRequest, "invalid form", usecase.ErrValidation)
	}

	req, err := productRequestFromForm(form.Value)
	if err != nil {
		return ProductRequest{}, nil, noop, err
	}

	files := form.File["image"]
	if len(files) == 0 {
		return req, nil, noop, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return ProductRequest{}, nil, noop, usecase.WrapHTTPError(http.StatusBadRequest, "invalid image", usecase.ErrValidation)
	}
	img := &usecase.ProductImage{Filename: files[0].Filename, Body: f}
	return req, img, func() { closeQuietly(f) }, nil
}

func productRequestFromForm(values map[string][]string) (ProductRequest, error) {
	get := func(k string) *string {
		if v, ok := values[k]; ok && len(v) > 0 {
			s := v[0]
			return &s
		}
		return nil
	}
	bad := func(field string) error {
		return usecase.WrapHTTPError(http.StatusBadRequest, "invalid "+field, usecase.ErrValidation)
	}

	req := ProductRequest{
		Name:        get("name"),
		Description: get("description"),
		Category:    get("category"),
		ImageURL:    get("image_url"),
	}
	if v := get("price"); v != nil {
		d, err := decimal.NewFromString(strings.TrimSpace(*v))
		if err != nil {
			return ProductRequest{}, bad("price")
		}
		req.Price = &d
	}
	if v := get("stock"); v != nil {
		n, err := strconv.ParseInt(strings.TrimSpace(*v), 10, 64)
		if err != nil {
			return ProductRequest{}, bad("stock")
		}
		req.Stock = &n
	}
	return req, nil
}

func closeQuietly(f multipart.File) {
	_ = f.Close()
}
