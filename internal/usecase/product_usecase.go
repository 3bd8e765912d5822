package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ProductUsecase struct {
	productRepo repo.ProductRepository
	auditRepo   repo.AuditLogRepository
	images      ImageStore
	log         *zap.Logger
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	auditRepo repo.AuditLogRepository,
	images ImageStore,
	log *zap.Logger,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo: productRepo,
		auditRepo:   auditRepo,
		images:      images,
		log:         log,
	}
}

// GET /products の入力
type ListProductsInput struct {
	Page     int
	Limit    int
	Q        string
	Category string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Sort     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, validation("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, validation("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, validation("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, validation("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, validation("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, validation("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc":
	default:
		return ProductListOutput{}, validation("invalid sort")
	}

	category := model.Category(strings.TrimSpace(in.Category))
	if category != "" && !category.Valid() {
		return ProductListOutput{}, validation("invalid category")
	}

	items, total, err := u.productRepo.List(ctx, repo.ProductListQuery{
		Page:     in.Page,
		Limit:    in.Limit,
		Q:        strings.TrimSpace(in.Q),
		Category: category,
		MinPrice: in.MinPrice,
		MaxPrice: in.MaxPrice,
		Sort:     in.Sort,
	})
	if err != nil {
		return ProductListOutput{}, internalError(err)
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, validation("invalid product id")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("Product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}
	return p, nil
}

// アップロードされた画像
type ProductImage struct {
	Filename string
	Body     io.Reader
}

type CreateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	Category    string
	Stock       int64
	ImageURL    string
	Image       *ProductImage
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, adminUserID int64, in CreateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, unauthorized()
	}

	p := model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price.Round(2),
		Category:    model.Category(strings.TrimSpace(in.Category)),
		Stock:       in.Stock,
		ImageURL:    strings.TrimSpace(in.ImageURL),
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}

	if in.Image != nil {
		url, err := u.saveImage(ctx, in.Image)
		if err != nil {
			return model.Product{}, err
		}
		p.ImageURL = url
	}

	created, err := u.productRepo.Create(ctx, p)
	if err != nil {
		return model.Product{}, internalError(err)
	}

	u.audit(ctx, adminUserID, model.AuditActionCreateProduct, created.ID, nil, &created)
	return created, nil
}

// nil のフィールドは変更しない
type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Category    *string
	Stock       *int64
	ImageURL    *string
	Image       *ProductImage
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, adminUserID int64, productID int64, in UpdateProductInput) (model.Product, error) {
	if adminUserID <= 0 {
		return model.Product{}, unauthorized()
	}
	if productID <= 0 {
		return model.Product{}, validation("invalid product id")
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("Product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}

	p := before
	if in.Name != nil {
		p.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.Price != nil {
		p.Price = in.Price.Round(2)
	}
	if in.Category != nil {
		p.Category = model.Category(strings.TrimSpace(*in.Category))
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*in.ImageURL)
	}
	if err := validateProduct(p); err != nil {
		return model.Product{}, err
	}

	if in.Image != nil {
		url, err := u.saveImage(ctx, in.Image)
		if err != nil {
			return model.Product{}, err
		}
		p.ImageURL = url
	}

	updated, err := u.productRepo.Update(ctx, p)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Product{}, notFound("Product not found")
	}
	if err != nil {
		return model.Product{}, internalError(err)
	}

	//差し替えた古い画像は消す
	if before.ImageURL != "" && before.ImageURL != updated.ImageURL {
		u.removeImage(ctx, before.ImageURL)
	}

	u.audit(ctx, adminUserID, model.AuditActionUpdateProduct, productID, &before, &updated)
	return updated, nil
}

// 論理削除。カートに入っている分も消える
func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, adminUserID int64, productID int64) error {
	if adminUserID <= 0 {
		return unauthorized()
	}
	if productID <= 0 {
		return validation("invalid product id")
	}

	before, err := u.productRepo.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("Product not found")
	}
	if err != nil {
		return internalError(err)
	}

	err = u.productRepo.Delete(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return notFound("Product not found")
	}
	if err != nil {
		return internalError(err)
	}

	u.audit(ctx, adminUserID, model.AuditActionDeleteProduct, productID, &before, nil)
	return nil
}

type ListAuditLogsInput struct {
	Action     string
	ResourceID *int64
	Limit      int
	Offset     int
}

func (u *ProductUsecase) ListAuditLogs(ctx context.Context, in ListAuditLogsInput) ([]model.AuditLog, error) {
	if in.Limit < 0 || in.Offset < 0 {
		return nil, validation("invalid paging")
	}

	f := repo.AuditLogFilter{
		ResourceID: in.ResourceID,
		Limit:      in.Limit,
		Offset:     in.Offset,
	}
	if a := strings.TrimSpace(in.Action); a != "" {
		action := model.AuditAction(a)
		f.Action = &action
	}

	logs, err := u.auditRepo.List(ctx, f)
	if err != nil {
		return nil, internalError(err)
	}
	return logs, nil
}

func validateProduct(p model.Product) error {
	if p.Name == "" {
		return validation("name required")
	}
	if p.Price.IsNegative() {
		return validation("price must be >= 0")
	}
	if p.Stock < 0 {
		return validation("stock must be >= 0")
	}
	if !p.Category.Valid() {
		return validation("invalid category")
	}
	return nil
}

func (u *ProductUsecase) saveImage(ctx context.Context, img *ProductImage) (string, error) {
	if u.images == nil {
		return "", NewHTTPError(http.StatusBadRequest, "image upload is disabled")
	}
	url, err := u.images.Save(ctx, img.Filename, img.Body)
	if err != nil {
		if _, ok := AsHTTPError(err); ok {
			return "", err
		}
		return "", internalError(err)
	}
	return url, nil
}

func (u *ProductUsecase) removeImage(ctx context.Context, url string) {
	if u.images == nil {
		return
	}
	if err := u.images.Delete(ctx, url); err != nil {
		u.log.Warn("remove product image", zap.String("url", url), zap.Error(err))
	}
}

// 監査ログ。失敗しても商品操作自体は成功扱い
func (u *ProductUsecase) audit(ctx context.Context, actorID int64, action model.AuditAction, productID int64, before, after *model.Product) {
	entry := model.AuditLog{
		ActorUserID:  actorID,
		Action:       action,
		ResourceType: model.AuditResourceProduct,
		ResourceID:   productID,
		BeforeJSON:   toJSON(before),
		AfterJSON:    toJSON(after),
		CreatedAt:    time.Now(),
	}
	if err := u.auditRepo.Create(ctx, entry); err != nil {
		u.log.Error("write audit log",
			zap.String("action", string(action)),
			zap.Int64("product_id", productID),
			zap.Error(err),
		)
	}
}

func toJSON(p *model.Product) string {
	if p == nil {
		return ""
	}
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return string(b)
}
