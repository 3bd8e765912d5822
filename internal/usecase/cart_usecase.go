package usecase

import (
	"context"
	"errors"
	"fmt"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジック。
// 変更系はトランザクション内でカート行をロックしてから読み書きする。
type CartUsecase struct {
	tx       repo.TransactionManager
	carts    repo.CartRepository
	products repo.ProductRepository
}

func NewCartUsecase(
	tx repo.TransactionManager,
	carts repo.CartRepository,
	products repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		tx:       tx,
		carts:    carts,
		products: products,
	}
}

// 商品情報つきの明細
type CartItemResponse struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	ImageURL  string          `json:"image_url"`
	Quantity  int64           `json:"quantity"`
	// 商品が削除済みなら false
	Available bool `json:"available"`
}

type CartResponse struct {
	ID     int64              `json:"id"`
	UserID int64              `json:"user_id"`
	Items  []CartItemResponse `json:"items"`
	Total  decimal.Decimal    `json:"total"`
}

type CartItemInput struct {
	ProductID int64
	Quantity  int64
}

func (u *CartUsecase) GetCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorized()
	}

	cart, err := u.carts.FindByUserID(ctx, userID)
	if errors.Is(err, repo.ErrNotFound) {
		return CartResponse{}, notFound("Cart not found")
	}
	if err != nil {
		return CartResponse{}, internalError(err)
	}

	return buildCartResponse(ctx, u.products, cart)
}

// 同じ商品があれば数量を足す。カートが無ければ作る
func (u *CartUsecase) AddToCart(ctx context.Context, userID int64, in CartItemInput) (CartResponse, error) {
	if err := validateCartItem(userID, in); err != nil {
		return CartResponse{}, err
	}

	return u.mutate(ctx, userID, true, func(r repo.TxRepos, cart *model.Cart) error {
		if err := ensureProduct(ctx, r.Products(), in.ProductID); err != nil {
			return err
		}
		if err := cart.Add(in.ProductID, in.Quantity); err != nil {
			return validation(fmt.Sprintf("quantity must be at most %d per item", model.MaxLineQuantity))
		}
		return nil
	})
}

// 数量を置き換える。明細が無ければ追加
func (u *CartUsecase) UpdateCartItem(ctx context.Context, userID int64, in CartItemInput) (CartResponse, error) {
	if err := validateCartItem(userID, in); err != nil {
		return CartResponse{}, err
	}

	return u.mutate(ctx, userID, true, func(r repo.TxRepos, cart *model.Cart) error {
		if err := ensureProduct(ctx, r.Products(), in.ProductID); err != nil {
			return err
		}
		cart.Set(in.ProductID, in.Quantity)
		return nil
	})
}

// カートに無い商品なら何もしない
func (u *CartUsecase) RemoveFromCart(ctx context.Context, userID int64, productID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorized()
	}
	if productID <= 0 {
		return CartResponse{}, validation("invalid product id")
	}

	return u.mutate(ctx, userID, false, func(_ repo.TxRepos, cart *model.Cart) error {
		cart.Remove(productID)
		return nil
	})
}

func (u *CartUsecase) ClearCart(ctx context.Context, userID int64) (CartResponse, error) {
	if userID <= 0 {
		return CartResponse{}, unauthorized()
	}

	return u.mutate(ctx, userID, false, func(_ repo.TxRepos, cart *model.Cart) error {
		cart.Clear()
		return nil
	})
}

// カートをロックして fn で変更し保存する。
// 初回作成が同時に走って一意制約に当たったら1回だけやり直す
func (u *CartUsecase) mutate(ctx context.Context, userID int64, create bool, fn func(r repo.TxRepos, cart *model.Cart) error) (CartResponse, error) {
	var out CartResponse

	run := func() error {
		return u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
			if errors.Is(err, repo.ErrNotFound) {
				if !create {
					return notFound("Cart not found")
				}
				cart = model.Cart{UserID: userID, Items: []model.CartItem{}}
			} else if err != nil {
				return internalError(err)
			}

			if err := fn(r, &cart); err != nil {
				return err
			}

			if err := r.Carts().Save(ctx, &cart); err != nil {
				if errors.Is(err, repo.ErrConflict) {
					return err
				}
				return internalError(err)
			}

			out, err = buildCartResponse(ctx, r.Products(), cart)
			return err
		})
	}

	err := run()
	if errors.Is(err, repo.ErrConflict) {
		err = run()
	}
	if errors.Is(err, repo.ErrConflict) {
		return CartResponse{}, internalError(err)
	}
	if err != nil {
		return CartResponse{}, err
	}
	return out, nil
}

func validateCartItem(userID int64, in CartItemInput) error {
	if userID <= 0 {
		return unauthorized()
	}
	if in.ProductID <= 0 {
		return validation("invalid product id")
	}
	if in.Quantity < 1 {
		return validation("quantity must be greater than 0")
	}
	if in.Quantity > model.MaxLineQuantity {
		return validation(fmt.Sprintf("quantity must be at most %d per item", model.MaxLineQuantity))
	}
	return nil
}

func ensureProduct(ctx context.Context, products repo.ProductRepository, productID int64) error {
	_, err := products.FindByID(ctx, productID)
	if errors.Is(err, repo.ErrNotFound) {
		return productNotFound(productID)
	}
	if err != nil {
		return internalError(err)
	}
	return nil
}

func buildCartResponse(ctx context.Context, products repo.ProductRepository, cart model.Cart) (CartResponse, error) {
	out := CartResponse{
		ID:     cart.ID,
		UserID: cart.UserID,
		Items:  make([]CartItemResponse, 0, len(cart.Items)),
		Total:  decimal.Zero,
	}

	for _, it := range cart.Items {
		item := CartItemResponse{ProductID: it.ProductID, Quantity: it.Quantity}

		p, err := products.FindByID(ctx, it.ProductID)
		switch {
		case errors.Is(err, repo.ErrNotFound):
			// 削除済み。合計には含めない
		case err != nil:
			return CartResponse{}, internalError(err)
		default:
			item.Name = p.Name
			item.Price = p.Price
			item.ImageURL = p.ImageURL
			item.Available = true
			out.Total = out.Total.Add(p.Price.Mul(decimal.NewFromInt(it.Quantity)))
		}
		out.Items = append(out.Items, item)
	}
	return out, nil
}
