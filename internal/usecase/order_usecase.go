package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// OrderUsecase はチェックアウトと注文参照。
type OrderUsecase struct {
	tx          repo.TransactionManager
	orders      repo.OrderRepository
	events      OrderEventPublisher
	invalidator ProductInvalidator
	log         *zap.Logger
}

// events / invalidator は nil 可
func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	events OrderEventPublisher,
	invalidator ProductInvalidator,
	log *zap.Logger,
) *OrderUsecase {
	return &OrderUsecase{
		tx:          tx,
		orders:      orders,
		events:      events,
		invalidator: invalidator,
		log:         log,
	}
}

type CheckoutInput struct {
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
}

type checkoutLine struct {
	product  model.Product
	quantity int64
}

// Checkout はカートを注文に変える。
// 全明細を検証してから在庫を減らすので、途中で失敗しても何も変わらない。
// 同じカートでも呼ぶたびに新しい注文になる。
func (u *OrderUsecase) Checkout(ctx context.Context, userID int64, in CheckoutInput) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, unauthorized()
	}

	var order model.Order

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		//同じユーザーのcheckoutはここで直列になる
		cart, err := r.Carts().FindByUserIDForUpdate(ctx, userID)
		if errors.Is(err, repo.ErrNotFound) {
			return WrapHTTPError(http.StatusBadRequest, ErrEmptyCart.Error(), ErrEmptyCart)
		}
		if err != nil {
			return internalError(err)
		}
		if cart.IsEmpty() {
			return WrapHTTPError(http.StatusBadRequest, ErrEmptyCart.Error(), ErrEmptyCart)
		}

		//1. 全明細を検証（まだ何も変更しない）
		lines := make([]checkoutLine, 0, len(cart.Items))
		for _, it := range cart.Items {
			if it.Quantity <= 0 {
				return validation(fmt.Sprintf("invalid quantity for product %d", it.ProductID))
			}
			p, err := r.Products().FindByID(ctx, it.ProductID)
			if errors.Is(err, repo.ErrNotFound) {
				return productNotFound(it.ProductID)
			}
			if err != nil {
				return internalError(err)
			}
			if p.Stock < it.Quantity {
				return insufficientStock(p.ID, p.Name, it.Quantity, p.Stock)
			}
			lines = append(lines, checkoutLine{product: p, quantity: it.Quantity})
		}

		//2. 在庫を減らして明細を作る
		items := make([]model.OrderItem, 0, len(lines))
		total := decimal.Zero
		for _, l := range lines {
			ok, err := r.Inventory().DecreaseStockIfEnough(ctx, l.product.ID, l.quantity)
			if err != nil {
				return internalError(err)
			}
			if !ok {
				//検証後に別の注文が在庫を取った。ロールバックで元に戻る
				available := l.product.Stock
				if cur, err := r.Products().FindByID(ctx, l.product.ID); err == nil {
					available = cur.Stock
				}
				return insufficientStock(l.product.ID, l.product.Name, l.quantity, available)
			}

			item := model.OrderItem{
				ProductID: l.product.ID,
				Name:      l.product.Name,
				Quantity:  l.quantity,
				Price:     l.product.Price,
			}
			total = total.Add(item.Subtotal())
			items = append(items, item)
		}

		order = model.Order{
			UserID:          userID,
			Items:           items,
			ShippingAddress: trimAddress(in.ShippingAddress),
			PaymentMethod:   strings.TrimSpace(in.PaymentMethod),
			TotalPrice:      total,
		}
		if err := r.Orders().Create(ctx, &order); err != nil {
			return internalError(err)
		}

		cart.Clear()
		if err := r.Carts().Save(ctx, &cart); err != nil {
			return internalError(err)
		}
		return nil
	})
	if err != nil {
		if _, ok := AsHTTPError(err); !ok {
			err = internalError(err)
		}
		return model.Order{}, err
	}

	u.afterCheckout(ctx, order)
	return order, nil
}

// コミット後の後処理。失敗してもログだけ
func (u *OrderUsecase) afterCheckout(ctx context.Context, order model.Order) {
	if u.invalidator != nil {
		ids := make([]int64, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.ProductID)
		}
		u.invalidator.Invalidate(ctx, ids...)
	}

	if u.events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := u.events.PublishOrderPlaced(pctx, order); err != nil {
		u.log.Warn("publish order placed",
			zap.Int64("order_id", order.ID),
			zap.Error(err),
		)
	}
}

// 新しい順
func (u *OrderUsecase) ListMyOrders(ctx context.Context, userID int64) ([]model.Order, error) {
	if userID <= 0 {
		return nil, unauthorized()
	}

	orders, err := u.orders.ListByUserID(ctx, userID)
	if err != nil {
		return nil, internalError(err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (u *OrderUsecase) GetMyOrder(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, unauthorized()
	}
	if orderID <= 0 {
		return model.Order{}, validation("invalid id")
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if errors.Is(err, repo.ErrNotFound) {
		return model.Order{}, notFound("Order not found")
	}
	if err != nil {
		return model.Order{}, internalError(err)
	}
	//他人の注文は存在しない扱い
	if o.UserID != userID {
		return model.Order{}, notFound("Order not found")
	}
	return o, nil
}

func trimAddress(a model.ShippingAddress) model.ShippingAddress {
	return model.ShippingAddress{
		Address:    strings.TrimSpace(a.Address),
		City:       strings.TrimSpace(a.City),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.TrimSpace(a.Country),
	}
}
