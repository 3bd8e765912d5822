package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"
)

// テスト用のインメモリストア。
// WithinTx はコピーに対して実行し、エラーなら捨てる（ロールバック）。
type memStore struct {
	mu    sync.Mutex
	state *memState

	// 在庫減算を失敗させる商品（他の注文に先を越された状態）
	raceLoss map[int64]bool
	// 注文作成を失敗させる
	orderErr error
}

type memState struct {
	products map[int64]model.Product
	carts    map[int64]model.Cart // key: userID
	orders   []model.Order
	nextID   int64
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			products: map[int64]model.Product{},
			carts:    map[int64]model.Cart{},
			nextID:   100,
		},
		raceLoss: map[int64]bool{},
	}
}

func (st *memState) clone() *memState {
	c := &memState{
		products: make(map[int64]model.Product, len(st.products)),
		carts:    make(map[int64]model.Cart, len(st.carts)),
		orders:   make([]model.Order, 0, len(st.orders)),
		nextID:   st.nextID,
	}
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.carts {
		c.carts[k] = copyCart(v)
	}
	for _, o := range st.orders {
		c.orders = append(c.orders, copyOrder(o))
	}
	return c
}

func (st *memState) id() int64 {
	st.nextID++
	return st.nextID
}

func copyCart(c model.Cart) model.Cart {
	c.Items = append([]model.CartItem(nil), c.Items...)
	return c
}

func copyOrder(o model.Order) model.Order {
	o.Items = append([]model.OrderItem(nil), o.Items...)
	return o
}

func (s *memStore) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(memRepos{s: s, tx: tx}); err != nil {
		return err
	}
	s.state = tx
	return nil
}

// トランザクション外のアクセス
func (s *memStore) repos() memRepos { return memRepos{s: s} }

type memRepos struct {
	s  *memStore
	tx *memState
}

func (r memRepos) do(fn func(st *memState) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return fn(r.s.state)
}

func (r memRepos) Products() repo.ProductRepository    { return memProducts(r) }
func (r memRepos) Inventory() repo.InventoryRepository { return memInventory(r) }
func (r memRepos) Carts() repo.CartRepository          { return memCarts(r) }
func (r memRepos) Orders() repo.OrderRepository        { return memOrders(r) }

// --- products ---

type memProducts memRepos

func (r memProducts) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	var out []model.Product
	err := memRepos(r).do(func(st *memState) error {
		for _, p := range st.products {
			if q.Category != "" && p.Category != q.Category {
				continue
			}
			out = append(out, p)
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), err
}

func (r memProducts) FindByID(ctx context.Context, id int64) (model.Product, error) {
	var p model.Product
	err := memRepos(r).do(func(st *memState) error {
		found, ok := st.products[id]
		if !ok {
			return repo.ErrNotFound
		}
		p = found
		return nil
	})
	return p, err
}

func (r memProducts) Create(ctx context.Context, p model.Product) (model.Product, error) {
	err := memRepos(r).do(func(st *memState) error {
		p.ID = st.id()
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

func (r memProducts) Update(ctx context.Context, p model.Product) (model.Product, error) {
	err := memRepos(r).do(func(st *memState) error {
		if _, ok := st.products[p.ID]; !ok {
			return repo.ErrNotFound
		}
		st.products[p.ID] = p
		return nil
	})
	return p, err
}

func (r memProducts) Delete(ctx context.Context, id int64) error {
	return memRepos(r).do(func(st *memState) error {
		if _, ok := st.products[id]; !ok {
			return repo.ErrNotFound
		}
		delete(st.products, id)
		for uid, c := range st.carts {
			c.Remove(id)
			st.carts[uid] = c
		}
		return nil
	})
}

// --- inventory ---

type memInventory memRepos

func (r memInventory) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	ok := false
	err := memRepos(r).do(func(st *memState) error {
		if r.s.raceLoss[productID] {
			return nil
		}
		p, found := st.products[productID]
		if !found || p.Stock < qty {
			return nil
		}
		p.Stock -= qty
		st.products[productID] = p
		ok = true
		return nil
	})
	return ok, err
}

// --- carts ---

type memCarts memRepos

func (r memCarts) FindByUserID(ctx context.Context, userID int64) (model.Cart, error) {
	var c model.Cart
	err := memRepos(r).do(func(st *memState) error {
		found, ok := st.carts[userID]
		if !ok {
			return repo.ErrNotFound
		}
		c = copyCart(found)
		return nil
	})
	return c, err
}

func (r memCarts) FindByUserIDForUpdate(ctx context.Context, userID int64) (model.Cart, error) {
	return r.FindByUserID(ctx, userID)
}

func (r memCarts) Save(ctx context.Context, cart *model.Cart) error {
	return memRepos(r).do(func(st *memState) error {
		if cart.ID == 0 {
			if _, exists := st.carts[cart.UserID]; exists {
				return repo.ErrConflict
			}
			cart.ID = st.id()
			cart.CreatedAt = time.Now()
		}
		cart.UpdatedAt = time.Now()
		for i := range cart.Items {
			cart.Items[i].CartID = cart.ID
		}
		st.carts[cart.UserID] = copyCart(*cart)
		return nil
	})
}

// --- orders ---

type memOrders memRepos

func (r memOrders) Create(ctx context.Context, order *model.Order) error {
	return memRepos(r).do(func(st *memState) error {
		if r.s.orderErr != nil {
			return r.s.orderErr
		}
		order.ID = st.id()
		order.CreatedAt = time.Now()
		for i := range order.Items {
			order.Items[i].ID = st.id()
			order.Items[i].OrderID = order.ID
		}
		st.orders = append(st.orders, copyOrder(*order))
		return nil
	})
}

func (r memOrders) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	var o model.Order
	err := memRepos(r).do(func(st *memState) error {
		for _, cur := range st.orders {
			if cur.ID == orderID {
				o = copyOrder(cur)
				return nil
			}
		}
		return repo.ErrNotFound
	})
	return o, err
}

func (r memOrders) ListByUserID(ctx context.Context, userID int64) ([]model.Order, error) {
	var out []model.Order
	err := memRepos(r).do(func(st *memState) error {
		for _, o := range st.orders {
			if o.UserID == userID {
				out = append(out, copyOrder(o))
			}
		}
		return nil
	})
	sortNewestFirst(out)
	return out, err
}

func (r memOrders) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	var out []model.Order
	err := memRepos(r).do(func(st *memState) error {
		for _, o := range st.orders {
			if f.UserID != nil && o.UserID != *f.UserID {
				continue
			}
			out = append(out, copyOrder(o))
		}
		return nil
	})
	sortNewestFirst(out)
	return out, int64(len(out)), err
}

func sortNewestFirst(orders []model.Order) {
	sort.Slice(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// --- helpers ---

func (s *memStore) putProduct(p model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.products[p.ID] = p
}

func (s *memStore) product(id int64) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.products[id]
}

func (s *memStore) putCart(userID int64, items ...model.CartItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := model.Cart{ID: s.state.id(), UserID: userID, Items: items}
	for i := range c.Items {
		c.Items[i].CartID = c.ID
	}
	s.state.carts[userID] = c
}

func (s *memStore) cart(userID int64) (model.Cart, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.state.carts[userID]
	return copyCart(c), ok
}

func (s *memStore) orderCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.orders)
}

var errBoom = errors.New("boom")
