package cache

import (
	"context"
	"strconv"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// CachedProductRepository は FindByID を cache-aside で返す。
// 書き込み系は下のrepoに流したあとキャッシュを消す。
// キャッシュが落ちていてもDBから返す。
type CachedProductRepository struct {
	next  repo.ProductRepository
	cache ProductCache
	log   *zap.Logger
	group singleflight.Group
}

func NewCachedProductRepository(next repo.ProductRepository, cache ProductCache, log *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{next: next, cache: cache, log: log}
}

var _ repo.ProductRepository = (*CachedProductRepository)(nil)

func (r *CachedProductRepository) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	return r.next.List(ctx, q)
}

func (r *CachedProductRepository) FindByID(ctx context.Context, id int64) (model.Product, error) {
	if p, ok := r.lookup(ctx, id); ok {
		return p, nil
	}

	// 同じ商品のキャッシュミスは1回のDB取得にまとめる。
	// 結果は待っている全員で共有するので、最初の呼び出し元のキャンセルは引き継がない
	v, err, _ := r.group.Do(strconv.FormatInt(id, 10), func() (interface{}, error) {
		fctx := context.WithoutCancel(ctx)
		if p, ok := r.lookup(fctx, id); ok {
			return p, nil
		}
		p, err := r.next.FindByID(fctx, id)
		if err != nil {
			return model.Product{}, err
		}
		if err := r.cache.Set(fctx, p); err != nil {
			r.log.Warn("product cache set failed", zap.Int64("product_id", id), zap.Error(err))
		}
		return p, nil
	})
	if err != nil {
		return model.Product{}, err
	}
	return v.(model.Product), nil
}

func (r *CachedProductRepository) Create(ctx context.Context, p model.Product) (model.Product, error) {
	return r.next.Create(ctx, p)
}

func (r *CachedProductRepository) Update(ctx context.Context, p model.Product) (model.Product, error) {
	updated, err := r.next.Update(ctx, p)
	if err != nil {
		return model.Product{}, err
	}
	r.invalidate(ctx, p.ID)
	return updated, nil
}

func (r *CachedProductRepository) Delete(ctx context.Context, id int64) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

// 在庫が変わった商品（checkout後など）を消す
func (r *CachedProductRepository) Invalidate(ctx context.Context, ids ...int64) {
	for _, id := range ids {
		r.invalidate(ctx, id)
	}
}

func (r *CachedProductRepository) lookup(ctx context.Context, id int64) (model.Product, bool) {
	p, ok, err := r.cache.Get(ctx, id)
	if err != nil {
		r.log.Warn("product cache get failed", zap.Int64("product_id", id), zap.Error(err))
		return model.Product{}, false
	}
	return p, ok
}

func (r *CachedProductRepository) invalidate(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("product cache delete failed", zap.Int64("product_id", id), zap.Error(err))
	}
}
