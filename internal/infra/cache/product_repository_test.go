package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"gamestore/internal/domain/model"
	repo "gamestore/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type memCache struct {
	mu     sync.Mutex
	items  map[int64]model.Product
	getErr error
}

func newMemCache() *memCache {
	return &memCache{items: map[int64]model.Product{}}
}

func (c *memCache) Get(ctx context.Context, id int64) (model.Product, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return model.Product{}, false, c.getErr
	}
	p, ok := c.items[id]
	return p, ok, nil
}

func (c *memCache) Set(ctx context.Context, p model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[p.ID] = p
	return nil
}

func (c *memCache) Delete(ctx context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, id)
	return nil
}

func (c *memCache) has(id int64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[id]
	return ok
}

type productRepoMock struct{ mock.Mock }

func (m *productRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, int64, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Get(1).(int64), args.Error(2)
}

func (m *productRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *productRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

func (m *productRepoMock) Update(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	updated, _ := args.Get(0).(model.Product)
	return updated, args.Error(1)
}

func (m *productRepoMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func sampleProduct() model.Product {
	return model.Product{ID: 7, Name: "DualSense", Price: decimal.RequireFromString("69.99"), Category: model.CategoryPS5, Stock: 4}
}

func TestCachedProductRepository_FindByID_MissThenHit(t *testing.T) {
	ctx := context.Background()
	next := new(productRepoMock)
	c := newMemCache()
	r := NewCachedProductRepository(next, c, zap.NewNop())

	next.On("FindByID", mock.Anything, int64(7)).Return(sampleProduct(), nil).Once()

	p, err := r.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "DualSense", p.Name)
	assert.True(t, c.has(7))

	// 2回目はキャッシュから
	p, err = r.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "DualSense", p.Name)

	next.AssertExpectations(t)
}

func TestCachedProductRepository_FindByID_NotFoundNotCached(t *testing.T) {
	ctx := context.Background()
	next := new(productRepoMock)
	c := newMemCache()
	r := NewCachedProductRepository(next, c, zap.NewNop())

	next.On("FindByID", mock.Anything, int64(9)).Return(model.Product{}, repo.ErrNotFound)

	_, err := r.FindByID(ctx, 9)
	assert.ErrorIs(t, err, repo.ErrNotFound)
	assert.False(t, c.has(9))
}

func TestCachedProductRepository_FindByID_CacheErrorFallsBackToStore(t *testing.T) {
	ctx := context.Background()
	next := new(productRepoMock)
	c := newMemCache()
	c.getErr = errors.New("redis down")
	r := NewCachedProductRepository(next, c, zap.NewNop())

	next.On("FindByID", mock.Anything, int64(7)).Return(sampleProduct(), nil)

	p, err := r.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.ID)
}

func TestCachedProductRepository_UpdateAndDeleteInvalidate(t *testing.T) {
	ctx := context.Background()
	next := new(productRepoMock)
	c := newMemCache()
	r := NewCachedProductRepository(next, c, zap.NewNop())

	p := sampleProduct()
	require.NoError(t, c.Set(ctx, p))

	next.On("Update", mock.Anything, p).Return(p, nil)
	_, err := r.Update(ctx, p)
	require.NoError(t, err)
	assert.False(t, c.has(7))

	require.NoError(t, c.Set(ctx, p))
	next.On("Delete", mock.Anything, int64(7)).Return(nil)
	require.NoError(t, r.Delete(ctx, 7))
	assert.False(t, c.has(7))

	require.NoError(t, c.Set(ctx, p))
	r.Invalidate(ctx, 7)
	assert.False(t, c.has(7))
}

// 遅いstore
type slowRepo struct {
	productRepoMock
	hits int32
}

func (s *slowRepo) FindByID(ctx context.Context, id int64) (model.Product, error) {
	atomic.AddInt32(&s.hits, 1)
	time.Sleep(50 * time.Millisecond)
	p := sampleProduct()
	p.ID = id
	return p, nil
}

func TestCachedProductRepository_FindByID_ConcurrentMissesCoalesce(t *testing.T) {
	ctx := context.Background()
	next := &slowRepo{}
	r := NewCachedProductRepository(next, newMemCache(), zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := r.FindByID(ctx, 7)
			assert.NoError(t, err)
			assert.Equal(t, int64(7), p.ID)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&next.hits))
}

func TestCachedProductRepository_FindByID_DetachesCallerCancel(t *testing.T) {
	next := new(productRepoMock)
	c := newMemCache()
	r := NewCachedProductRepository(next, c, zap.NewNop())

	// 下のrepoはキャンセル済みctxを受けたらエラーにする
	next.On("FindByID", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }), int64(7)).
		Return(sampleProduct(), nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p, err := r.FindByID(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, "DualSense", p.Name)
	assert.True(t, c.has(7))
	next.AssertExpectations(t)
}
