package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gamestore/internal/config"
	"gamestore/internal/handler"
	"gamestore/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testHandlers() Handlers {
	log := zap.NewNop()
	authUC := usecase.NewAuthUsecase(config.Config{JWTSecret: "s"}, nil, nil, nil, log)
	productUC := usecase.NewProductUsecase(nil, nil, nil, log)
	return Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(usecase.NewCartUsecase(nil, nil, nil)),
		Order:        handler.NewOrderHandler(usecase.NewOrderUsecase(nil, nil, nil, nil, log)),
		AdminOrder:   handler.NewAdminOrderHandler(usecase.NewAdminOrderUsecase(nil)),
		Payment:      handler.NewPaymentHandler(usecase.NewPaymentUsecase(nil, usecase.DefaultRetryPolicy(time.Second), log)),
	}
}

func TestNew_RootAndUploads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.png"), []byte("img"), 0o644))

	e := New(Options{UploadDir: dir, Logger: zap.NewNop()}, testHandlers(), handler.NewGuards("s", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to the eCommerce API", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/a.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "img", rec.Body.String())

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"Not authorized, no token"}`, rec.Body.String())
}

func TestStart_StopsOnCancel(t *testing.T) {
	e := New(Options{Logger: zap.NewNop()}, testHandlers(), handler.NewGuards("s", nil))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Start(ctx, e, "127.0.0.1:0", zap.NewNop()) }()

	require.Eventually(t, func() bool { return e.ListenerAddr() != nil }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
