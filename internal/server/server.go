package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"gamestore/internal/handler"
	"gamestore/internal/middleware"
	"gamestore/internal/validator"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

type Options struct {
	UploadDir string
	Logger    *zap.Logger
}

// New はミドルウェアとルートを設定したechoを返す
func New(opts Options, h Handlers, g handler.Guards) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.HTTPErrorHandler = handler.HTTPErrorHandler
	e.Validator = validator.New()

	//panicも500としてログに残す
	e.Use(middleware.RequestLogger(opts.Logger))
	e.Use(echomw.Recover())
	//multipartの画像(5MB)+フォーム分
	e.Use(echomw.BodyLimit("6M"))

	if opts.UploadDir != "" {
		e.Static("/uploads", opts.UploadDir)
	}

	RegisterRoutes(e, h, g)
	return e
}

// Start はctxが終わるまでサーバーを動かし、終わったらgracefulに止める
func Start(ctx context.Context, e *echo.Echo, addr string, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", zap.String("addr", addr))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(sctx)
}
