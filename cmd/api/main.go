package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gamestore/internal/config"
	"gamestore/internal/handler"
	"gamestore/internal/infra/cache"
	"gamestore/internal/infra/db"
	"gamestore/internal/infra/events"
	"gamestore/internal/infra/mail"
	"gamestore/internal/infra/payment"
	infraRepo "gamestore/internal/infra/repository"
	"gamestore/internal/infra/storage"
	"gamestore/internal/logger"
	repo "gamestore/internal/repository"
	"gamestore/internal/server"
	"gamestore/internal/usecase"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "gamestore",
		Short:         "Game store e-commerce API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
	root.AddCommand(newServeCmd(), newSeedAdminCmd())
	return root
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newSeedAdminCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "seed-admin",
		Short: "Create an ADMIN user if the email is not registered",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := bootstrap()
			if err != nil {
				return err
			}
			defer a.close()

			if email == "" {
				email = a.cfg.AdminEmail
			}
			if password == "" {
				password = a.cfg.AdminPassword
			}
			if email == "" || password == "" {
				return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD (or --email/--password) are required")
			}

			authUC := usecase.NewAuthUsecase(a.cfg, infraRepo.NewUserGormRepository(a.db), infraRepo.NewAuditLogGormRepository(a.db), nil, a.log)
			created, err := authUC.SeedAdmin(cmd.Context(), email, password)
			if err != nil {
				a.log.Error("seed admin failed", zap.Error(err))
				return err
			}
			if created {
				a.log.Info("admin created", zap.String("email", email))
			} else {
				a.log.Info("admin already exists", zap.String("email", email))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "admin email (default ADMIN_EMAIL)")
	cmd.Flags().StringVar(&password, "password", "", "admin password (default ADMIN_PASSWORD)")
	return cmd
}

// 設定・ロガー・DBまで用意したもの
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *gorm.DB
	closers []func()
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.log.Sync()
}

func bootstrap() (*app, error) {
	//.envは無くてもよい
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg)
	if err != nil {
		return nil, err
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		log.Error("db connect failed", zap.Error(err))
		return nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		log.Error("db migrate failed", zap.Error(err))
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: gormDB}
	if sqlDB, err := gormDB.DB(); err == nil {
		a.closers = append(a.closers, func() { _ = sqlDB.Close() })
	}
	return a, nil
}

func runServe(ctx context.Context) error {
	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	cfg, log := a.cfg, a.log

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(a.db)
	auditRepo := infraRepo.NewAuditLogGormRepository(a.db)
	cartRepo := infraRepo.NewCartGormRepository(a.db)
	orderRepo := infraRepo.NewOrderGormRepository(a.db)
	txm := infraRepo.NewTxManagerGorm(a.db)

	var productRepo repo.ProductRepository = infraRepo.NewProductGormRepository(a.db)
	var invalidator usecase.ProductInvalidator
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = rdb.Close() })

		cached := cache.NewCachedProductRepository(productRepo, cache.NewRedisProductCache(rdb, cfg.ProductCacheTTL), log)
		productRepo = cached
		invalidator = cached
		log.Info("product cache enabled", zap.String("redis", cfg.RedisAddr))
	}

	var publisher usecase.OrderEventPublisher = events.NopOrderPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaOrderPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
		if err != nil {
			log.Error("kafka publisher init failed", zap.Error(err))
			return err
		}
		a.closers = append(a.closers, kp.Close)
		publisher = kp
	}

	var processor usecase.PaymentProcessor
	if cfg.StripeSecretKey != "" {
		processor = payment.NewStripeProcessor(cfg.StripeSecretKey)
	} else {
		log.Warn("STRIPE_SECRET_KEY is empty; /api/payment is disabled")
	}

	mailer := mail.NewSMTPMailer(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})

	images, err := storage.NewLocalImageStore(cfg.UploadDir)
	if err != nil {
		log.Error("upload dir init failed", zap.Error(err))
		return err
	}

	//Usecase
	authUC := usecase.NewAuthUsecase(cfg, userRepo, auditRepo, mailer, log)
	productUC := usecase.NewProductUsecase(productRepo, auditRepo, images, log)
	cartUC := usecase.NewCartUsecase(txm, cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, publisher, invalidator, log)
	adminOrderUC := usecase.NewAdminOrderUsecase(orderRepo)
	paymentUC := usecase.NewPaymentUsecase(processor, usecase.DefaultRetryPolicy(cfg.PaymentTimeout), log)

	//Handler
	h := server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Payment:      handler.NewPaymentHandler(paymentUC),
	}
	guards := handler.NewGuards(cfg.JWTSecret, userRepo)

	e := server.New(server.Options{UploadDir: cfg.UploadDir, Logger: log}, h, guards)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, e, ":"+cfg.Port, log)
}
