package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Cuephoria/cuephoria-pos-sub001/internal/api"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/api/handler"
	apimiddleware "github.com/Cuephoria/cuephoria-pos-sub001/internal/api/middleware"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/application"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/config"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/postgres"
	redisinfra "github.com/Cuephoria/cuephoria-pos-sub001/internal/infrastructure/redis"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/logger"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/pkg/metrics"
	"github.com/Cuephoria/cuephoria-pos-sub001/internal/worker"
)

func main() {
	// .env は存在すれば読み込む（本番では環境変数のみ）
	_ = godotenv.Load()

	cfg := config.Load()

	logger.Set(logger.NewLogger(os.Getenv("APP_ENV")))
	defer logger.Sync()

	m := metrics.Init()

	// PostgreSQL
	db, err := postgres.NewConnection(&cfg.Database)
	if err != nil {
		logger.Fatal("データベース接続エラー", zap.Error(err))
	}
	defer db.Close()

	migrationsPath := os.Getenv("MIGRATIONS_PATH")
	if migrationsPath == "" {
		migrationsPath = "file://migrations"
	}
	if err := postgres.RunMigrations(db.DB, migrationsPath); err != nil {
		logger.Fatal("マイグレーション実行エラー", zap.Error(err))
	}

	// Redis
	redisClient, err := redisinfra.NewClient(&redisinfra.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		logger.Fatal("Redis接続エラー", zap.Error(err))
	}
	defer redisClient.Close()

	lockManager := redisinfra.NewLockManager(redisClient)
	loungeCache := redisinfra.NewLoungeCache(redisClient)

	// リポジトリ
	stationRepo := postgres.NewStationRepository(db)
	customerRepo := postgres.NewCustomerRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	txManager := postgres.NewTxManager(db)

	// サービス
	stationService := application.NewStationService(stationRepo, loungeCache, cfg.Lounge.StationCacheTTL)
	availabilityService := application.NewAvailabilityService(stationService, bookingRepo, loungeCache, cfg.Lounge)
	controllerService := application.NewControllerService(stationService, bookingRepo, cfg.Lounge.TotalControllers)
	bookingService := application.NewBookingService(
		txManager, bookingRepo, customerRepo, stationRepo,
		controllerService, lockManager, loungeCache, cfg.Lounge.TodayCacheTTL,
	)

	// ワーカー
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweeper := worker.NewCompletionSweeper(bookingService, cfg.Lounge.SweepInterval)
	go sweeper.Start(ctx)

	reminder := worker.NewReminderNotifier(bookingService, cfg.Lounge.ReminderInterval, cfg.Lounge.ReminderLookahead)
	go reminder.Start(ctx)

	// ハンドラー
	availabilityHandler := handler.NewAvailabilityHandler(availabilityService, controllerService)
	stationHandler := handler.NewStationHandler(stationService)
	bookingHandler := handler.NewBookingHandler(bookingService)
	healthHandler := handler.NewHealthHandler()

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	apimiddleware.SetupMiddleware(e)
	e.Use(apimiddleware.PrometheusMiddleware(m))

	e.GET("/health", healthHandler.Check)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()), apimiddleware.MetricsBasicAuth())

	v1 := e.Group("/api/v1")
	v1.GET("/availability", availabilityHandler.Get)
	v1.GET("/availability/controllers", availabilityHandler.Controllers)
	v1.GET("/stations", stationHandler.List)

	v1.POST("/bookings", bookingHandler.Create)
	v1.GET("/bookings/:id", bookingHandler.GetByID)
	v1.POST("/bookings/:id/cancel", bookingHandler.Cancel)
	v1.POST("/bookings/:id/no-show", bookingHandler.NoShow)
	v1.GET("/bookings/group/:group_id", bookingHandler.GetGroup)
	v1.GET("/bookings/access/:code", bookingHandler.GetByAccessCode)
	v1.GET("/bookings/phone/:phone", bookingHandler.GetByPhone)

	// サーバー起動
	go func() {
		addr := ":" + cfg.Server.Port
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	// ワーカー停止
	cancel()
	sweeper.Stop()
	reminder.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("サーバーシャットダウンエラー", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}
