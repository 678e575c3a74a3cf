package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sproutscan/internal/api"
	"sproutscan/internal/core/cache"
	"sproutscan/internal/core/ingredient"
	"sproutscan/internal/core/product"
	"sproutscan/internal/core/scan"
	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"go.uber.org/zap"
)

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	// 參考資料有誤時拒絕啟動
	ref, err := ingredient.LoadReference(cfg.Reference.ConcerningPath, cfg.Reference.SafePath)
	if err != nil {
		common.LogFatal("Failed to load reference data", zap.Error(err))
	}
	classifier := ingredient.NewClassifier(ref)
	common.LogInfo("參考資料已載入",
		zap.Int("concerning", len(ref.Concerning)),
		zap.Int("safe", len(ref.Safe)),
	)

	// 初始化快取
	store, err := cache.NewStore(context.Background(), cfg)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}
	defer store.Close()

	deps := api.Dependencies{
		Classifier: classifier,
		Cache:      store,
	}
	if rs, ok := store.(*cache.RedisStore); ok {
		deps.Redis = rs.Client()
	} else if cfg.Redis.Enabled() && cfg.RateLimit.Enabled {
		// 快取關閉時限流仍可使用 Redis
		if client, err := cache.NewRedisClient(context.Background(), cfg.Redis); err == nil {
			deps.Redis = client
			defer client.Close()
		} else {
			common.LogWarn("Redis 不可用，限流改用單機計數", zap.Error(err))
		}
	}

	products := product.NewService(cfg, store)
	deps.Scanner = scan.NewService(products, classifier)
	deps.Searcher = products

	router, err := api.SetupRouter(cfg, deps)
	if err != nil {
		common.LogError("Failed to setup router", zap.Error(err))
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Int("port", cfg.Server.Port),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			common.LogError("Failed to start server", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	common.LogInfo("Server exited")
}
