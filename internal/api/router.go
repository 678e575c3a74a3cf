package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"sproutscan/internal/api/handlers/health"
	"sproutscan/internal/api/handlers/safety"
	"sproutscan/internal/api/middleware"
	"sproutscan/internal/core/cache"
	"sproutscan/internal/core/ingredient"
	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Dependencies 路由使用的服務
type Dependencies struct {
	Classifier *ingredient.Classifier
	Scanner    safety.Scanner
	Searcher   safety.Searcher
	// Cache 僅用於健康檢查的統計，可為 nil
	Cache cache.Store
	// Redis 設定時限流額度由多個實例共用，可為 nil
	Redis *redis.Client
}

// SetupRouter 設置路由
func SetupRouter(cfg *config.Config, deps Dependencies) (*gin.Engine, error) {
	if deps.Classifier == nil || deps.Scanner == nil || deps.Searcher == nil {
		return nil, errors.New("router dependencies are incomplete")
	}

	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New())
	router.Use(middleware.Logger())

	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID", "Retry-After", "X-RateLimit-Remaining"},
		MaxAge:        12 * time.Hour,
	}))

	if cfg.Server.MaxBodyBytes > 0 {
		router.Use(middleware.BodySizeLimit(cfg.Server.MaxBodyBytes))
	}
	router.Use(requestContext(cfg, deps))

	// 健康檢查路由
	router.GET("/health", health.HealthCheck)
	router.GET("/ready", health.ReadinessCheck)
	router.GET("/live", health.LivenessCheck)

	handler := safety.NewHandler(deps.Classifier, deps.Scanner, deps.Searcher)
	limit := rateLimiters(cfg, deps.Redis)

	api := router.Group("/api/v1")
	{
		api.POST("/ingredients/classify",
			limit("classify", cfg.RateLimit.Requests),
			middleware.Deduplication(cfg.DedupWindow),
			handler.HandleClassify,
		)
		api.GET("/scan", limit("scan", cfg.RateLimit.ScanRequests), handler.HandleScan)
		api.GET("/search", limit("search", cfg.RateLimit.SearchRequests), handler.HandleSearch)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit_enabled", cfg.RateLimit.Enabled),
		zap.Bool("shared_rate_limit", deps.Redis != nil),
		zap.Duration("timeout", cfg.Server.RequestTimeout),
		zap.Int64("max_body_size", cfg.Server.MaxBodyBytes),
	)

	return router, nil
}

// requestContext 設置請求超時並注入健康檢查需要的資料
func requestContext(cfg *config.Config, deps Dependencies) gin.HandlerFunc {
	timeout := cfg.Server.RequestTimeout
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		c.Request = c.Request.WithContext(ctx)

		c.Set("config", cfg)
		c.Set("classifier", deps.Classifier)
		if deps.Cache != nil {
			c.Set("cache", deps.Cache)
		}

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			common.LogError("Request timeout",
				zap.String("path", c.Request.URL.Path),
				zap.String("request_id", requestid.Get(c)),
				zap.Duration("timeout", timeout),
			)
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, gin.H{
				"error": "Request timeout",
				"code":  common.ErrCodeGatewayTimeout,
				"details": gin.H{
					"timeout": timeout.String(),
				},
			})
		}
	}
}

// rateLimiters 依端點建立限流中間件；有 Redis 時以 Redis 計數，出錯時退回單機令牌桶
func rateLimiters(cfg *config.Config, client *redis.Client) func(scope string, requests int) gin.HandlerFunc {
	return func(scope string, requests int) gin.HandlerFunc {
		if !cfg.RateLimit.Enabled {
			return func(c *gin.Context) { c.Next() }
		}

		var limiter middleware.Limiter = middleware.NewMemoryLimiter(requests, cfg.RateLimit.Window)
		if client != nil {
			limiter = middleware.FallbackLimiter{
				Primary:  middleware.NewRedisLimiter(client, "ratelimit", requests, cfg.RateLimit.Window),
				Fallback: limiter,
			}
		}
		return middleware.RateLimit(limiter, scope)
	}
}
