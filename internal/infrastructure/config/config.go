package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 應用配置
type Config struct {
	App         AppConfig       `mapstructure:"app"`
	Server      ServerConfig    `mapstructure:"server"`
	Reference   ReferenceConfig `mapstructure:"reference"`
	Lookup      LookupConfig    `mapstructure:"lookup"`
	Cache       CacheConfig     `mapstructure:"cache"`
	Redis       RedisConfig     `mapstructure:"redis"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	DedupWindow time.Duration   `mapstructure:"dedup_window"`
	LogLevel    string          `mapstructure:"log_level"`
}

// AppConfig 應用程式設定
type AppConfig struct {
	Env     string `mapstructure:"env"`
	Debug   bool   `mapstructure:"debug"`
	Version string `mapstructure:"version"`
	Name    string `mapstructure:"name"`
}

// ServerConfig 服務器配置
type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes"`
}

// ReferenceConfig 參考資料檔案，空值使用內嵌資料
type ReferenceConfig struct {
	ConcerningPath string `mapstructure:"concerning_path"`
	SafePath       string `mapstructure:"safe_path"`
}

// LookupConfig 外部商品資料庫設定
type LookupConfig struct {
	USDAAPIKey  string        `mapstructure:"usda_api_key"`
	USDABaseURL string        `mapstructure:"usda_base_url"`
	OFFBaseURL  string        `mapstructure:"off_base_url"`
	UPCBaseURL  string        `mapstructure:"upc_base_url"`
	UserAgent   string        `mapstructure:"user_agent"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// CacheConfig 緩存配置
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	MaxSize         int           `mapstructure:"max_size"`
	TTL             time.Duration `mapstructure:"ttl"`
	SearchTTL       time.Duration `mapstructure:"search_ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// RedisConfig Redis 連線設定，Addr 與 URL 皆為空時不使用 Redis
type RedisConfig struct {
	URL      string `mapstructure:"url"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Enabled 是否設定了 Redis
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Addr != ""
}

// RateLimitConfig 速率限制配置，按客戶端計數
type RateLimitConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	ScanRequests   int           `mapstructure:"scan_requests"`
	SearchRequests int           `mapstructure:"search_requests"`
	Requests       int           `mapstructure:"requests"`
	Window         time.Duration `mapstructure:"window"`
}

// LoadConfig 載入設定
func LoadConfig() (*Config, error) {
	// 加載 .env 文件，不存在時只使用環境變數
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return Load(viper.New())
}

// Load 使用指定的 viper 實例解析設定
func Load(v *viper.Viper) (*Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 綁定環境變量
	_ = v.BindEnv("lookup.usda_api_key", "APP_LOOKUP_USDA_API_KEY", "USDA_API_KEY")
	_ = v.BindEnv("redis.url", "APP_REDIS_URL", "REDIS_URL")
	_ = v.BindEnv("redis.addr", "APP_REDIS_ADDR", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "APP_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("cache.enabled", "APP_CACHE_ENABLED", "CACHE_ENABLED")
	_ = v.BindEnv("rate_limit.enabled", "APP_RATE_LIMIT_ENABLED", "RATE_LIMIT_ENABLED")
	_ = v.BindEnv("rate_limit.window", "APP_RATE_LIMIT_WINDOW", "RATE_LIMIT_WINDOW")
	_ = v.BindEnv("dedup_window", "APP_DEDUP_WINDOW", "DEDUP_WINDOW")
	_ = v.BindEnv("log_level", "APP_LOG_LEVEL", "LOG_LEVEL")

	fmt.Println("Loading configuration", "usda_api_key:", maskAPIKey(v.GetString("lookup.usda_api_key")), "redis:", v.GetString("redis.addr") != "" || v.GetString("redis.url") != "")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &config, nil
}

// maskAPIKey 遮罩 API Key，只顯示前後各 4 個字符
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

// setDefaults 設定預設值
func setDefaults(v *viper.Viper) {
	// 應用程式設定
	v.SetDefault("app.env", "development")
	v.SetDefault("app.debug", true)
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.name", "sproutscan")

	// 伺服器設定
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "30s")
	v.SetDefault("server.max_body_bytes", 1<<20) // 1MB

	// 參考資料
	v.SetDefault("reference.concerning_path", "")
	v.SetDefault("reference.safe_path", "")

	// 商品資料庫
	v.SetDefault("lookup.usda_api_key", "DEMO_KEY")
	v.SetDefault("lookup.usda_base_url", "https://api.nal.usda.gov")
	v.SetDefault("lookup.off_base_url", "https://world.openfoodfacts.org")
	v.SetDefault("lookup.upc_base_url", "https://api.upcitemdb.com")
	v.SetDefault("lookup.user_agent", "SproutScan/1.0 (ingredient safety scanner)")
	v.SetDefault("lookup.timeout", "10s")

	// 快取設定
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_size", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.search_ttl", "5m")
	v.SetDefault("cache.cleanup_interval", "10m")

	// Redis
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// 限流設定
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.scan_requests", 20)
	v.SetDefault("rate_limit.search_requests", 40)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", "1m")

	v.SetDefault("dedup_window", "1s")
	v.SetDefault("log_level", "info")
}

// validateConfig 驗證設定
func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}
	if config.Server.RequestTimeout <= 0 {
		return fmt.Errorf("invalid request timeout")
	}

	if config.Lookup.Timeout <= 0 {
		return fmt.Errorf("invalid lookup timeout")
	}
	if config.Lookup.OFFBaseURL == "" || config.Lookup.USDABaseURL == "" || config.Lookup.UPCBaseURL == "" {
		return fmt.Errorf("lookup base urls are required")
	}

	if config.Cache.Enabled {
		if config.Cache.MaxSize <= 0 {
			return fmt.Errorf("invalid cache max size")
		}
		if config.Cache.TTL <= 0 || config.Cache.SearchTTL <= 0 {
			return fmt.Errorf("invalid cache ttl")
		}
		if config.Cache.CleanupInterval <= 0 {
			return fmt.Errorf("invalid cache cleanup interval")
		}
	}

	if config.RateLimit.Enabled {
		if config.RateLimit.ScanRequests <= 0 || config.RateLimit.SearchRequests <= 0 || config.RateLimit.Requests <= 0 {
			return fmt.Errorf("invalid rate limit requests")
		}
		if config.RateLimit.Window <= 0 {
			return fmt.Errorf("invalid rate limit window")
		}
	}

	return nil
}
