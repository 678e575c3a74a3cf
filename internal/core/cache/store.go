package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrCacheMiss 鍵不存在或已過期
var ErrCacheMiss = errors.New("cache miss")

// Store 鍵值緩存，實作需支援並發使用
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Key 生成帶命名空間的緩存鍵，過長的部分以 SHA-256 壓縮
func Key(namespace string, parts ...string) string {
	joined := strings.ToLower(strings.Join(parts, ":"))
	if len(joined) > 64 {
		hash := sha256.Sum256([]byte(joined))
		joined = hex.EncodeToString(hash[:])
	}
	return fmt.Sprintf("%s:%s", namespace, joined)
}

// GetJSON 讀取並解析 JSON 緩存值
func GetJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := common.ParseJSONBytes(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal cache: %w", err)
	}
	return nil
}

// SetJSON 序列化後寫入緩存
func SetJSON(ctx context.Context, s Store, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return s.Set(ctx, key, data, ttl)
}

// NewStore 依設定建立緩存；Redis 不可用時退回記憶體緩存
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("Cache disabled")
		return NopStore{}, nil
	}

	if cfg.Redis.Enabled() {
		client, err := NewRedisClient(ctx, cfg.Redis)
		if err == nil {
			return NewRedisStore(client, "sproutscan"), nil
		}
		common.LogWarn("Redis 不可用，改用記憶體緩存", zap.Error(err))
	}

	return NewMemoryStore(cfg.Cache.MaxSize, cfg.Cache.CleanupInterval), nil
}

// NopStore 關閉緩存時使用，永遠未命中
type NopStore struct{}

func (NopStore) Get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (NopStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

func (NopStore) Close() error { return nil }
