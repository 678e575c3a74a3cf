package product

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"sproutscan/internal/core/cache"
	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	maxSearchResults = 15
	minQueryLen      = 2
)

// Options 商品服務的資料來源與緩存設定
type Options struct {
	// Sources 可提供成分表的來源，依序查詢直到取得成分表
	Sources []Provider
	// Fallbacks 只有商品資料的備援來源，Sources 全部找不到時才查詢
	Fallbacks []Provider
	// Searchers 名稱搜尋來源，結果依此順序合併
	Searchers []Searcher
	Cache     cache.Store
	TTL       time.Duration
	SearchTTL time.Duration
}

// Service 商品查詢服務
type Service struct {
	opts Options
}

// NewService 依設定建立 USDA → Open Food Facts → UPCitemdb 的查詢服務
func NewService(cfg *config.Config, store cache.Store) *Service {
	usda := NewUSDAClient(cfg.Lookup)
	off := NewOFFClient(cfg.Lookup)
	upc := NewUPCClient(cfg.Lookup)

	return New(Options{
		Sources:   []Provider{usda, off},
		Fallbacks: []Provider{upc},
		Searchers: []Searcher{off, usda},
		Cache:     store,
		TTL:       cfg.Cache.TTL,
		SearchTTL: cfg.Cache.SearchTTL,
	})
}

// New 創建商品查詢服務
func New(opts Options) *Service {
	if opts.Cache == nil {
		opts.Cache = cache.NopStore{}
	}
	return &Service{opts: opts}
}

// lookupState 單次查詢的合併狀態
type lookupState struct {
	product   *Product
	sources   []string
	attempted int
	failed    int
}

func (st *lookupState) try(ctx context.Context, p Provider, barcode string) {
	st.attempted++
	found, err := p.Lookup(ctx, barcode)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			st.failed++
		}
		return
	}

	switch {
	case st.product == nil:
		st.product = found
	case !st.product.HasIngredients() && found.HasIngredients():
		st.product.IngredientText = found.IngredientText
		if st.product.Image == "" {
			st.product.Image = found.Image
		}
	default:
		return
	}
	st.sources = append(st.sources, p.Name())
}

// Lookup 以條碼查詢商品；來源依序嘗試，取得成分表即停止
func (s *Service) Lookup(ctx context.Context, barcode string) (*Product, error) {
	barcode = CleanBarcode(barcode)
	key := cache.Key("product", barcode)

	var cached Product
	if err := cache.GetJSON(ctx, s.opts.Cache, key, &cached); err == nil {
		common.LogCacheHit("product", key)
		return &cached, nil
	}
	common.LogCacheMiss("product", key)

	st := &lookupState{}
	for _, p := range s.opts.Sources {
		if st.product != nil && st.product.HasIngredients() {
			break
		}
		st.try(ctx, p, barcode)
	}
	if st.product == nil {
		for _, p := range s.opts.Fallbacks {
			if st.product != nil {
				break
			}
			st.try(ctx, p, barcode)
		}
	}

	if st.product == nil {
		if st.attempted > 0 && st.failed == st.attempted {
			return nil, ErrUpstreamUnavailable
		}
		return nil, ErrNotFound
	}

	st.product.Source = strings.Join(st.sources, " + ")
	common.LogInfo("商品查詢完成",
		zap.String("barcode", barcode),
		zap.String("source", st.product.Source),
		zap.Bool("has_ingredients", st.product.HasIngredients()),
	)

	if err := cache.SetJSON(ctx, s.opts.Cache, key, st.product, s.opts.TTL); err != nil {
		common.LogWarn("商品緩存寫入失敗", zap.Error(err))
	}
	return st.product, nil
}

// Search 並行查詢所有搜尋來源，依條碼（忽略前導零）去重，最多回傳 15 筆
func (s *Service) Search(ctx context.Context, query string) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if utf8.RuneCountInString(query) < minQueryLen {
		return []SearchResult{}, nil
	}

	key := cache.Key("search", query)
	var cached []SearchResult
	if err := cache.GetJSON(ctx, s.opts.Cache, key, &cached); err == nil {
		common.LogCacheHit("search", key)
		return cached, nil
	}

	perSource := make([][]SearchResult, len(s.opts.Searchers))
	var g errgroup.Group
	for i, searcher := range s.opts.Searchers {
		i, searcher := i, searcher
		g.Go(func() error {
			results, err := searcher.Search(ctx, query)
			if err != nil {
				common.LogWarn("名稱搜尋失敗",
					zap.String("provider", searcher.Name()),
					zap.Error(err),
				)
				return nil
			}
			perSource[i] = results
			return nil
		})
	}
	_ = g.Wait()

	results := mergeResults(perSource, maxSearchResults)
	if len(results) == 0 {
		return results, nil
	}
	if err := cache.SetJSON(ctx, s.opts.Cache, key, results, s.opts.SearchTTL); err != nil {
		common.LogWarn("搜尋緩存寫入失敗", zap.Error(err))
	}
	return results, nil
}

// mergeResults 依來源順序合併，相同條碼只保留第一筆
func mergeResults(perSource [][]SearchResult, limit int) []SearchResult {
	seen := make(map[string]struct{})
	merged := make([]SearchResult, 0, limit)
	for _, results := range perSource {
		for _, r := range results {
			key := barcodeKey(r.Barcode)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			merged = append(merged, r)
			if len(merged) >= limit {
				return merged
			}
		}
	}
	return merged
}
