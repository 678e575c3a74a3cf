package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"sproutscan/internal/pkg/common"
)

const dedupCleanupInterval = time.Minute

// dedupStore 最近請求指紋
type dedupStore struct {
	mu          sync.Mutex
	requests    map[string]time.Time
	window      time.Duration
	lastCleanup time.Time
	now         func() time.Time
}

func newDedupStore(window time.Duration) *dedupStore {
	if window <= 0 {
		window = time.Second
	}
	return &dedupStore{
		requests:    make(map[string]time.Time),
		window:      window,
		lastCleanup: time.Now(),
		now:         time.Now,
	}
}

// seen 回傳指紋是否在時間窗內出現過，並記錄本次請求
func (s *dedupStore) seen(fingerprint string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Sub(s.lastCleanup) > dedupCleanupInterval {
		for k, t := range s.requests {
			if now.Sub(t) > s.window {
				delete(s.requests, k)
			}
		}
		s.lastCleanup = now
	}

	if last, exists := s.requests[fingerprint]; exists && now.Sub(last) <= s.window {
		return true
	}
	s.requests[fingerprint] = now
	return false
}

// Deduplication 同一客戶端在時間窗內重送相同 POST 內容時回傳 429
func Deduplication(window time.Duration) gin.HandlerFunc {
	return deduplication(newDedupStore(window))
}

func deduplication(store *dedupStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost {
			c.Next()
			return
		}

		bodyHash := ""
		if c.Request.Body != nil {
			body, err := io.ReadAll(c.Request.Body)
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					common.LogWarn("Request body too large",
						zap.Int64("max_size", tooLarge.Limit),
						zap.String("path", c.Request.URL.Path),
					)
					common.WriteErrorResponse(c, http.StatusRequestEntityTooLarge, common.ErrCodeRequestTooLarge, "Request body too large")
					return
				}
				common.LogError("Failed to read request body", zap.Error(err))
				common.WriteErrorResponse(c, http.StatusBadRequest, common.ErrCodeInvalidRequest, "Failed to read request body")
				return
			}
			hash := sha256.Sum256(body)
			bodyHash = hex.EncodeToString(hash[:])
			c.Request.Body = io.NopCloser(bytes.NewBuffer(body))
		}

		fingerprint := common.ClientKey(c) + ":" + c.Request.Method + ":" + c.Request.URL.Path + ":" + bodyHash
		if store.seen(fingerprint) {
			common.LogDebug("Duplicate request rejected", zap.String("path", c.Request.URL.Path))
			common.WriteErrorResponse(c, http.StatusTooManyRequests, common.ErrCodeTooManyRequests, "Request too frequent")
			return
		}

		c.Next()
	}
}
