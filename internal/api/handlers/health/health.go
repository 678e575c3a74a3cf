package health

import (
	"net/http"
	"runtime"
	"time"

	"sproutscan/internal/core/ingredient"
	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthResponse 健康檢查響應
type HealthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime"`
	Reference *ReferenceStatus       `json:"reference,omitempty"`
	Cache     map[string]interface{} `json:"cache,omitempty"`
}

// ReferenceStatus 參考資料筆數
type ReferenceStatus struct {
	Concerning int `json:"concerning"`
	Safe       int `json:"safe"`
}

// StatsProvider 可回報統計的緩存
type StatsProvider interface {
	GetStats() map[string]interface{}
}

func referenceStatus(c *gin.Context) *ReferenceStatus {
	v, exists := c.Get("classifier")
	if !exists {
		return nil
	}
	classifier, ok := v.(*ingredient.Classifier)
	if !ok || classifier == nil {
		return nil
	}
	ref := classifier.Reference()
	return &ReferenceStatus{
		Concerning: len(ref.Concerning),
		Safe:       len(ref.Safe),
	}
}

// HealthCheck 健康檢查處理器
func HealthCheck(c *gin.Context) {
	cfg, exists := c.Get("config")
	if !exists {
		common.LogError("Configuration not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Configuration not found",
		})
		return
	}
	config, ok := cfg.(*config.Config)
	if !ok {
		common.LogError("Invalid configuration type in context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Invalid configuration type",
		})
		return
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   config.App.Version,
		Runtime: map[string]interface{}{
			"goroutines": runtime.NumGoroutine(),
			"memory": map[string]interface{}{
				"alloc":       m.Alloc,
				"total_alloc": m.TotalAlloc,
				"sys":         m.Sys,
				"num_gc":      m.NumGC,
			},
		},
		Reference: referenceStatus(c),
	}

	if v, exists := c.Get("cache"); exists {
		if stats, ok := v.(StatsProvider); ok {
			response.Cache = stats.GetStats()
		}
	}

	common.LogDebug("Health check request",
		zap.String("client_ip", c.ClientIP()),
		zap.String("path", c.Request.URL.Path),
	)

	c.JSON(http.StatusOK, response)
}

// ReadinessCheck 參考資料載入後才算就緒
func ReadinessCheck(c *gin.Context) {
	status := referenceStatus(c)
	if status == nil || status.Concerning == 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not_ready",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "ready",
		"reference": status,
	})
}

// LivenessCheck 存活檢查處理器
func LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}
