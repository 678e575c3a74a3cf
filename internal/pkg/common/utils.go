package common

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GenerateUUID 生成 UUID
func GenerateUUID() string {
	return uuid.New().String()
}

// RequestID 取得請求 ID，沒有時生成一個
func RequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	if id := c.Writer.Header().Get("X-Request-ID"); id != "" {
		return id
	}
	return GenerateUUID()
}

// ClientKey 取得限流與去重使用的客戶端識別，優先使用代理轉發的第一個 IP
func ClientKey(c *gin.Context) string {
	if fwd := c.GetHeader("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	if ip := c.GetHeader("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

// WriteError 將錯誤轉為 JSON 響應
func WriteError(c *gin.Context, err error) {
	ce := AsCustomError(err)
	c.JSON(ce.Status, gin.H{
		"error":   ce.Message,
		"code":    ce.Code,
		"message": ce.Message,
	})
}

// WriteErrorResponse 寫入錯誤響應並中止後續處理
func WriteErrorResponse(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   message,
		"code":    code,
		"message": message,
	})
}

