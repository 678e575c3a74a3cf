package common

import (
	"errors"
	"net/http"
)

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 回傳原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// WithErr 以預定義錯誤為模板附加原始錯誤
func (e *CustomError) WithErr(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// WithMessage 以預定義錯誤為模板替換錯誤信息
func (e *CustomError) WithMessage(message string) *CustomError {
	return NewError(e.Code, message, e.Status, e.Err)
}

// AsCustomError 從錯誤鏈中取出 CustomError，找不到時回傳 ErrInternalError
func AsCustomError(err error) *CustomError {
	var ce *CustomError
	if errors.As(err, &ce) {
		return ce
	}
	return ErrInternalError.WithErr(err)
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// ValidationError 表示驗證錯誤
type ValidationError struct {
	message string
}

// Error 實現 error 介面
func (e *ValidationError) Error() string {
	return e.message
}

// NewValidationError 創建新的驗證錯誤
func NewValidationError(message string) error {
	return &ValidationError{
		message: message,
	}
}

// IsValidationError 檢查是否為驗證錯誤
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeInvalidBarcode  = "INVALID_BARCODE"   // 400
	ErrCodeProductNotFound = "PRODUCT_NOT_FOUND" // 404
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE" // 413
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError       = "INTERNAL_ERROR"       // 500
	ErrCodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE" // 500
	ErrCodeGatewayTimeout      = "GATEWAY_TIMEOUT"      // 504
)

// 預定義錯誤
var (
	ErrInvalidRequest = NewError(ErrCodeInvalidRequest, "無效的請求", http.StatusBadRequest, nil)
	ErrInternalError  = NewError(ErrCodeInternalError, "服務器內部錯誤", http.StatusInternalServerError, nil)

	// 業務錯誤，訊息會直接顯示給使用者
	ErrInvalidBarcode      = NewError(ErrCodeInvalidBarcode, "Barcode is required", http.StatusBadRequest, nil)
	ErrProductNotFound     = NewError(ErrCodeProductNotFound, "Product not found", http.StatusNotFound, nil)
	ErrUpstreamUnavailable = NewError(ErrCodeUpstreamUnavailable, "Failed to fetch product information. Please try again.", http.StatusInternalServerError, nil)
)
