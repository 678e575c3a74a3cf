package product

import (
	"errors"
	"strings"

	"sproutscan/internal/core/ingredient"
)

// ErrNotFound 所有資料來源都找不到該商品
var ErrNotFound = errors.New("product not found")

// ErrUpstreamUnavailable 所有資料來源都請求失敗
var ErrUpstreamUnavailable = errors.New("product sources unavailable")

// Product 商品資料，IngredientText 為原始成分表
type Product struct {
	Name           string   `json:"name"`
	Brand          string   `json:"brand"`
	Image          string   `json:"image,omitempty"`
	Barcode        string   `json:"barcode"`
	Source         string   `json:"source"`
	IngredientText string   `json:"ingredientText,omitempty"`
	Ingredients    []string `json:"ingredients"`
}

// HasIngredients 成分表能解析出至少一個成分
func (p *Product) HasIngredients() bool {
	return len(ingredient.Tokenize(p.IngredientText)) > 0
}

// SearchResult 名稱搜尋結果
type SearchResult struct {
	Name    string `json:"name"`
	Brand   string `json:"brand"`
	Barcode string `json:"barcode"`
	Image   string `json:"image,omitempty"`
	Source  string `json:"source"`
}

// CleanBarcode 移除條碼中的空白與連字號
func CleanBarcode(barcode string) string {
	return strings.Map(func(r rune) rune {
		if r == '-' || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, barcode)
}

// barcodeKey 比對條碼時忽略前導零
func barcodeKey(barcode string) string {
	if trimmed := strings.TrimLeft(barcode, "0"); trimmed != "" {
		return trimmed
	}
	return barcode
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
