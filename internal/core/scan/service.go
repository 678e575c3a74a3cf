package scan

import (
	"context"
	"errors"
	"fmt"

	"sproutscan/internal/core/ingredient"
	"sproutscan/internal/core/product"
	"sproutscan/internal/pkg/common"

	"go.uber.org/zap"
)

// ErrInvalidBarcode 條碼為空
var ErrInvalidBarcode = errors.New("barcode is required")

// Lookup 以條碼取得商品資料
type Lookup interface {
	Lookup(ctx context.Context, barcode string) (*product.Product, error)
}

// Result 掃描結果，判定欄位與 product 位於同一層
type Result struct {
	Product *product.Product `json:"product"`
	*ingredient.Verdict
}

// Service 結合商品查詢與成分分類
type Service struct {
	lookup     Lookup
	classifier *ingredient.Classifier
}

// NewService 創建掃描服務
func NewService(lookup Lookup, classifier *ingredient.Classifier) *Service {
	return &Service{
		lookup:     lookup,
		classifier: classifier,
	}
}

// Scan 查詢商品並分析成分；錯誤為 ErrInvalidBarcode、product.ErrNotFound 或上游錯誤
func (s *Service) Scan(ctx context.Context, barcode string, stage ingredient.Stage) (*Result, error) {
	barcode = product.CleanBarcode(barcode)
	if barcode == "" {
		return nil, ErrInvalidBarcode
	}

	p, err := s.lookup.Lookup(ctx, barcode)
	if err != nil {
		return nil, err
	}

	p.Ingredients = ingredient.Tokenize(p.IngredientText)
	verdict := s.classifier.ClassifyPhrases(p.Ingredients, stage)
	if verdict.NoIngredients {
		verdict.Message = noIngredientsMessage(p.Name)
	}

	common.LogInfo("掃描完成",
		zap.String("barcode", barcode),
		zap.String("stage", string(stage)),
		zap.String("overall", string(verdict.OverallSafety)),
		zap.Int("flagged", len(verdict.FlaggedIngredients)),
		zap.Int("unknown", len(verdict.UnknownIngredients)),
	)

	return &Result{Product: p, Verdict: verdict}, nil
}

func noIngredientsMessage(name string) string {
	return fmt.Sprintf("We found \"%s\" but couldn't get its ingredient list. Check the package and look for concerning ingredients like artificial sweeteners, preservatives, or caffeine.", name)
}
