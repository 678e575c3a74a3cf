package safety

import (
	"context"
	"errors"
	"net/http"

	"sproutscan/internal/core/ingredient"
	"sproutscan/internal/core/product"
	"sproutscan/internal/core/scan"
	"sproutscan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const notFoundHint = "This product isn't in our database. Try entering the barcode manually or check the numbers."

// Scanner 以條碼掃描商品
type Scanner interface {
	Scan(ctx context.Context, barcode string, stage ingredient.Stage) (*scan.Result, error)
}

// Searcher 以名稱搜尋商品
type Searcher interface {
	Search(ctx context.Context, query string) ([]product.SearchResult, error)
}

// Handler 成分安全相關 API
type Handler struct {
	classifier *ingredient.Classifier
	scanner    Scanner
	searcher   Searcher
}

// NewHandler 創建處理器
func NewHandler(classifier *ingredient.Classifier, scanner Scanner, searcher Searcher) *Handler {
	return &Handler{
		classifier: classifier,
		scanner:    scanner,
		searcher:   searcher,
	}
}

// ClassifyRequest 成分分析請求
type ClassifyRequest struct {
	Ingredients string `json:"ingredients"`
	Stage       string `json:"stage,omitempty"`
}

// HandleClassify 處理 POST /ingredients/classify
func (h *Handler) HandleClassify(c *gin.Context) {
	requestID := common.RequestID(c)

	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("請求格式無效",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		common.WriteError(c, common.ErrInvalidRequest.WithErr(err))
		return
	}

	stage, ok := ingredient.ParseStage(req.Stage)
	if !ok {
		common.WriteError(c, common.ErrInvalidRequest.WithMessage("Invalid stage"))
		return
	}

	verdict := h.classifier.ClassifyStage(req.Ingredients, stage)
	common.LogDebug("成分分析完成",
		zap.String("request_id", requestID),
		zap.String("overall", string(verdict.OverallSafety)),
		zap.Int("flagged", len(verdict.FlaggedIngredients)),
	)
	c.JSON(http.StatusOK, verdict)
}

// HandleScan 處理 GET /scan?barcode=...&stage=...
func (h *Handler) HandleScan(c *gin.Context) {
	requestID := common.RequestID(c)

	barcode := product.CleanBarcode(c.Query("barcode"))
	if barcode == "" {
		common.WriteError(c, common.ErrInvalidBarcode)
		return
	}

	stage, ok := stageParam(c)
	if !ok {
		common.WriteError(c, common.ErrInvalidRequest.WithMessage("Invalid stage"))
		return
	}

	result, err := h.scanner.Scan(c.Request.Context(), barcode, stage)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, result)
	case errors.Is(err, product.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":   common.ErrProductNotFound.Message,
			"code":    common.ErrProductNotFound.Code,
			"message": notFoundHint,
			"barcode": barcode,
		})
	case errors.Is(err, scan.ErrInvalidBarcode):
		common.WriteError(c, common.ErrInvalidBarcode)
	default:
		common.LogError("掃描失敗",
			zap.Error(err),
			zap.String("request_id", requestID),
			zap.String("barcode", barcode),
		)
		common.WriteError(c, common.ErrUpstreamUnavailable.WithErr(err))
	}
}

// HandleSearch 處理 GET /search?q=...
func (h *Handler) HandleSearch(c *gin.Context) {
	results, err := h.searcher.Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		common.LogError("搜尋失敗",
			zap.Error(err),
			zap.String("request_id", common.RequestID(c)),
		)
		common.WriteError(c, common.ErrUpstreamUnavailable.WithErr(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

// stageParam 讀取 stage，相容舊的 trimester 參數
func stageParam(c *gin.Context) (ingredient.Stage, bool) {
	if v, ok := c.GetQuery("stage"); ok {
		return ingredient.ParseStage(v)
	}
	return ingredient.ParseStage(c.Query("trimester"))
}
