package product

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"sproutscan/internal/infrastructure/config"
	"sproutscan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
)

const (
	sourceUSDA = "USDA"
	sourceOFF  = "OpenFoodFacts"
	sourceUPC  = "UPCitemdb"

	pageSize = 10
)

// Provider 以條碼查詢商品的資料來源，找不到時回傳 ErrNotFound
type Provider interface {
	Name() string
	Lookup(ctx context.Context, barcode string) (*Product, error)
}

// Searcher 以名稱搜尋商品的資料來源
type Searcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

func newRestyClient(baseURL string, cfg config.LookupConfig) *resty.Client {
	return resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", cfg.UserAgent)
}

// getJSON 發送 GET 並解析 JSON；404 視為找不到
func getJSON(req *resty.Request, path, provider string, v interface{}) error {
	start := time.Now()
	resp, err := req.Get(path)
	if err != nil {
		err = fmt.Errorf("failed to send request to %s: %w", provider, err)
		common.LogUpstreamCall(provider, time.Since(start), err)
		return err
	}

	if resp.StatusCode() == http.StatusNotFound {
		common.LogUpstreamCall(provider, time.Since(start), nil)
		return ErrNotFound
	}
	if resp.StatusCode() != http.StatusOK {
		err = fmt.Errorf("%s API returned status %d", provider, resp.StatusCode())
		common.LogUpstreamCall(provider, time.Since(start), err)
		return err
	}

	if err := common.ParseJSONBytes(resp.Body(), v); err != nil {
		err = fmt.Errorf("failed to parse %s response: %w", provider, err)
		common.LogUpstreamCall(provider, time.Since(start), err)
		return err
	}
	common.LogUpstreamCall(provider, time.Since(start), nil)
	return nil
}

// USDAClient USDA FoodData Central
type USDAClient struct {
	client *resty.Client
	apiKey string
}

type usdaSearchResponse struct {
	Foods []struct {
		Description string `json:"description"`
		BrandOwner  string `json:"brandOwner"`
		BrandName   string `json:"brandName"`
		GTINUPC     string `json:"gtinUpc"`
		Ingredients string `json:"ingredients"`
	} `json:"foods"`
}

// NewUSDAClient 創建 USDA 客戶端
func NewUSDAClient(cfg config.LookupConfig) *USDAClient {
	return &USDAClient{
		client: newRestyClient(cfg.USDABaseURL, cfg),
		apiKey: cfg.USDAAPIKey,
	}
}

func (c *USDAClient) Name() string { return sourceUSDA }

func (c *USDAClient) search(ctx context.Context, query string) (*usdaSearchResponse, error) {
	var out usdaSearchResponse
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":    query,
			"dataType": "Branded",
			"pageSize": fmt.Sprint(pageSize),
			"api_key":  c.apiKey,
		})
	if err := getJSON(req, "/fdc/v1/foods/search", sourceUSDA, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Lookup 以條碼搜尋品牌食品，優先使用 UPC 完全相同的結果，只回傳有成分表的商品
func (c *USDAClient) Lookup(ctx context.Context, barcode string) (*Product, error) {
	out, err := c.search(ctx, barcode)
	if err != nil {
		return nil, err
	}
	if len(out.Foods) == 0 {
		return nil, ErrNotFound
	}

	food := out.Foods[0]
	for _, f := range out.Foods {
		if f.GTINUPC == barcode || barcodeKey(f.GTINUPC) == barcodeKey(barcode) {
			food = f
			break
		}
	}
	if food.Ingredients == "" {
		return nil, ErrNotFound
	}

	return &Product{
		Name:           firstNonEmpty(food.Description, "Unknown Product"),
		Brand:          firstNonEmpty(food.BrandOwner, food.BrandName),
		Barcode:        barcode,
		IngredientText: food.Ingredients,
	}, nil
}

// Search 名稱搜尋，略過沒有 UPC 或名稱的項目
func (c *USDAClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	out, err := c.search(ctx, query)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Foods))
	for _, f := range out.Foods {
		if f.GTINUPC == "" || f.Description == "" {
			continue
		}
		results = append(results, SearchResult{
			Name:    f.Description,
			Brand:   firstNonEmpty(f.BrandOwner, f.BrandName),
			Barcode: f.GTINUPC,
			Source:  sourceUSDA,
		})
	}
	return results, nil
}

// OFFClient Open Food Facts
type OFFClient struct {
	client *resty.Client
}

type offProduct struct {
	Code               string `json:"code"`
	ProductName        string `json:"product_name"`
	ProductNameEN      string `json:"product_name_en"`
	Brands             string `json:"brands"`
	ImageFrontSmallURL string `json:"image_front_small_url"`
	ImageURL           string `json:"image_url"`
	IngredientsText    string `json:"ingredients_text"`
	IngredientsTextEN  string `json:"ingredients_text_en"`
}

type offProductResponse struct {
	Status  int         `json:"status"`
	Product *offProduct `json:"product"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}

// NewOFFClient 創建 Open Food Facts 客戶端
func NewOFFClient(cfg config.LookupConfig) *OFFClient {
	return &OFFClient{client: newRestyClient(cfg.OFFBaseURL, cfg)}
}

func (c *OFFClient) Name() string { return sourceOFF }

// Lookup 以條碼查詢商品，成分表可能為空
func (c *OFFClient) Lookup(ctx context.Context, barcode string) (*Product, error) {
	var out offProductResponse
	req := c.client.R().
		SetContext(ctx).
		SetPathParam("barcode", barcode)
	if err := getJSON(req, "/api/v2/product/{barcode}.json", sourceOFF, &out); err != nil {
		return nil, err
	}
	if out.Status != 1 || out.Product == nil {
		return nil, ErrNotFound
	}

	p := out.Product
	return &Product{
		Name:           firstNonEmpty(p.ProductName, p.ProductNameEN, "Unknown Product"),
		Brand:          p.Brands,
		Image:          firstNonEmpty(p.ImageFrontSmallURL, p.ImageURL),
		Barcode:        barcode,
		IngredientText: firstNonEmpty(p.IngredientsText, p.IngredientsTextEN),
	}, nil
}

// Search 名稱搜尋，略過沒有條碼或名稱的項目
func (c *OFFClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	var out offSearchResponse
	req := c.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"search_terms":  query,
			"search_simple": "1",
			"action":        "process",
			"json":          "1",
			"page_size":     fmt.Sprint(pageSize),
		})
	if err := getJSON(req, "/cgi/search.pl", sourceOFF, &out); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(out.Products))
	for _, p := range out.Products {
		if p.Code == "" || p.ProductName == "" {
			continue
		}
		results = append(results, SearchResult{
			Name:    p.ProductName,
			Brand:   p.Brands,
			Barcode: p.Code,
			Image:   firstNonEmpty(p.ImageFrontSmallURL, p.ImageURL),
			Source:  "Open Food Facts",
		})
	}
	return results, nil
}

// UPCClient UPCitemdb，只提供商品名稱等資料，沒有成分表
type UPCClient struct {
	client *resty.Client
}

type upcLookupResponse struct {
	Items []struct {
		Title  string   `json:"title"`
		Brand  string   `json:"brand"`
		Images []string `json:"images"`
	} `json:"items"`
}

// NewUPCClient 創建 UPCitemdb 客戶端
func NewUPCClient(cfg config.LookupConfig) *UPCClient {
	return &UPCClient{client: newRestyClient(cfg.UPCBaseURL, cfg)}
}

func (c *UPCClient) Name() string { return sourceUPC }

// Lookup 以條碼查詢商品資料
func (c *UPCClient) Lookup(ctx context.Context, barcode string) (*Product, error) {
	var out upcLookupResponse
	req := c.client.R().
		SetContext(ctx).
		SetQueryParam("upc", barcode)
	if err := getJSON(req, "/prod/trial/lookup", sourceUPC, &out); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, ErrNotFound
	}

	item := out.Items[0]
	p := &Product{
		Name:    firstNonEmpty(item.Title, "Unknown Product"),
		Brand:   item.Brand,
		Barcode: barcode,
	}
	if len(item.Images) > 0 {
		p.Image = item.Images[0]
	}
	return p, nil
}
