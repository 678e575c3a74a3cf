package product

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"sproutscan/internal/core/cache"
	"sproutscan/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream 以同一個 httptest server 模擬三個商品資料庫
type upstream struct {
	usda    string
	off     string
	offCode int
	upc     string

	offSearch  string
	usdaStatus int
	calls      atomic.Int32
}

func (u *upstream) handler() http.Handler {
	mux := http.NewServeMux()
	write := func(w http.ResponseWriter, status int, body string) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = fmt.Fprint(w, body)
	}
	mux.HandleFunc("/fdc/v1/foods/search", func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		if u.usdaStatus != 0 {
			write(w, u.usdaStatus, `{}`)
			return
		}
		write(w, http.StatusOK, u.usda)
	})
	mux.HandleFunc("/api/v2/product/", func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		status := u.offCode
		if status == 0 {
			status = http.StatusOK
		}
		write(w, status, u.off)
	})
	mux.HandleFunc("/cgi/search.pl", func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		write(w, http.StatusOK, u.offSearch)
	})
	mux.HandleFunc("/prod/trial/lookup", func(w http.ResponseWriter, r *http.Request) {
		u.calls.Add(1)
		write(w, http.StatusOK, u.upc)
	})
	return mux
}

func newTestService(t *testing.T, u *upstream, store cache.Store) *Service {
	t.Helper()
	srv := httptest.NewServer(u.handler())
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		Lookup: config.LookupConfig{
			USDAAPIKey:  "test",
			USDABaseURL: srv.URL,
			OFFBaseURL:  srv.URL,
			UPCBaseURL:  srv.URL,
			UserAgent:   "test",
			Timeout:     2 * time.Second,
		},
		Cache: config.CacheConfig{TTL: time.Minute, SearchTTL: time.Minute},
	}
	return NewService(cfg, store)
}

const emptyUSDA = `{"foods":[]}`
const emptyOFF = `{"status":0}`
const emptyUPC = `{"items":[]}`

func TestLookupUSDAExactMatch(t *testing.T) {
	u := &upstream{
		usda: `{"foods":[
			{"description":"OTHER","gtinUpc":"999","ingredients":"WATER"},
			{"description":"OAT MILK","brandOwner":"Oatly","gtinUpc":"0012345","ingredients":"OAT BASE, SALT"}
		]}`,
		off: emptyOFF,
		upc: emptyUPC,
	}
	s := newTestService(t, u, nil)

	p, err := s.Lookup(context.Background(), "12345")
	require.NoError(t, err)
	assert.Equal(t, "OAT MILK", p.Name)
	assert.Equal(t, "Oatly", p.Brand)
	assert.Equal(t, "OAT BASE, SALT", p.IngredientText)
	assert.Equal(t, "USDA", p.Source)
	assert.Equal(t, int32(1), u.calls.Load(), "stops after the first source with ingredients")
}

func TestLookupFallsBackToOFF(t *testing.T) {
	u := &upstream{
		usda: emptyUSDA,
		off: `{"status":1,"product":{"product_name":"Jam","brands":"Acme",
			"image_front_small_url":"https://img/jam.jpg","ingredients_text":"Strawberries, sugar"}}`,
		upc: emptyUPC,
	}
	s := newTestService(t, u, nil)

	p, err := s.Lookup(context.Background(), "3017-620 422003")
	require.NoError(t, err)
	assert.Equal(t, "Jam", p.Name)
	assert.Equal(t, "https://img/jam.jpg", p.Image)
	assert.Equal(t, "3017620422003", p.Barcode)
	assert.Equal(t, "OpenFoodFacts", p.Source)
	assert.True(t, p.HasIngredients())
}

func TestLookupUnparseableIngredientsFallsThrough(t *testing.T) {
	u := &upstream{
		usda: `{"foods":[{"description":"OAT MILK","gtinUpc":"0012345","ingredients":"(water)"}]}`,
		off: `{"status":1,"product":{"product_name":"Oat Drink","image_url":"https://img/oat.jpg",
			"ingredients_text":"Water, oats, salt"}}`,
		upc: emptyUPC,
	}
	s := newTestService(t, u, nil)

	p, err := s.Lookup(context.Background(), "0012345")
	require.NoError(t, err)
	assert.Equal(t, "OAT MILK", p.Name)
	assert.Equal(t, "Water, oats, salt", p.IngredientText)
	assert.Equal(t, "https://img/oat.jpg", p.Image)
	assert.Equal(t, "USDA + OpenFoodFacts", p.Source)
	assert.Equal(t, int32(2), u.calls.Load())
}

func TestHasIngredients(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"Water, oats, salt", true},
		{"", false},
		{"   ", false},
		{"(water)", false},
		{"Ingredients: .", false},
	}
	for _, tt := range tests {
		p := &Product{IngredientText: tt.text}
		assert.Equal(t, tt.want, p.HasIngredients(), tt.text)
	}
}

func TestLookupUPCMetadataOnly(t *testing.T) {
	u := &upstream{
		usda: emptyUSDA,
		off:  emptyOFF,
		upc:  `{"items":[{"title":"Mystery Bar","brand":"Acme","images":["https://img/bar.jpg"]}]}`,
	}
	s := newTestService(t, u, nil)

	p, err := s.Lookup(context.Background(), "555")
	require.NoError(t, err)
	assert.Equal(t, "Mystery Bar", p.Name)
	assert.Equal(t, "UPCitemdb", p.Source)
	assert.False(t, p.HasIngredients())
}

func TestLookupNotFound(t *testing.T) {
	u := &upstream{usda: emptyUSDA, off: `{}`, offCode: http.StatusNotFound, upc: emptyUPC}
	s := newTestService(t, u, nil)

	_, err := s.Lookup(context.Background(), "000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookupAllSourcesFailing(t *testing.T) {
	u := &upstream{usdaStatus: http.StatusInternalServerError, off: `not json`, upc: `not json`}
	s := newTestService(t, u, nil)

	_, err := s.Lookup(context.Background(), "123")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestLookupUsesCache(t *testing.T) {
	u := &upstream{
		usda: `{"foods":[{"description":"OAT MILK","gtinUpc":"1","ingredients":"OATS"}]}`,
	}
	store := cache.NewMemoryStore(10, 0)
	t.Cleanup(func() { _ = store.Close() })
	s := newTestService(t, u, store)

	_, err := s.Lookup(context.Background(), "1")
	require.NoError(t, err)
	p, err := s.Lookup(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "OAT MILK", p.Name)
	assert.Equal(t, int32(1), u.calls.Load())
}

type fakeProvider struct {
	name    string
	product *Product
	err     error
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Lookup(context.Context, string) (*Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := *f.product
	return &p, nil
}

func TestLookupMergesIngredientsIntoFirstProduct(t *testing.T) {
	s := New(Options{
		Sources: []Provider{
			&fakeProvider{name: "A", product: &Product{Name: "Granola", Brand: "A Co"}},
			&fakeProvider{name: "B", product: &Product{Name: "granola bar", Image: "https://img/b.jpg", IngredientText: "oats, honey"}},
		},
		Fallbacks: []Provider{&fakeProvider{name: "C", err: errors.New("must not be called")}},
	})

	p, err := s.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Granola", p.Name)
	assert.Equal(t, "oats, honey", p.IngredientText)
	assert.Equal(t, "https://img/b.jpg", p.Image)
	assert.Equal(t, "A + B", p.Source)
}

func TestLookupProviderErrorFallsThrough(t *testing.T) {
	s := New(Options{
		Sources: []Provider{
			&fakeProvider{name: "A", err: errors.New("boom")},
			&fakeProvider{name: "B", product: &Product{Name: "Tea", IngredientText: "black tea"}},
		},
	})

	p, err := s.Lookup(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "B", p.Source)
}

func TestSearchMergesAndDedups(t *testing.T) {
	u := &upstream{
		offSearch: `{"products":[
			{"code":"0012345","product_name":"Oat Milk","brands":"Oatly"},
			{"code":"","product_name":"No Code"},
			{"code":"777","product_name":""}
		]}`,
		usda: `{"foods":[
			{"description":"OAT MILK","brandOwner":"Oatly","gtinUpc":"12345"},
			{"description":"OAT DRINK","brandName":"Minor","gtinUpc":"888"}
		]}`,
	}
	s := newTestService(t, u, nil)

	results, err := s.Search(context.Background(), "  oat milk ")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Oat Milk", results[0].Name)
	assert.Equal(t, "Open Food Facts", results[0].Source)
	assert.Equal(t, "OAT DRINK", results[1].Name)
	assert.Equal(t, "Minor", results[1].Brand)
	assert.Equal(t, "USDA", results[1].Source)
}

func TestSearchShortQuery(t *testing.T) {
	u := &upstream{}
	s := newTestService(t, u, nil)

	results, err := s.Search(context.Background(), " a ")
	require.NoError(t, err)
	assert.NotNil(t, results)
	assert.Empty(t, results)
	assert.Equal(t, int32(0), u.calls.Load())
}

func TestSearchToleratesFailingSource(t *testing.T) {
	u := &upstream{
		offSearch:  `{"products":[{"code":"1","product_name":"Crackers"}]}`,
		usdaStatus: http.StatusTooManyRequests,
	}
	s := newTestService(t, u, nil)

	results, err := s.Search(context.Background(), "crackers")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Crackers", results[0].Name)
}

func TestMergeResultsCap(t *testing.T) {
	var a, b []SearchResult
	for i := 0; i < 10; i++ {
		a = append(a, SearchResult{Barcode: fmt.Sprintf("%d", i+1)})
		b = append(b, SearchResult{Barcode: fmt.Sprintf("%d", i+100)})
	}
	merged := mergeResults([][]SearchResult{a, b}, maxSearchResults)
	assert.Len(t, merged, maxSearchResults)
	assert.Equal(t, "1", merged[0].Barcode)
	assert.Equal(t, "104", merged[14].Barcode)
}

func TestCleanBarcode(t *testing.T) {
	assert.Equal(t, "0123456789", CleanBarcode(" 012-345 6789\n"))
	assert.Equal(t, "12345", barcodeKey("0012345"))
	assert.Equal(t, "000", barcodeKey("000"))
}
