package roblox

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/rbxproducts/internal/transport"
	"github.com/agentstation/rbxproducts/pkg/catalog"
	"github.com/agentstation/rbxproducts/pkg/errors"
)

// fakeAPI serves a tiny version of the Open Cloud catalog endpoints.
type fakeAPI struct {
	t  *testing.T
	mu sync.Mutex

	forms    []map[string]string
	requests []string
	status   int
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /game-passes/v1/universes/42/game-passes/creator", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		assert.Equal(f.t, "2", r.URL.Query().Get("pageSize"))
		switch r.URL.Query().Get("pageToken") {
		case "":
			f.json(w, map[string]any{
				"gamePasses": []map[string]any{
					{"gamePassId": 1, "name": "VIP", "description": "d", "isForSale": true,
						"priceInformation": map[string]any{"defaultPriceInRobux": 250, "enabledFeatures": []string{"RegionalPricing"}}},
					{"gamePassId": 2, "name": "Offsale", "isForSale": false},
				},
				"nextPageToken": "p2",
			})
		case "p2":
			f.json(w, map[string]any{
				"gamePasses": []map[string]any{
					{"gamePassId": 3, "name": "Speed", "isForSale": true,
						"priceInformation": map[string]any{"defaultPriceInRobux": 50}},
				},
			})
		}
	})

	mux.HandleFunc("GET /developer-products/v2/universes/42/developer-products/creator", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		f.json(w, map[string]any{
			"developerProducts": []map[string]any{
				{"productId": 10, "name": "Coins", "isForSale": true,
					"priceInformation": map[string]any{"defaultPriceInRobux": 25, "enabledFeatures": []string{}}},
			},
			"nextPageToken": nil,
		})
	})

	mux.HandleFunc("POST /game-passes/v1/universes/42/game-passes", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w, r) {
			return
		}
		f.json(w, map[string]any{"gamePassId": 77})
	})

	mux.HandleFunc("POST /developer-products/v2/universes/42/developer-products", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w, r) {
			return
		}
		f.json(w, map[string]any{"productId": 88, "name": r.FormValue("name")})
	})

	mux.HandleFunc("PATCH /game-passes/v1/universes/42/game-passes/{id}", func(w http.ResponseWriter, r *http.Request) {
		if f.fail(w, r) {
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	return mux
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	assert.Equal(f.t, "test-key", r.Header.Get("x-api-key"))
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
}

func (f *fakeAPI) fail(w http.ResponseWriter, r *http.Request) bool {
	f.record(r)
	if !assert.NoError(f.t, r.ParseMultipartForm(1<<20)) {
		w.WriteHeader(http.StatusBadRequest)
		return true
	}
	values := make(map[string]string)
	for k, v := range r.MultipartForm.Value {
		values[k] = v[0]
	}
	f.mu.Lock()
	f.forms = append(f.forms, values)
	status := f.status
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"message":"nope"}`))
		return true
	}
	return false
}

func (f *fakeAPI) json(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	assert.NoError(f.t, json.NewEncoder(w).Encode(v))
}

func newTestClient(t *testing.T) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{t: t}
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)

	c, err := New(Config{APIKey: "test-key", BaseURL: srv.URL + "/", PageSize: 2, MaxRateLimitRetries: 1}, 42,
		transport.WithSleep(func(context.Context, time.Duration) error { return nil }))
	require.NoError(t, err)
	return c, api
}

func TestList(t *testing.T) {
	c, api := newTestClient(t)

	records, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.Record{
		{ID: 1, Category: catalog.GamePass, Name: "VIP", Price: 250, Description: "d", ForSale: true, RegionalPricing: true},
		{ID: 2, Category: catalog.GamePass, Name: "Offsale"},
		{ID: 3, Category: catalog.GamePass, Name: "Speed", Price: 50, ForSale: true},
		{ID: 10, Category: catalog.Product, Name: "Coins", Price: 25, ForSale: true},
	}, records)
	assert.Len(t, api.requests, 3)
}

func TestCreate(t *testing.T) {
	c, api := newTestClient(t)

	rec, err := c.Create(context.Background(), catalog.Draft{
		Category: catalog.GamePass, Name: "💲10% OFF💲 Booster", Price: 90, ForSale: true,
	})
	require.NoError(t, err)
	assert.Equal(t, catalog.Record{ID: 77, Category: catalog.GamePass, Name: "💲10% OFF💲 Booster", Price: 90, ForSale: true}, rec)

	rec, err = c.Create(context.Background(), catalog.Draft{Category: catalog.Product, Name: "Free", Price: 0})
	require.NoError(t, err)
	assert.Equal(t, uint64(88), rec.ID)

	require.Len(t, api.forms, 2)
	assert.Equal(t, map[string]string{
		"name":                     "💲10% OFF💲 Booster",
		"description":              "",
		"isForSale":                "true",
		"price":                    "90",
		"isRegionalPricingEnabled": "false",
	}, api.forms[0])
	assert.NotContains(t, api.forms[1], "price")
}

func TestUpdateSendsOnlyChangedFields(t *testing.T) {
	c, api := newTestClient(t)

	name := "VIP+"
	current := catalog.Record{ID: 5, Category: catalog.GamePass, Name: "VIP", Price: 100, ForSale: true}
	rec, err := c.Update(context.Background(), current, catalog.Patch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "VIP+", rec.Name)
	assert.Equal(t, int64(100), rec.Price)

	require.Len(t, api.forms, 1)
	assert.Equal(t, map[string]string{"name": "VIP+"}, api.forms[0])
	assert.Equal(t, []string{"PATCH /game-passes/v1/universes/42/game-passes/5"}, api.requests)

	// An empty patch makes no request.
	_, err = c.Update(context.Background(), current, catalog.Patch{})
	require.NoError(t, err)
	assert.Len(t, api.requests, 1)
}

func TestUpdatePrice(t *testing.T) {
	c, api := newTestClient(t)
	current := catalog.Record{ID: 9, Category: catalog.GamePass, Name: "VIP", Price: 100, ForSale: true}

	price := int64(40)
	rec, err := c.Update(context.Background(), current, catalog.Patch{Price: &price})
	require.NoError(t, err)
	assert.Equal(t, int64(40), rec.Price)
	require.Len(t, api.forms, 1)
	assert.Equal(t, map[string]string{"price": "40"}, api.forms[0])

	zero := int64(0)
	rec, err = c.Update(context.Background(), current, catalog.Patch{Price: &zero})
	require.Error(t, err)
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, catalog.Record{}, rec)
	assert.Len(t, api.requests, 1, "a price of 0 is never sent")
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		status    int
		auth      bool
		transient bool
	}{
		{status: http.StatusUnauthorized, auth: true},
		{status: http.StatusForbidden, auth: true},
		{status: http.StatusBadRequest},
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusServiceUnavailable, transient: true},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c, api := newTestClient(t)
			api.status = tt.status

			_, err := c.Create(context.Background(), catalog.Draft{Category: catalog.GamePass, Name: "X", Price: 1})
			require.Error(t, err)
			assert.Equal(t, tt.auth, errors.IsAuthError(err))
			assert.Equal(t, tt.transient, errors.IsTransient(err))
		})
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	_, err := New(Config{}, 42)
	require.Error(t, err)
	assert.True(t, errors.IsAuthError(err))
	assert.ErrorIs(t, err, errors.ErrAPIKeyRequired)

	_, err = New(Config{APIKey: "k"}, 0)
	assert.True(t, errors.IsValidationError(err))
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	c, err := New(Config{APIKey: "k", BaseURL: srv.URL}, 42)
	require.NoError(t, err)
	_, err = c.List(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RBX_API_KEY", "from-env")
	t.Setenv("RBX_PAGE_SIZE", "50")
	t.Setenv("RBX_HTTP_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.APIKey)
	assert.Equal(t, 50, cfg.PageSize)
	assert.Equal(t, 5*time.Second, cfg.Timeout)
	assert.Equal(t, "https://apis.roblox.com", cfg.BaseURL)
	assert.Equal(t, 5, cfg.MaxRateLimitRetries)

	t.Setenv("RBX_PAGE_SIZE", "500")
	_, err = LoadConfig()
	assert.True(t, errors.IsValidationError(err))

	t.Setenv("RBX_PAGE_SIZE", "many")
	_, err = LoadConfig()
	require.Error(t, err)

	t.Setenv("RBX_PAGE_SIZE", "50")
	t.Setenv("RBX_API_BASE_URL", "::not a url")
	_, err = LoadConfig()
	assert.True(t, errors.IsValidationError(err))
}
