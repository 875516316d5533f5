// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/shoprec/internal/config"
	"github.com/tomtom215/shoprec/internal/events"
	"github.com/tomtom215/shoprec/internal/logging"
	"github.com/tomtom215/shoprec/internal/recommend"
	"github.com/tomtom215/shoprec/internal/recommend/engine"
)

type fakeCatalog struct {
	products map[int]recommend.Product
}

func (c *fakeCatalog) GetProduct(_ context.Context, id int) (*recommend.Product, error) {
	p, ok := c.products[id]
	if !ok {
		return nil, recommend.ErrNotFound
	}
	return &p, nil
}

func (c *fakeCatalog) ListEligibleProducts(_ context.Context) ([]recommend.Product, error) {
	var out []recommend.Product
	for _, p := range c.products {
		if p.Eligible() {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetProducts(_ context.Context, ids []int) ([]recommend.Product, error) {
	var out []recommend.Product
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeHistory struct {
	orders []recommend.Order
}

func (h *fakeHistory) ListCompletedOrders(_ context.Context) ([]recommend.Order, error) {
	return h.orders, nil
}

type fakeHealth struct {
	err error
}

func (h *fakeHealth) Ping(_ context.Context) error {
	return h.err
}

type fakePublisher struct {
	published []*events.OrderCompletedEvent
	err       error
}

func (p *fakePublisher) Publish(event *events.OrderCompletedEvent) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, event)
	return nil
}

func product(id int, name string) recommend.Product {
	return recommend.Product{
		ID:         id,
		Name:       name,
		Active:     true,
		Inventory:  5,
		CreatedAt:  time.Date(2026, 1, id, 0, 0, 0, 0, time.UTC),
		Categories: []int{1},
		Tags:       []int{10},
	}
}

func testConfig() *config.Config {
	return &config.Config{
		API: config.APIConfig{
			RateLimitDisabled: true,
			CORSOrigins:       []string{"*"},
			MaxBodyBytes:      1 << 20,
		},
		Recommend: recommend.DefaultConfig(),
	}
}

// newTestServer builds an engine over fakes, rebuilds the index from the
// given orders, and returns the routed handler.
func newTestServer(t *testing.T, products []recommend.Product, orders []recommend.Order) http.Handler {
	t.Helper()

	catalog := &fakeCatalog{products: make(map[int]recommend.Product)}
	for _, p := range products {
		catalog.products[p.ID] = p
	}
	history := &fakeHistory{orders: orders}

	cfg := testConfig()
	eng, err := engine.New(cfg.Recommend, catalog, history, nil, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	if err := eng.RebuildIndex(context.Background()); err != nil {
		t.Fatalf("RebuildIndex: %v", err)
	}

	handlers := NewHandlers(eng, &fakeHealth{}, &fakePublisher{}, cfg.API.MaxBodyBytes)
	return NewRouter(cfg, handlers)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func doRequest(t *testing.T, h http.Handler, method, path string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("unmarshal envelope: %v (body %s)", err, rec.Body.String())
		}
	}
	return rec, env
}

func scoredIDs(t *testing.T, raw json.RawMessage) []int {
	t.Helper()
	var items []recommend.ScoredProduct
	if err := json.Unmarshal(raw, &items); err != nil {
		t.Fatalf("unmarshal scored products: %v (raw %s)", err, raw)
	}
	ids := make([]int, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return ids
}

func equalIDs(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestProductRecommendationsEndpoint(t *testing.T) {
	h := newTestServer(t,
		[]recommend.Product{product(1, "anchor"), product(2, "beta"), product(3, "gamma")},
		[]recommend.Order{
			{ID: 100, Items: []int{1, 2}},
			{ID: 101, Items: []int{1, 2, 3}},
		},
	)

	rec, env := doRequest(t, h, http.MethodGet, "/recommendations/products/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	var recs recommend.ProductRecommendations
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if len(recs.FrequentlyBoughtTogether) == 0 {
		t.Error("expected frequently bought together entries")
	}
	if recs.FrequentlyBoughtTogether[0].ID != 2 {
		t.Errorf("top co-purchase = %d, want 2", recs.FrequentlyBoughtTogether[0].ID)
	}
	if len(recs.SimilarProducts) == 0 {
		t.Error("expected similar product entries")
	}
}

func TestProductRecommendationsErrors(t *testing.T) {
	h := newTestServer(t, []recommend.Product{product(1, "anchor")}, nil)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantErr  string
	}{
		{"unknown product", "/recommendations/products/999", http.StatusNotFound, ErrCodeNotFound},
		{"non-numeric id", "/recommendations/products/abc", http.StatusBadRequest, ErrCodeBadRequest},
		{"negative id", "/recommendations/products/-1", http.StatusBadRequest, ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := doRequest(t, h, http.MethodGet, tt.path, nil)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", env.Error, tt.wantErr)
			}
		})
	}
}

func TestCartRecommendationsEndpoint(t *testing.T) {
	h := newTestServer(t,
		[]recommend.Product{product(1, "a"), product(2, "b"), product(3, "c")},
		[]recommend.Order{
			{ID: 100, Items: []int{1, 3}},
			{ID: 101, Items: []int{2, 3}},
		},
	)

	t.Run("returns cross-sell candidates", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodPost, "/recommendations/cart",
			CartRecommendationsRequest{ProductIDs: []int{1, 2}})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		if got := scoredIDs(t, env.Data); !equalIDs(got, []int{3}) {
			t.Errorf("ids = %v, want [3]", got)
		}
	})

	t.Run("empty cart yields empty list", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodPost, "/recommendations/cart",
			CartRecommendationsRequest{})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := scoredIDs(t, env.Data); len(got) != 0 {
			t.Errorf("ids = %v, want empty", got)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/recommendations/cart",
			bytes.NewReader([]byte("{not json")))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("non-positive id fails validation", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodPost, "/recommendations/cart",
			CartRecommendationsRequest{ProductIDs: []int{1, 0}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeValidationFailed {
			t.Errorf("error = %+v, want code %s", env.Error, ErrCodeValidationFailed)
		}
	})

	t.Run("limit above cap fails validation", func(t *testing.T) {
		rec, _ := doRequest(t, h, http.MethodPost, "/recommendations/cart",
			CartRecommendationsRequest{ProductIDs: []int{1}, Limit: 51})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func TestPersonalizedRecommendationsEndpoint(t *testing.T) {
	featured := product(9, "featured")
	featured.Featured = true

	h := newTestServer(t,
		[]recommend.Product{product(1, "a"), product(2, "b"), featured},
		nil,
	)

	t.Run("viewed history", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodPost, "/recommendations/personalized",
			PersonalizedRecommendationsRequest{ViewedProductIDs: []int{1}})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
		}
		for _, id := range scoredIDs(t, env.Data) {
			if id == 1 {
				t.Error("viewed product must not be recommended back")
			}
		}
	})

	t.Run("cold start falls back to featured", func(t *testing.T) {
		rec, env := doRequest(t, h, http.MethodPost, "/recommendations/personalized",
			PersonalizedRecommendationsRequest{})
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		if got := scoredIDs(t, env.Data); !equalIDs(got, []int{9}) {
			t.Errorf("ids = %v, want [9]", got)
		}
	})
}

func TestProductRecommendationsWithoutRelationships(t *testing.T) {
	// Anchor with no order history and no category or tag overlap with
	// the rest of the catalog: both lists come back present and empty,
	// never null.
	anchor := product(1, "anchor")
	other := product(2, "unrelated")
	other.Categories = []int{2}
	other.Tags = []int{20}

	h := newTestServer(t, []recommend.Product{anchor, other}, nil)

	rec, env := doRequest(t, h, http.MethodGet, "/recommendations/products/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Fatal("expected success envelope")
	}

	var recs recommend.ProductRecommendations
	if err := json.Unmarshal(env.Data, &recs); err != nil {
		t.Fatalf("unmarshal data: %v", err)
	}
	if recs.FrequentlyBoughtTogether == nil {
		t.Error("frequently_bought_together must be [] in JSON, got null")
	}
	if len(recs.FrequentlyBoughtTogether) != 0 {
		t.Errorf("frequently bought together = %v, want empty", recs.FrequentlyBoughtTogether)
	}
	if recs.SimilarProducts == nil {
		t.Error("similar_products must be [] in JSON, got null")
	}
	if len(recs.SimilarProducts) != 0 {
		t.Errorf("similar products = %v, want empty", recs.SimilarProducts)
	}
}

func TestOrderCompletedEndpoint(t *testing.T) {
	newOrderServer := func(t *testing.T, pub OrderPublisher) http.Handler {
		t.Helper()
		cfg := testConfig()
		catalog := &fakeCatalog{products: map[int]recommend.Product{}}
		eng, err := engine.New(cfg.Recommend, catalog, &fakeHistory{}, nil, logging.NewTestLogger(io.Discard))
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		return NewRouter(cfg, NewHandlers(eng, nil, pub, cfg.API.MaxBodyBytes))
	}

	t.Run("publishes order event", func(t *testing.T) {
		pub := &fakePublisher{}
		h := newOrderServer(t, pub)

		rec, env := doRequest(t, h, http.MethodPost, "/orders/completed",
			OrderCompletedRequest{OrderID: 42, ProductIDs: []int{1, 2, 3}})
		if rec.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
		}
		if !env.Success {
			t.Fatal("expected success envelope")
		}
		if len(pub.published) != 1 {
			t.Fatalf("published %d events, want 1", len(pub.published))
		}
		event := pub.published[0]
		if event.OrderID != 42 {
			t.Errorf("order id = %d, want 42", event.OrderID)
		}
		if !equalIDs(event.ProductIDs, []int{1, 2, 3}) {
			t.Errorf("product ids = %v, want [1 2 3]", event.ProductIDs)
		}
		if event.EventID == "" {
			t.Error("expected generated event id")
		}
	})

	t.Run("intake disabled without publisher", func(t *testing.T) {
		h := newOrderServer(t, nil)

		rec, env := doRequest(t, h, http.MethodPost, "/orders/completed",
			OrderCompletedRequest{OrderID: 42, ProductIDs: []int{1, 2}})
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
			t.Errorf("error = %+v, want code %s", env.Error, ErrCodeServiceUnavailable)
		}
	})

	t.Run("missing order id fails validation", func(t *testing.T) {
		pub := &fakePublisher{}
		h := newOrderServer(t, pub)

		rec, env := doRequest(t, h, http.MethodPost, "/orders/completed",
			OrderCompletedRequest{ProductIDs: []int{1, 2}})
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeValidationFailed {
			t.Errorf("error = %+v, want code %s", env.Error, ErrCodeValidationFailed)
		}
		if len(pub.published) != 0 {
			t.Error("invalid request must not publish")
		}
	})

	t.Run("empty product list fails validation", func(t *testing.T) {
		h := newOrderServer(t, &fakePublisher{})

		rec, _ := doRequest(t, h, http.MethodPost, "/orders/completed",
			OrderCompletedRequest{OrderID: 42})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("publish failure", func(t *testing.T) {
		h := newOrderServer(t, &fakePublisher{err: errors.New("broker down")})

		rec, env := doRequest(t, h, http.MethodPost, "/orders/completed",
			OrderCompletedRequest{OrderID: 42, ProductIDs: []int{1, 2}})
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status = %d, want 500", rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeInternalError {
			t.Errorf("error = %+v, want code %s", env.Error, ErrCodeInternalError)
		}
	})
}

func TestRebuildEndpoint(t *testing.T) {
	h := newTestServer(t, []recommend.Product{product(1, "a")}, nil)

	rec, env := doRequest(t, h, http.MethodPost, "/admin/recommendations/rebuild", nil)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (body %s)", rec.Code, rec.Body.String())
	}
	if !env.Success {
		t.Error("expected success envelope")
	}
}

func TestStatusEndpoint(t *testing.T) {
	h := newTestServer(t,
		[]recommend.Product{product(1, "a"), product(2, "b")},
		[]recommend.Order{{ID: 100, Items: []int{1, 2}}},
	)

	rec, env := doRequest(t, h, http.MethodGet, "/admin/recommendations/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var status engine.Status
	if err := json.Unmarshal(env.Data, &status); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if status.Index.Pairs != 1 {
		t.Errorf("pairs = %d, want 1", status.Index.Pairs)
	}
	if status.Index.Version == 0 {
		t.Error("expected non-zero index version after rebuild")
	}
}

func TestHealthEndpoints(t *testing.T) {
	t.Run("live always ok", func(t *testing.T) {
		h := newTestServer(t, []recommend.Product{product(1, "a")}, nil)
		rec, _ := doRequest(t, h, http.MethodGet, "/healthz/live", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("ready after rebuild", func(t *testing.T) {
		h := newTestServer(t, []recommend.Product{product(1, "a")}, nil)
		rec, _ := doRequest(t, h, http.MethodGet, "/healthz/ready", nil)
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("not ready before first build", func(t *testing.T) {
		catalog := &fakeCatalog{products: map[int]recommend.Product{}}
		cfg := testConfig()
		eng, err := engine.New(cfg.Recommend, catalog, &fakeHistory{}, nil, logging.NewTestLogger(io.Discard))
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		h := NewRouter(cfg, NewHandlers(eng, &fakeHealth{}, nil, 0))

		rec, env := doRequest(t, h, http.MethodGet, "/healthz/ready", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("status = %d, want 503", rec.Code)
		}
		if env.Error == nil || env.Error.Code != ErrCodeServiceUnavailable {
			t.Errorf("error = %+v, want code %s", env.Error, ErrCodeServiceUnavailable)
		}
	})

	t.Run("not ready when storage unreachable", func(t *testing.T) {
		catalog := &fakeCatalog{products: map[int]recommend.Product{}}
		cfg := testConfig()
		eng, err := engine.New(cfg.Recommend, catalog, &fakeHistory{}, nil, logging.NewTestLogger(io.Discard))
		if err != nil {
			t.Fatalf("engine.New: %v", err)
		}
		health := &fakeHealth{err: errors.New("connection refused")}
		h := NewRouter(cfg, NewHandlers(eng, health, nil, 0))

		rec, _ := doRequest(t, h, http.MethodGet, "/healthz/ready", nil)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d, want 503", rec.Code)
		}
	})
}

func TestRequestIDHeaderOnResponses(t *testing.T) {
	h := newTestServer(t, []recommend.Product{product(1, "a")}, nil)

	rec, env := doRequest(t, h, http.MethodGet, "/recommendations/products/1", nil)
	if got := rec.Header().Get("X-Request-ID"); got == "" {
		t.Error("expected X-Request-ID response header")
	}
	if env.Meta == nil || env.Meta.RequestID == "" {
		t.Error("expected request id in response meta")
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := newTestServer(t, []recommend.Product{product(1, "a")}, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestBodySizeLimit(t *testing.T) {
	catalog := &fakeCatalog{products: map[int]recommend.Product{}}
	cfg := testConfig()
	cfg.API.MaxBodyBytes = 64
	eng, err := engine.New(cfg.Recommend, catalog, &fakeHistory{}, nil, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	h := NewRouter(cfg, NewHandlers(eng, nil, nil, cfg.API.MaxBodyBytes))

	ids := make([]int, 100)
	for i := range ids {
		ids[i] = i + 1
	}
	rec, _ := doRequest(t, h, http.MethodPost, "/recommendations/cart",
		CartRecommendationsRequest{ProductIDs: ids})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for oversized body", rec.Code)
	}
}
