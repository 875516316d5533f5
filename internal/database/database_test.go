// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/shoprec/internal/config"
	"github.com/tomtom215/shoprec/internal/recommend"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{Path: "", MaxMemory: "512MB", Threads: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProduct(t *testing.T, db *DB, p recommend.Product) {
	t.Helper()
	if err := db.UpsertProduct(context.Background(), p); err != nil {
		t.Fatalf("UpsertProduct(%d) error = %v", p.ID, err)
	}
}

func TestGetProduct(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedProduct(t, db, recommend.Product{
		ID: 1, Name: "Oak desk", Active: true, Inventory: 3,
		Categories: []int{10, 11}, Tags: []int{100},
	})

	t.Run("found", func(t *testing.T) {
		p, err := db.GetProduct(ctx, 1)
		if err != nil {
			t.Fatalf("GetProduct() error = %v", err)
		}
		if p.Name != "Oak desk" || !p.Active || p.Inventory != 3 {
			t.Errorf("product = %+v", p)
		}
		if len(p.Categories) != 2 || len(p.Tags) != 1 {
			t.Errorf("facets = %v / %v, want 2 categories and 1 tag", p.Categories, p.Tags)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := db.GetProduct(ctx, 999)
		if !errors.Is(err, recommend.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestUpsertProductReplacesFacets(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedProduct(t, db, recommend.Product{ID: 1, Name: "Desk", Active: true, Inventory: 1, Categories: []int{10}, Tags: []int{100, 101}})
	seedProduct(t, db, recommend.Product{ID: 1, Name: "Desk v2", Active: true, Inventory: 5, Categories: []int{12}, Tags: nil})

	p, err := db.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if p.Name != "Desk v2" || p.Inventory != 5 {
		t.Errorf("product = %+v", p)
	}
	if len(p.Categories) != 1 || p.Categories[0] != 12 {
		t.Errorf("categories = %v, want [12]", p.Categories)
	}
	if len(p.Tags) != 0 {
		t.Errorf("tags = %v, want empty", p.Tags)
	}
}

func TestListEligibleProducts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedProduct(t, db, recommend.Product{ID: 1, Name: "In stock", Active: true, Inventory: 5})
	seedProduct(t, db, recommend.Product{ID: 2, Name: "Sold out", Active: true, Inventory: 0})
	seedProduct(t, db, recommend.Product{ID: 3, Name: "Retired", Active: false, Inventory: 5})
	seedProduct(t, db, recommend.Product{ID: 4, Name: "Also in stock", Active: true, Inventory: 1})

	products, err := db.ListEligibleProducts(ctx)
	if err != nil {
		t.Fatalf("ListEligibleProducts() error = %v", err)
	}
	if len(products) != 2 || products[0].ID != 1 || products[1].ID != 4 {
		got := make([]int, len(products))
		for i, p := range products {
			got[i] = p.ID
		}
		t.Errorf("eligible ids = %v, want [1 4]", got)
	}
}

func TestGetProducts(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	seedProduct(t, db, recommend.Product{ID: 1, Name: "A", Active: true, Inventory: 1})
	seedProduct(t, db, recommend.Product{ID: 2, Name: "B", Active: true, Inventory: 1})

	t.Run("skips unknown ids", func(t *testing.T) {
		products, err := db.GetProducts(ctx, []int{2, 999, 1})
		if err != nil {
			t.Fatalf("GetProducts() error = %v", err)
		}
		if len(products) != 2 || products[0].ID != 1 || products[1].ID != 2 {
			t.Errorf("products = %+v", products)
		}
	})

	t.Run("empty input", func(t *testing.T) {
		products, err := db.GetProducts(ctx, nil)
		if err != nil {
			t.Fatalf("GetProducts() error = %v", err)
		}
		if len(products) != 0 {
			t.Errorf("got %d products, want 0", len(products))
		}
	})
}

func TestCompletedOrders(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	orders := []recommend.Order{
		{ID: 1, Items: []int{1, 2}},
		{ID: 2, Items: []int{2, 3, 4}},
		{ID: 3, Items: []int{5}},
	}
	for _, o := range orders {
		if err := db.InsertCompletedOrder(ctx, o, now); err != nil {
			t.Fatalf("InsertCompletedOrder(%d) error = %v", o.ID, err)
		}
	}

	got, err := db.ListCompletedOrders(ctx)
	if err != nil {
		t.Fatalf("ListCompletedOrders() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d orders, want 3", len(got))
	}
	if got[1].ID != 2 || len(got[1].Items) != 3 {
		t.Errorf("order 2 = %+v", got[1])
	}
}

func TestInsertCompletedOrderIdempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	order := recommend.Order{ID: 1, Items: []int{1, 2}}
	if err := db.InsertCompletedOrder(ctx, order, now); err != nil {
		t.Fatalf("first insert error = %v", err)
	}
	// Redelivery with different items must not change the stored order
	if err := db.InsertCompletedOrder(ctx, recommend.Order{ID: 1, Items: []int{9}}, now); err != nil {
		t.Fatalf("redelivered insert error = %v", err)
	}

	got, err := db.ListCompletedOrders(ctx)
	if err != nil {
		t.Fatalf("ListCompletedOrders() error = %v", err)
	}
	if len(got) != 1 || len(got[0].Items) != 2 {
		t.Errorf("orders = %+v, want single order with 2 items", got)
	}
}

func TestInsertCompletedOrderInvalidID(t *testing.T) {
	db := openTestDB(t)
	err := db.InsertCompletedOrder(context.Background(), recommend.Order{ID: 0}, time.Time{})
	if !errors.Is(err, recommend.ErrInvalidInput) {
		t.Errorf("error = %v, want ErrInvalidInput", err)
	}
}
