// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tomtom215/shoprec/internal/recommend"
)

type flakySource struct {
	err      error
	products []recommend.Product
}

func (s *flakySource) GetProduct(_ context.Context, id int) (*recommend.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	for i := range s.products {
		if s.products[i].ID == id {
			return &s.products[i], nil
		}
	}
	return nil, fmt.Errorf("product %d: %w", id, recommend.ErrNotFound)
}

func (s *flakySource) ListEligibleProducts(_ context.Context) ([]recommend.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func (s *flakySource) GetProducts(_ context.Context, _ []int) ([]recommend.Product, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.products, nil
}

func (s *flakySource) ListCompletedOrders(_ context.Context) ([]recommend.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	return nil, nil
}

func TestBreakerPassThrough(t *testing.T) {
	src := &flakySource{products: []recommend.Product{{ID: 1, Name: "Desk", Active: true, Inventory: 1}}}
	b := NewBreakerCatalog(src, src)
	ctx := context.Background()

	p, err := b.GetProduct(ctx, 1)
	if err != nil {
		t.Fatalf("GetProduct() error = %v", err)
	}
	if p.Name != "Desk" {
		t.Errorf("product = %+v", p)
	}

	list, err := b.ListEligibleProducts(ctx)
	if err != nil || len(list) != 1 {
		t.Errorf("ListEligibleProducts() = %v, %v", list, err)
	}
}

func TestBreakerNotFoundDoesNotTrip(t *testing.T) {
	src := &flakySource{}
	b := NewBreakerCatalog(src, src)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		_, err := b.GetProduct(ctx, 999)
		if !errors.Is(err, recommend.ErrNotFound) {
			t.Fatalf("call %d: error = %v, want ErrNotFound", i, err)
		}
	}
}

func TestBreakerOpensAndDegrades(t *testing.T) {
	src := &flakySource{err: errors.New("connection refused")}
	b := NewBreakerCatalog(src, src)
	ctx := context.Background()

	var sawUpstream bool
	for i := 0; i < 30; i++ {
		_, err := b.ListEligibleProducts(ctx)
		if err == nil {
			t.Fatalf("call %d: error = nil, want failure", i)
		}
		if errors.Is(err, recommend.ErrUpstreamUnavailable) {
			sawUpstream = true
			break
		}
	}
	if !sawUpstream {
		t.Fatal("circuit never opened after sustained failures")
	}
}
