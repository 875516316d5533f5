// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/shoprec/internal/metrics"
	"github.com/tomtom215/shoprec/internal/recommend"
)

// GetProduct returns a single product with its categories and tags.
// Returns recommend.ErrNotFound when the id does not exist.
func (db *DB) GetProduct(ctx context.Context, id int) (*recommend.Product, error) {
	start := time.Now()
	p, err := db.getProduct(ctx, id)
	if !errors.Is(err, recommend.ErrNotFound) {
		metrics.RecordDBQuery("get", "products", time.Since(start), err)
	}
	return p, err
}

func (db *DB) getProduct(ctx context.Context, id int) (*recommend.Product, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, name, active, inventory, featured, created_at
		 FROM products WHERE id = ?`, id)

	var p recommend.Product
	if err := row.Scan(&p.ID, &p.Name, &p.Active, &p.Inventory, &p.Featured, &p.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("product %d: %w", id, recommend.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query product %d: %w", id, err)
	}

	if err := db.attachFacets(ctx, []*recommend.Product{&p}); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListEligibleProducts returns every active product with inventory,
// ordered by id, with categories and tags attached.
func (db *DB) ListEligibleProducts(ctx context.Context) ([]recommend.Product, error) {
	start := time.Now()
	products, err := db.queryProducts(ctx,
		`SELECT id, name, active, inventory, featured, created_at
		 FROM products WHERE active AND inventory > 0 ORDER BY id`)
	metrics.RecordDBQuery("list_eligible", "products", time.Since(start), err)
	return products, err
}

// GetProducts returns the products matching the given ids. Unknown ids
// are silently skipped; the result is ordered by id.
func (db *DB) GetProducts(ctx context.Context, ids []int) ([]recommend.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	query := fmt.Sprintf(
		`SELECT id, name, active, inventory, featured, created_at
		 FROM products WHERE id IN (%s) ORDER BY id`, placeholders(len(ids)))
	products, err := db.queryProducts(ctx, query, intArgs(ids)...)
	metrics.RecordDBQuery("get_many", "products", time.Since(start), err)
	return products, err
}

func (db *DB) queryProducts(ctx context.Context, query string, args ...any) ([]recommend.Product, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []recommend.Product
	for rows.Next() {
		var p recommend.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Active, &p.Inventory, &p.Featured, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("product row iteration failed: %w", err)
	}

	refs := make([]*recommend.Product, len(products))
	for i := range products {
		refs[i] = &products[i]
	}
	if err := db.attachFacets(ctx, refs); err != nil {
		return nil, err
	}
	return products, nil
}

// attachFacets loads category and tag ids for the given products.
func (db *DB) attachFacets(ctx context.Context, products []*recommend.Product) error {
	if len(products) == 0 {
		return nil
	}

	byID := make(map[int]*recommend.Product, len(products))
	ids := make([]int, 0, len(products))
	for _, p := range products {
		byID[p.ID] = p
		ids = append(ids, p.ID)
	}

	load := func(table, column string, assign func(p *recommend.Product, id int)) error {
		query := fmt.Sprintf(
			`SELECT product_id, %s FROM %s WHERE product_id IN (%s) ORDER BY product_id, %s`,
			column, table, placeholders(len(ids)), column)
		rows, err := db.conn.QueryContext(ctx, query, intArgs(ids)...)
		if err != nil {
			return fmt.Errorf("failed to query %s: %w", table, err)
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var productID, facetID int
			if err := rows.Scan(&productID, &facetID); err != nil {
				return fmt.Errorf("failed to scan %s row: %w", table, err)
			}
			if p, ok := byID[productID]; ok {
				assign(p, facetID)
			}
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("%s row iteration failed: %w", table, err)
		}
		return nil
	}

	if err := load("product_categories", "category_id", func(p *recommend.Product, id int) {
		p.Categories = append(p.Categories, id)
	}); err != nil {
		return err
	}
	return load("product_tags", "tag_id", func(p *recommend.Product, id int) {
		p.Tags = append(p.Tags, id)
	})
}

// UpsertProduct inserts or replaces a product and its facets.
func (db *DB) UpsertProduct(ctx context.Context, p recommend.Product) error {
	start := time.Now()
	err := db.upsertProduct(ctx, p)
	metrics.RecordDBQuery("upsert", "products", time.Since(start), err)
	return err
}

func (db *DB) upsertProduct(ctx context.Context, p recommend.Product) error {
	if p.ID <= 0 {
		return fmt.Errorf("product id %d: %w", p.ID, recommend.ErrInvalidInput)
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO products (id, name, active, inventory, featured, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Active, p.Inventory, p.Featured, createdAt); err != nil {
		return fmt.Errorf("failed to upsert product %d: %w", p.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_categories WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear categories for product %d: %w", p.ID, err)
	}
	for _, catID := range p.Categories {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_categories (product_id, category_id) VALUES (?, ?)`, p.ID, catID); err != nil {
			return fmt.Errorf("failed to insert category for product %d: %w", p.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM product_tags WHERE product_id = ?`, p.ID); err != nil {
		return fmt.Errorf("failed to clear tags for product %d: %w", p.ID, err)
	}
	for _, tagID := range p.Tags {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO product_tags (product_id, tag_id) VALUES (?, ?)`, p.ID, tagID); err != nil {
			return fmt.Errorf("failed to insert tag for product %d: %w", p.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit product %d: %w", p.ID, err)
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func intArgs(ids []int) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
