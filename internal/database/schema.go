// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"fmt"
)

// schemaStatements defines the catalog and order history tables.
// Statements are idempotent so startup can run them unconditionally.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id         BIGINT PRIMARY KEY,
		name       VARCHAR NOT NULL,
		active     BOOLEAN NOT NULL DEFAULT true,
		inventory  INTEGER NOT NULL DEFAULT 0,
		featured   BOOLEAN NOT NULL DEFAULT false,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS product_categories (
		product_id  BIGINT NOT NULL,
		category_id BIGINT NOT NULL,
		PRIMARY KEY (product_id, category_id)
	)`,
	`CREATE TABLE IF NOT EXISTS product_tags (
		product_id BIGINT NOT NULL,
		tag_id     BIGINT NOT NULL,
		PRIMARY KEY (product_id, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		id           BIGINT PRIMARY KEY,
		status       VARCHAR NOT NULL DEFAULT 'completed',
		completed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		order_id   BIGINT NOT NULL,
		product_id BIGINT NOT NULL,
		quantity   INTEGER NOT NULL DEFAULT 1,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_eligible ON products (active, inventory)`,
	`CREATE INDEX IF NOT EXISTS idx_order_items_order ON order_items (order_id)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders (status)`,
}

func (db *DB) initSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
