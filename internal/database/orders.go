// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/shoprec/internal/metrics"
	"github.com/tomtom215/shoprec/internal/recommend"
)

// ListCompletedOrders returns all completed orders with their item ids,
// ordered by order id. This is the full-history feed for index rebuilds.
func (db *DB) ListCompletedOrders(ctx context.Context) ([]recommend.Order, error) {
	start := time.Now()
	orders, err := db.listCompletedOrders(ctx)
	metrics.RecordDBQuery("list_completed", "orders", time.Since(start), err)
	return orders, err
}

func (db *DB) listCompletedOrders(ctx context.Context) ([]recommend.Order, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT o.id, i.product_id
		 FROM orders o
		 JOIN order_items i ON i.order_id = o.id
		 WHERE o.status = 'completed'
		 ORDER BY o.id, i.product_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query completed orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []recommend.Order
	for rows.Next() {
		var orderID, productID int
		if err := rows.Scan(&orderID, &productID); err != nil {
			return nil, fmt.Errorf("failed to scan order row: %w", err)
		}
		if len(orders) == 0 || orders[len(orders)-1].ID != orderID {
			orders = append(orders, recommend.Order{ID: orderID})
		}
		last := &orders[len(orders)-1]
		last.Items = append(last.Items, productID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("order row iteration failed: %w", err)
	}
	return orders, nil
}

// InsertCompletedOrder records a completed order and its items. An order
// that already exists is left untouched, which keeps event redelivery
// idempotent at the storage layer too.
func (db *DB) InsertCompletedOrder(ctx context.Context, order recommend.Order, completedAt time.Time) error {
	start := time.Now()
	err := db.insertCompletedOrder(ctx, order, completedAt)
	metrics.RecordDBQuery("insert", "orders", time.Since(start), err)
	return err
}

func (db *DB) insertCompletedOrder(ctx context.Context, order recommend.Order, completedAt time.Time) error {
	if order.ID <= 0 {
		return fmt.Errorf("order id %d: %w", order.ID, recommend.ErrInvalidInput)
	}
	if completedAt.IsZero() {
		completedAt = time.Now().UTC()
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO orders (id, status, completed_at) VALUES (?, 'completed', ?)`,
		order.ID, completedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order %d: %w", order.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Already recorded
		return nil
	}

	for _, productID := range order.Items {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO order_items (order_id, product_id) VALUES (?, ?)`,
			order.ID, productID); err != nil {
			return fmt.Errorf("failed to insert item for order %d: %w", order.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order %d: %w", order.ID, err)
	}
	return nil
}
