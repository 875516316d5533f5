// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/shoprec/internal/logging"
)

type fakeRouter struct {
	runErr error
}

func (f *fakeRouter) Run(ctx context.Context) error {
	if f.runErr != nil {
		return f.runErr
	}
	<-ctx.Done()
	return nil
}

func TestRouterServiceStopsWithContext(t *testing.T) {
	svc := NewRouterService(&fakeRouter{}, logging.NewTestLogger(io.Discard))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve returned %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRouterServiceReportsFailure(t *testing.T) {
	runErr := errors.New("subscriber connection lost")
	svc := NewRouterService(&fakeRouter{runErr: runErr}, logging.NewTestLogger(io.Discard))

	err := svc.Serve(context.Background())
	if err == nil || !errors.Is(err, runErr) {
		t.Errorf("Serve returned %v, want wrapped run error", err)
	}
}
