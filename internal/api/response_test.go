// ShopRec - Storefront Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/shoprec

package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
)

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v (body %s)", err, rec.Body.String())
	}
	return resp
}

func TestResponseWriterSuccess(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).Success(map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}

	resp := decodeEnvelope(t, rec)
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Error != nil {
		t.Errorf("unexpected error: %+v", resp.Error)
	}
	if resp.Meta == nil || resp.Meta.Timestamp.IsZero() {
		t.Error("expected meta with timestamp")
	}
}

func TestResponseWriterAccepted(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/test", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).Accepted(map[string]string{"message": "started"})

	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if resp := decodeEnvelope(t, rec); !resp.Success {
		t.Error("expected success=true")
	}
}

func TestResponseWriterErrors(t *testing.T) {
	tests := []struct {
		name     string
		write    func(rw *ResponseWriter)
		wantCode int
		wantErr  string
	}{
		{
			name:     "bad request",
			write:    func(rw *ResponseWriter) { rw.BadRequest("bad input") },
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeBadRequest,
		},
		{
			name:     "not found",
			write:    func(rw *ResponseWriter) { rw.NotFound("missing") },
			wantCode: http.StatusNotFound,
			wantErr:  ErrCodeNotFound,
		},
		{
			name:     "conflict",
			write:    func(rw *ResponseWriter) { rw.Conflict("busy") },
			wantCode: http.StatusConflict,
			wantErr:  ErrCodeConflict,
		},
		{
			name:     "internal error",
			write:    func(rw *ResponseWriter) { rw.InternalError("boom") },
			wantCode: http.StatusInternalServerError,
			wantErr:  ErrCodeInternalError,
		},
		{
			name:     "service unavailable",
			write:    func(rw *ResponseWriter) { rw.ServiceUnavailable("down") },
			wantCode: http.StatusServiceUnavailable,
			wantErr:  ErrCodeServiceUnavailable,
		},
		{
			name:     "validation failed",
			write:    func(rw *ResponseWriter) { rw.ValidationError("invalid", []string{"field"}) },
			wantCode: http.StatusBadRequest,
			wantErr:  ErrCodeValidationFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", nil)
			rec := httptest.NewRecorder()
			tt.write(NewResponseWriter(rec, req))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			resp := decodeEnvelope(t, rec)
			if resp.Success {
				t.Error("expected success=false")
			}
			if resp.Error == nil || resp.Error.Code != tt.wantErr {
				t.Errorf("error = %+v, want code %s", resp.Error, tt.wantErr)
			}
		})
	}
}

func TestErrorWithDetailsIncludesDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()

	NewResponseWriter(rec, req).ErrorWithDetails(
		http.StatusBadRequest, ErrCodeValidationFailed, "invalid",
		map[string]string{"field": "limit"},
	)

	resp := decodeEnvelope(t, rec)
	if resp.Error == nil || resp.Error.Details == nil {
		t.Fatalf("expected error details, got %+v", resp.Error)
	}
}
