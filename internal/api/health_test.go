package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
)

func TestHealth(t *testing.T) {
	t.Parallel()

	ok := PingFunc(func(context.Context) error { return nil })
	down := PingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name       string
		checks     map[string]Pinger
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "all healthy",
			checks:     map[string]Pinger{"database": ok, "cache": ok},
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"api": "ok", "database": "ok", "cache": "ok"},
		},
		{
			name:       "cache down",
			checks:     map[string]Pinger{"database": ok, "cache": down},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
			wantChecks: map[string]string{"api": "ok", "database": "ok", "cache": "unreachable"},
		},
		{
			name:       "no dependencies",
			wantCode:   http.StatusOK,
			wantStatus: "healthy",
			wantChecks: map[string]string{"api": "ok"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := chi.NewRouter()
			NewHealthHandler(tt.checks, 0).RegisterHealth(r)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))

			if w.Code != tt.wantCode {
				t.Errorf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			var got struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("Failed to decode: %v", err)
			}
			if got.Status != tt.wantStatus {
				t.Errorf("Expected status %q, got %q", tt.wantStatus, got.Status)
			}
			for k, v := range tt.wantChecks {
				if got.Checks[k] != v {
					t.Errorf("check %s: expected %q, got %q", k, v, got.Checks[k])
				}
			}
		})
	}
}
