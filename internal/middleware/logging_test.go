package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// TestLoggingMiddleware はリクエストログの内容とレベルを検証する。
func TestLoggingMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		wantLevel  string
		principal  *Principal
		wantUserID string
	}{
		{"成功は INFO", http.StatusOK, "INFO", nil, ""},
		{"クライアントエラーは WARN", http.StatusNotFound, "WARN", nil, ""},
		{"サーバーエラーは ERROR", http.StatusInternalServerError, "ERROR", nil, ""},
		{"認証済みは user_id を含む", http.StatusOK, "INFO", &Principal{UserID: "U1", Role: model.RoleUser}, "U1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := slog.New(slog.NewJSONHandler(&buf, nil))

			handler := NewLoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.Header.Set("X-Request-Id", "req-123")
			if tt.principal != nil {
				req = req.WithContext(ContextWithPrincipal(req.Context(), tt.principal))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			var entry map[string]any
			if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
				t.Fatalf("failed to parse log entry: %v", err)
			}

			if entry["level"] != tt.wantLevel {
				t.Errorf("level = %v, want %v", entry["level"], tt.wantLevel)
			}
			if entry["method"] != http.MethodGet {
				t.Errorf("method = %v, want GET", entry["method"])
			}
			if entry["path"] != "/api/products" {
				t.Errorf("path = %v, want /api/products", entry["path"])
			}
			if entry["status"] != float64(tt.status) {
				t.Errorf("status = %v, want %d", entry["status"], tt.status)
			}
			if entry["request_id"] != "req-123" {
				t.Errorf("request_id = %v, want req-123", entry["request_id"])
			}
			if _, ok := entry["duration_ms"]; !ok {
				t.Error("duration_ms missing")
			}
			if tt.wantUserID != "" && entry["user_id"] != tt.wantUserID {
				t.Errorf("user_id = %v, want %v", entry["user_id"], tt.wantUserID)
			}
		})
	}
}

// TestStatusRecorder_DefaultStatus はWriteHeader未呼び出しのWriteが
// 200として記録されることを検証する。
func TestStatusRecorder_DefaultStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder()}

	if _, err := rec.Write([]byte("ok")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200", rec.statusCode)
	}

	// 後続のWriteHeaderでは上書きされない
	rec.WriteHeader(http.StatusTeapot)
	if rec.statusCode != http.StatusOK {
		t.Errorf("statusCode = %d, want 200 (first write wins)", rec.statusCode)
	}
}
