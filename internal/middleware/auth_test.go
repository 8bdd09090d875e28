package middleware

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// mockTokenFinder はTokenFinderのモック実装。
type mockTokenFinder struct {
	findByTokenFn func(token string) (*Principal, error)
}

func (m *mockTokenFinder) FindByToken(token string) (*Principal, error) {
	if m.findByTokenFn != nil {
		return m.findByTokenFn(token)
	}
	return nil, nil
}

// okHandler は認証主体をそのまま返すテスト用ハンドラ。
func okHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, err := PrincipalFromContext(r.Context())
		if err != nil {
			t.Errorf("principal missing in context: %v", err)
		}
		fmt.Fprint(w, principal.UserID)
	})
}

// TestBearerAuthMiddleware_ValidToken は有効なトークンで認証主体が
// コンテキストに注入されることを検証する。
func TestBearerAuthMiddleware_ValidToken(t *testing.T) {
	tokens := &mockTokenFinder{
		findByTokenFn: func(token string) (*Principal, error) {
			if token != "tok-1" {
				t.Errorf("token = %q, want tok-1", token)
			}
			return &Principal{UserID: "U1", Role: model.RoleUser}, nil
		},
	}
	handler := NewBearerAuthMiddleware(tokens)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	req.Header.Set("Authorization", "Bearer tok-1")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "U1" {
		t.Errorf("body = %q, want U1", rec.Body.String())
	}
}

// TestBearerAuthMiddleware_Rejections はトークン欠落・無効時に
// 401と統一エラーフォーマットが返ることを検証する。
func TestBearerAuthMiddleware_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"ヘッダーなし", ""},
		{"Bearerプレフィックスなし", "tok-1"},
		{"空トークン", "Bearer "},
		{"未知のトークン", "Bearer unknown"},
	}

	tokens := &mockTokenFinder{
		findByTokenFn: func(token string) (*Principal, error) {
			return nil, nil
		},
	}
	handler := NewBearerAuthMiddleware(tokens)(okHandler(t))

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}

			var body ErrorResponseBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode error body: %v", err)
			}
			if body.Code != model.ErrCodeUnauthenticated {
				t.Errorf("code = %q, want %q", body.Code, model.ErrCodeUnauthenticated)
			}
		})
	}
}

// TestManagerOnlyMiddleware はロールによるアクセス制御を検証する。
func TestManagerOnlyMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		role       model.Role
		wantStatus int
	}{
		{"マネージャーは通過", model.RoleManager, http.StatusOK},
		{"一般ユーザーは403", model.RoleUser, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewManagerOnlyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
			ctx := ContextWithPrincipal(req.Context(), &Principal{UserID: "U1", Role: tt.role})
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req.WithContext(ctx))

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

// TestManagerOnlyMiddleware_NoPrincipal は認証主体なしのリクエストが
// 401になることを検証する。
func TestManagerOnlyMiddleware_NoPrincipal(t *testing.T) {
	handler := NewManagerOnlyMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
