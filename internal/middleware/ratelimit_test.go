package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

func newTestRateLimiter(generalBurst, orderBurst int) *RateLimiter {
	return NewRateLimiter(RateLimiterConfig{
		GeneralRate:     rate.Limit(0.001), // テスト中に補充されない程度に遅く
		GeneralBurst:    generalBurst,
		OrderRate:       rate.Limit(0.001),
		OrderBurst:      orderBurst,
		CleanupInterval: time.Hour,
	})
}

func authedRequest(userID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	ctx := ContextWithPrincipal(req.Context(), &Principal{UserID: userID, Role: model.RoleUser})
	return req.WithContext(ctx)
}

// TestRateLimiter_GeneralBurstExceeded はバースト超過後に429と
// Retry-Afterヘッダーが返ることを検証する。
func TestRateLimiter_GeneralBurstExceeded(t *testing.T) {
	rl := newTestRateLimiter(3, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest("U1"))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("U1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
}

// TestRateLimiter_PerUserIsolation はユーザーごとに独立した
// リミッターが使われることを検証する。
func TestRateLimiter_PerUserIsolation(t *testing.T) {
	rl := newTestRateLimiter(1, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("U1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("U1 first request: status = %d, want 200", rec.Code)
	}

	// U1は枯渇、U2は未使用
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("U1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("U1 second request: status = %d, want 429", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest("U2"))
	if rec.Code != http.StatusOK {
		t.Errorf("U2 first request: status = %d, want 200", rec.Code)
	}

	if count := rl.GeneralLimiterCount(); count != 2 {
		t.Errorf("GeneralLimiterCount = %d, want 2", count)
	}
}

// TestRateLimiter_OrderPlacementIndependent は注文確定のレート制限が
// API全般の制限と独立に動作することを検証する。
func TestRateLimiter_OrderPlacementIndependent(t *testing.T) {
	rl := newTestRateLimiter(1, 1)
	defer rl.Stop()

	general := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	order := rl.OrderPlacementMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// API全般の枠を使い切る
	rec := httptest.NewRecorder()
	general.ServeHTTP(rec, authedRequest("U1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("general: status = %d, want 200", rec.Code)
	}

	// 注文確定の枠は独立して残っている
	rec = httptest.NewRecorder()
	order.ServeHTTP(rec, authedRequest("U1"))
	if rec.Code != http.StatusOK {
		t.Errorf("order placement: status = %d, want 200 (independent bucket)", rec.Code)
	}
}

// TestRateLimiter_Unauthenticated は認証主体なしのリクエストが
// 401になることを検証する。
func TestRateLimiter_Unauthenticated(t *testing.T) {
	rl := newTestRateLimiter(10, 10)
	defer rl.Stop()

	handler := rl.GeneralMiddleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
