// Package middleware はスタブAPIサーバーのHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// Principal は認証済みリクエストの主体。
type Principal struct {
	UserID string
	Role   model.Role
}

// TokenFinder はベアラートークンから認証主体を検索するインターフェース。
// stubserverのトークンストアの部分集合として定義する。
type TokenFinder interface {
	FindByToken(token string) (*Principal, error)
}

// NewBearerAuthMiddleware はAuthorizationヘッダーのベアラートークンを検証し、
// 認証主体をリクエストコンテキストに注入するミドルウェアを返す。
// トークンが欠落または無効なリクエストには401 Unauthorizedを返す。
func NewBearerAuthMiddleware(tokens TokenFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			principal, err := tokens.FindByToken(token)
			if err != nil {
				slog.Error("トークンの検索に失敗しました",
					slog.String("error", err.Error()),
				)
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if principal == nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}

			ctx := context.WithValue(r.Context(), principalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewManagerOnlyMiddleware はマネージャーロールを要求するミドルウェアを返す。
// ベアラー認証の後に配置する。ロールが不足するリクエストには403を返す。
func NewManagerOnlyMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
				return
			}
			if principal.Role != model.RoleManager {
				WriteErrorResponse(w, http.StatusForbidden, &model.APIError{
					Kind:     model.KindValidation,
					Code:     "FORBIDDEN",
					Message:  "この操作にはマネージャー権限が必要です。",
					Category: "auth",
					Action:   "マネージャーロールでログインしてください。",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証主体を取得する。
// ベアラー認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*Principal, error) {
	principal, ok := ctx.Value(principalContextKey).(*Principal)
	if !ok || principal == nil {
		return nil, fmt.Errorf("principal not found in context")
	}
	return principal, nil
}

// ContextWithPrincipal はコンテキストに認証主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, principal)
}

// bearerToken はAuthorizationヘッダーからベアラートークンを取り出す。
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}
