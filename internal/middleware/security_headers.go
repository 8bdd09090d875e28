package middleware

import "net/http"

// securityHeaders はAPIの全レスポンスに付与する固定ヘッダー。
// JSONのみを返すAPIだが、エラーレスポンスがブラウザで直接開かれる場合に
// 備えてコンテンツの解釈を固定する。ログインレスポンスはベアラートークンを
// 含むため、レスポンスの保存は一律に禁止する。
var securityHeaders = map[string]string{
	"X-Content-Type-Options": "nosniff",
	"X-Frame-Options":        "DENY",
	"Referrer-Policy":        "strict-origin-when-cross-origin",
	"Permissions-Policy":     "camera=(), microphone=(), geolocation=()",
	"Cache-Control":          "no-store",
}

// NewSecurityHeadersMiddleware はセキュリティ関連のHTTPレスポンスヘッダーを付与するミドルウェアを返す。
func NewSecurityHeadersMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for name, value := range securityHeaders {
				h.Set(name, value)
			}
			next.ServeHTTP(w, r)
		})
	}
}
