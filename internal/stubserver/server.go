package stubserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/vimal20002/tchegl-frontend/internal/metrics"
	"github.com/vimal20002/tchegl-frontend/internal/middleware"
	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// Options はスタブサーバーの設定。
type Options struct {
	// ManagerEmails に含まれるメールアドレスで登録したユーザーは
	// マネージャーロールになる。
	ManagerEmails []string

	// CORSAllowedOrigin はCORSで許可するオリジン。
	// 空の場合は http://localhost:3000 を使用する。
	CORSAllowedOrigin string

	// RateLimiter はユーザーごとのレート制限。nilの場合はデフォルト設定で生成する。
	RateLimiter *middleware.RateLimiter

	// Gatherer は/metricsで公開するPrometheusレジストリ。nilの場合は公開しない。
	Gatherer prometheus.Gatherer

	// Metrics はリクエストのステータスとレイテンシの記録先。nilの場合は記録しない。
	Metrics metrics.MetricsCollector

	// SeedProducts は起動時に登録する初期商品。
	SeedProducts []model.Product

	Logger *slog.Logger
}

// Server はスタブAPIサーバー。
type Server struct {
	store         *Store
	managerEmails map[string]bool
	logger        *slog.Logger
}

// NewServer はスタブサーバーのHTTPハンドラーを構成して返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → SecurityHeaders → CORS → Logging → (認証ルートのみ) BearerAuth → RateLimit
//
// 商品の読み取りとユーザー登録・ログインは認証不要。
// カート・注文はベアラー認証が必要。商品の書き込み・全注文の参照・
// 注文状態の更新はさらにマネージャーロールが必要。
func NewServer(opts Options) (*Server, http.Handler) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store := NewStore()
	if len(opts.SeedProducts) > 0 {
		store.SeedProducts(opts.SeedProducts)
	}

	managerEmails := make(map[string]bool, len(opts.ManagerEmails))
	for _, email := range opts.ManagerEmails {
		managerEmails[email] = true
	}

	s := &Server{
		store:         store,
		managerEmails: managerEmails,
		logger:        logger,
	}

	allowedOrigin := opts.CORSAllowedOrigin
	if allowedOrigin == "" {
		allowedOrigin = "http://localhost:3000"
	}

	rateLimiter := opts.RateLimiter
	if rateLimiter == nil {
		rateLimiter = middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(allowedOrigin))
	r.Use(middleware.NewLoggingMiddleware(logger))
	if opts.Metrics != nil {
		r.Use(metricsMiddleware(opts.Metrics))
	}

	// --- 認証不要のルート ---

	r.Post("/api/users/register", s.handleRegister)
	r.Post("/api/users/login", s.handleLogin)
	r.Get("/api/products", s.handleListProducts)
	r.Get("/api/products/{id}", s.handleGetProduct)

	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Gatherer))
	}

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: BearerAuth → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewBearerAuthMiddleware(store))
		r.Use(rateLimiter.GeneralMiddleware())

		// カート
		r.Route("/api/cart", func(r chi.Router) {
			r.Get("/", s.handleGetCart)
			r.Post("/", s.handleAddToCart)
			r.Put("/item", s.handleUpsertCartItem)
			r.Delete("/item/{id}", s.handleDeleteCartItem)

			// POST /api/cart/place-order - 注文確定（専用レート制限を追加）
			r.With(rateLimiter.OrderPlacementMiddleware()).Post("/place-order", s.handlePlaceOrder)
		})

		// 注文
		r.Get("/api/orders/user", s.handleListUserOrders)

		// --- マネージャー専用のルート ---
		r.Group(func(r chi.Router) {
			r.Use(middleware.NewManagerOnlyMiddleware())

			r.Post("/api/products", s.handleCreateProduct)
			r.Put("/api/products/{id}", s.handleUpdateProduct)
			r.Delete("/api/products/{id}", s.handleDeleteProduct)

			r.Get("/api/orders", s.handleListAllOrders)
			r.Put("/api/orders/status/{id}", s.handleUpdateOrderStatus)
		})
	})

	return s, r
}

// Store はサーバーのデータストアを返す。テスト用。
func (s *Server) Store() *Store {
	return s.store
}

// metricsMiddleware はレスポンスのステータスコードと処理時間を記録する。
func metricsMiddleware(collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rec, r)

			collector.RecordHTTPStatus(rec.statusCode)
			collector.RecordRequestLatency("stub_"+r.Method, time.Since(start))
		})
	}
}

// statusWriter はステータスコードの記録用ラッパー。
type statusWriter struct {
	http.ResponseWriter
	statusCode int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.statusCode = code
	sw.ResponseWriter.WriteHeader(code)
}

// DefaultSeedProducts は開発用の初期商品を返す。
func DefaultSeedProducts() []model.Product {
	return []model.Product{
		{
			Name:        "LEDランタン",
			Description: "<p>軽量・防水のキャンプ用ランタン。</p><ul><li>USB充電</li><li>最大72時間点灯</li></ul>",
			Quantity:    50,
			Weight:      0.4,
			Price:       3980,
		},
		{
			Name:        "2人用テント",
			Description: "<p>設営3分の自立式テント。</p>",
			Quantity:    20,
			Weight:      2.1,
			Price:       15800,
		},
		{
			Name:        "チタンマグカップ",
			Description: "<p>直火対応のチタン製マグ。容量450ml。</p>",
			Quantity:    100,
			Weight:      0.08,
			Price:       2680,
		},
	}
}
