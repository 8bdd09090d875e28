// Package gateway はリモートのストアAPIへの薄いHTTPクライアントを提供する。
//
// 全ての認証付き呼び出しはセッションストアからベアラートークンを取得し、
// トークンが無い場合はネットワークI/Oを行わずにUnauthenticatedエラーを返す。
// トランスポート層の失敗はこの境界で必ずmodel.APIErrorの閉じた分類に
// 変換され、下流のコンポーネントは生のエラーを検査しない。
// リトライは行わず、各呼び出しはクライアント視点でat-most-onceとなる。
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vimal20002/tchegl-frontend/internal/metrics"
	"github.com/vimal20002/tchegl-frontend/internal/model"
	"github.com/vimal20002/tchegl-frontend/internal/session"
)

// userAgent は全リクエストに付与するUser-Agentヘッダー。
const userAgent = "tchegl-frontend/1.0"

// maxResponseSize はレスポンスボディの最大読み取りサイズ（1MB）。
const maxResponseSize = 1 << 20

// Options はClientの生成オプション。ゼロ値はデフォルトにフォールバックする。
type Options struct {
	Timeout         time.Duration // HTTPタイムアウト（デフォルト10秒）
	RateLimitPerMin int           // 送信ペーシング（デフォルト120 req/min）
	RateLimitBurst  int           // バーストサイズ（デフォルト30）
	HTTPClient      *http.Client  // テスト用の差し替え口
}

// Client はストアAPIのゲートウェイクライアント。
// リモートの1エンドポイントにつき1メソッドを提供する。
type Client struct {
	baseURL  string
	http     *http.Client
	sessions session.Reader
	limiter  *rate.Limiter
	logger   *slog.Logger
	metrics  metrics.MetricsCollector
}

// NewClient はClientを生成する。
// baseURLは末尾のスラッシュを除去して保持する。
func NewClient(baseURL string, sessions session.Reader, collector metrics.MetricsCollector, logger *slog.Logger, opts Options) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.RateLimitPerMin == 0 {
		opts.RateLimitPerMin = 120
	}
	if opts.RateLimitBurst == 0 {
		opts.RateLimitBurst = 30
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if collector == nil {
		collector = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     httpClient,
		sessions: sessions,
		limiter:  rate.NewLimiter(rate.Limit(float64(opts.RateLimitPerMin)/60.0), opts.RateLimitBurst),
		logger:   logger,
		metrics:  collector,
	}
}

// errorBody はAPIのエラーレスポンスボディを表す。
// サーバー実装によりerrorまたはmessageのどちらかに理由が入る。
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// reason はエラーレスポンスから表示用の理由を取り出す。
func (b errorBody) reason() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}

// ClassifyHTTPStatus はHTTPステータスコードをエラー分類に変換する。
// 2xxはエラーではないためKindUnknownを返さず呼び出し側で除外すること。
func ClassifyHTTPStatus(statusCode int) model.ErrorKind {
	switch {
	case statusCode == http.StatusUnauthorized:
		return model.KindUnauthenticated
	case statusCode == http.StatusNotFound:
		return model.KindNotFound
	case statusCode == http.StatusConflict:
		return model.KindConflict
	case statusCode >= 400 && statusCode < 500:
		return model.KindValidation
	case statusCode >= 500:
		return model.KindServiceUnavailable
	default:
		return model.KindUnknown
	}
}

// newStatusError はHTTPステータスコードとレスポンスボディからAPIErrorを構築する。
func newStatusError(statusCode int, body errorBody) *model.APIError {
	reason := body.reason()
	if reason == "" {
		reason = fmt.Sprintf("HTTP %d", statusCode)
	}

	switch ClassifyHTTPStatus(statusCode) {
	case model.KindUnauthenticated:
		return model.NewUnauthenticatedError()
	case model.KindNotFound:
		return model.NewNotFoundError(reason)
	case model.KindConflict:
		return model.NewConflictError(reason)
	case model.KindValidation:
		return model.NewValidationError(reason)
	case model.KindServiceUnavailable:
		return model.NewServiceUnavailableError(reason)
	default:
		return model.NewUnknownError(reason)
	}
}

// do はAPI呼び出しの共通処理を行う。
// authedがtrueの場合、セッションストアにトークンが無ければ
// ネットワークI/Oを行わずにUnauthenticatedエラーを返す。
// outがnilでない場合、2xxレスポンスのボディをoutへデコードする。
func (c *Client) do(ctx context.Context, operation, method, path string, reqBody, out any, authed bool) error {
	var token string
	if authed {
		sess := c.sessions.Get()
		if !sess.Authenticated() {
			return model.NewUnauthenticatedError()
		}
		token = sess.Token
	}

	// 送信ペーシング: 自動リトライは行わないが、連続呼び出しが
	// サーバーのレート制限に当たらないようトークンバケットで均す
	if err := c.limiter.Wait(ctx); err != nil {
		return model.NewUnknownError(err.Error())
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return model.NewUnknownError(fmt.Sprintf("リクエストのエンコードに失敗: %s", err))
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return model.NewUnknownError(fmt.Sprintf("リクエスト作成に失敗: %s", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-Id", uuid.New().String())
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.metrics.RecordTransportError()
		c.logger.Error("APIリクエストに失敗しました",
			slog.String("operation", operation),
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return model.NewServiceUnavailableError(err.Error())
	}
	defer resp.Body.Close()

	c.metrics.RecordHTTPStatus(resp.StatusCode)
	c.metrics.RecordRequestLatency(operation, duration)

	respData, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		c.metrics.RecordTransportError()
		return model.NewServiceUnavailableError(fmt.Sprintf("レスポンス読み取り失敗: %s", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		// エラーボディがJSONでない場合も分類は行えるため、デコード失敗は無視する
		_ = json.Unmarshal(respData, &eb)
		apiErr := newStatusError(resp.StatusCode, eb)
		c.logger.Warn("APIがエラーを返しました",
			slog.String("operation", operation),
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
			slog.String("kind", string(apiErr.Kind)),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return apiErr
	}

	if out != nil && len(respData) > 0 {
		if err := json.Unmarshal(respData, out); err != nil {
			return model.NewUnknownError(fmt.Sprintf("レスポンスの解析に失敗: %s", err))
		}
	}

	c.logger.Debug("API呼び出しが完了しました",
		slog.String("operation", operation),
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("http_status", resp.StatusCode),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return nil
}
