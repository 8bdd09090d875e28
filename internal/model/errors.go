package model

import (
	"errors"
	"fmt"
)

// ErrorKind はAPIエラーの閉じた分類を表す。
// トランスポート層の生のエラーはゲートウェイ境界で必ずこの分類に
// 変換され、下流のコンポーネントは生のエラーを検査しない。
type ErrorKind string

const (
	// KindUnauthenticated はトークン欠落・無効（HTTP 401）を表す。
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindNotFound はリソース未検出（HTTP 404）を表す。
	KindNotFound ErrorKind = "not_found"
	// KindValidation は入力不正（HTTP 400等）を表す。
	KindValidation ErrorKind = "validation"
	// KindConflict はリソース競合（HTTP 409等）を表す。
	KindConflict ErrorKind = "conflict"
	// KindServiceUnavailable はネットワーク障害・HTTP 5xxを表す。
	KindServiceUnavailable ErrorKind = "service_unavailable"
	// KindUnknown は上記いずれにも分類できないエラーを表す。
	KindUnknown ErrorKind = "unknown"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Kind     ErrorKind // エラー分類
	Code     string    // エラーコード
	Message  string    // エラーメッセージ
	Category string    // カテゴリ: auth, validation, cart, order, product, system
	Action   string    // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated    = "UNAUTHENTICATED"
	ErrCodeNotFound           = "NOT_FOUND"
	ErrCodeValidation         = "VALIDATION_FAILED"
	ErrCodeConflict           = "CONFLICT"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	ErrCodeUnknown            = "UNKNOWN"
	ErrCodeInvalidQuantity    = "INVALID_QUANTITY"
	ErrCodeEmptyCart          = "EMPTY_CART"
	ErrCodeInvalidStatus      = "INVALID_STATUS"
	ErrCodeImageBlocked       = "IMAGE_URL_BLOCKED"
)

// KindOf はエラーからErrorKindを取り出す。
// APIError以外のエラーはKindUnknownとして扱う。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// IsUnauthenticated はエラーが未認証エラーかを返す。
func IsUnauthenticated(err error) bool {
	return KindOf(err) == KindUnauthenticated
}

// IsNotFound はエラーがリソース未検出エラーかを返す。
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Kind:     KindUnauthenticated,
		Code:     ErrCodeUnauthenticated,
		Message:  "認証されていません。",
		Category: "auth",
		Action:   "ログインしてから再度お試しください。",
	}
}

// NewNotFoundError はリソース未検出エラーを生成する。
func NewNotFoundError(resource string) *APIError {
	return &APIError{
		Kind:     KindNotFound,
		Code:     ErrCodeNotFound,
		Message:  fmt.Sprintf("指定されたリソースが見つかりません: %s", resource),
		Category: "system",
		Action:   "IDを確認してください。",
	}
}

// NewValidationError は入力不正エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeValidation,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewConflictError はリソース競合エラーを生成する。
func NewConflictError(reason string) *APIError {
	return &APIError{
		Kind:     KindConflict,
		Code:     ErrCodeConflict,
		Message:  fmt.Sprintf("リクエストが競合しました: %s", reason),
		Category: "system",
		Action:   "最新の状態を取得してから再度お試しください。",
	}
}

// NewServiceUnavailableError はサービス利用不可エラーを生成する。
// ネットワーク障害およびHTTP 5xxの両方で使用する。
func NewServiceUnavailableError(reason string) *APIError {
	return &APIError{
		Kind:     KindServiceUnavailable,
		Code:     ErrCodeServiceUnavailable,
		Message:  fmt.Sprintf("サービスに接続できません: %s", reason),
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

// NewUnknownError は分類不能なエラーを生成する。
func NewUnknownError(reason string) *APIError {
	return &APIError{
		Kind:     KindUnknown,
		Code:     ErrCodeUnknown,
		Message:  fmt.Sprintf("予期しないエラーが発生しました: %s", reason),
		Category: "system",
		Action:   "時間をおいて再度お試しください。",
	}
}

// NewInvalidQuantityError は数量不正エラーを生成する。
// 数量変更はAPI呼び出し前にクライアント側で検証される。
func NewInvalidQuantityError(quantity int) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidQuantity,
		Message:  fmt.Sprintf("数量は1以上を指定してください: %d", quantity),
		Category: "cart",
		Action:   "商品を減らす場合はカートから削除してください。",
	}
}

// NewEmptyCartError は空カートでの注文エラーを生成する。
func NewEmptyCartError() *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeEmptyCart,
		Message:  "カートが空のため注文できません。",
		Category: "cart",
		Action:   "商品をカートに追加してから注文してください。",
	}
}

// NewInvalidStatusError は注文状態不正エラーを生成する。
func NewInvalidStatusError(status string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeInvalidStatus,
		Message:  fmt.Sprintf("無効な注文状態です: %s", status),
		Category: "order",
		Action:   "Pending、Processing、Completed、Cancelledのいずれかを指定してください。",
	}
}

// NewImageBlockedError は画像URLブロックエラーを生成する。
func NewImageBlockedError(reason string) *APIError {
	return &APIError{
		Kind:     KindValidation,
		Code:     ErrCodeImageBlocked,
		Message:  fmt.Sprintf("セキュリティポリシーにより画像URLへのアクセスがブロックされました: %s", reason),
		Category: "product",
		Action:   "公開されているhttps形式の画像URLを指定してください。",
	}
}
