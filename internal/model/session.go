package model

// Role はクライアントが振る舞うロールを表す。
type Role string

const (
	// RoleUser は一般ユーザーロール。ログイン直後のデフォルト。
	RoleUser Role = "user"
	// RoleManager は商品・注文を管理するマネージャーロール。
	RoleManager Role = "manager"
	// RoleUnauthenticated は未認証状態を表す。トークンが無い場合は
	// 保存されているロール値に関わらずこのロールになる。
	RoleUnauthenticated Role = "unauthenticated"
)

// ValidRole は文字列が切り替え可能なロールかを返す。
func ValidRole(s string) bool {
	switch Role(s) {
	case RoleUser, RoleManager:
		return true
	default:
		return false
	}
}

// Session はクライアントの認証状態を表す。
// トークンとロールは常に一対で保存・破棄される。
type Session struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// Authenticated はセッションが認証済みかを返す。
// 認証判定はこの1関数に集約し、呼び出し側で独自のキー確認を行わない。
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// EffectiveRole は有効なロールを返す。
// トークンが無い場合は保存値に関わらずRoleUnauthenticatedを返す。
func (s Session) EffectiveRole() Role {
	if !s.Authenticated() {
		return RoleUnauthenticated
	}
	if s.Role == "" {
		return RoleUser
	}
	return s.Role
}

// Credentials はログイン・ユーザー登録のリクエストペイロードを表す。
type Credentials struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}
