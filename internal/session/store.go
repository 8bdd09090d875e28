// Package session はクライアントの認証状態（トークンとロール）を
// ローカルファイルに永続化するセッションストアを提供する。
//
// 認証済みかどうかの判定はmodel.Session.Authenticated()に集約されており、
// トークンが無い場合は保存されているロール値に関わらず未認証として扱う。
// トークンとロールは常に一対で書き込み・破棄される。
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// Reader はセッションの読み取りインターフェース。
// ゲートウェイクライアントなど、読み取りのみ必要な利用者向けの部分集合。
type Reader interface {
	Get() model.Session
}

// Store はファイルバックのセッションストア。
// メモリ上の状態を単一の真実とし、変更のたびにアトミックに永続化する。
type Store struct {
	path   string
	logger *slog.Logger

	mu      sync.RWMutex
	current model.Session
}

// Open は指定パスのセッションファイルを読み込んでStoreを生成する。
// ファイルが存在しない場合は未認証状態で開始する。
// ファイルが壊れている場合はエラーにせず、警告ログを出して
// 未認証状態として扱う（起動をセッション読み込みに失敗させない）。
func Open(path string, logger *slog.Logger) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("session file path is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Store{
		path:   path,
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		logger.Warn("セッションファイルが壊れているため未認証として扱います",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return s, nil
	}

	s.current = sess
	return s, nil
}

// Get は現在のセッションを返す。
// トークンが無い場合、ロールはRoleUnauthenticatedとして報告される。
func (s *Store) Get() model.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess := s.current
	sess.Role = sess.EffectiveRole()
	return sess
}

// Set はトークンとロールを一対で保存する。
// ロールが空の場合はRoleUserをデフォルトとする。
// メモリ上の状態とファイルの両方を更新し、読み取り側からは
// 両フィールドが常に同時に切り替わったように観測される。
func (s *Store) Set(token string, role model.Role) error {
	if token == "" {
		return fmt.Errorf("token must not be empty")
	}
	if role == "" {
		role = model.RoleUser
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess := model.Session{Token: token, Role: role}
	if err := s.persist(sess); err != nil {
		return err
	}
	s.current = sess
	return nil
}

// Clear はトークンとロールを同時に破棄する。冪等に動作する。
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	s.current = model.Session{}
	return nil
}

// SwitchRole はトークンを変更せずロールのみを切り替える。
// トークンが無い場合は何もしない（エラーにもしない）。
// セッション読み込みと描画が競合してもビューを壊さないための仕様。
func (s *Store) SwitchRole(role model.Role) error {
	if !model.ValidRole(string(role)) {
		return model.NewValidationError(fmt.Sprintf("無効なロールです: %s", role))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.current.Authenticated() {
		return nil
	}

	sess := model.Session{Token: s.current.Token, Role: role}
	if err := s.persist(sess); err != nil {
		return err
	}
	s.current = sess
	return nil
}

// persist はセッションを一時ファイルへ書き込んでからrenameする。
// 途中でプロセスが落ちても片方のフィールドだけ書かれた状態は発生しない。
// 呼び出し側でs.muを保持していること。
func (s *Store) persist(sess model.Session) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp session file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close session file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to chmod session file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace session file: %w", err)
	}
	return nil
}
