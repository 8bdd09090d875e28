// Package cache はリモートリソースのクエリキャッシュを提供する。
//
// キャッシュはリソース種別と識別子から決定的に導出されるキーで引かれ、
// ミューテーション成功時の明示的な無効化によってのみ陳腐化する。
// 同一キーへの同時読み取りは単一の実行中フェッチに合流する（コアレッシング）。
package cache

import (
	"sort"
	"strings"
)

// リソース種別。キャッシュキーとミューテーションの依存宣言で共有する。
//
// KindProductSetは商品集合の結合ビュー用の種別。単一商品の詳細キー
// products/<id> と集合キーが同じ名前空間を共有すると、要素数1の集合が
// 詳細キーと衝突して異なる値の型が同居するため、集合は専用の名前空間を持つ。
// productsプレフィックスの無効化は両方の名前空間に作用する。
const (
	KindProducts   = "products"
	KindProductSet = "products/set"
	KindCart       = "cart"
	KindOrders     = "orders"
)

// Key はキャッシュキーを表す。
// Kindはリソース種別、IDsは識別子の集合（空の場合は一覧リソース）。
type Key struct {
	Kind string
	IDs  []string
}

// NewKey はキャッシュキーを生成する。
func NewKey(kind string, ids ...string) Key {
	return Key{Kind: kind, IDs: ids}
}

// String はキーの正規化文字列を返す。
// 識別子集合はソートしてから連結するため、同じ集合は取得順序に
// 関わらず常に同じキーを生成する。
func (k Key) String() string {
	if len(k.IDs) == 0 {
		return k.Kind
	}
	ids := make([]string, len(k.IDs))
	copy(ids, k.IDs)
	sort.Strings(ids)
	return k.Kind + "/" + strings.Join(ids, ",")
}

// matchesPrefix はキー文字列がプレフィックスに一致するかを返す。
// プレフィックス"products"は"products"自身と"products/P1"の両方に一致する。
func matchesPrefix(key, prefix string) bool {
	return key == prefix || strings.HasPrefix(key, prefix+"/")
}
