package model

// OrderStatus は注文の状態を表す。
// 状態遷移はマネージャーの明示的な操作によってのみ行われる。
type OrderStatus string

const (
	// OrderStatusPending は注文直後の未処理状態。
	OrderStatusPending OrderStatus = "Pending"
	// OrderStatusProcessing は処理中状態。
	OrderStatusProcessing OrderStatus = "Processing"
	// OrderStatusCompleted は完了状態。
	OrderStatusCompleted OrderStatus = "Completed"
	// OrderStatusCancelled はキャンセル状態。
	OrderStatusCancelled OrderStatus = "Cancelled"
)

// ValidOrderStatus は文字列が定義済みの注文状態かを返す。
func ValidOrderStatus(s string) bool {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// OrderItem は注文内の1明細を表す。商品はIDで参照する。
type OrderItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Order はユーザーの注文を表す。
// TotalAmountはサーバー側で計算され、クライアントは読み取り専用として扱う。
type Order struct {
	ID          string      `json:"_id"`
	Status      OrderStatus `json:"status"`
	TotalAmount float64     `json:"totalAmount"`
	Items       []OrderItem `json:"items"`
}

// ProductIDs は注文リストに含まれる商品IDを重複なしで返す。
// 注文一覧と商品詳細の結合フェッチに使用する。
func ProductIDs(orders []Order) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, order := range orders {
		for _, item := range order.Items {
			if _, ok := seen[item.ProductID]; ok {
				continue
			}
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}
