package model

// CartItem はカート内の1明細を表す。
// ItemIDは明細自体のID、ProductIDは参照する商品のID。
type CartItem struct {
	ItemID    string `json:"_id"`
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Cart はユーザーのカートを表す。
// サーバー側でカートが未作成の場合（HTTP 404）は空のitemsとして扱う。
type Cart struct {
	Items []CartItem `json:"items"`
}

// IsEmpty はカートに明細が1件もないことを返す。
func (c *Cart) IsEmpty() bool {
	return c == nil || len(c.Items) == 0
}

// FindItem は商品IDに一致する明細を返す。見つからない場合はnilを返す。
func (c *Cart) FindItem(productID string) *CartItem {
	if c == nil {
		return nil
	}
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return &c.Items[i]
		}
	}
	return nil
}
