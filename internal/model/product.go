// Package model はドメインモデルを定義する。
package model

// Product はストアで販売される商品を表す。
// IDはサーバー側で採番され、クライアントは読み取り専用として扱う。
type Product struct {
	ID          string  `json:"_id"`
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Weight      float64 `json:"weight"`
	Price       float64 `json:"price"`
}

// ProductInput は商品の作成・更新リクエストのペイロードを表す。
// IDを含まない点以外はProductと同一のフィールドを持つ。
type ProductInput struct {
	Name        string  `json:"name"`
	Image       string  `json:"image"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	Weight      float64 `json:"weight"`
	Price       float64 `json:"price"`
}
