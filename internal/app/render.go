package app

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/vimal20002/tchegl-frontend/internal/model"
	"github.com/vimal20002/tchegl-frontend/internal/storefront"
)

// renderProducts は商品一覧を表形式で書き込む。
func renderProducts(out io.Writer, products []model.Product) {
	if len(products) == 0 {
		fmt.Fprintln(out, "商品がありません")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\t商品名\t価格\t在庫")
	for _, p := range products {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Price, p.Quantity)
	}
	w.Flush()
}

// renderProductDetail は商品詳細を書き込む。
// descriptionはサニタイズ済みのプレーンテキスト。
func renderProductDetail(out io.Writer, p *model.Product, description string) {
	fmt.Fprintf(out, "%s\n", p.Name)
	fmt.Fprintf(out, "ID:   %s\n", p.ID)
	fmt.Fprintf(out, "価格: %.2f\n", p.Price)
	fmt.Fprintf(out, "在庫: %d\n", p.Quantity)
	if p.Weight > 0 {
		fmt.Fprintf(out, "重量: %.2fkg\n", p.Weight)
	}
	if p.Image != "" {
		fmt.Fprintf(out, "画像: %s\n", p.Image)
	}
	if description != "" {
		fmt.Fprintf(out, "\n%s\n", description)
	}
}

// renderCart はカートの内容と参照できた商品の詳細を表形式で書き込む。
// 参照先の商品が見つからない明細は商品名を「(不明な商品)」として表示する。
func renderCart(out io.Writer, view *storefront.CartView) {
	if len(view.Lines) == 0 {
		fmt.Fprintln(out, "カートは空です")
		return
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "明細ID\t商品名\t数量\t単価\t小計")

	var total float64
	for _, line := range view.Lines {
		name := "(不明な商品)"
		var unit, subtotal float64
		if line.Product != nil {
			name = line.Product.Name
			unit = line.Product.Price
			subtotal = unit * float64(line.Item.Quantity)
			total += subtotal
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.2f\t%.2f\n", line.Item.ItemID, name, line.Item.Quantity, unit, subtotal)
	}
	w.Flush()
	fmt.Fprintf(out, "合計: %.2f\n", total)
}

// renderOrders は注文一覧を書き込む。
func renderOrders(out io.Writer, orders []storefront.OrderView) {
	if len(orders) == 0 {
		fmt.Fprintln(out, "注文がありません")
		return
	}

	for _, ov := range orders {
		fmt.Fprintf(out, "注文 %s  状態: %s  合計: %.2f\n", ov.Order.ID, ov.Order.Status, ov.Order.TotalAmount)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		for _, item := range ov.Order.Items {
			name := "(不明な商品)"
			if p := ov.Products[item.ProductID]; p != nil {
				name = p.Name
			}
			fmt.Fprintf(w, "  %s\t%s\tx%d\n", item.ProductID, name, item.Quantity)
		}
		w.Flush()
	}
}
