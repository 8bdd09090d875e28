// Package mutation は書き込み操作の実行とキャッシュ無効化を調停する。
//
// 各ミューテーションはidle → inFlight → {succeeded, failed}の状態を辿る。
// 成功時のみ、そのミューテーション種別に宣言された依存キャッシュを
// 無効化する。失敗時は無効化を行わず、エラーを呼び出し元へそのまま返す。
// 自動ロールバックもリトライも行わない（at-most-once）。
package mutation

import (
	"context"
	"log/slog"

	"github.com/vimal20002/tchegl-frontend/internal/cache"
	"github.com/vimal20002/tchegl-frontend/internal/metrics"
	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// Kind はミューテーションの種別を表す。
type Kind string

const (
	KindAddToCart         Kind = "add_to_cart"
	KindUpdateCartItem    Kind = "update_cart_item"
	KindDeleteCartItem    Kind = "delete_cart_item"
	KindPlaceOrder        Kind = "place_order"
	KindUpdateOrderStatus Kind = "update_order_status"
	KindCreateProduct     Kind = "create_product"
	KindUpdateProduct     Kind = "update_product"
	KindDeleteProduct     Kind = "delete_product"
)

// dependencies はミューテーション種別ごとの依存キャッシュ種別。
// 成功時にここへ宣言されたプレフィックスが無効化される。
var dependencies = map[Kind][]string{
	KindAddToCart:         {cache.KindCart},
	KindUpdateCartItem:    {cache.KindCart},
	KindDeleteCartItem:    {cache.KindCart},
	KindPlaceOrder:        {cache.KindCart, cache.KindOrders},
	KindUpdateOrderStatus: {cache.KindOrders},
	KindCreateProduct:     {cache.KindProducts},
	KindUpdateProduct:     {cache.KindProducts},
	KindDeleteProduct:     {cache.KindProducts},
}

// Dependencies は種別の依存キャッシュ種別を返す。
func Dependencies(kind Kind) []string {
	deps := dependencies[kind]
	out := make([]string, len(deps))
	copy(out, deps)
	return out
}

// GatewayClient はコーディネーターが必要とするゲートウェイの部分集合。
type GatewayClient interface {
	AddToCart(ctx context.Context, productID string, quantity int) error
	UpsertCartItem(ctx context.Context, productID string, quantity int) error
	DeleteCartItem(ctx context.Context, itemID string) error
	PlaceOrder(ctx context.Context) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// Invalidator はコーディネーターが必要とするキャッシュの部分集合。
type Invalidator interface {
	InvalidatePrefix(kind string)
}

// Coordinator はミューテーションの実行を調停する。
type Coordinator struct {
	gateway GatewayClient
	cache   Invalidator
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewCoordinator はCoordinatorを生成する。
func NewCoordinator(gw GatewayClient, inv Invalidator, collector metrics.MetricsCollector, logger *slog.Logger) *Coordinator {
	if collector == nil {
		collector = metrics.Nop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		gateway: gw,
		cache:   inv,
		logger:  logger,
		metrics: collector,
	}
}

// run はミューテーションの共通処理を行う。
// callが成功した場合のみ、種別に宣言された依存キャッシュを無効化する。
// 無効化はミューテーション成功の観測後にのみ適用される。
func (co *Coordinator) run(ctx context.Context, kind Kind, call func(context.Context) error) error {
	if err := call(ctx); err != nil {
		co.metrics.RecordMutation(string(kind), false)
		co.logger.Warn("ミューテーションが失敗しました",
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
		return err
	}

	for _, dep := range dependencies[kind] {
		co.cache.InvalidatePrefix(dep)
	}
	co.metrics.RecordMutation(string(kind), true)
	co.logger.Debug("ミューテーションが成功しました",
		slog.String("kind", string(kind)),
	)
	return nil
}

// AddToCart は商品をカートに追加する。
// 数量が1未満の場合はAPIを呼び出さずに拒否する。
func (co *Coordinator) AddToCart(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return model.NewInvalidQuantityError(quantity)
	}
	return co.run(ctx, KindAddToCart, func(ctx context.Context) error {
		return co.gateway.AddToCart(ctx, productID, quantity)
	})
}

// UpdateCartItem はカート明細の数量を設定する。
// 数量が1未満の場合はAPIを呼び出さずに拒否する。
// 明細の削除はDeleteCartItemで明示的に行う。
func (co *Coordinator) UpdateCartItem(ctx context.Context, productID string, quantity int) error {
	if quantity < 1 {
		return model.NewInvalidQuantityError(quantity)
	}
	return co.run(ctx, KindUpdateCartItem, func(ctx context.Context) error {
		return co.gateway.UpsertCartItem(ctx, productID, quantity)
	})
}

// DeleteCartItem はカート明細を削除する。
func (co *Coordinator) DeleteCartItem(ctx context.Context, itemID string) error {
	return co.run(ctx, KindDeleteCartItem, func(ctx context.Context) error {
		return co.gateway.DeleteCartItem(ctx, itemID)
	})
}

// PlaceOrder はカートの内容から注文を作成する。
// 成功するとカートと注文一覧の両方のキャッシュが無効化される。
func (co *Coordinator) PlaceOrder(ctx context.Context) (*model.Order, error) {
	var order *model.Order
	err := co.run(ctx, KindPlaceOrder, func(ctx context.Context) error {
		var callErr error
		order, callErr = co.gateway.PlaceOrder(ctx)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus は注文状態を更新する。
// 定義外の状態はAPIを呼び出さずに拒否する。
func (co *Coordinator) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	if !model.ValidOrderStatus(string(status)) {
		return model.NewInvalidStatusError(string(status))
	}
	return co.run(ctx, KindUpdateOrderStatus, func(ctx context.Context) error {
		return co.gateway.UpdateOrderStatus(ctx, orderID, status)
	})
}

// CreateProduct は商品を作成する。
func (co *Coordinator) CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	var product *model.Product
	err := co.run(ctx, KindCreateProduct, func(ctx context.Context) error {
		var callErr error
		product, callErr = co.gateway.CreateProduct(ctx, input)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct は商品を更新する。
func (co *Coordinator) UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error) {
	var product *model.Product
	err := co.run(ctx, KindUpdateProduct, func(ctx context.Context) error {
		var callErr error
		product, callErr = co.gateway.UpdateProduct(ctx, productID, input)
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct は商品を削除する。
func (co *Coordinator) DeleteProduct(ctx context.Context, productID string) error {
	return co.run(ctx, KindDeleteProduct, func(ctx context.Context) error {
		return co.gateway.DeleteProduct(ctx, productID)
	})
}
