package mutation

import (
	"context"
	"errors"
	"reflect"
	"sort"
	"testing"

	"github.com/vimal20002/tchegl-frontend/internal/cache"
	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// --- モック ---

type mockGateway struct {
	addToCartFn         func(ctx context.Context, productID string, quantity int) error
	upsertCartItemFn    func(ctx context.Context, productID string, quantity int) error
	deleteCartItemFn    func(ctx context.Context, itemID string) error
	placeOrderFn        func(ctx context.Context) (*model.Order, error)
	updateOrderStatusFn func(ctx context.Context, orderID string, status model.OrderStatus) error
	createProductFn     func(ctx context.Context, input model.ProductInput) (*model.Product, error)
	updateProductFn     func(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error)
	deleteProductFn     func(ctx context.Context, productID string) error

	calls int
}

func (m *mockGateway) AddToCart(ctx context.Context, productID string, quantity int) error {
	m.calls++
	if m.addToCartFn != nil {
		return m.addToCartFn(ctx, productID, quantity)
	}
	return nil
}

func (m *mockGateway) UpsertCartItem(ctx context.Context, productID string, quantity int) error {
	m.calls++
	if m.upsertCartItemFn != nil {
		return m.upsertCartItemFn(ctx, productID, quantity)
	}
	return nil
}

func (m *mockGateway) DeleteCartItem(ctx context.Context, itemID string) error {
	m.calls++
	if m.deleteCartItemFn != nil {
		return m.deleteCartItemFn(ctx, itemID)
	}
	return nil
}

func (m *mockGateway) PlaceOrder(ctx context.Context) (*model.Order, error) {
	m.calls++
	if m.placeOrderFn != nil {
		return m.placeOrderFn(ctx)
	}
	return &model.Order{ID: "O1", Status: model.OrderStatusPending}, nil
}

func (m *mockGateway) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	m.calls++
	if m.updateOrderStatusFn != nil {
		return m.updateOrderStatusFn(ctx, orderID, status)
	}
	return nil
}

func (m *mockGateway) CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	m.calls++
	if m.createProductFn != nil {
		return m.createProductFn(ctx, input)
	}
	return &model.Product{ID: "P1"}, nil
}

func (m *mockGateway) UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error) {
	m.calls++
	if m.updateProductFn != nil {
		return m.updateProductFn(ctx, productID, input)
	}
	return &model.Product{ID: productID}, nil
}

func (m *mockGateway) DeleteProduct(ctx context.Context, productID string) error {
	m.calls++
	if m.deleteProductFn != nil {
		return m.deleteProductFn(ctx, productID)
	}
	return nil
}

type mockInvalidator struct {
	invalidated []string
}

func (m *mockInvalidator) InvalidatePrefix(kind string) {
	m.invalidated = append(m.invalidated, kind)
}

func newTestCoordinator() (*Coordinator, *mockGateway, *mockInvalidator) {
	gw := &mockGateway{}
	inv := &mockInvalidator{}
	return NewCoordinator(gw, inv, nil, nil), gw, inv
}

// --- テスト ---

// TestCoordinator_RejectsQuantityBelowOne は1未満の数量がゲートウェイを
// 呼び出さずに拒否されることを検証する。
func TestCoordinator_RejectsQuantityBelowOne(t *testing.T) {
	for _, quantity := range []int{0, -1, -100} {
		co, gw, inv := newTestCoordinator()

		if err := co.AddToCart(context.Background(), "P1", quantity); err == nil {
			t.Errorf("AddToCart(qty=%d) should fail", quantity)
		}
		if err := co.UpdateCartItem(context.Background(), "P1", quantity); err == nil {
			t.Errorf("UpdateCartItem(qty=%d) should fail", quantity)
		}

		if gw.calls != 0 {
			t.Errorf("gateway calls = %d, want 0 for qty=%d", gw.calls, quantity)
		}
		if len(inv.invalidated) != 0 {
			t.Errorf("invalidated = %v, want none for qty=%d", inv.invalidated, quantity)
		}
	}
}

// TestCoordinator_InvalidatesDeclaredDependencies は成功時に種別ごとの
// 依存キャッシュが無効化されることを検証する。
func TestCoordinator_InvalidatesDeclaredDependencies(t *testing.T) {
	tests := []struct {
		name string
		call func(co *Coordinator) error
		want []string
	}{
		{
			"カート追加はcartを無効化",
			func(co *Coordinator) error { return co.AddToCart(context.Background(), "P1", 1) },
			[]string{cache.KindCart},
		},
		{
			"数量変更はcartを無効化",
			func(co *Coordinator) error { return co.UpdateCartItem(context.Background(), "P1", 2) },
			[]string{cache.KindCart},
		},
		{
			"明細削除はcartを無効化",
			func(co *Coordinator) error { return co.DeleteCartItem(context.Background(), "I1") },
			[]string{cache.KindCart},
		},
		{
			"注文確定はcartとordersを無効化",
			func(co *Coordinator) error {
				_, err := co.PlaceOrder(context.Background())
				return err
			},
			[]string{cache.KindCart, cache.KindOrders},
		},
		{
			"注文状態更新はordersを無効化",
			func(co *Coordinator) error {
				return co.UpdateOrderStatus(context.Background(), "O1", model.OrderStatusCompleted)
			},
			[]string{cache.KindOrders},
		},
		{
			"商品作成はproductsを無効化",
			func(co *Coordinator) error {
				_, err := co.CreateProduct(context.Background(), model.ProductInput{Name: "x"})
				return err
			},
			[]string{cache.KindProducts},
		},
		{
			"商品更新はproductsを無効化",
			func(co *Coordinator) error {
				_, err := co.UpdateProduct(context.Background(), "P1", model.ProductInput{Name: "x"})
				return err
			},
			[]string{cache.KindProducts},
		},
		{
			"商品削除はproductsを無効化",
			func(co *Coordinator) error { return co.DeleteProduct(context.Background(), "P1") },
			[]string{cache.KindProducts},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			co, _, inv := newTestCoordinator()
			if err := tt.call(co); err != nil {
				t.Fatalf("mutation failed: %v", err)
			}

			got := append([]string(nil), inv.invalidated...)
			want := append([]string(nil), tt.want...)
			sort.Strings(got)
			sort.Strings(want)
			if !reflect.DeepEqual(got, want) {
				t.Errorf("invalidated = %v, want %v", got, want)
			}
		})
	}
}

// TestCoordinator_FailureDoesNotInvalidate は失敗時にキャッシュが
// 一切無効化されず、エラーが呼び出し元へ返ることを検証する。
func TestCoordinator_FailureDoesNotInvalidate(t *testing.T) {
	co, gw, inv := newTestCoordinator()
	gwErr := model.NewServiceUnavailableError("down")
	gw.addToCartFn = func(ctx context.Context, productID string, quantity int) error {
		return gwErr
	}

	err := co.AddToCart(context.Background(), "P1", 1)
	if !errors.Is(err, gwErr) {
		t.Errorf("err = %v, want %v", err, gwErr)
	}
	if len(inv.invalidated) != 0 {
		t.Errorf("invalidated = %v, want none on failure", inv.invalidated)
	}
}

// TestCoordinator_RejectsInvalidOrderStatus は定義外の注文状態が
// APIを呼び出さずに拒否されることを検証する。
func TestCoordinator_RejectsInvalidOrderStatus(t *testing.T) {
	co, gw, _ := newTestCoordinator()

	if err := co.UpdateOrderStatus(context.Background(), "O1", model.OrderStatus("Shipped")); err == nil {
		t.Error("expected error for invalid status")
	}
	if gw.calls != 0 {
		t.Errorf("gateway calls = %d, want 0", gw.calls)
	}
}

// TestCoordinator_PlaceOrderReturnsOrder は注文確定が作成された注文を返すことを検証する。
func TestCoordinator_PlaceOrderReturnsOrder(t *testing.T) {
	co, gw, _ := newTestCoordinator()
	gw.placeOrderFn = func(ctx context.Context) (*model.Order, error) {
		return &model.Order{ID: "O9", Status: model.OrderStatusPending, TotalAmount: 42.5}, nil
	}

	order, err := co.PlaceOrder(context.Background())
	if err != nil {
		t.Fatalf("PlaceOrder failed: %v", err)
	}
	if order.ID != "O9" || order.TotalAmount != 42.5 {
		t.Errorf("order = %+v, want ID=O9 total=42.5", order)
	}
}

// TestDependencies_ReturnsCopy は依存宣言の戻り値を書き換えても
// 内部状態に影響しないことを検証する。
func TestDependencies_ReturnsCopy(t *testing.T) {
	deps := Dependencies(KindPlaceOrder)
	if len(deps) != 2 {
		t.Fatalf("deps = %v, want 2 entries", deps)
	}
	deps[0] = "tampered"

	again := Dependencies(KindPlaceOrder)
	for _, d := range again {
		if d == "tampered" {
			t.Error("Dependencies should return a copy")
		}
	}
}
