package gateway

import (
	"context"
	"net/url"

	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// --- 商品 ---

// ListProducts は商品一覧を取得する。認証は不要。
func (c *Client) ListProducts(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := c.do(ctx, "list_products", "GET", "/api/products", nil, &products, false); err != nil {
		return nil, err
	}
	return products, nil
}

// GetProduct は商品詳細を取得する。認証は不要。
func (c *Client) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	var product model.Product
	path := "/api/products/" + url.PathEscape(productID)
	if err := c.do(ctx, "get_product", "GET", path, nil, &product, false); err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct は商品を作成する。マネージャーの認証が必要。
func (c *Client) CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	var product model.Product
	if err := c.do(ctx, "create_product", "POST", "/api/products", input, &product, true); err != nil {
		return nil, err
	}
	return &product, nil
}

// UpdateProduct は商品を更新する。マネージャーの認証が必要。
func (c *Client) UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error) {
	var product model.Product
	path := "/api/products/" + url.PathEscape(productID)
	if err := c.do(ctx, "update_product", "PUT", path, input, &product, true); err != nil {
		return nil, err
	}
	return &product, nil
}

// DeleteProduct は商品を削除する。マネージャーの認証が必要。
func (c *Client) DeleteProduct(ctx context.Context, productID string) error {
	path := "/api/products/" + url.PathEscape(productID)
	return c.do(ctx, "delete_product", "DELETE", path, nil, nil, true)
}

// --- カート ---

// cartItemRequest はカート操作のリクエストペイロード。
type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// GetCart はカートを取得する。
// サーバーがHTTP 404を返した場合はカート未作成を意味するため、
// エラーではなく空のカートを返す（UIをカート未作成状態に耐性のあるものにする）。
func (c *Client) GetCart(ctx context.Context) (*model.Cart, error) {
	var cart model.Cart
	if err := c.do(ctx, "get_cart", "GET", "/api/cart", nil, &cart, true); err != nil {
		if model.IsNotFound(err) {
			return &model.Cart{Items: []model.CartItem{}}, nil
		}
		return nil, err
	}
	if cart.Items == nil {
		cart.Items = []model.CartItem{}
	}
	return &cart, nil
}

// AddToCart は商品をカートに追加する。
func (c *Client) AddToCart(ctx context.Context, productID string, quantity int) error {
	body := cartItemRequest{ProductID: productID, Quantity: quantity}
	return c.do(ctx, "add_to_cart", "POST", "/api/cart", body, nil, true)
}

// UpsertCartItem はカート明細の数量を設定する。
func (c *Client) UpsertCartItem(ctx context.Context, productID string, quantity int) error {
	body := cartItemRequest{ProductID: productID, Quantity: quantity}
	return c.do(ctx, "upsert_cart_item", "PUT", "/api/cart/item", body, nil, true)
}

// DeleteCartItem はカート明細を削除する。
func (c *Client) DeleteCartItem(ctx context.Context, itemID string) error {
	path := "/api/cart/item/" + url.PathEscape(itemID)
	return c.do(ctx, "delete_cart_item", "DELETE", path, nil, nil, true)
}

// PlaceOrder はカートの内容から注文を作成する。
// 成功するとサーバー側でカートが空になる。
func (c *Client) PlaceOrder(ctx context.Context) (*model.Order, error) {
	var order model.Order
	if err := c.do(ctx, "place_order", "POST", "/api/cart/place-order", struct{}{}, &order, true); err != nil {
		return nil, err
	}
	return &order, nil
}

// --- 注文 ---

// ListAllOrders は全ユーザーの注文一覧を取得する。マネージャーの認証が必要。
func (c *Client) ListAllOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, "list_orders", "GET", "/api/orders", nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

// ListUserOrders はログイン中ユーザーの注文一覧を取得する。
func (c *Client) ListUserOrders(ctx context.Context) ([]model.Order, error) {
	var orders []model.Order
	if err := c.do(ctx, "list_user_orders", "GET", "/api/orders/user", nil, &orders, true); err != nil {
		return nil, err
	}
	return orders, nil
}

// statusRequest は注文状態更新のリクエストペイロード。
type statusRequest struct {
	Status model.OrderStatus `json:"status"`
}

// UpdateOrderStatus は注文状態を更新する。マネージャーの認証が必要。
func (c *Client) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	path := "/api/orders/status/" + url.PathEscape(orderID)
	return c.do(ctx, "update_order_status", "PUT", path, statusRequest{Status: status}, nil, true)
}

// --- ユーザー ---

// loginResponse はログインAPIのレスポンスを表す。
type loginResponse struct {
	Token string `json:"token"`
}

// Register はユーザーを登録する。認証は不要。
func (c *Client) Register(ctx context.Context, creds model.Credentials) error {
	return c.do(ctx, "register", "POST", "/api/users/register", creds, nil, false)
}

// Login は認証情報からトークンを取得する。認証は不要。
// 取得したトークンの保存は呼び出し側（セッションストア）の責務。
func (c *Client) Login(ctx context.Context, creds model.Credentials) (string, error) {
	var resp loginResponse
	if err := c.do(ctx, "login", "POST", "/api/users/login", creds, &resp, false); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", model.NewUnknownError("ログインレスポンスにトークンが含まれていません")
	}
	return resp.Token, nil
}
