// Package storefront はキャッシュとミューテーションの上に構築された
// ビュー層のサービスを提供する。
//
// 元のUIの各画面（商品一覧、カート、注文一覧、マネージャーダッシュボード）を
// 描画フレームワークから独立した操作として表現する。読み取りはクエリ
// キャッシュを経由し、書き込みはミューテーションコーディネーターへ
// ディスパッチする。
package storefront

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/vimal20002/tchegl-frontend/internal/cache"
	"github.com/vimal20002/tchegl-frontend/internal/model"
	"github.com/vimal20002/tchegl-frontend/internal/security"
)

// GatewayReader はビュー層が必要とする読み取り操作の部分集合。
type GatewayReader interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	GetCart(ctx context.Context) (*model.Cart, error)
	ListAllOrders(ctx context.Context) ([]model.Order, error)
	ListUserOrders(ctx context.Context) ([]model.Order, error)
}

// Mutator はビュー層が必要とする書き込み操作の部分集合。
// mutation.Coordinatorが実装する。
type Mutator interface {
	AddToCart(ctx context.Context, productID string, quantity int) error
	UpdateCartItem(ctx context.Context, productID string, quantity int) error
	DeleteCartItem(ctx context.Context, itemID string) error
	PlaceOrder(ctx context.Context) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error)
	UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error)
	DeleteProduct(ctx context.Context, productID string) error
}

// CartLine はカート明細と参照先の商品を結合したビュー。
// 商品が削除済み等で取得できなかった場合、Productはnilになる。
type CartLine struct {
	Item    model.CartItem
	Product *model.Product
}

// CartView はカート画面の表示内容。
type CartView struct {
	Lines []CartLine
}

// OrderView は注文と参照先の商品を結合したビュー。
type OrderView struct {
	Order    model.Order
	Products map[string]*model.Product
}

// ImageFetchOptions は商品画像ダウンロードの制限。
type ImageFetchOptions struct {
	MaxSize int64
	Timeout time.Duration
}

// Service はビュー層のサービス。
type Service struct {
	gateway    GatewayReader
	mutations  Mutator
	cache      *cache.Cache
	sanitizer  security.DescriptionSanitizerService
	imageGuard security.ImageGuardService
	imageOpts  ImageFetchOptions
	logger     *slog.Logger
}

// NewService はServiceを生成する。
func NewService(
	gw GatewayReader,
	mutations Mutator,
	queryCache *cache.Cache,
	sanitizer security.DescriptionSanitizerService,
	imageGuard security.ImageGuardService,
	imageOpts ImageFetchOptions,
	logger *slog.Logger,
) *Service {
	if imageOpts.MaxSize == 0 {
		imageOpts.MaxSize = 5242880
	}
	if imageOpts.Timeout == 0 {
		imageOpts.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		gateway:    gw,
		mutations:  mutations,
		cache:      queryCache,
		sanitizer:  sanitizer,
		imageGuard: imageGuard,
		imageOpts:  imageOpts,
		logger:     logger,
	}
}

// --- 商品ビュー ---

// ListProducts は商品一覧をキャッシュ経由で返す。
func (s *Service) ListProducts(ctx context.Context) ([]model.Product, error) {
	value, err := s.cache.Get(ctx, cache.NewKey(cache.KindProducts), func(ctx context.Context) (any, error) {
		return s.gateway.ListProducts(ctx)
	})
	if err != nil {
		return nil, err
	}
	return value.([]model.Product), nil
}

// GetProduct は商品詳細をキャッシュ経由で返す。
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	value, err := s.cache.Get(ctx, cache.NewKey(cache.KindProducts, productID), func(ctx context.Context) (any, error) {
		return s.gateway.GetProduct(ctx, productID)
	})
	if err != nil {
		return nil, err
	}
	return value.(*model.Product), nil
}

// productSet は商品IDの集合をまとめて取得する。
// キーは識別子集合から順序に依存せず導出されるため、カート画面と
// 注文画面が同じ集合を異なる順序で要求しても単一エントリを共有する。
// 集合キーは商品詳細キーとは別の名前空間を使う（要素数1の集合が
// 詳細エントリと衝突しないように）。
// 個別の商品が取得できない場合はnilを格納して続行する
// （1件の失敗が画面全体の描画を妨げないようにする）。
func (s *Service) productSet(ctx context.Context, productIDs []string) (map[string]*model.Product, error) {
	if len(productIDs) == 0 {
		return map[string]*model.Product{}, nil
	}

	key := cache.NewKey(cache.KindProductSet, productIDs...)
	value, err := s.cache.Get(ctx, key, func(ctx context.Context) (any, error) {
		products := make(map[string]*model.Product, len(productIDs))
		for _, id := range productIDs {
			p, err := s.gateway.GetProduct(ctx, id)
			if err != nil {
				if model.IsNotFound(err) {
					s.logger.Warn("参照先の商品が見つかりません",
						slog.String("product_id", id),
					)
					products[id] = nil
					continue
				}
				return nil, err
			}
			products[id] = p
		}
		return products, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(map[string]*model.Product), nil
}

// DescriptionText は商品説明HTMLをサニタイズし、端末表示用の
// プレーンテキストに変換して返す。
func (s *Service) DescriptionText(p *model.Product) string {
	if p == nil || p.Description == "" {
		return ""
	}
	return htmlToText(s.sanitizer.Sanitize(p.Description))
}

// --- カートビュー ---

// Cart はカートを商品詳細と結合したビューで返す。
func (s *Service) Cart(ctx context.Context) (*CartView, error) {
	value, err := s.cache.Get(ctx, cache.NewKey(cache.KindCart), func(ctx context.Context) (any, error) {
		return s.gateway.GetCart(ctx)
	})
	if err != nil {
		return nil, err
	}
	cart := value.(*model.Cart)

	ids := make([]string, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.productSet(ctx, ids)
	if err != nil {
		return nil, err
	}

	view := &CartView{Lines: make([]CartLine, 0, len(cart.Items))}
	for _, item := range cart.Items {
		view.Lines = append(view.Lines, CartLine{
			Item:    item,
			Product: products[item.ProductID],
		})
	}
	return view, nil
}

// AddToCart は商品をカートに追加する。
func (s *Service) AddToCart(ctx context.Context, productID string, quantity int) error {
	return s.mutations.AddToCart(ctx, productID, quantity)
}

// ChangeQuantity はカート内の商品の数量を変更する。
// 数量を1未満に減らす操作は明細の削除として実行される
// （数量0の明細は保持しない）。
func (s *Service) ChangeQuantity(ctx context.Context, productID string, quantity int) error {
	if quantity >= 1 {
		return s.mutations.UpdateCartItem(ctx, productID, quantity)
	}

	view, err := s.Cart(ctx)
	if err != nil {
		return err
	}
	for _, line := range view.Lines {
		if line.Item.ProductID == productID {
			return s.mutations.DeleteCartItem(ctx, line.Item.ItemID)
		}
	}
	return model.NewNotFoundError(fmt.Sprintf("カート内の商品: %s", productID))
}

// RemoveItem はカート明細を削除する。
func (s *Service) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutations.DeleteCartItem(ctx, itemID)
}

// PlaceOrder はカートの内容から注文を作成する。
// カートが空の場合はAPIを呼び出さずに拒否する。
func (s *Service) PlaceOrder(ctx context.Context) (*model.Order, error) {
	view, err := s.Cart(ctx)
	if err != nil {
		return nil, err
	}
	if len(view.Lines) == 0 {
		return nil, model.NewEmptyCartError()
	}
	return s.mutations.PlaceOrder(ctx)
}

// --- 注文ビュー ---

// ordersView は注文一覧を商品詳細と結合したビューに変換する。
func (s *Service) ordersView(ctx context.Context, orders []model.Order) ([]OrderView, error) {
	products, err := s.productSet(ctx, model.ProductIDs(orders))
	if err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, OrderView{Order: order, Products: products})
	}
	return views, nil
}

// UserOrders はログイン中ユーザーの注文一覧ビューを返す。
func (s *Service) UserOrders(ctx context.Context) ([]OrderView, error) {
	value, err := s.cache.Get(ctx, cache.NewKey(cache.KindOrders, "user"), func(ctx context.Context) (any, error) {
		return s.gateway.ListUserOrders(ctx)
	})
	if err != nil {
		return nil, err
	}
	return s.ordersView(ctx, value.([]model.Order))
}

// AllOrders は全ユーザーの注文一覧ビューを返す。マネージャー画面用。
func (s *Service) AllOrders(ctx context.Context) ([]OrderView, error) {
	value, err := s.cache.Get(ctx, cache.NewKey(cache.KindOrders), func(ctx context.Context) (any, error) {
		return s.gateway.ListAllOrders(ctx)
	})
	if err != nil {
		return nil, err
	}
	return s.ordersView(ctx, value.([]model.Order))
}

// UpdateOrderStatus は注文状態を更新する。
func (s *Service) UpdateOrderStatus(ctx context.Context, orderID string, status model.OrderStatus) error {
	return s.mutations.UpdateOrderStatus(ctx, orderID, status)
}

// --- マネージャー操作 ---

// CreateProduct は商品を作成する。
// 画像URLはリクエスト送信前にSSRFガードで検証する。
func (s *Service) CreateProduct(ctx context.Context, input model.ProductInput) (*model.Product, error) {
	if err := s.validateImageURL(input.Image); err != nil {
		return nil, err
	}
	return s.mutations.CreateProduct(ctx, input)
}

// UpdateProduct は商品を更新する。
// 画像URLはリクエスト送信前にSSRFガードで検証する。
func (s *Service) UpdateProduct(ctx context.Context, productID string, input model.ProductInput) (*model.Product, error) {
	if err := s.validateImageURL(input.Image); err != nil {
		return nil, err
	}
	return s.mutations.UpdateProduct(ctx, productID, input)
}

// DeleteProduct は商品を削除する。
func (s *Service) DeleteProduct(ctx context.Context, productID string) error {
	return s.mutations.DeleteProduct(ctx, productID)
}

// validateImageURL は画像URLを検証する。空URLは画像なしとして許容する。
func (s *Service) validateImageURL(rawURL string) error {
	if rawURL == "" {
		return nil
	}
	if err := s.imageGuard.ValidateImageURL(rawURL); err != nil {
		return model.NewImageBlockedError(err.Error())
	}
	return nil
}

// DownloadImage は商品画像をSSRF防止付きクライアントでダウンロードして
// wへ書き込み、書き込んだバイト数を返す。
func (s *Service) DownloadImage(ctx context.Context, productID string, w io.Writer) (int64, error) {
	product, err := s.GetProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	if product.Image == "" {
		return 0, model.NewNotFoundError(fmt.Sprintf("商品の画像URL: %s", productID))
	}
	if err := s.imageGuard.ValidateImageURL(product.Image); err != nil {
		return 0, model.NewImageBlockedError(err.Error())
	}

	client := s.imageGuard.NewSafeClient(s.imageOpts.Timeout, s.imageOpts.MaxSize)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, product.Image, nil)
	if err != nil {
		return 0, model.NewUnknownError(err.Error())
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, model.NewImageBlockedError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, model.NewServiceUnavailableError(fmt.Sprintf("画像の取得に失敗: HTTP %d", resp.StatusCode))
	}

	return io.Copy(w, io.LimitReader(resp.Body, s.imageOpts.MaxSize))
}
