// Package stubserver はローカル開発用のスタブAPIサーバーを提供する。
//
// リモートAPIゲートウェイと同じエンドポイントとエラーフォーマットを
// インメモリ実装で再現する。データはプロセス終了で失われる。
// 開発とエンドツーエンドテストでの利用を想定しており、本番運用は想定しない。
package stubserver

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/vimal20002/tchegl-frontend/internal/middleware"
	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// user は登録済みユーザー。
type user struct {
	id           string
	name         string
	email        string
	passwordHash string
	role         model.Role
}

// storedOrder は注文と所有ユーザーの対応。
type storedOrder struct {
	order  model.Order
	userID string
}

// Store はスタブサーバーのインメモリデータストア。
// すべてのメソッドは並行呼び出しに対して安全。
type Store struct {
	mu sync.RWMutex

	usersByEmail map[string]*user
	usersByID    map[string]*user
	tokens       map[string]string // token → userID

	products     map[string]*model.Product
	productOrder []string // 挿入順（一覧の安定化用）

	carts  map[string]*model.Cart // userID → cart。キー不在はカート未作成を意味する
	orders []storedOrder
}

// NewStore は空のStoreを生成する。
func NewStore() *Store {
	return &Store{
		usersByEmail: make(map[string]*user),
		usersByID:    make(map[string]*user),
		tokens:       make(map[string]string),
		products:     make(map[string]*model.Product),
		carts:        make(map[string]*model.Cart),
	}
}

// hashPassword はパスワードのハッシュを返す。
// スタブ用途のため鍵導出関数は使用しない。
func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}

// --- ユーザー ---

// RegisterUser はユーザーを登録する。メールアドレスが既に使用されている
// 場合はエラーを返す。roleは登録時に固定され、以後変更されない。
func (s *Store) RegisterUser(name, email, password string, role model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.usersByEmail[email]; exists {
		return fmt.Errorf("email already registered: %s", email)
	}

	u := &user{
		id:           uuid.NewString(),
		name:         name,
		email:        email,
		passwordHash: hashPassword(password),
		role:         role,
	}
	s.usersByEmail[email] = u
	s.usersByID[u.id] = u
	return nil
}

// Authenticate は認証情報を検証し、新しいベアラートークンを発行する。
// 認証に失敗した場合は空文字列とfalseを返す。
func (s *Store) Authenticate(email, password string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, exists := s.usersByEmail[email]
	if !exists {
		return "", false
	}
	hashed := hashPassword(password)
	if subtle.ConstantTimeCompare([]byte(u.passwordHash), []byte(hashed)) != 1 {
		return "", false
	}

	token := uuid.NewString()
	s.tokens[token] = u.id
	return token, true
}

// FindByToken はトークンから認証主体を検索する。
// middleware.TokenFinderを実装する。未知のトークンにはnilを返す。
func (s *Store) FindByToken(token string) (*middleware.Principal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, exists := s.tokens[token]
	if !exists {
		return nil, nil
	}
	u, exists := s.usersByID[userID]
	if !exists {
		return nil, nil
	}
	return &middleware.Principal{UserID: u.id, Role: u.role}, nil
}

// --- 商品 ---

// SeedProducts は初期商品を登録する。サーバー起動時の1回だけ呼ぶ。
func (s *Store) SeedProducts(products []model.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range products {
		p := products[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		s.products[p.ID] = &p
		s.productOrder = append(s.productOrder, p.ID)
	}
}

// ListProducts は全商品を挿入順で返す。
func (s *Store) ListProducts() []model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Product, 0, len(s.productOrder))
	for _, id := range s.productOrder {
		if p, exists := s.products[id]; exists {
			out = append(out, *p)
		}
	}
	return out
}

// GetProduct はIDで商品を取得する。見つからない場合はnilを返す。
func (s *Store) GetProduct(id string) *model.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, exists := s.products[id]
	if !exists {
		return nil
	}
	copied := *p
	return &copied
}

// CreateProduct は商品を作成し、採番されたIDを持つ商品を返す。
func (s *Store) CreateProduct(input model.ProductInput) model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := &model.Product{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Image:       input.Image,
		Description: input.Description,
		Quantity:    input.Quantity,
		Weight:      input.Weight,
		Price:       input.Price,
	}
	s.products[p.ID] = p
	s.productOrder = append(s.productOrder, p.ID)
	return *p
}

// UpdateProduct は商品を更新する。見つからない場合はnilを返す。
func (s *Store) UpdateProduct(id string, input model.ProductInput) *model.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, exists := s.products[id]
	if !exists {
		return nil
	}
	p.Name, p.Image, p.Description = input.Name, input.Image, input.Description
	p.Quantity, p.Weight, p.Price = input.Quantity, input.Weight, input.Price
	copied := *p
	return &copied
}

// DeleteProduct は商品を削除する。存在しなかった場合はfalseを返す。
func (s *Store) DeleteProduct(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[id]; !exists {
		return false
	}
	delete(s.products, id)
	return true
}

// --- カート ---

// GetCart はユーザーのカートを返す。カートが未作成の場合はnilを返す
// （ハンドラー側で404に変換される）。
func (s *Store) GetCart(userID string) *model.Cart {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cart, exists := s.carts[userID]
	if !exists {
		return nil
	}
	items := make([]model.CartItem, len(cart.Items))
	copy(items, cart.Items)
	return &model.Cart{Items: items}
}

// AddToCart は商品をカートに追加する。同じ商品が既にある場合は数量を加算する。
// カートが未作成の場合はこの操作で作成される。
func (s *Store) AddToCart(userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureCart(userID)
	if item := cart.FindItem(productID); item != nil {
		item.Quantity += quantity
		return
	}
	cart.Items = append(cart.Items, model.CartItem{
		ItemID:    uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
	})
}

// UpsertCartItem はカート明細の数量を設定する。明細が無い場合は作成する。
func (s *Store) UpsertCartItem(userID, productID string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart := s.ensureCart(userID)
	if item := cart.FindItem(productID); item != nil {
		item.Quantity = quantity
		return
	}
	cart.Items = append(cart.Items, model.CartItem{
		ItemID:    uuid.NewString(),
		ProductID: productID,
		Quantity:  quantity,
	})
}

// DeleteCartItem は明細IDでカート明細を削除する。
// 存在しなかった場合はfalseを返す。
func (s *Store) DeleteCartItem(userID, itemID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists {
		return false
	}
	for i, item := range cart.Items {
		if item.ItemID == itemID {
			cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ensureCart はユーザーのカートを取得し、未作成なら作成する。
// 呼び出し側でロックを保持していること。
func (s *Store) ensureCart(userID string) *model.Cart {
	cart, exists := s.carts[userID]
	if !exists {
		cart = &model.Cart{Items: []model.CartItem{}}
		s.carts[userID] = cart
	}
	return cart
}

// --- 注文 ---

// PlaceOrder はカートの内容から注文を作成する。
// 合計金額はサーバー側で計算し、在庫を引き当てる。成功するとカートは
// 空になる（カート自体は残る）。
// 在庫不足の商品がある場合はその商品IDとエラーを返し、状態は変更しない。
func (s *Store) PlaceOrder(userID string) (*model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, exists := s.carts[userID]
	if !exists || len(cart.Items) == 0 {
		return nil, errEmptyCart
	}

	// 在庫確認を先に行い、引き当ては全明細の確認後にまとめて行う
	var total float64
	for _, item := range cart.Items {
		p, exists := s.products[item.ProductID]
		if !exists {
			return nil, fmt.Errorf("%w: %s", errUnknownProduct, item.ProductID)
		}
		if p.Quantity < item.Quantity {
			return nil, fmt.Errorf("%w: %s", errInsufficientStock, item.ProductID)
		}
		total += p.Price * float64(item.Quantity)
	}

	order := model.Order{
		ID:          uuid.NewString(),
		Status:      model.OrderStatusPending,
		TotalAmount: total,
	}
	for _, item := range cart.Items {
		s.products[item.ProductID].Quantity -= item.Quantity
		order.Items = append(order.Items, model.OrderItem{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		})
	}

	s.orders = append(s.orders, storedOrder{order: order, userID: userID})
	cart.Items = []model.CartItem{}
	return &order, nil
}

// ListAllOrders は全ユーザーの注文を作成順で返す。
func (s *Store) ListAllOrders() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, 0, len(s.orders))
	for _, so := range s.orders {
		out = append(out, so.order)
	}
	return out
}

// ListUserOrders は指定ユーザーの注文を作成順で返す。
func (s *Store) ListUserOrders(userID string) []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Order, 0)
	for _, so := range s.orders {
		if so.userID == userID {
			out = append(out, so.order)
		}
	}
	return out
}

// UpdateOrderStatus は注文状態を更新する。
// CompletedとCancelledは終端状態であり、そこからの変更は拒否する。
func (s *Store) UpdateOrderStatus(orderID string, status model.OrderStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.orders {
		if s.orders[i].order.ID != orderID {
			continue
		}
		current := s.orders[i].order.Status
		if current == model.OrderStatusCompleted || current == model.OrderStatusCancelled {
			return fmt.Errorf("%w: %s", errTerminalOrder, current)
		}
		s.orders[i].order.Status = status
		return nil
	}
	return errOrderNotFound
}
