package stubserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vimal20002/tchegl-frontend/internal/middleware"
	"github.com/vimal20002/tchegl-frontend/internal/model"
)

// ハンドラー内部のエラー種別。ストアから返され、HTTPステータスに変換される。
var (
	errEmptyCart         = errors.New("cart is empty")
	errUnknownProduct    = errors.New("unknown product in cart")
	errInsufficientStock = errors.New("insufficient stock")
	errTerminalOrder     = errors.New("order is in terminal status")
	errOrderNotFound     = errors.New("order not found")
)

// registerRequest はユーザー登録のリクエストペイロード。
type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// loginRequest はログインのリクエストペイロード。
type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// cartItemRequest はカート操作のリクエストペイロード。
type cartItemRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// statusRequest は注文状態更新のリクエストペイロード。
type statusRequest struct {
	Status string `json:"status"`
}

// decodeJSON はリクエストボディをデコードする。不正なJSONにはfalseを返し、
// 400レスポンスを書き込む。
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("JSONの解析に失敗しました"))
		return false
	}
	return true
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// --- ユーザー ---

// handleRegister はユーザーを登録する。
// POST /api/users/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("emailとpasswordは必須です"))
		return
	}

	role := model.RoleUser
	if s.managerEmails[req.Email] {
		role = model.RoleManager
	}

	if err := s.store.RegisterUser(req.Name, req.Email, req.Password, role); err != nil {
		middleware.WriteErrorResponse(w, http.StatusConflict, model.NewConflictError("このメールアドレスは既に登録されています"))
		return
	}

	s.logger.Info("ユーザーを登録しました",
		slog.String("email", req.Email),
		slog.String("role", string(role)),
	)
	writeJSON(w, http.StatusCreated, map[string]string{"message": "registered"})
}

// handleLogin は認証情報を検証してトークンを発行する。
// POST /api/users/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	token, ok := s.store.Authenticate(req.Email, req.Password)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// --- 商品 ---

// handleListProducts は商品一覧を返す。
// GET /api/products
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListProducts())
}

// handleGetProduct は商品詳細を返す。
// GET /api/products/{id}
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	product := s.store.GetProduct(id)
	if product == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("商品"))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleCreateProduct は商品を作成する。マネージャー専用。
// POST /api/products
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var input model.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}
	if input.Name == "" {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewValidationError("nameは必須です"))
		return
	}

	product := s.store.CreateProduct(input)
	writeJSON(w, http.StatusCreated, product)
}

// handleUpdateProduct は商品を更新する。マネージャー専用。
// PUT /api/products/{id}
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var input model.ProductInput
	if !decodeJSON(w, r, &input) {
		return
	}

	id := chi.URLParam(r, "id")
	product := s.store.UpdateProduct(id, input)
	if product == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("商品"))
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleDeleteProduct は商品を削除する。マネージャー専用。
// DELETE /api/products/{id}
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.store.DeleteProduct(id) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("商品"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// --- カート ---

// handleGetCart はカートを返す。カート未作成の場合は404を返す
// （クライアントは404を空カートとして解釈する）。
// GET /api/cart
func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	cart := s.store.GetCart(principal.UserID)
	if cart == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("カート"))
		return
	}
	writeJSON(w, http.StatusOK, cart)
}

// handleAddToCart は商品をカートに追加する。
// POST /api/cart
func (s *Server) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError(req.Quantity))
		return
	}
	if s.store.GetProduct(req.ProductID) == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("商品"))
		return
	}

	s.store.AddToCart(principal.UserID, req.ProductID, req.Quantity)
	writeJSON(w, http.StatusOK, map[string]string{"message": "added"})
}

// handleUpsertCartItem はカート明細の数量を設定する。
// PUT /api/cart/item
func (s *Server) handleUpsertCartItem(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req cartItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Quantity < 1 {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidQuantityError(req.Quantity))
		return
	}
	if s.store.GetProduct(req.ProductID) == nil {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("商品"))
		return
	}

	s.store.UpsertCartItem(principal.UserID, req.ProductID, req.Quantity)
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}

// handleDeleteCartItem はカート明細を削除する。
// DELETE /api/cart/item/{id}
func (s *Server) handleDeleteCartItem(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	itemID := chi.URLParam(r, "id")
	if !s.store.DeleteCartItem(principal.UserID, itemID) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("カート明細"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "deleted"})
}

// handlePlaceOrder はカートの内容から注文を作成する。
// POST /api/cart/place-order
func (s *Server) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	order, err := s.store.PlaceOrder(principal.UserID)
	if err != nil {
		switch {
		case errors.Is(err, errEmptyCart):
			middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewEmptyCartError())
		case errors.Is(err, errInsufficientStock):
			middleware.WriteErrorResponse(w, http.StatusConflict, model.NewConflictError("在庫が不足しています"))
		case errors.Is(err, errUnknownProduct):
			middleware.WriteErrorResponse(w, http.StatusConflict, model.NewConflictError("カート内の商品が存在しません"))
		default:
			s.logger.Error("注文の作成に失敗しました", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}

	s.logger.Info("注文を作成しました",
		slog.String("order_id", order.ID),
		slog.String("user_id", principal.UserID),
		slog.Float64("total_amount", order.TotalAmount),
	)
	writeJSON(w, http.StatusCreated, order)
}

// --- 注文 ---

// handleListAllOrders は全ユーザーの注文一覧を返す。マネージャー専用。
// GET /api/orders
func (s *Server) handleListAllOrders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.ListAllOrders())
}

// handleListUserOrders はログイン中ユーザーの注文一覧を返す。
// GET /api/orders/user
func (s *Server) handleListUserOrders(w http.ResponseWriter, r *http.Request) {
	principal, err := middleware.PrincipalFromContext(r.Context())
	if err != nil {
		middleware.WriteErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}
	writeJSON(w, http.StatusOK, s.store.ListUserOrders(principal.UserID))
}

// handleUpdateOrderStatus は注文状態を更新する。マネージャー専用。
// 終端状態（Completed/Cancelled）からの変更は409を返す。
// PUT /api/orders/status/{id}
func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if !model.ValidOrderStatus(req.Status) {
		middleware.WriteErrorResponse(w, http.StatusBadRequest, model.NewInvalidStatusError(req.Status))
		return
	}

	orderID := chi.URLParam(r, "id")
	if err := s.store.UpdateOrderStatus(orderID, model.OrderStatus(req.Status)); err != nil {
		switch {
		case errors.Is(err, errOrderNotFound):
			middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError("注文"))
		case errors.Is(err, errTerminalOrder):
			middleware.WriteErrorResponse(w, http.StatusConflict, model.NewConflictError("終端状態の注文は変更できません"))
		default:
			s.logger.Error("注文状態の更新に失敗しました", slog.String("error", err.Error()))
			middleware.WriteInternalServerError(w)
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "updated"})
}
