// Package app はCLIのエントリーポイントとサブコマンドのディスパッチを提供する。
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vimal20002/tchegl-frontend/internal/cache"
	"github.com/vimal20002/tchegl-frontend/internal/config"
	"github.com/vimal20002/tchegl-frontend/internal/gateway"
	"github.com/vimal20002/tchegl-frontend/internal/logger"
	"github.com/vimal20002/tchegl-frontend/internal/metrics"
	"github.com/vimal20002/tchegl-frontend/internal/middleware"
	"github.com/vimal20002/tchegl-frontend/internal/model"
	"github.com/vimal20002/tchegl-frontend/internal/mutation"
	"github.com/vimal20002/tchegl-frontend/internal/security"
	"github.com/vimal20002/tchegl-frontend/internal/session"
	"github.com/vimal20002/tchegl-frontend/internal/storefront"
	"github.com/vimal20002/tchegl-frontend/internal/stubserver"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する
// （nilの場合はos.Stderr。標準出力は表示用に確保する）。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応する操作を実行する。
// 表示用の出力はoutへ、ログはos.Stderrへ書き込む。
// argsにはos.Args[1:]を渡す。
func Run(out io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	// help は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHelp {
		printUsage(out)
		return nil
	}

	cfg, err := Init(nil)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	if cmd == CommandServe {
		return runServe(cfg)
	}

	a, err := newStorefrontApp(cfg)
	if err != nil {
		return fmt.Errorf("failed to build client: %w", err)
	}

	ctx := context.Background()
	return a.dispatch(ctx, out, cmd, rest)
}

// storefrontApp はCLIコマンドが利用するクライアント一式。
type storefrontApp struct {
	cfg      *config.Config
	sessions *session.Store
	client   *gateway.Client
	service  *storefront.Service
}

// newStorefrontApp はセッションストア・ゲートウェイ・キャッシュ・
// ミューテーションコーディネーター・ビュー層をワイヤリングする。
func newStorefrontApp(cfg *config.Config) (*storefrontApp, error) {
	sessions, err := session.Open(cfg.SessionFile, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	// ワンショット実行でもメトリクスは記録する（スクレイプは行わない）
	collector := metrics.NewCollector(prometheus.NewRegistry())

	client := gateway.NewClient(cfg.APIBaseURL, sessions, collector, slog.Default(), gateway.Options{
		Timeout:         cfg.RequestTimeout,
		RateLimitPerMin: cfg.RateLimitPerMin,
		RateLimitBurst:  cfg.RateLimitBurst,
	})

	queryCache := cache.New(collector, slog.Default())
	coordinator := mutation.NewCoordinator(client, queryCache, collector, slog.Default())

	service := storefront.NewService(
		client,
		coordinator,
		queryCache,
		security.NewDescriptionSanitizer(),
		security.NewImageGuard(),
		storefront.ImageFetchOptions{MaxSize: cfg.ImageMaxSize, Timeout: cfg.ImageTimeout},
		slog.Default(),
	)

	return &storefrontApp{
		cfg:      cfg,
		sessions: sessions,
		client:   client,
		service:  service,
	}, nil
}

// dispatch はサブコマンドを対応する操作へ振り分ける。
func (a *storefrontApp) dispatch(ctx context.Context, out io.Writer, cmd Command, args []string) error {
	switch cmd {
	case CommandRegister:
		return a.runRegister(ctx, out, args)
	case CommandLogin:
		return a.runLogin(ctx, out, args)
	case CommandLogout:
		return a.runLogout(out)
	case CommandWhoami:
		return a.runWhoami(out)
	case CommandSwitchRole:
		return a.runSwitchRole(out, args)
	case CommandProducts:
		return a.runProducts(ctx, out)
	case CommandProductShow:
		return a.runProductShow(ctx, out, args)
	case CommandProductCreate:
		return a.runProductCreate(ctx, out, args)
	case CommandProductUpdate:
		return a.runProductUpdate(ctx, out, args)
	case CommandProductDelete:
		return a.runProductDelete(ctx, out, args)
	case CommandProductImage:
		return a.runProductImage(ctx, out, args)
	case CommandCartShow:
		return a.runCartShow(ctx, out)
	case CommandCartAdd:
		return a.runCartAdd(ctx, out, args)
	case CommandCartSet:
		return a.runCartSet(ctx, out, args)
	case CommandCartRemove:
		return a.runCartRemove(ctx, out, args)
	case CommandPlaceOrder:
		return a.runPlaceOrder(ctx, out)
	case CommandOrders:
		return a.runOrders(ctx, out)
	case CommandOrdersAll:
		return a.runOrdersAll(ctx, out)
	case CommandOrderStatus:
		return a.runOrderStatus(ctx, out, args)
	default:
		printUsage(out)
		return nil
	}
}

// requireManager はマネージャーロールをローカルで確認する。
// ロールの不足はAPIを呼び出す前に検出する。
func (a *storefrontApp) requireManager() error {
	if role := a.sessions.Get().EffectiveRole(); role != model.RoleManager {
		return fmt.Errorf("この操作にはマネージャーロールが必要です（現在: %s）。switch-role manager で切り替えられます", role)
	}
	return nil
}

// --- 認証 ---

func (a *storefrontApp) runRegister(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tchegl register <email> <password> [name]")
	}
	creds := model.Credentials{Email: args[0], Password: args[1]}
	if len(args) > 2 {
		creds.Name = args[2]
	}

	if err := a.client.Register(ctx, creds); err != nil {
		return err
	}
	fmt.Fprintf(out, "登録しました: %s\n", creds.Email)
	return nil
}

func (a *storefrontApp) runLogin(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tchegl login <email> <password>")
	}

	token, err := a.client.Login(ctx, model.Credentials{Email: args[0], Password: args[1]})
	if err != nil {
		return err
	}
	// ログイン直後のロールは常にuser。manager表示はswitch-roleで明示的に行う。
	if err := a.sessions.Set(token, model.RoleUser); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}
	fmt.Fprintf(out, "ログインしました: %s\n", args[0])
	return nil
}

func (a *storefrontApp) runLogout(out io.Writer) error {
	if err := a.sessions.Clear(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintln(out, "ログアウトしました")
	return nil
}

func (a *storefrontApp) runWhoami(out io.Writer) error {
	sess := a.sessions.Get()
	if !sess.Authenticated() {
		fmt.Fprintln(out, "未ログインです")
		return nil
	}
	fmt.Fprintf(out, "ログイン中 (ロール: %s)\n", sess.EffectiveRole())
	return nil
}

func (a *storefrontApp) runSwitchRole(out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tchegl switch-role <user|manager>")
	}
	if err := a.sessions.SwitchRole(model.Role(args[0])); err != nil {
		return err
	}
	fmt.Fprintf(out, "ロールを切り替えました: %s\n", a.sessions.Get().EffectiveRole())
	return nil
}

// --- 商品 ---

func (a *storefrontApp) runProducts(ctx context.Context, out io.Writer) error {
	products, err := a.service.ListProducts(ctx)
	if err != nil {
		return err
	}
	renderProducts(out, products)
	return nil
}

func (a *storefrontApp) runProductShow(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tchegl product <id>")
	}
	product, err := a.service.GetProduct(ctx, args[0])
	if err != nil {
		return err
	}
	renderProductDetail(out, product, a.service.DescriptionText(product))
	return nil
}

func (a *storefrontApp) runProductCreate(ctx context.Context, out io.Writer, args []string) error {
	if err := a.requireManager(); err != nil {
		return err
	}
	input, err := parseProductInput(args)
	if err != nil {
		return err
	}

	product, err := a.service.CreateProduct(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "商品を作成しました: %s (%s)\n", product.Name, product.ID)
	return nil
}

func (a *storefrontApp) runProductUpdate(ctx context.Context, out io.Writer, args []string) error {
	if err := a.requireManager(); err != nil {
		return err
	}
	if len(args) < 1 {
		return fmt.Errorf("usage: tchegl product update <id> <key=value>...")
	}
	input, err := parseProductInput(args[1:])
	if err != nil {
		return err
	}

	product, err := a.service.UpdateProduct(ctx, args[0], input)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "商品を更新しました: %s (%s)\n", product.Name, product.ID)
	return nil
}

func (a *storefrontApp) runProductDelete(ctx context.Context, out io.Writer, args []string) error {
	if err := a.requireManager(); err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("usage: tchegl product delete <id>")
	}

	if err := a.service.DeleteProduct(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "商品を削除しました: %s\n", args[0])
	return nil
}

func (a *storefrontApp) runProductImage(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tchegl product image <id> <path>")
	}

	f, err := os.Create(args[1])
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	n, err := a.service.DownloadImage(ctx, args[0], f)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "画像を保存しました: %s (%d bytes)\n", args[1], n)
	return nil
}

// parseProductInput はkey=value形式の引数から商品の入力を組み立てる。
// 対応キー: name, image, description, quantity, weight, price
func parseProductInput(args []string) (model.ProductInput, error) {
	var input model.ProductInput
	for _, arg := range args {
		key, value, found := cutKeyValue(arg)
		if !found {
			return input, fmt.Errorf("invalid argument %q: expected key=value", arg)
		}
		switch key {
		case "name":
			input.Name = value
		case "image":
			input.Image = value
		case "description":
			input.Description = value
		case "quantity":
			n, err := strconv.Atoi(value)
			if err != nil {
				return input, fmt.Errorf("invalid quantity %q", value)
			}
			input.Quantity = n
		case "weight":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return input, fmt.Errorf("invalid weight %q", value)
			}
			input.Weight = f
		case "price":
			f, err := strconv.ParseFloat(value, 64)
			if err != nil {
				return input, fmt.Errorf("invalid price %q", value)
			}
			input.Price = f
		default:
			return input, fmt.Errorf("unknown key %q", key)
		}
	}
	if input.Name == "" {
		return input, fmt.Errorf("name is required")
	}
	return input, nil
}

// cutKeyValue は"key=value"を分割する。
func cutKeyValue(s string) (key, value string, found bool) {
	for i := 0; i < len(s); i++ {
		if s[i] == '=' {
			return s[:i], s[i+1:], true
		}
	}
	return "", "", false
}

// --- カート ---

func (a *storefrontApp) runCartShow(ctx context.Context, out io.Writer) error {
	view, err := a.service.Cart(ctx)
	if err != nil {
		return err
	}
	renderCart(out, view)
	return nil
}

func (a *storefrontApp) runCartAdd(ctx context.Context, out io.Writer, args []string) error {
	if len(args) < 1 || len(args) > 2 {
		return fmt.Errorf("usage: tchegl cart add <productID> [quantity]")
	}
	quantity := 1
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid quantity %q", args[1])
		}
		quantity = n
	}

	if err := a.service.AddToCart(ctx, args[0], quantity); err != nil {
		return err
	}
	fmt.Fprintf(out, "カートに追加しました: %s x%d\n", args[0], quantity)
	return nil
}

func (a *storefrontApp) runCartSet(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tchegl cart set <productID> <quantity>")
	}
	quantity, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid quantity %q", args[1])
	}

	if err := a.service.ChangeQuantity(ctx, args[0], quantity); err != nil {
		return err
	}
	if quantity < 1 {
		fmt.Fprintf(out, "カートから削除しました: %s\n", args[0])
	} else {
		fmt.Fprintf(out, "数量を変更しました: %s x%d\n", args[0], quantity)
	}
	return nil
}

func (a *storefrontApp) runCartRemove(ctx context.Context, out io.Writer, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: tchegl cart remove <itemID>")
	}

	if err := a.service.RemoveItem(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintf(out, "カートから削除しました: %s\n", args[0])
	return nil
}

func (a *storefrontApp) runPlaceOrder(ctx context.Context, out io.Writer) error {
	order, err := a.service.PlaceOrder(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "注文を確定しました: %s (合計: %.2f)\n", order.ID, order.TotalAmount)
	return nil
}

// --- 注文 ---

func (a *storefrontApp) runOrders(ctx context.Context, out io.Writer) error {
	orders, err := a.service.UserOrders(ctx)
	if err != nil {
		return err
	}
	renderOrders(out, orders)
	return nil
}

func (a *storefrontApp) runOrdersAll(ctx context.Context, out io.Writer) error {
	if err := a.requireManager(); err != nil {
		return err
	}
	orders, err := a.service.AllOrders(ctx)
	if err != nil {
		return err
	}
	renderOrders(out, orders)
	return nil
}

func (a *storefrontApp) runOrderStatus(ctx context.Context, out io.Writer, args []string) error {
	if err := a.requireManager(); err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("usage: tchegl orders status <orderID> <Pending|Processing|Completed|Cancelled>")
	}

	if err := a.service.UpdateOrderStatus(ctx, args[0], model.OrderStatus(args[1])); err != nil {
		return err
	}
	fmt.Fprintf(out, "注文状態を更新しました: %s → %s\n", args[0], args[1])
	return nil
}

// --- サーバー ---

// runServe はローカル開発用のスタブAPIサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	_, handler := stubserver.NewServer(stubserver.Options{
		ManagerEmails:     cfg.ManagerEmails,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimiter:       rateLimiter,
		Gatherer:          registry,
		Metrics:           collector,
		SeedProducts:      stubserver.DefaultSeedProducts(),
		Logger:            slog.Default(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("stub API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down stub API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("stub API server stopped gracefully")
	return nil
}

// printUsage は使い方を表示する。
func printUsage(out io.Writer) {
	fmt.Fprint(out, `tchegl - アウトドア用品ストアのCLIストアフロント

使い方:
  tchegl <command> [arguments]

認証:
  register <email> <password> [name]   ユーザー登録
  login <email> <password>             ログイン
  logout                               ログアウト
  whoami                               認証状態の表示
  switch-role <user|manager>           表示ロールの切り替え

商品:
  products                             商品一覧
  product <id>                         商品詳細
  product create <key=value>...        商品作成（マネージャー）
  product update <id> <key=value>...   商品更新（マネージャー）
  product delete <id>                  商品削除（マネージャー）
  product image <id> <path>            商品画像のダウンロード

カート:
  cart                                 カート表示
  cart add <productID> [quantity]      商品追加
  cart set <productID> <quantity>      数量設定（0で削除）
  cart remove <itemID>                 明細削除
  place-order                          注文確定

注文:
  orders                               自分の注文一覧
  orders all                           全注文一覧（マネージャー）
  orders status <id> <status>          注文状態の更新（マネージャー）

サーバー:
  serve                                開発用スタブAPIサーバーの起動
`)
}
