package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandHelp は使い方を表示する。引数なし・未知の引数でも使用される。
	CommandHelp Command = "help"

	// --- 認証 ---

	// CommandRegister はユーザーを登録する。
	CommandRegister Command = "register"
	// CommandLogin はログインしてセッションを保存する。
	CommandLogin Command = "login"
	// CommandLogout はセッションを破棄する。
	CommandLogout Command = "logout"
	// CommandWhoami は現在の認証状態とロールを表示する。
	CommandWhoami Command = "whoami"
	// CommandSwitchRole は表示ロールを切り替える。
	CommandSwitchRole Command = "switch-role"

	// --- 商品 ---

	// CommandProducts は商品一覧を表示する。
	CommandProducts Command = "products"
	// CommandProductShow は商品詳細を表示する。
	CommandProductShow Command = "product"
	// CommandProductCreate は商品を作成する。マネージャー用。
	CommandProductCreate Command = "product-create"
	// CommandProductUpdate は商品を更新する。マネージャー用。
	CommandProductUpdate Command = "product-update"
	// CommandProductDelete は商品を削除する。マネージャー用。
	CommandProductDelete Command = "product-delete"
	// CommandProductImage は商品画像をダウンロードしてファイルに保存する。
	CommandProductImage Command = "product-image"

	// --- カート ---

	// CommandCartShow はカートの内容を表示する。
	CommandCartShow Command = "cart"
	// CommandCartAdd は商品をカートに追加する。
	CommandCartAdd Command = "cart-add"
	// CommandCartSet はカート内の商品の数量を設定する。
	CommandCartSet Command = "cart-set"
	// CommandCartRemove はカート明細を削除する。
	CommandCartRemove Command = "cart-remove"
	// CommandPlaceOrder はカートの内容から注文を確定する。
	CommandPlaceOrder Command = "place-order"

	// --- 注文 ---

	// CommandOrders は自分の注文一覧を表示する。
	CommandOrders Command = "orders"
	// CommandOrdersAll は全ユーザーの注文一覧を表示する。マネージャー用。
	CommandOrdersAll Command = "orders-all"
	// CommandOrderStatus は注文状態を更新する。マネージャー用。
	CommandOrderStatus Command = "order-status"

	// --- サーバー ---

	// CommandServe はローカル開発用のスタブAPIサーバーを起動する。
	CommandServe Command = "serve"
)

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
//
// 2語のサブコマンド（cart add等）は対応する1語のCommandに正規化される。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandHelp, nil
	}

	head, rest := args[0], args[1:]

	switch head {
	case "register":
		return CommandRegister, rest
	case "login":
		return CommandLogin, rest
	case "logout":
		return CommandLogout, rest
	case "whoami":
		return CommandWhoami, rest
	case "switch-role":
		return CommandSwitchRole, rest
	case "products":
		return CommandProducts, rest
	case "product":
		return parseProductCommand(rest)
	case "cart":
		return parseCartCommand(rest)
	case "place-order":
		return CommandPlaceOrder, rest
	case "orders":
		return parseOrdersCommand(rest)
	case "serve":
		return CommandServe, rest
	default:
		return CommandHelp, nil
	}
}

// parseProductCommand はproductサブコマンドを解析する。
//
//	product <id>              商品詳細
//	product create k=v...     商品作成
//	product update <id> k=v.. 商品更新
//	product delete <id>       商品削除
//	product image <id> <path> 画像ダウンロード
func parseProductCommand(rest []string) (Command, []string) {
	if len(rest) == 0 {
		return CommandHelp, nil
	}
	switch rest[0] {
	case "create":
		return CommandProductCreate, rest[1:]
	case "update":
		return CommandProductUpdate, rest[1:]
	case "delete":
		return CommandProductDelete, rest[1:]
	case "image":
		return CommandProductImage, rest[1:]
	default:
		return CommandProductShow, rest
	}
}

// parseCartCommand はcartサブコマンドを解析する。
//
//	cart                  カート表示
//	cart add <id> [qty]   商品追加
//	cart set <id> <qty>   数量設定
//	cart remove <itemID>  明細削除
func parseCartCommand(rest []string) (Command, []string) {
	if len(rest) == 0 {
		return CommandCartShow, nil
	}
	switch rest[0] {
	case "add":
		return CommandCartAdd, rest[1:]
	case "set":
		return CommandCartSet, rest[1:]
	case "remove":
		return CommandCartRemove, rest[1:]
	default:
		return CommandHelp, nil
	}
}

// parseOrdersCommand はordersサブコマンドを解析する。
//
//	orders                       自分の注文一覧
//	orders all                   全注文一覧（マネージャー）
//	orders status <id> <status>  状態更新（マネージャー）
func parseOrdersCommand(rest []string) (Command, []string) {
	if len(rest) == 0 {
		return CommandOrders, nil
	}
	switch rest[0] {
	case "all":
		return CommandOrdersAll, rest[1:]
	case "status":
		return CommandOrderStatus, rest[1:]
	default:
		return CommandHelp, nil
	}
}
