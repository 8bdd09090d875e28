package app

import (
	"reflect"
	"testing"
)

// TestParseCommand はサブコマンドの解析を検証する。
func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		want     Command
		wantRest []string
	}{
		{"引数なしはhelp", nil, CommandHelp, nil},
		{"未知のコマンドはhelp", []string{"bogus"}, CommandHelp, nil},

		{"register", []string{"register", "a@example.com", "pw"}, CommandRegister, []string{"a@example.com", "pw"}},
		{"login", []string{"login", "a@example.com", "pw"}, CommandLogin, []string{"a@example.com", "pw"}},
		{"logout", []string{"logout"}, CommandLogout, []string{}},
		{"whoami", []string{"whoami"}, CommandWhoami, []string{}},
		{"switch-role", []string{"switch-role", "manager"}, CommandSwitchRole, []string{"manager"}},

		{"products", []string{"products"}, CommandProducts, []string{}},
		{"product単体はhelp", []string{"product"}, CommandHelp, nil},
		{"product詳細", []string{"product", "P1"}, CommandProductShow, []string{"P1"}},
		{"product create", []string{"product", "create", "name=x"}, CommandProductCreate, []string{"name=x"}},
		{"product update", []string{"product", "update", "P1", "price=10"}, CommandProductUpdate, []string{"P1", "price=10"}},
		{"product delete", []string{"product", "delete", "P1"}, CommandProductDelete, []string{"P1"}},
		{"product image", []string{"product", "image", "P1", "out.png"}, CommandProductImage, []string{"P1", "out.png"}},

		{"cart表示", []string{"cart"}, CommandCartShow, nil},
		{"cart add", []string{"cart", "add", "P1", "2"}, CommandCartAdd, []string{"P1", "2"}},
		{"cart set", []string{"cart", "set", "P1", "0"}, CommandCartSet, []string{"P1", "0"}},
		{"cart remove", []string{"cart", "remove", "I1"}, CommandCartRemove, []string{"I1"}},
		{"cartの未知のサブコマンドはhelp", []string{"cart", "bogus"}, CommandHelp, nil},
		{"place-order", []string{"place-order"}, CommandPlaceOrder, []string{}},

		{"orders", []string{"orders"}, CommandOrders, nil},
		{"orders all", []string{"orders", "all"}, CommandOrdersAll, []string{}},
		{"orders status", []string{"orders", "status", "O1", "Completed"}, CommandOrderStatus, []string{"O1", "Completed"}},

		{"serve", []string{"serve"}, CommandServe, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, rest := ParseCommand(tt.args)
			if got != tt.want {
				t.Errorf("command = %v, want %v", got, tt.want)
			}
			if len(rest) != len(tt.wantRest) {
				t.Fatalf("rest = %v, want %v", rest, tt.wantRest)
			}
			if len(rest) > 0 && !reflect.DeepEqual(rest, tt.wantRest) {
				t.Errorf("rest = %v, want %v", rest, tt.wantRest)
			}
		})
	}
}

// TestParseProductInput はkey=value形式の商品入力の解析を検証する。
func TestParseProductInput(t *testing.T) {
	input, err := parseProductInput([]string{
		"name=ランタン",
		"price=3980",
		"quantity=50",
		"weight=0.4",
		"image=https://cdn.example.com/l.png",
		"description=<p>軽量</p>",
	})
	if err != nil {
		t.Fatalf("parseProductInput failed: %v", err)
	}
	if input.Name != "ランタン" || input.Price != 3980 || input.Quantity != 50 ||
		input.Weight != 0.4 || input.Image != "https://cdn.example.com/l.png" {
		t.Errorf("input = %+v", input)
	}

	for _, args := range [][]string{
		{"price=10"},                  // nameなし
		{"name=x", "price=abc"},       // 数値不正
		{"name=x", "quantity=1.5"},    // 整数不正
		{"name=x", "unknown=1"},       // 未知のキー
		{"name=x", "no-equals-here1"}, // key=value形式でない
	} {
		if _, err := parseProductInput(args); err == nil {
			t.Errorf("parseProductInput(%v) should fail", args)
		}
	}
}
