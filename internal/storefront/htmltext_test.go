package storefront

import "testing"

// TestHTMLToText はHTMLから端末表示用テキストへの変換を検証する。
func TestHTMLToText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"段落は改行で区切る",
			"<p>一行目</p><p>二行目</p>",
			"一行目\n二行目",
		},
		{
			"brは改行になる",
			"軽量<br>防水",
			"軽量\n防水",
		},
		{
			"リストは行頭記号付きで描画する",
			"<ul><li>防水</li><li>USB充電</li></ul>",
			"- 防水\n- USB充電",
		},
		{
			"インライン要素はテキストとして連結する",
			"<p>軽量な<strong>ランタン</strong>と<em>テント</em></p>",
			"軽量なランタンとテント",
		},
		{
			"タグなしの入力はそのまま返す",
			"ただのテキスト",
			"ただのテキスト",
		},
		{
			"空入力は空文字列",
			"",
			"",
		},
		{
			"連続する空行はまとめられる",
			"<p></p><p></p><p>本文</p>",
			"本文",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := htmlToText(tt.input); got != tt.want {
				t.Errorf("htmlToText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
