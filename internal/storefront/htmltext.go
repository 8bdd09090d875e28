package storefront

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlToText はサニタイズ済みHTMLを端末表示用のプレーンテキストに変換する。
// ブロック要素と<br>は改行に、<li>は行頭の「- 」に変換する。
// 入力がHTMLとして解釈できない部分はそのままテキストとして扱われる。
func htmlToText(sanitized string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(sanitized))

	var b strings.Builder
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return normalizeText(b.String())
		case html.TextToken:
			b.WriteString(string(tokenizer.Text()))
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "br", "p", "ul", "ol":
				b.WriteString("\n")
			case "li":
				b.WriteString("\n- ")
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			switch string(name) {
			case "p", "ul", "ol":
				b.WriteString("\n")
			}
		}
	}
}

// normalizeText は連続する空白行を1つにまとめ、前後の空白を除去する。
func normalizeText(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return strings.Join(out, "\n")
}
