package security

import (
	"strings"
	"testing"
)

// TestSanitize_RemovesScriptTags はscriptタグが除去されることを検証する。
func TestSanitize_RemovesScriptTags(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p>高品質な商品です</p><script>alert("xss")</script>`)
	if strings.Contains(got, "<script") {
		t.Errorf("script tag should be removed, got: %s", got)
	}
	if !strings.Contains(got, "<p>高品質な商品です</p>") {
		t.Errorf("allowed tag should be preserved, got: %s", got)
	}
}

// TestSanitize_RemovesEventAttributes はon*イベント属性が除去されることを検証する。
func TestSanitize_RemovesEventAttributes(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p onclick="steal()">説明</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("onclick attribute should be removed, got: %s", got)
	}
}

// TestSanitize_RemovesImgTags は説明内のimgタグが除去されることを検証する。
// 商品画像はimageフィールドで別途扱う。
func TestSanitize_RemovesImgTags(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<p>説明</p><img src="https://evil.example/x.png">`)
	if strings.Contains(got, "<img") {
		t.Errorf("img tag should be removed, got: %s", got)
	}
}

// TestSanitize_PreservesAllowedFormatting は許可タグが保持されることを検証する。
func TestSanitize_PreservesAllowedFormatting(t *testing.T) {
	s := NewDescriptionSanitizer()

	input := `<p><strong>特徴</strong></p><ul><li>軽量</li><li>防水</li></ul><code>ABC-123</code>`
	got := s.Sanitize(input)

	for _, tag := range []string{"<strong>", "<ul>", "<li>", "<code>"} {
		if !strings.Contains(got, tag) {
			t.Errorf("allowed tag %s should be preserved, got: %s", tag, got)
		}
	}
}

// TestSanitize_LinkAttributes はaタグにtarget/relが付与され、
// https以外のリンクが除去されることを検証する。
func TestSanitize_LinkAttributes(t *testing.T) {
	s := NewDescriptionSanitizer()

	got := s.Sanitize(`<a href="https://example.com/manual">取扱説明書</a>`)
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("target=_blank should be added, got: %s", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("rel=noopener noreferrer should be added, got: %s", got)
	}

	got = s.Sanitize(`<a href="javascript:alert(1)">リンク</a>`)
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript href should be removed, got: %s", got)
	}
}

// TestSanitize_EmptyInput は空入力に空文字列を返すことを検証する。
func TestSanitize_EmptyInput(t *testing.T) {
	s := NewDescriptionSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want \"\"", got)
	}
}

// TestSanitize_Idempotent は同一入力に対して常に同一出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewDescriptionSanitizer()

	input := `<p>説明<script>x()</script></p>`
	first := s.Sanitize(input)
	second := s.Sanitize(first)
	if first != second {
		t.Errorf("Sanitize should be idempotent: first=%q second=%q", first, second)
	}
}
