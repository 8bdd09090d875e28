package security

import (
	"strings"
	"testing"
	"time"
)

// TestValidateImageURL_AllowsPublicURLs は公開URLが検証を通過することを検証する。
func TestValidateImageURL_AllowsPublicURLs(t *testing.T) {
	guard := NewImageGuard()

	urls := []string{
		"https://example.com/image.png",
		"http://cdn.example.org/products/1.jpg",
		"https://8.8.8.8/img.png",
	}

	for _, u := range urls {
		if err := guard.ValidateImageURL(u); err != nil {
			t.Errorf("ValidateImageURL(%q) = %v, want nil", u, err)
		}
	}
}

// TestValidateImageURL_BlocksDangerousURLs は危険なURLが拒否されることを検証する。
func TestValidateImageURL_BlocksDangerousURLs(t *testing.T) {
	guard := NewImageGuard()

	tests := []struct {
		name string
		url  string
	}{
		{"空URL", ""},
		{"不正なスキーム", "javascript:alert(1)"},
		{"fileスキーム", "file:///etc/passwd"},
		{"dataスキーム", "data:image/png;base64,xxxx"},
		{"localhost", "http://localhost/img.png"},
		{"ループバックIP", "http://127.0.0.1/img.png"},
		{"プライベートIP 10系", "http://10.0.0.5/img.png"},
		{"プライベートIP 172系", "http://172.16.0.1/img.png"},
		{"プライベートIP 192系", "http://192.168.1.1/img.png"},
		{"メタデータIP", "http://169.254.169.254/latest/meta-data/"},
		{"IPv6ループバック", "http://[::1]/img.png"},
		{"ホスト無し", "https:///img.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := guard.ValidateImageURL(tt.url); err == nil {
				t.Errorf("ValidateImageURL(%q) = nil, want error", tt.url)
			}
		})
	}
}

// TestValidateImageURL_SchemeCaseInsensitive はスキーム検証が
// 大文字小文字を区別しないことを検証する。
func TestValidateImageURL_SchemeCaseInsensitive(t *testing.T) {
	guard := NewImageGuard()

	if err := guard.ValidateImageURL("HTTPS://example.com/img.png"); err != nil {
		t.Errorf("uppercase scheme should be allowed, got: %v", err)
	}
	if err := guard.ValidateImageURL("JavaScript:alert(1)"); err == nil {
		t.Error("uppercase javascript scheme should be blocked")
	}
	if !strings.Contains(guard.ValidateImageURL("ftp://example.com/a.png").Error(), "disallowed scheme") {
		t.Error("expected disallowed scheme error for ftp")
	}
}

// TestNewSafeClient_ReturnsClient はSSRF防止クライアントが生成されることを検証する。
func TestNewSafeClient_ReturnsClient(t *testing.T) {
	guard := NewImageGuard()

	client := guard.NewSafeClient(5*time.Second, 1024)
	if client == nil {
		t.Fatal("expected non-nil client")
	}
}
