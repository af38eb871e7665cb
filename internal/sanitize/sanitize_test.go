package sanitize

import (
	"strings"
	"testing"
)

func TestText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Buy milk", "Buy milk"},
		{"trims", "  Buy milk \n", "Buy milk"},
		{"strips tags", "<b>Buy</b> milk", "Buy milk"},
		{"drops script", `<script>alert(1)</script>Groceries`, "Groceries"},
		{"keeps ampersand", "Salt & pepper", "Salt & pepper"},
		{"keeps quotes", `"Q4" plan`, `"Q4" plan`},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Text(tt.in); got != tt.want {
				t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRichText(t *testing.T) {
	got := RichText(`<p>Hello <strong>team</strong></p><script>steal()</script>`)
	if !strings.Contains(got, "<strong>team</strong>") {
		t.Errorf("RichText dropped safe formatting: %q", got)
	}
	if strings.Contains(got, "script") || strings.Contains(got, "steal") {
		t.Errorf("RichText kept script: %q", got)
	}

	got = RichText(`<a href="javascript:alert(1)" onclick="x()">link</a>`)
	if strings.Contains(got, "javascript:") || strings.Contains(got, "onclick") {
		t.Errorf("RichText kept unsafe attributes: %q", got)
	}

	got = RichText(`<a href="https://example.com">docs</a>`)
	if !strings.Contains(got, `rel="nofollow`) {
		t.Errorf("RichText link missing nofollow: %q", got)
	}
}
