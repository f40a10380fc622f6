package bot

import (
	"strings"
	"testing"
)

func TestSanitize(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"plain", "plain"},
		{"with-dash.dot", "with\\-dash\\.dot"},
		{"a_b*c", "a\\_b\\*c"},
		{"(brackets)[ok]", "\\(brackets\\)\\[ok\\]"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Sanitize(tc.input); got != tc.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestSplitMessage_ShortPassesThrough(t *testing.T) {
	parts := splitMessage("short", 100)
	if len(parts) != 1 || parts[0] != "short" {
		t.Fatalf("unexpected parts: %#v", parts)
	}
}

func TestSplitMessage_SplitsAtNewline(t *testing.T) {
	text := strings.Repeat("line\n", 10)
	parts := splitMessage(text, 22)

	var joined strings.Builder
	for _, part := range parts {
		if len(part) > 22 {
			t.Fatalf("part exceeds limit: %d", len(part))
		}
		joined.WriteString(part)
	}
	if joined.String() != text {
		t.Fatal("parts must reassemble to the original text")
	}
}

func TestSplitMessage_NoNewline(t *testing.T) {
	text := strings.Repeat("x", 25)
	parts := splitMessage(text, 10)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d", len(parts))
	}
	if strings.Join(parts, "") != text {
		t.Fatal("parts must reassemble to the original text")
	}
}

func TestBuildMenus(t *testing.T) {
	admin := buildAdminMenu()
	if len(admin.InlineKeyboard) != 6 {
		t.Fatalf("admin menu: expected 6 rows, got %d", len(admin.InlineKeyboard))
	}
	user := buildUserMenu()
	if len(user.InlineKeyboard) != 2 {
		t.Fatalf("user menu: expected 2 rows, got %d", len(user.InlineKeyboard))
	}
}
