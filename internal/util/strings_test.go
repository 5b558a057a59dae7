package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxLen   int
		expected string
	}{
		{name: "short string unchanged", input: "hello", maxLen: 10, expected: "hello"},
		{name: "exact length unchanged", input: "hello", maxLen: 5, expected: "hello"},
		{name: "long string truncated", input: "hello world", maxLen: 8, expected: "hello..."},
		{name: "small maxLen returns ellipsis", input: "hello", maxLen: 3, expected: "..."},
		{name: "negative maxLen returns ellipsis", input: "hello", maxLen: -5, expected: "..."},
		{name: "empty string unchanged", input: "", maxLen: 10, expected: ""},
		{name: "unicode counted by rune", input: "日本語テスト", maxLen: 5, expected: "日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateString(tt.input, tt.maxLen)
			if got != tt.expected {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.expected)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	redStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	if got := TruncateANSI("hello", 10); got != "hello" {
		t.Errorf("short string changed: %q", got)
	}
	if got := TruncateANSI("hello world", 8); got != "hello..." {
		t.Errorf("TruncateANSI plain = %q, want %q", got, "hello...")
	}
	if got := TruncateANSI("hello", 2); got != "..." {
		t.Errorf("tiny width = %q, want ellipsis", got)
	}

	styled := redStyle.Render("a long task description")
	if got := TruncateANSI(styled, 10); lipgloss.Width(got) > 10 {
		t.Errorf("styled result width %d exceeds 10", lipgloss.Width(got))
	}
	short := redStyle.Render("hi")
	if got := TruncateANSI(short, 10); got != short {
		t.Errorf("styled string was modified when it fits")
	}
}

func TestShortHash(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{name: "prefixed hash", in: "0x" + "1a2b3c4d5e6f7a8b9c0d", n: 4, want: "0x1a2b…9c0d"},
		{name: "unprefixed", in: "deadbeefcafebabe", n: 4, want: "dead…babe"},
		{name: "already short", in: "0x1a2b3", n: 4, want: "0x1a2b3"},
		{name: "boundary kept", in: "0x123456789", n: 4, want: "0x123456789"},
		{name: "default width", in: "0x00112233445566778899", n: 0, want: "0x0011…8899"},
		{name: "empty", in: "", n: 4, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShortHash(tt.in, tt.n); got != tt.want {
				t.Errorf("ShortHash(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
			}
		})
	}
}

func TestFirstLine(t *testing.T) {
	if got := FirstLine("  summary line\nmore detail\n"); got != "summary line" {
		t.Errorf("FirstLine = %q", got)
	}
	if got := FirstLine("single"); got != "single" {
		t.Errorf("FirstLine = %q", got)
	}
}
