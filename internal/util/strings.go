// Package util provides string helpers for terminal output.
package util

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// TruncateString truncates s to maxLen runes, adding "..." if truncated.
// It does not account for ANSI escape codes; use TruncateANSI for styled text.
func TruncateString(s string, maxLen int) string {
	if maxLen <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}

// TruncateANSI truncates s to maxWidth visual columns, adding "..." if
// truncated. Escape sequences and wide characters are measured correctly.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= 3 {
		return "..."
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate counts the tail toward maxWidth
	return ansi.Truncate(s, maxWidth, "...")
}

// ShortHash abbreviates a 0x-prefixed hash or address to its first and last
// n hex digits, e.g. "0x1a2b…9f0e". Values already short enough are
// returned unchanged.
func ShortHash(h string, n int) string {
	if n <= 0 {
		n = 4
	}
	body, hasPrefix := strings.CutPrefix(h, "0x")
	if len(body) <= 2*n+1 {
		return h
	}
	short := body[:n] + "…" + body[len(body)-n:]
	if hasPrefix {
		return "0x" + short
	}
	return short
}

// FirstLine returns the first line of s, trimmed of surrounding space.
func FirstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
