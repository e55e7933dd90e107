package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{"short unchanged", "hello", 10, "hello"},
		{"exact length unchanged", "hello", 5, "hello"},
		{"over length truncated", "hello world", 8, "hello..."},
		{"maxLen 3 is all ellipsis", "hello", 3, "..."},
		{"maxLen 0 is all ellipsis", "hello", 0, "..."},
		{"negative maxLen is all ellipsis", "hello", -5, "..."},
		{"maxLen 4 keeps one rune", "hello", 4, "h..."},
		{"empty unchanged", "", 10, ""},
		{"runes counted not bytes", "日本語テスト", 5, "日本..."},
		{"wide runes short unchanged", "日本語", 10, "日本語"},
		{"mixed ascii and wide", "hello日本語world", 10, "hello日本..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateString(tt.input, tt.maxLen); got != tt.want {
				t.Errorf("TruncateString(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestTruncateANSI(t *testing.T) {
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	t.Run("plain strings behave like TruncateString", func(t *testing.T) {
		if got := TruncateANSI("hello", 10); got != "hello" {
			t.Errorf("got %q, want hello", got)
		}
		if got := TruncateANSI("hello world", 8); got != "hello..." {
			t.Errorf("got %q, want hello...", got)
		}
		if got := TruncateANSI("hello", 3); got != "..." {
			t.Errorf("got %q, want ...", got)
		}
	})

	t.Run("styled string under width is untouched", func(t *testing.T) {
		in := red.Render("hi")
		if got := TruncateANSI(in, 10); got != in {
			t.Errorf("styled string was rewritten: %q", got)
		}
	})

	// Width is measured in visual columns, so escape sequences and wide
	// characters must not push the result past maxWidth.
	widthCases := []struct {
		name     string
		input    string
		maxWidth int
	}{
		{"styled over width", red.Render("hello world"), 8},
		{"bold over width", lipgloss.NewStyle().Bold(true).Render("hello world"), 8},
		{"wide characters", "日本語テスト", 8},
	}
	for _, tt := range widthCases {
		t.Run(tt.name, func(t *testing.T) {
			got := TruncateANSI(tt.input, tt.maxWidth)
			if w := lipgloss.Width(got); w > tt.maxWidth {
				t.Errorf("width = %d, want <= %d (result %q)", w, tt.maxWidth, got)
			}
		})
	}
}
