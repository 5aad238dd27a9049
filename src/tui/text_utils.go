package tui

import (
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-runewidth"
)

// VisualWidth returns the display width of text, accounting for multi-byte characters
func VisualWidth(s string) int {
	return runewidth.StringWidth(s)
}

// StripStyles removes terminal styling so rendered output can be measured.
func StripStyles(s string) string {
	return ansi.Strip(s)
}

// Truncate truncates text to maxLen display columns with optional ellipsis
func Truncate(s string, maxLen int, ellipsis bool) string {
	s = strings.TrimSpace(s)
	if maxLen <= 0 {
		return ""
	}
	if VisualWidth(s) <= maxLen {
		return s
	}
	if ellipsis && maxLen > 3 {
		return runewidth.Truncate(s, maxLen, "...")
	}
	return runewidth.Truncate(s, maxLen, "")
}

// TruncateAndPad truncates text and pads it to exactly width columns.
// Used for table cells to maintain consistent column widths.
func TruncateAndPad(s string, width int, ellipsis bool) string {
	return runewidth.FillRight(Truncate(s, width, ellipsis), width)
}

// Wrap wraps text to width columns, breaking on spaces. Words wider than
// width are split across lines.
func Wrap(text string, width int) string {
	if width <= 0 {
		return text
	}

	var lines []string
	var line strings.Builder
	lineWidth := 0
	flush := func() {
		lines = append(lines, line.String())
		line.Reset()
		lineWidth = 0
	}

	for _, word := range strings.Fields(text) {
		for VisualWidth(word) > width {
			if lineWidth > 0 {
				flush()
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				// a single rune wider than width
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			lines = append(lines, head)
			word = word[len(head):]
		}
		if word == "" {
			continue
		}

		w := VisualWidth(word)
		if lineWidth > 0 && lineWidth+1+w > width {
			flush()
		}
		if lineWidth > 0 {
			line.WriteByte(' ')
			lineWidth++
		}
		line.WriteString(word)
		lineWidth += w
	}
	if lineWidth > 0 {
		flush()
	}

	if len(lines) == 0 {
		return text
	}
	return strings.Join(lines, "\n")
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// Sparkline renders one column per count, scaled to the largest count.
// Zero counts render as a dot.
func Sparkline(counts []int) string {
	peak := 0
	for _, c := range counts {
		peak = max(peak, c)
	}

	var b strings.Builder
	for _, c := range counts {
		if c <= 0 {
			b.WriteRune('·')
			continue
		}
		level := (c*len(sparkLevels) - 1) / peak
		b.WriteRune(sparkLevels[level])
	}
	return b.String()
}
