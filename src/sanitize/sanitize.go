// Package sanitize cleans console text before it is matched or stored.
// It removes Jenkins console notes, ANSI escape sequences and stray control characters.
package sanitize

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
)

// Jenkins console notes: \x1b[8mha:<base64 payload>\x1b[0m
var consoleNote = regexp.MustCompile(`\x1b\[8mha:[^\x1b]*\x1b\[0m`)

// StripANSI removes Jenkins console notes and all terminal control sequences.
func StripANSI(s string) string {
	if !strings.ContainsRune(s, '\x1b') && !strings.ContainsRune(s, '\x9b') {
		return s
	}
	s = consoleNote.ReplaceAllString(s, "")
	return ansi.Strip(s)
}

// Line cleans a single log line: control sequences and carriage returns are
// removed but leading indentation is preserved.
func Line(s string) string {
	return strings.ReplaceAll(StripANSI(s), "\r", "")
}

// Clean strips control sequences, drops remaining control characters other than
// tab and newline, and trims surrounding whitespace.
func Clean(s string) string {
	return strings.TrimSpace(strings.Map(dropControl, Line(s)))
}

func dropControl(r rune) rune {
	if r != '\t' && r != '\n' && unicode.IsControl(r) {
		return -1
	}
	return r
}

// Truncate cuts s to at most max characters (runes). Invalid UTF-8 is replaced first.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
