// Package strings holds small text helpers shared by the renderer and the
// generator client.
package strings

import (
	"strings"
	"unicode"
)

// Truncate cuts s to n bytes, ending in "...". n is at least 4.
func Truncate(s string, n int) string {
	if n < 4 {
		n = 4
	}
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}

// TruncateRunes is Truncate counting runes, for descriptions that may hold
// non-ASCII text.
func TruncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n < 4 {
		n = 4
	}
	return string(runes[:n-3]) + "..."
}

// SingleLine collapses every whitespace run, newlines included, into one
// space so multi-line descriptions fit a table cell.
func SingleLine(s string) string {
	return strings.Join(strings.FieldsFunc(s, unicode.IsSpace), " ")
}

// Indent prefixes every non-empty line of s.
func Indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

// WordWrap breaks lines of s longer than width on word boundaries. Existing
// newlines are kept and ANSI color codes do not count toward the width.
func WordWrap(s string, width int) string {
	if width <= 0 {
		return s
	}

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if visibleLength(line) > width {
			lines[i] = wrapLine(line, width)
		}
	}
	return strings.Join(lines, "\n")
}

func wrapLine(line string, width int) string {
	var sb strings.Builder
	col := 0
	for _, word := range strings.Fields(line) {
		n := visibleLength(word)
		switch {
		case col == 0:
		case col+1+n > width:
			sb.WriteString("\n")
			col = 0
		default:
			sb.WriteString(" ")
			col++
		}
		sb.WriteString(word)
		col += n
	}
	return sb.String()
}

// visibleLength counts runes outside ANSI escape sequences.
func visibleLength(s string) int {
	inEscape := false
	count := 0
	for _, r := range s {
		if r == '\x1b' {
			inEscape = true
			continue
		}
		if inEscape {
			if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
				inEscape = false
			}
			continue
		}
		count++
	}
	return count
}
