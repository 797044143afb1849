// Package textwalk extracts readable text from markup trees and bounds its
// length. It is independent of any concrete node type.
package textwalk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Ellipsis is appended to hard-cut text.
const Ellipsis = "..."

// boundaryRatio is the fraction of the limit past which a sentence or line
// boundary is preferred over a hard cut.
const boundaryRatio = 0.7

// Collect walks the tree rooted at root depth first and returns every
// non-blank text fragment, in document order, for which noise returns
// false. text reports a node's own text and whether it is a text node;
// children lists a node's children in order.
func Collect[N any](root N, children func(N) []N, text func(N) (string, bool), noise func(string) bool) []string {
	var out []string
	var walk func(N)
	walk = func(n N) {
		if s, ok := text(n); ok {
			s = NormalizeSpace(s)
			if s != "" && (noise == nil || !noise(s)) {
				out = append(out, s)
			}
			return
		}
		for _, c := range children(n) {
			walk(c)
		}
	}
	walk(root)
	return out
}

// Join collects text under root and joins the fragments with single spaces.
func Join[N any](root N, children func(N) []N, text func(N) (string, bool), noise func(string) bool) string {
	return strings.Join(Collect(root, children, text, noise), " ")
}

// NormalizeSpace collapses every whitespace run to one space and trims.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// NormalizeLines collapses horizontal whitespace inside each line, drops
// blank lines beyond one in a row and trims the result.
func NormalizeLines(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := make([]string, 0, len(lines))
	blank := false
	for _, line := range lines {
		line = NormalizeSpace(line)
		if line == "" {
			if blank || len(out) == 0 {
				continue
			}
			blank = true
			out = append(out, "")
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// Truncate limits s to max runes. When a sentence end or line break falls
// past 70% of max the text is cut right after it; otherwise it is cut hard
// and Ellipsis is appended within the limit. A non-positive max disables
// truncation.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}

	runes := []rune(s)
	cut := string(runes[:max])

	// The rune after the cut decides whether a terminator ending the cut
	// is followed by whitespace.
	boundary := lastBoundary(string(runes[:max+1]))
	if boundary > len(cut) {
		boundary = len(cut)
	}
	if boundary > 0 && float64(utf8.RuneCountInString(cut[:boundary])) > float64(max)*boundaryRatio {
		return strings.TrimSpace(cut[:boundary])
	}

	keep := max - utf8.RuneCountInString(Ellipsis)
	if keep < 1 {
		return cut
	}
	return strings.TrimRightFunc(string(runes[:keep]), unicode.IsSpace) + Ellipsis
}

// lastBoundary returns the byte offset just past the last sentence
// terminator followed by whitespace, or the offset of the last newline, in
// s. It returns -1 when there is none.
func lastBoundary(s string) int {
	best := -1
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		best = i
	}
	for _, term := range []string{". ", "! ", "? ", ".\n", "!\n", "?\n"} {
		if i := strings.LastIndex(s, term); i >= 0 && i+1 > best {
			best = i + 1
		}
	}
	return best
}

// IsEmojiOnly reports whether s consists solely of emoji, pictographic
// symbols, joiners, variation selectors and whitespace, with at least one
// non-space rune.
func IsEmojiOnly(s string) bool {
	seen := false
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
			continue
		case isEmojiRune(r):
			seen = true
		default:
			return false
		}
	}
	return seen
}

func isEmojiRune(r rune) bool {
	switch {
	case r == 0x200D, r == 0xFE0F, r == 0x20E3:
		return true
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		return true
	}
	return unicode.Is(unicode.So, r)
}
