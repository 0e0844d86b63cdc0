package analysis

import (
	"strings"
	"unicode"
)

// TitlePrefix starts every stored analysis title.
const TitlePrefix = "Analysis Result: "

const (
	legacyPrefix = "Analysis of "
	barePrefix   = "Analysis Result:"
	untitled     = "Untitled"
)

// NormalizeTitle maps any input to TitlePrefix followed by the bare title.
// Leading runs of "Analysis of " and "Analysis Result:" are collapsed, so
// NormalizeTitle(NormalizeTitle(x)) == NormalizeTitle(x).
func NormalizeTitle(title string) string {
	return TitlePrefix + BaseTitle(title)
}

// BaseTitle strips analysis prefixes and returns the bare title,
// or "Untitled" when nothing remains. A remainder that is just a prefix
// without its trailing space also counts as empty.
func BaseTitle(title string) string {
	s := strings.TrimLeftFunc(title, unicode.IsSpace)
	for {
		switch {
		case strings.HasPrefix(s, legacyPrefix):
			s = strings.TrimLeftFunc(s[len(legacyPrefix):], unicode.IsSpace)
		case strings.HasPrefix(s, barePrefix):
			s = strings.TrimLeftFunc(s[len(barePrefix):], unicode.IsSpace)
		case strings.TrimRightFunc(s, unicode.IsSpace) == strings.TrimSpace(legacyPrefix):
			s = ""
		default:
			s = strings.TrimRightFunc(s, unicode.IsSpace)
			if s == "" {
				return untitled
			}
			return s
		}
	}
}
