package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var (
	reSeparators = regexp.MustCompile(`[_\-.]`)
	reSpaces     = regexp.MustCompile(`\s+`)
)

// StripDiacritics removes combining marks after canonical decomposition,
// so "Código" becomes "Codigo".
func StripDiacritics(input string) string {
	decomposed := norm.NFD.String(input)
	out := strings.Builder{}
	out.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		out.WriteRune(r)
	}
	return out.String()
}

// NormalizeHeader folds a column header to its comparison form: no
// diacritics, "_", "-" and "." as spaces, single spaces, uppercase, trimmed.
func NormalizeHeader(input string) string {
	s := StripDiacritics(input)
	s = reSeparators.ReplaceAllString(s, " ")
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.ToUpper(strings.TrimSpace(s))
}

// NormalizeText is the lowercase variant used for free-text status values.
func NormalizeText(input string) string {
	s := StripDiacritics(input)
	s = reSpaces.ReplaceAllString(s, " ")
	return strings.ToLower(strings.TrimSpace(s))
}

// Tokenize splits a normalized header on spaces.
func Tokenize(input string) []string {
	normalized := NormalizeHeader(input)
	if normalized == "" {
		return nil
	}
	return strings.Split(normalized, " ")
}

func ContainsAny(input string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(input, n) {
			return true
		}
	}
	return false
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
