// Package normalize strips seller boilerplate and price fragments from
// listing text so the remainder can serve as marketplace search keywords.
package normalize

import (
	"regexp"
	"strings"
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	priceRe      = regexp.MustCompile(`\$\d[\d,]*`)
)

// Normalizer removes a configured set of noise tokens from free text.
// The zero value is not usable; construct with New.
type Normalizer struct {
	tokenRes []*regexp.Regexp
}

// New builds a Normalizer for the given noise tokens. Each token is matched
// case-insensitively as a whole word, so "firm" does not touch "confirmed".
func New(tokens []string) *Normalizer {
	n := &Normalizer{tokenRes: make([]*regexp.Regexp, 0, len(tokens))}
	for _, tok := range tokens {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		n.tokenRes = append(n.tokenRes, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(tok)+`\b`))
	}
	return n
}

// Normalize collapses whitespace, removes noise tokens and `$<digits>`
// price substrings, and trims. It is deterministic and idempotent, and
// total over any input: empty in, empty out.
func (n *Normalizer) Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = CollapseWhitespace(text)
	for _, re := range n.tokenRes {
		text = re.ReplaceAllString(text, "")
	}
	text = CollapseWhitespace(text)
	text = priceRe.ReplaceAllString(text, "")
	return CollapseWhitespace(text)
}

// CollapseWhitespace reduces any run of whitespace to a single space and
// trims leading/trailing whitespace.
func CollapseWhitespace(text string) string {
	if text == "" {
		return ""
	}
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(text, " "))
}
