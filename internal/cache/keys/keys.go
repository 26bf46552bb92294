// Package keys builds the cache keys for datasets and derived views.
package keys

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const maxReadableLen = 160

var punctSpace = regexp.MustCompile(`\s*([=<>!\.,;&\(\)\[\]])\s*`)

// ViewKey identifies one derived view of a dataset version. query is the canonical
// text of the query; equivalent spellings must normalize to the same key.
func ViewKey(dataset string, version uint64, query string) string {
	text := normalizeQuery(query)
	safe := truncate(sanitize(text, true))
	return fmt.Sprintf("view:%s:v%d:q=%s:f=%016x", sanitize(strings.TrimSpace(dataset), false), version, safe, xxhash.Sum64String(text))
}

// DatasetKey identifies the cached raw bytes of a dataset loaded from source.
func DatasetKey(dataset, source string) string {
	src := strings.TrimSpace(source)
	return fmt.Sprintf("ds:%s:src=%s:f=%016x", sanitize(strings.TrimSpace(dataset), false), truncate(sanitize(src, true)), xxhash.Sum64String(src))
}

func normalizeQuery(s string) string {
	if s == "" {
		return ""
	}
	s = collapseASCIIWhitespace(strings.TrimSpace(s))
	return punctSpace.ReplaceAllString(s, "$1")
}

func truncate(s string) string {
	if len(s) > maxReadableLen {
		return s[:maxReadableLen]
	}
	return s
}

// sanitize keeps [A-Za-z0-9:_-] (and '=' when allowEq), maps whitespace to '_' and every
// other rune to '-', collapsing repeats.
func sanitize(s string, allowEq bool) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case isASCIIWhitespace(r):
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || (allowEq && r == '='):
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if isASCIIWhitespace(r) {
			if !wasWS {
				b.WriteByte(' ')
				wasWS = true
			}
			continue
		}
		b.WriteRune(r)
		wasWS = false
	}
	return strings.TrimSpace(b.String())
}

func isASCIIWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
