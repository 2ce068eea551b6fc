// Package keys builds deterministic cache keys for dataset sources and query memos.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const Prefix = "evmap"

// Source is the Redis key for a cached raw dataset. kind is "stations" or
// "neighborhoods", location is the URL or path the payload was fetched from.
func Source(kind, location string) string {
	loc := collapseASCIIWhitespace(location)
	safe := sanitizeForKey(loc)

	const maxLocTextLen = 120
	if len(safe) > maxLocTextLen {
		safe = safe[len(safe)-maxLocTextLen:]
	}

	sum := xxhash.Sum64String(loc)
	return fmt.Sprintf("%s:source:%s:%s:h=%016x", Prefix, sanitizeForKey(strings.TrimSpace(kind)), safe, sum)
}

// Search keys a memoized text search by dataset version and normalized query.
func Search(version uint64, normalizedQuery string) string {
	return fmt.Sprintf("%d:%016x:%s", version, xxhash.Sum64String(normalizedQuery), normalizedQuery)
}

func sanitizeForKey(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f':
			out = '_'
		case isAlphaNum(r) || r == '_' || r == '-' || r == '.':
			out = r
		default:
			// slashes, colons and non-ASCII all collapse to '-'
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

// converts any run of ASCII whitespace to a single space.
func collapseASCIIWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	wasWS := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' {
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

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r < unicode.MaxASCII && unicode.IsDigit(r))
}
