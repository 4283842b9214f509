package sql

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
//
// SQL Like operator. Internally, the sql's LIKE operator will be translated
// into regex
//
// The sql like's wildcard is relatively simple, basically supports 2 placeholder
//
// 1. %, represents zero, one or more sequnces of any characters
// 2. _, represents exactly one character
// 3. the escape is by backslash, ie \% matches a literal percent sign
//
// ----------------------------------------------------------------------------

func LikeToRegex(
	input string,
) string {
	buf := strings.Builder{}
	buf.WriteString("(?s)^")

	l := len(input)

	for i := 0; i < l; {
		c, sz := utf8.DecodeRuneInString(input[i:])
		if c == utf8.RuneError && sz <= 1 {
			i++
			continue // skip it
		}

		switch c {
		case '%':
			buf.WriteString(".*")

		case '_':
			buf.WriteString(".")

		case '\\':
			if i+sz < l {
				n, nsz := utf8.DecodeRuneInString(input[i+sz:])
				buf.WriteString(regexp.QuoteMeta(string(n)))
				i += sz + nsz
				continue
			}
			buf.WriteString(regexp.QuoteMeta("\\"))

		default:
			buf.WriteString(regexp.QuoteMeta(string(c)))
		}

		i += sz
	}

	buf.WriteString("$")
	return buf.String()
}

// LikeIsPrefix reports whether the pattern is a plain prefix match like 'abc%'
// and returns the prefix. Used by code generation which prefers index over
// regex matching
func LikeIsPrefix(input string) (string, bool) {
	if !strings.HasSuffix(input, "%") {
		return "", false
	}
	prefix := input[:len(input)-1]
	if strings.ContainsAny(prefix, "%_\\") {
		return "", false
	}
	return prefix, true
}
