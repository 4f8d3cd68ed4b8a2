package data

import "strings"

// globToLike translates a glob with * and ? wildcards into a LIKE pattern using
// backslash as the escape character. LIKE metacharacters in the glob match literally.
func globToLike(glob string) string {
	var b strings.Builder
	b.Grow(len(glob) + 8)
	for _, r := range glob {
		switch r {
		case '*':
			b.WriteByte('%')
		case '?':
			b.WriteByte('_')
		case '%', '_', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// globToRedisMatch escapes the characters Redis MATCH treats specially beyond * and ?.
func globToRedisMatch(glob string) string {
	var b strings.Builder
	b.Grow(len(glob) + 4)
	for _, r := range glob {
		switch r {
		case '[', ']', '\\', '^':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
