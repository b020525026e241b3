package service

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Initials upper-cases the first character of every whitespace separated
// token. It is a grouping key only; different technicians may collide.
func Initials(name string) string {
	var b strings.Builder
	for _, token := range strings.Fields(name) {
		r, _ := utf8.DecodeRuneInString(token)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
