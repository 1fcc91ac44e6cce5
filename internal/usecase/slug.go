package usecase

import (
	"strings"
	"unicode"
)

// Slugify turns a product title into a lowercase URL-safe slug: letters and
// digits are kept, everything else becomes a dash, runs of dashes collapse.
func Slugify(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	lastDash := true // suppress a leading dash
	for _, r := range title {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}

	return strings.TrimSuffix(b.String(), "-")
}
