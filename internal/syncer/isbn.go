package syncer

import "regexp"

// ISBN-10 is nine digits plus a digit or X check character; ISBN-13 is
// thirteen digits. Hyphenated forms are not accepted.
var isbnPattern = regexp.MustCompile(`^(?:\d{9}[\dXx]|\d{13})$`)

// ValidISBN reports whether s has a recognized ISBN shape.
func ValidISBN(s string) bool {
	return isbnPattern.MatchString(s)
}
