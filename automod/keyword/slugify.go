package keyword

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

var nonSlugChars = regexp.MustCompile(`[^\pL\pN]+`)

// Takes an arbitrary string (eg, a keyword or free-form text) and returns a version with all non-letter, non-digit characters removed, and all lower-case
func Slugify(orig string) string {
	return strings.ToLower(nonSlugChars.ReplaceAllString(orig, ""))
}

const MaxKeywordLength = 100

var (
	ErrEmptyKeyword    = errors.New("keyword is empty")
	ErrKeywordTooLong  = fmt.Errorf("keyword is longer than %d characters", MaxKeywordLength)
	ErrKeywordNoLetter = errors.New("keyword must contain at least one letter or digit")
)

// Checks a keyword submitted for a new rule, returning the trimmed form which should be stored.
//
// Keywords made only of punctuation or symbols are rejected: they would collide with the redaction mask.
func Validate(kw string) (string, error) {
	kw = strings.TrimSpace(kw)
	if kw == "" {
		return "", ErrEmptyKeyword
	}
	if utf8.RuneCountInString(kw) > MaxKeywordLength {
		return "", ErrKeywordTooLong
	}
	if Slugify(kw) == "" {
		return "", ErrKeywordNoLetter
	}
	return kw, nil
}
