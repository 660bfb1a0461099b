package collab

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

var (
	markdownMarks  = regexp.MustCompile("[_*~#`]+")
	digitLetter    = regexp.MustCompile(`(\d)([A-Za-z])`)
	letterDigit    = regexp.MustCompile(`([A-Za-z])(\d)`)
	camelJoin      = regexp.MustCompile(`([a-z])([A-Z])`)
	whitespace     = regexp.MustCompile(`\s+`)
	spaceBeforeEnd = regexp.MustCompile(`\s([.,!?;:])`)
	spacedUnit     = regexp.MustCompile(`(\d)\s(%|\$)`)
)

// CleanNarrative makes generated text safe to read aloud: markdown marks are
// removed, joined words and numbers split, whitespace collapsed and "50 %"
// written as "50%".
func CleanNarrative(text string) string {
	text = markdownMarks.ReplaceAllString(text, "")
	text = digitLetter.ReplaceAllString(text, "${1} ${2}")
	text = letterDigit.ReplaceAllString(text, "${1} ${2}")
	text = camelJoin.ReplaceAllString(text, "${1} ${2}")
	text = whitespace.ReplaceAllString(text, " ")
	text = spaceBeforeEnd.ReplaceAllString(text, "${1}")
	text = spacedUnit.ReplaceAllString(text, "${1}${2}")
	text = strings.TrimSpace(text)

	r, size := utf8.DecodeRuneInString(text)
	if r == utf8.RuneError {
		return text
	}
	return string(unicode.ToUpper(r)) + text[size:]
}
