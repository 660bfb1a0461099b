package usecase

import (
	"math"
	"strings"
	"unicode"
)

var stopWords = map[string]struct{}{
	"a": {}, "about": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "give": {}, "has": {},
	"have": {}, "how": {}, "i": {}, "in": {}, "is": {}, "it": {}, "its": {}, "me": {},
	"my": {}, "of": {}, "on": {}, "or": {}, "our": {}, "s": {}, "so": {}, "tell": {},
	"that": {}, "the": {}, "their": {}, "them": {}, "there": {}, "these": {}, "they": {},
	"this": {}, "to": {}, "us": {}, "was": {}, "we": {}, "what": {}, "when": {}, "where": {},
	"which": {}, "who": {}, "why": {}, "will": {}, "with": {}, "you": {}, "your": {},
}

// tokenize lower-cases text, splits on anything that is not a letter or
// digit and drops stop words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if _, stop := stopWords[f]; stop {
			continue
		}
		out = append(out, f)
	}
	return out
}

type termVector map[string]float64

func termFrequencies(tokens []string) termVector {
	tf := make(termVector, len(tokens))
	for _, t := range tokens {
		tf[t]++
	}
	return tf
}

func (v termVector) norm() float64 {
	s := 0.0
	for _, c := range v {
		s += c * c
	}
	return math.Sqrt(s)
}

// cosine returns the cosine similarity of two term vectors, 0 when either is empty.
func cosine(a, b termVector, normA, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	if len(b) < len(a) {
		a, b = b, a
	}
	dot := 0.0
	for t, ca := range a {
		dot += ca * b[t]
	}
	return dot / (normA * normB)
}
