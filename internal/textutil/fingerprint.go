package textutil

import (
	"math"
	"regexp"
	"strings"
)

// tokenSplitPattern matches non-alphanumeric character sequences for tokenization.
var tokenSplitPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Fingerprint represents a term-frequency vector for text similarity comparison.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint creates a word fingerprint from the provided text.
// Returns nil if the text produces no valid tokens.
func NewFingerprint(text string) *Fingerprint {
	return newFingerprint(Tokenize(text))
}

// NewNameFingerprint creates a character trigram fingerprint suited to short
// names, where word tokens are too coarse to catch typos. Each word is padded
// so prefixes and suffixes weigh in.
func NewNameFingerprint(name string) *Fingerprint {
	var grams []string
	for _, word := range tokenSplitPattern.Split(strings.ToLower(name), -1) {
		if word == "" {
			continue
		}
		runes := []rune(" " + word + " ")
		for i := 0; i+3 <= len(runes); i++ {
			grams = append(grams, string(runes[i:i+3]))
		}
	}
	return newFingerprint(grams)
}

func newFingerprint(tokens []string) *Fingerprint {
	if len(tokens) == 0 {
		return nil
	}
	counts := make(map[string]float64, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	var norm float64
	for _, count := range counts {
		norm += count * count
	}
	return &Fingerprint{
		tokens: counts,
		norm:   math.Sqrt(norm),
	}
}

// Tokenize splits text into lowercase tokens, filtering tokens shorter than 3 runes.
func Tokenize(text string) []string {
	raw := tokenSplitPattern.Split(strings.ToLower(text), -1)
	terms := make([]string, 0, len(raw))
	for _, token := range raw {
		if len([]rune(token)) < 3 {
			continue
		}
		terms = append(terms, token)
	}
	return terms
}
