// Package textnorm prepares review text for the classifier.
package textnorm

import "strings"

// punctuation is the ASCII punctuation set; it does not depend on locale.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// Normalize lower-cases text and drops every punctuation character.
func Normalize(text string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x80 && strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, strings.ToLower(text))
}

// NormalizeAll maps Normalize over texts, keeping positions.
func NormalizeAll(texts []string) []string {
	out := make([]string, len(texts))
	for i, text := range texts {
		out[i] = Normalize(text)
	}
	return out
}
