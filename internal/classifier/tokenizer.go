package classifier

import (
	"strings"
	"unicode"
)

// Features is the bag-of-words representation the adapters consume.
type Features map[string]int

// Normalize lower-cases the input, replaces invalid UTF-8 lossily and turns
// punctuation into spaces. Never fails.
func Normalize(text string) string {
	text = strings.ToValidUTF8(text, "�")
	text = strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

// Tokenize splits normalized text into terms.
func Tokenize(text string) []string {
	return strings.Fields(Normalize(text))
}

// Extract turns raw text into term counts plus the ordered, de-duplicated set
// of vocabulary terms present in the text (first-occurrence order).
// Deterministic and side-effect-free; an empty vocabulary yields an empty
// keyword list, not an error.
func Extract(text string, vocabulary []string) (Features, []string) {
	tokens := Tokenize(text)

	features := make(Features, len(tokens))
	for _, tok := range tokens {
		features[tok]++
	}

	vocab := make(map[string]struct{}, len(vocabulary))
	for _, term := range vocabulary {
		vocab[strings.ToLower(term)] = struct{}{}
	}

	matched := []string{}
	seen := make(map[string]struct{}, len(vocab))
	for _, tok := range tokens {
		if _, ok := vocab[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		matched = append(matched, tok)
	}
	return features, matched
}
