// Package cache stores full answer envelopes keyed by a normalized form of
// the question, with a word-overlap fallback so near-identical phrasings hit
// the same entry.
package cache

import "strings"

// NormalizeKey lowercases the question and strips everything except letters,
// digits and single spaces.
func NormalizeKey(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	lastSpace := true
	for _, r := range strings.ToLower(query) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastSpace = false
		default:
			if !lastSpace {
				b.WriteByte(' ')
				lastSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}

// overlapThreshold is the minimum Jaccard word overlap for two normalized
// questions to be treated as the same cached question.
const overlapThreshold = 0.8

// maxKeyLengthDelta bounds how many characters two equivalent keys may
// differ by. Without it a short query whose words all appear in a longer
// cached question could replay that question's answer.
const maxKeyLengthDelta = 5

// wordOverlap is the Jaccard ratio of the distinct word sets: shared words
// divided by the union of both sets.
func wordOverlap(a, b string) float64 {
	wordsA := strings.Fields(a)
	wordsB := strings.Fields(b)
	if len(wordsA) == 0 || len(wordsB) == 0 {
		return 0
	}

	setA := make(map[string]struct{}, len(wordsA))
	for _, w := range wordsA {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{}, len(wordsB))
	common := 0
	for _, w := range wordsB {
		if _, dup := setB[w]; dup {
			continue
		}
		setB[w] = struct{}{}
		if _, ok := setA[w]; ok {
			common++
		}
	}

	union := len(setA) + len(setB) - common
	return float64(common) / float64(union)
}

func equivalentKeys(a, b string) bool {
	if a == b {
		return true
	}
	delta := len(a) - len(b)
	if delta < 0 {
		delta = -delta
	}
	if delta > maxKeyLengthDelta {
		return false
	}
	return wordOverlap(a, b) >= overlapThreshold
}
