// Package vocabulary normalizes mispronounced and mistranscribed domain
// terms before any downstream processing sees the query.
package vocabulary

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/agrovoice/agri-assistant/internal/core/domain"
)

// Resource is the persisted vocabulary shape:
// category -> canonical term -> known misspelling/mispronunciation variants.
type Resource map[string]map[string][]string

type replacement struct {
	variant   string
	canonical string
	pattern   *regexp.Regexp
}

// Corrector applies whole-word, case-insensitive substitutions from a flat
// variant -> canonical table. Canonical terms map to themselves, so applying
// the corrector to already-corrected text changes nothing.
type Corrector struct {
	table        map[string]string
	replacements []replacement
}

// NewFromFile loads the vocabulary resource. A missing or corrupt file
// degrades to an identity corrector instead of failing the query path.
func NewFromFile(path string, logger *slog.Logger) *Corrector {
	if logger == nil {
		logger = slog.Default()
	}
	resource, err := loadResource(path)
	if err != nil {
		logger.Warn("vocabulary resource unavailable, correction disabled", "path", path, "error", err)
		return New(nil)
	}
	return New(resource)
}

func New(resource Resource) *Corrector {
	table := make(map[string]string)
	for _, terms := range resource {
		for canonical, variants := range terms {
			table[strings.ToLower(canonical)] = canonical
			for _, variant := range variants {
				table[strings.ToLower(variant)] = canonical
			}
		}
	}

	// Longest variants first, so a short variant never matches inside a
	// longer one and causes a partial substitution.
	variants := make([]string, 0, len(table))
	for variant := range table {
		variants = append(variants, variant)
	}
	sort.Slice(variants, func(i, j int) bool {
		if len(variants[i]) != len(variants[j]) {
			return len(variants[i]) > len(variants[j])
		}
		return variants[i] < variants[j]
	})

	replacements := make([]replacement, 0, len(variants))
	for _, variant := range variants {
		pattern, err := regexp.Compile(`(?i)\b` + regexp.QuoteMeta(variant) + `\b`)
		if err != nil {
			continue
		}
		replacements = append(replacements, replacement{
			variant:   variant,
			canonical: table[variant],
			pattern:   pattern,
		})
	}

	return &Corrector{table: table, replacements: replacements}
}

func (c *Corrector) Correct(query string) domain.CorrectionResult {
	if strings.TrimSpace(query) == "" || len(c.replacements) == 0 {
		return domain.CorrectionResult{CorrectedText: query, Applied: []domain.Correction{}}
	}

	corrected := query
	for _, r := range c.replacements {
		corrected = r.pattern.ReplaceAllString(corrected, r.canonical)
	}

	return domain.CorrectionResult{
		CorrectedText: corrected,
		Applied:       c.appliedCorrections(query, corrected),
	}
}

// appliedCorrections reports whole-word tokens that were replaced, ordered by
// their first appearance in the original query. Substring corrections inside
// multi-word variants are applied to the text but only reported when they
// coincide with a dropped word token.
func (c *Corrector) appliedCorrections(original, corrected string) []domain.Correction {
	applied := []domain.Correction{}
	if strings.EqualFold(original, corrected) {
		return applied
	}

	correctedTokens := tokenSet(corrected)
	seen := make(map[string]bool)
	for _, token := range tokenize(original) {
		if seen[token] {
			continue
		}
		if _, stillThere := correctedTokens[token]; stillThere {
			continue
		}
		canonical, known := c.table[token]
		if !known || strings.EqualFold(token, canonical) {
			continue
		}
		seen[token] = true
		applied = append(applied, domain.Correction{Original: token, Corrected: canonical})
	}
	return applied
}

func loadResource(path string) (Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read vocabulary file: %w", err)
	}
	var resource Resource
	if err := json.Unmarshal(data, &resource); err != nil {
		return nil, fmt.Errorf("parse vocabulary file: %w", err)
	}
	return resource, nil
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}

func tokenSet(s string) map[string]struct{} {
	tokens := tokenize(s)
	out := make(map[string]struct{}, len(tokens))
	for _, token := range tokens {
		out[token] = struct{}{}
	}
	return out
}
