// Package keywords holds the term lists that drive intent routing and
// answer focusing. Lists can be overridden from a YAML file; the built-in
// defaults cover the product catalogue and common crop problems.
package keywords

import (
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Set groups the four term lists consumed by the query pipeline.
type Set struct {
	Products       []string `yaml:"products"`
	Agriculture    []string `yaml:"agriculture"`
	NonAgriculture []string `yaml:"non_agriculture"`
	FocusTerms     []string `yaml:"focus_terms"`
}

// Defaults returns the compiled-in term lists.
func Defaults() Set {
	return Set{
		Products: []string{"dormulin", "zetol", "tracs", "akre", "trail", "actin"},
		Agriculture: []string{
			"crop", "plant", "seed", "soil", "fertilizer", "pesticide", "insecticide",
			"fungicide", "herbicide", "farm", "farming", "agriculture", "harvest",
			"irrigation", "tomato", "chilli", "chili", "paddy", "rice", "wheat",
			"cotton", "maize", "onion", "potato", "brinjal", "blight", "wilt",
			"mildew", "rot", "thrips", "aphid", "aphids", "whitefly", "whiteflies",
			"pest", "disease", "fungus", "fungal", "nutrient", "spray", "dosage",
			"yield", "sowing", "germination", "leaf", "leaves", "root", "stem",
			"flowering", "fruiting", "nursery", "transplant",
		},
		NonAgriculture: []string{
			"movie", "film", "cricket", "football", "stock", "share market",
			"smartphone", "mobile phone", "laptop", "politics", "election",
			"recipe", "restaurant", "travel", "flight", "hotel", "loan",
			"insurance", "bitcoin", "crypto",
		},
		FocusTerms: []string{
			"late blight", "early blight", "bacterial wilt", "powdery mildew",
			"root rot", "fusarium wilt", "thrips", "aphids", "whiteflies",
			"dormulin", "zetol", "tracs",
		},
	}
}

// LoadFromFile reads an override file. An empty path keeps the defaults;
// a missing or malformed file degrades to the defaults with one warning.
// Lists present in the file replace the corresponding default list whole.
func LoadFromFile(path string, logger *slog.Logger) Set {
	if logger == nil {
		logger = slog.Default()
	}
	defaults := Defaults()
	if path == "" {
		return defaults
	}

	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("keyword overrides unavailable, using defaults", "path", path, "error", err)
		return defaults
	}
	var overrides Set
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		logger.Warn("keyword overrides unreadable, using defaults", "path", path, "error", fmt.Errorf("parse yaml: %w", err))
		return defaults
	}

	if len(overrides.Products) > 0 {
		defaults.Products = overrides.Products
	}
	if len(overrides.Agriculture) > 0 {
		defaults.Agriculture = overrides.Agriculture
	}
	if len(overrides.NonAgriculture) > 0 {
		defaults.NonAgriculture = overrides.NonAgriculture
	}
	if len(overrides.FocusTerms) > 0 {
		defaults.FocusTerms = overrides.FocusTerms
	}
	return defaults
}
