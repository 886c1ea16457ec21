// Package lexicon extracts categories and filters from lowercase chat messages
// using fixed, ordered vocabularies.
package lexicon

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CategoryEntry maps a category name to the substrings that trigger it.
type CategoryEntry struct {
	Name     string   `yaml:"name"`
	Triggers []string `yaml:"triggers"`
}

// Vocabulary is the configuration data the extractors match against.
// Slices are ordered; the first matching entry wins.
type Vocabulary struct {
	Categories         []CategoryEntry `yaml:"categories"`
	Colors             []string        `yaml:"colors"`
	Brands             []string        `yaml:"brands"`
	StopWords          []string        `yaml:"stop_words"`
	RefinementTriggers []string        `yaml:"refinement_triggers"`
}

// DefaultVocabulary returns the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		// headphones precedes phone: "headphones" contains "phone".
		Categories: []CategoryEntry{
			{Name: "laptop", Triggers: []string{"laptop", "notebook", "computer", "macbook"}},
			{Name: "headphones", Triggers: []string{"headphone", "earphone", "earbud", "airpods", "audio"}},
			{Name: "phone", Triggers: []string{"phone", "mobile", "smartphone", "iphone", "android"}},
			{Name: "watch", Triggers: []string{"smartwatch", "watch"}},
			{Name: "tv", Triggers: []string{"television", "tv"}},
			{Name: "camera", Triggers: []string{"camera", "dslr"}},
			{Name: "shoes", Triggers: []string{"shoe", "sneaker", "footwear"}},
			{Name: "electronics", Triggers: []string{"electronic", "gadget", "tech"}},
			{Name: "clothing", Triggers: []string{"clothes", "clothing", "shirt", "dress", "jacket", "t-shirt"}},
			{Name: "jewelry", Triggers: []string{"jewelry", "jewellery", "ring", "necklace", "earring", "bracelet"}},
		},
		Colors: []string{
			"black", "white", "silver", "gold", "grey", "gray", "blue", "red",
			"green", "pink", "purple", "yellow", "orange", "brown",
		},
		Brands: []string{
			"apple", "samsung", "oneplus", "xiaomi", "redmi", "realme", "oppo", "vivo",
			"google", "motorola", "nokia", "sony", "dell", "hp", "lenovo", "asus",
			"acer", "msi", "boat", "jbl", "bose", "nike", "adidas", "puma",
		},
		StopWords: []string{
			"show", "find", "search", "get", "buy", "want", "need", "looking", "for",
			"me", "some", "good", "best", "cheap", "a", "an", "the",
			"i", "i'm", "im", "please", "can", "you", "could", "would", "like", "to",
			"any", "with", "and", "or", "of", "in", "on", "my", "your", "is", "are",
			"do", "does", "have", "has", "there", "it", "this", "that", "what", "which",
			"how", "who", "why", "where", "when", "hi", "hello", "hey", "thanks",
			"thank", "ok", "okay", "yes", "no", "help", "new", "latest", "top",
			"under", "below", "less", "than", "above", "over", "more", "max",
			"maximum", "min", "minimum", "rs", "inr", "k", "thousand", "lakh", "lakhs",
			"price", "budget", "range", "around", "about", "color", "colour", "brand",
		},
		RefinementTriggers: []string{
			"under", "below", "less than", "above", "over", "more than",
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file. Sections left empty in the
// file keep their default values.
func LoadVocabulary(path string) (Vocabulary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, fmt.Errorf("read vocabulary: %w", err)
	}

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return Vocabulary{}, fmt.Errorf("parse vocabulary: %w", err)
	}
	return v.withDefaults(), nil
}

func (v Vocabulary) withDefaults() Vocabulary {
	def := DefaultVocabulary()
	if len(v.Categories) == 0 {
		v.Categories = def.Categories
	}
	if len(v.Colors) == 0 {
		v.Colors = def.Colors
	}
	if len(v.Brands) == 0 {
		v.Brands = def.Brands
	}
	if len(v.StopWords) == 0 {
		v.StopWords = def.StopWords
	}
	if len(v.RefinementTriggers) == 0 {
		v.RefinementTriggers = def.RefinementTriggers
	}
	return v
}

// CategoryNames lists category names in vocabulary order.
func (v Vocabulary) CategoryNames() []string {
	names := make([]string, 0, len(v.Categories))
	for _, c := range v.Categories {
		names = append(names, c.Name)
	}
	return names
}
