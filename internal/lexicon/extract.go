package lexicon

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ashureev/shopassist/internal/domain"
)

const numeral = `(?:rs\.?|inr|₹)?\s*(\d[\d,]*(?:\.\d+)?)(?:\s*(k|thousand|lakhs?)\b)?`

var (
	upperBoundPattern = regexp.MustCompile(`\b(?:under|below|less\s+than|maximum|max)\s*(?:of\s+)?` + numeral)
	lowerBoundPattern = regexp.MustCompile(`\b(?:above|over|more\s+than|minimum|min)\s*(?:of\s+)?` + numeral)
)

// PriceBounds holds the price thresholds found in a message.
type PriceBounds struct {
	Max *int
	Min *int
}

// Extractor matches messages against a Vocabulary.
type Extractor struct {
	vocab       Vocabulary
	stopWords   map[string]struct{}
	filterWords map[string]struct{}
}

// NewExtractor builds an extractor for vocab.
func NewExtractor(vocab Vocabulary) *Extractor {
	e := &Extractor{
		vocab:       vocab,
		stopWords:   make(map[string]struct{}, len(vocab.StopWords)),
		filterWords: make(map[string]struct{}, len(vocab.Colors)+len(vocab.Brands)),
	}
	for _, w := range vocab.StopWords {
		e.stopWords[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range vocab.Colors {
		e.filterWords[strings.ToLower(w)] = struct{}{}
	}
	for _, w := range vocab.Brands {
		e.filterWords[strings.ToLower(w)] = struct{}{}
	}
	return e
}

// Vocabulary returns the vocabulary the extractor was built with.
func (e *Extractor) Vocabulary() Vocabulary {
	return e.vocab
}

// ExtractPrice captures upper and lower price bounds independently.
func (e *Extractor) ExtractPrice(text string) PriceBounds {
	text = strings.ToLower(text)
	return PriceBounds{
		Max: matchAmount(upperBoundPattern, text),
		Min: matchAmount(lowerBoundPattern, text),
	}
}

// ExtractColor returns the first vocabulary color found in text, title-cased.
// Plural and "-ish" forms count: "blackish" yields Black, "bored" nothing.
func (e *Extractor) ExtractColor(text string) (string, bool) {
	return firstWord(strings.ToLower(text), e.vocab.Colors)
}

// ExtractBrand returns the first vocabulary brand found in text, title-cased.
// "samsungs" yields Samsung.
func (e *Extractor) ExtractBrand(text string) (string, bool) {
	return firstWord(strings.ToLower(text), e.vocab.Brands)
}

// ExtractFilters runs every filter extractor over text.
func (e *Extractor) ExtractFilters(text string) domain.Filters {
	bounds := e.ExtractPrice(text)
	f := domain.Filters{PriceMax: bounds.Max, PriceMin: bounds.Min}
	if brand, ok := e.ExtractBrand(text); ok {
		f.Brand = &brand
	}
	if color, ok := e.ExtractColor(text); ok {
		f.Color = &color
	}
	return f
}

// DetectCategory matches the category vocabulary first and falls back to
// GenericNoun. It returns false when neither yields a category.
func (e *Extractor) DetectCategory(text string) (string, bool) {
	if name, ok := e.VocabularyCategory(text); ok {
		return name, true
	}
	return e.GenericNoun(text)
}

// VocabularyCategory returns the first category whose trigger is a substring of text.
func (e *Extractor) VocabularyCategory(text string) (string, bool) {
	text = strings.ToLower(text)
	for _, entry := range e.vocab.Categories {
		for _, trigger := range entry.Triggers {
			if trigger != "" && strings.Contains(text, strings.ToLower(trigger)) {
				return entry.Name, true
			}
		}
	}
	return "", false
}

// GenericNoun picks the first token that is not a stop word, a number, or a
// color or brand name. "show me some umbrellas" yields "umbrellas".
func (e *Extractor) GenericNoun(text string) (string, bool) {
	for _, raw := range strings.Fields(strings.ToLower(text)) {
		token := strings.TrimFunc(raw, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if utf8.RuneCountInString(token) < 2 {
			continue
		}
		if _, stop := e.stopWords[token]; stop {
			continue
		}
		if e.isFilterToken(token) {
			continue
		}
		if strings.IndexFunc(token, unicode.IsDigit) >= 0 {
			continue
		}
		return token, true
	}
	return "", false
}

// IsRefinement reports whether text begins with a filter-only trigger: a
// price phrase, a color, or a brand. It is a prefix test, not a classifier.
func (e *Extractor) IsRefinement(text string) bool {
	text = strings.TrimSpace(strings.ToLower(text))
	for _, w := range e.vocab.RefinementTriggers {
		if hasWordPrefix(text, strings.ToLower(w)) {
			return true
		}
	}
	return e.isFilterToken(wordAt(text, 0))
}

// isFilterToken reports whether token is a color or brand or an inflection
// of one, the rule ExtractColor and ExtractBrand apply.
func (e *Extractor) isFilterToken(token string) bool {
	if token == "" {
		return false
	}
	if _, ok := e.filterWords[token]; ok {
		return true
	}
	for w := range e.filterWords {
		if isInflection(w, token) {
			return true
		}
	}
	return false
}

func matchAmount(pattern *regexp.Regexp, text string) *int {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil || value < 0 {
		return nil
	}
	switch {
	case m[2] == "k" || m[2] == "thousand":
		value *= 1000
	case strings.HasPrefix(m[2], "lakh"):
		value *= 100000
	}
	if value > math.MaxInt32 {
		return nil
	}
	amount := int(math.Round(value))
	return &amount
}

func firstWord(text string, words []string) (string, bool) {
	for _, w := range words {
		if startsWord(text, strings.ToLower(w)) {
			return TitleCase(w), true
		}
	}
	return "", false
}

// startsWord reports whether some word of text is word or an inflection of
// it: "samsungs", "blacks", "blackish", "reddish". Other continuations such
// as "bluetooth" or "redmi" do not count.
func startsWord(text, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; offset < len(text); {
		idx := strings.Index(text[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		if !isWordByteBefore(text, start) && isInflection(word, wordAt(text, start)) {
			return true
		}
		offset = start + 1
	}
	return false
}

// isInflection reports whether token is word followed by a plural or "-ish"
// suffix. The final consonant may double before "ish".
func isInflection(word, token string) bool {
	if word == "" || !strings.HasPrefix(token, word) {
		return false
	}
	switch rest := token[len(word):]; rest {
	case "", "s", "es", "ish":
		return true
	default:
		return rest == word[len(word)-1:]+"ish"
	}
}

// wordAt returns the run of letters and digits starting at i.
func wordAt(text string, i int) string {
	end := i
	for end < len(text) && isWordByteAt(text, end) {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[i:end]
}

// hasWordPrefix reports whether text begins with word as a whole word.
func hasWordPrefix(text, word string) bool {
	return word != "" && strings.HasPrefix(text, word) && !isWordByteAt(text, len(word))
}

func isWordByteBefore(text string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isWordByteAt(text string, i int) bool {
	if i >= len(text) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(text[i:])
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// TitleCase trims s and upper-cases its first letter, lower-casing the rest.
func TitleCase(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
