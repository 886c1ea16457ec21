// Package catalog retrieves candidate products for a search and applies the
// structured filters locally.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/lexicon"
)

// DefaultUnavailableMessage is shown to the user when no source could list products.
const DefaultUnavailableMessage = "Our product catalog is not reachable right now. Please try again in a moment."

// Fetcher returns the candidate products for a category or free-text query.
// A retrieval failure is reported as *UnavailableError.
type Fetcher interface {
	FetchCandidates(ctx context.Context, query string) ([]domain.Product, error)
}

// Lister returns the full product listing of a source.
type Lister interface {
	Products(ctx context.Context) ([]domain.Product, error)
}

// UnavailableError reports that candidates could not be retrieved. Message is
// safe to show to the user.
type UnavailableError struct {
	Message string
	Err     error
}

func (e *UnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("catalog unavailable: %v", e.Err)
	}
	return "catalog unavailable: " + e.Message
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// AsUnavailable reports whether err is a retrieval failure and returns it.
func AsUnavailable(err error) (*UnavailableError, bool) {
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

// Catalog searches the listing of a source.
type Catalog struct {
	source    Lister
	extractor *lexicon.Extractor
}

// New creates a catalog over source. extractor supplies the category
// vocabulary used to match listings.
func New(source Lister, extractor *lexicon.Extractor) *Catalog {
	return &Catalog{source: source, extractor: extractor}
}

// Products returns the full listing.
func (c *Catalog) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := c.source.Products(ctx)
	if err != nil {
		if _, ok := AsUnavailable(err); ok {
			return nil, err
		}
		return nil, &UnavailableError{Message: DefaultUnavailableMessage, Err: err}
	}
	return products, nil
}

// FetchCandidates implements Fetcher.
func (c *Catalog) FetchCandidates(ctx context.Context, query string) ([]domain.Product, error) {
	products, err := c.Products(ctx)
	if err != nil {
		return nil, err
	}
	return Search(products, query, c.extractor.Vocabulary()), nil
}

// Search selects the products matching query. When query names a vocabulary
// category, products of that category, or whose name has a word starting with
// one of its triggers, are returned. Otherwise name, description and category are
// searched for query as a substring. Input order is kept.
func Search(products []domain.Product, query string, vocab lexicon.Vocabulary) []domain.Product {
	term := strings.ToLower(strings.TrimSpace(query))
	if term == "" {
		return []domain.Product{}
	}

	var target *lexicon.CategoryEntry
	for i, entry := range vocab.Categories {
		if entry.Name == term || containsAny(term, entry.Triggers) {
			target = &vocab.Categories[i]
			break
		}
	}

	results := make([]domain.Product, 0, len(products))
	for _, p := range products {
		name := strings.ToLower(p.Name)
		category := strings.ToLower(p.Category)

		if target != nil {
			if category == target.Name || hasWordStartingWithAny(name, target.Triggers) {
				results = append(results, p)
			}
			continue
		}

		if strings.Contains(name, term) ||
			strings.Contains(strings.ToLower(p.Description), term) ||
			strings.Contains(category, term) {
			results = append(results, p)
		}
	}
	return results
}

func hasWordStartingWithAny(s string, words []string) bool {
	for _, w := range words {
		w = strings.ToLower(w)
		if w == "" {
			continue
		}
		for i := 0; i+len(w) <= len(s); {
			j := strings.Index(s[i:], w)
			if j < 0 {
				break
			}
			at := i + j
			if at == 0 || !isAlnum(s[at-1]) {
				return true
			}
			i = at + 1
		}
	}
	return false
}

func isAlnum(b byte) bool {
	return b >= 'a' && b <= 'z' || b >= '0' && b <= '9' || b >= 0x80
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if w != "" && strings.Contains(s, strings.ToLower(w)) {
			return true
		}
	}
	return false
}
