// Package reply builds the user-facing text of chat replies.
package reply

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/ashureev/shopassist/internal/domain"
)

// Fixed replies.
const (
	EmptyMessagePrompt = "Please ask me something! I can help you find laptops, phones, headphones, and more. 😊"
	ResetAck           = "Done! I've cleared your previous search. What would you like to look for now?"
	InternalError      = "Sorry, I encountered an error. Please try again."
	SuggestedSearches  = "laptops, phones, headphones, clothing, or jewelry"
)

var inr = message.NewPrinter(language.MustParse("en-IN"))

// FormatINR renders a rupee amount with Indian digit grouping, e.g. ₹50,000.
func FormatINR(amount int) string {
	return "₹" + inr.Sprintf("%d", amount)
}

// Compose summarizes a search result. Filter clauses follow in the order
// price_max, price_min, brand, color. A zero count yields an apology that
// quotes query.
func Compose(query, category string, f domain.Filters, count int) string {
	if count == 0 {
		return NoResults(query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Found %d %s products", count, category)

	clauses := make([]string, 0, 4)
	if f.PriceMax != nil {
		clauses = append(clauses, "under "+FormatINR(*f.PriceMax))
	}
	if f.PriceMin != nil {
		clauses = append(clauses, "above "+FormatINR(*f.PriceMin))
	}
	if f.Brand != nil {
		clauses = append(clauses, *f.Brand+" branded")
	}
	if f.Color != nil {
		clauses = append(clauses, strings.ToLower(*f.Color)+" colored")
	}
	if len(clauses) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(clauses, ", "))
	}
	b.WriteString(":")
	return b.String()
}

// NoResults apologizes for an empty search and suggests categories.
func NoResults(query string) string {
	return fmt.Sprintf("Sorry, I couldn't find any products matching \"%s\". Try searching for: %s!",
		strings.TrimSpace(query), SuggestedSearches)
}

// RetrievalFailure apologizes for a catalog that could not be searched.
func RetrievalFailure(detail string) string {
	detail = strings.TrimSpace(detail)
	if detail == "" {
		return "Sorry, I couldn't search for products right now. Please try again in a moment."
	}
	return "Sorry, I couldn't search for products right now. " + detail
}
