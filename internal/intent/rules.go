package intent

import (
	"context"
	"strings"

	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/lexicon"
)

// ConversationPrompt is the reply for messages that name no product.
const ConversationPrompt = `I can help you find products! Try something like "laptops under 50000", "black phones" or "Samsung headphones".`

// Rules is the deterministic keyword resolver. It performs no I/O.
type Rules struct {
	extractor *lexicon.Extractor
}

// NewRules creates a rules resolver over extractor.
func NewRules(extractor *lexicon.Extractor) *Rules {
	return &Rules{extractor: extractor}
}

// Name implements Resolver.
func (r *Rules) Name() string { return "rules" }

// Resolve implements Resolver. It never fails.
func (r *Rules) Resolve(_ context.Context, message string, sess domain.Session) (domain.Intent, error) {
	return r.Classify(message, sess), nil
}

// Classify resolves message against the session.
//
// A message that starts with a price phrase, color or brand refines the
// previous query when one exists: the category is kept and the fresh filters
// overwrite the prior ones field by field. Otherwise the category is detected
// from the message itself. "black is my favorite color" is read as a
// refinement too; the prefix test does not try to tell them apart.
func (r *Rules) Classify(message string, sess domain.Session) domain.Intent {
	text := strings.ToLower(strings.TrimSpace(message))
	fresh := r.extractor.ExtractFilters(text)

	if sess.LastQuery != nil && r.extractor.IsRefinement(text) {
		return domain.ProductSearch(sess.LastQuery.Category, Canonicalize(Merge(sess.LastQuery.Filters, fresh)))
	}

	if category, ok := r.extractor.DetectCategory(text); ok {
		return domain.ProductSearch(category, Canonicalize(fresh))
	}

	return domain.Conversation(ConversationPrompt)
}
