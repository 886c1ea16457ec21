package domain

import "time"

// IntentKind distinguishes the two resolved intent shapes.
type IntentKind string

const (
	// KindConversation is chit-chat with no product action.
	KindConversation IntentKind = "conversation"
	// KindProductSearch is a structured product request.
	KindProductSearch IntentKind = "product_search"
)

// Intent is the classified outcome of a single user message.
type Intent struct {
	Kind     IntentKind `json:"type"`
	Message  string     `json:"message,omitempty"`
	Category string     `json:"category,omitempty"`
	Filters  Filters    `json:"filters"`
}

// Conversation builds a conversational intent.
func Conversation(message string) Intent {
	return Intent{Kind: KindConversation, Message: message}
}

// ProductSearch builds a product search intent.
func ProductSearch(category string, filters Filters) Intent {
	return Intent{Kind: KindProductSearch, Category: category, Filters: filters}
}

// IsProductSearch reports whether the intent asks for products.
func (i Intent) IsProductSearch() bool {
	return i.Kind == KindProductSearch
}

// Query is the last product search resolved for a session.
type Query struct {
	Category string    `json:"category"`
	Filters  Filters   `json:"filters"`
	At       time.Time `json:"at"`
}
