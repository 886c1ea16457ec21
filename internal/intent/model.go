package intent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/lexicon"
)

// DefaultModelTimeout bounds a single completion call.
const DefaultModelTimeout = 8 * time.Second

var (
	// ErrNoCompleter is returned when the model resolver has nothing to call.
	ErrNoCompleter = errors.New("no completer configured")
	// ErrMalformedReply is returned when the completion is not a usable intent.
	ErrMalformedReply = errors.New("malformed model reply")
)

var fencePattern = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)```")

// Completer sends a system instruction and a user prompt to a language model
// and returns the raw text of its reply.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

// SystemInstruction tells the model which JSON shapes it may answer with.
const SystemInstruction = `You classify messages sent to an Indian online shopping assistant.
Reply with exactly one JSON object and nothing else.

For chit-chat or questions that are not about finding products:
{"type":"conversation","message":"<short friendly reply>"}

For product requests:
{"type":"product_search","category":"<singular lowercase category>","filters":{"price_max":<int>,"price_min":<int>,"brand":"<brand>","color":"<color>"}}

Prices are whole rupees. "30k" means 30000 and "1 lakh" means 100000. Leave out any filter the user did not ask for.

Examples:
"Show me laptops under 50000" -> {"type":"product_search","category":"laptop","filters":{"price_max":50000}}
"black Samsung phones above 20k" -> {"type":"product_search","category":"phone","filters":{"price_min":20000,"brand":"Samsung","color":"Black"}}
"Previous search was for laptop. Now user says: under 30k" -> {"type":"product_search","category":"laptop","filters":{"price_max":30000}}
"hello, how are you?" -> {"type":"conversation","message":"Hi! I can help you find laptops, phones, headphones and more."}`

// Model resolves intents with a language model. It fails on timeouts,
// transport errors, and replies that do not match one of the two shapes;
// callers are expected to fall back to the rules resolver.
type Model struct {
	completer Completer
	extractor *lexicon.Extractor
	timeout   time.Duration
}

// NewModel creates a model resolver. extractor is used to spot refinements so
// the previous query can be mentioned in the prompt.
func NewModel(completer Completer, extractor *lexicon.Extractor, timeout time.Duration) *Model {
	if timeout <= 0 {
		timeout = DefaultModelTimeout
	}
	return &Model{completer: completer, extractor: extractor, timeout: timeout}
}

// Name implements Resolver.
func (m *Model) Name() string { return "model" }

// Resolve implements Resolver.
func (m *Model) Resolve(ctx context.Context, message string, sess domain.Session) (domain.Intent, error) {
	if m == nil || m.completer == nil {
		return domain.Intent{}, ErrNoCompleter
	}

	refinement := sess.LastQuery != nil && m.extractor.IsRefinement(message)
	prompt := UserPrompt(message, sess.LastQuery, refinement)

	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	raw, err := m.completer.Complete(ctx, SystemInstruction, prompt)
	if err != nil {
		return domain.Intent{}, fmt.Errorf("complete: %w", err)
	}

	intent, err := ParseReply(raw)
	if err != nil {
		return domain.Intent{}, err
	}

	if intent.IsProductSearch() && refinement && intent.Category == sess.LastQuery.Category {
		intent.Filters = Canonicalize(Merge(sess.LastQuery.Filters, intent.Filters))
	}
	return intent, nil
}

// UserPrompt builds the user turn sent to the model. Refinements mention the
// previous category so the model can keep it.
func UserPrompt(message string, last *domain.Query, refinement bool) string {
	message = strings.TrimSpace(message)
	if !refinement || last == nil {
		return message
	}
	return fmt.Sprintf("Previous search was for %s. Now user says: %s", last.Category, message)
}

type modelReply struct {
	Type     string         `json:"type"`
	Message  string         `json:"message"`
	Category string         `json:"category"`
	Filters  map[string]any `json:"filters"`
}

// ParseReply decodes a completion into an intent. Fenced code blocks are
// unwrapped, and text around the outermost braces is ignored.
func ParseReply(raw string) (domain.Intent, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return domain.Intent{}, fmt.Errorf("%w: empty reply", ErrMalformedReply)
	}
	if m := fencePattern.FindStringSubmatch(content); m != nil {
		content = strings.TrimSpace(m[1])
	}

	var reply modelReply
	if err := json.Unmarshal([]byte(content), &reply); err != nil {
		if err := json.Unmarshal([]byte(trimJSONBlock(content)), &reply); err != nil {
			return domain.Intent{}, fmt.Errorf("%w: %v", ErrMalformedReply, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(reply.Type)) {
	case string(domain.KindConversation):
		msg := strings.TrimSpace(reply.Message)
		if msg == "" {
			return domain.Intent{}, fmt.Errorf("%w: conversation without message", ErrMalformedReply)
		}
		return domain.Conversation(msg), nil
	case string(domain.KindProductSearch):
		category := strings.ToLower(strings.TrimSpace(reply.Category))
		if category == "" {
			return domain.Intent{}, fmt.Errorf("%w: product search without category", ErrMalformedReply)
		}
		return domain.ProductSearch(category, FromRaw(reply.Filters)), nil
	default:
		return domain.Intent{}, fmt.Errorf("%w: unknown type %q", ErrMalformedReply, reply.Type)
	}
}

func trimJSONBlock(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end == -1 || start > end {
		return content
	}
	return content[start : end+1]
}
