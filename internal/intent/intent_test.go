package intent

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/lexicon"
)

func newRules() *Rules {
	return NewRules(lexicon.NewExtractor(lexicon.DefaultVocabulary()))
}

func sessionWith(category string, f domain.Filters) domain.Session {
	return domain.Session{
		ID:        "tab",
		LastQuery: &domain.Query{Category: category, Filters: f, At: time.Now()},
	}
}

func TestRulesClassify(t *testing.T) {
	t.Parallel()

	rules := newRules()
	tests := []struct {
		name    string
		message string
		sess    domain.Session
		want    domain.Intent
	}{
		{
			name:    "category with upper bound",
			message: "Show me laptops under 50000",
			want:    domain.ProductSearch("laptop", domain.Filters{PriceMax: domain.IntPtr(50000)}),
		},
		{
			name:    "color and category",
			message: "Show me black phones",
			want:    domain.ProductSearch("phone", domain.Filters{Color: domain.StringPtr("Black")}),
		},
		{
			name:    "price refinement keeps category",
			message: "under 30k",
			sess:    sessionWith("laptop", domain.Filters{}),
			want:    domain.ProductSearch("laptop", domain.Filters{PriceMax: domain.IntPtr(30000)}),
		},
		{
			name:    "brand refinement merges prior filters",
			message: "samsung",
			sess:    sessionWith("phone", domain.Filters{PriceMin: domain.IntPtr(20000)}),
			want: domain.ProductSearch("phone", domain.Filters{
				PriceMin: domain.IntPtr(20000),
				Brand:    domain.StringPtr("Samsung"),
			}),
		},
		{
			name:    "plural brand refinement",
			message: "samsungs under 20k",
			sess:    sessionWith("phone", domain.Filters{}),
			want: domain.ProductSearch("phone", domain.Filters{
				PriceMax: domain.IntPtr(20000),
				Brand:    domain.StringPtr("Samsung"),
			}),
		},
		{
			name:    "new bound overwrites old bound",
			message: "under 40000",
			sess:    sessionWith("laptop", domain.Filters{PriceMax: domain.IntPtr(50000), Color: domain.StringPtr("Black")}),
			want: domain.ProductSearch("laptop", domain.Filters{
				PriceMax: domain.IntPtr(40000),
				Color:    domain.StringPtr("Black"),
			}),
		},
		{
			name:    "refinement without prior query detects fresh",
			message: "under 30k",
			want:    domain.Conversation(ConversationPrompt),
		},
		{
			name:    "greeting",
			message: "hello, how are you?",
			want:    domain.Conversation(ConversationPrompt),
		},
		{
			name:    "generic noun",
			message: "show me some umbrellas",
			want:    domain.ProductSearch("umbrellas", domain.Filters{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := rules.Classify(tt.message, tt.sess)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Classify(%q) = %+v, want %+v", tt.message, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeIsIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []domain.Filters{
		{},
		{PriceMax: domain.IntPtr(-5), PriceMin: domain.IntPtr(100)},
		{Brand: domain.StringPtr("  sAMSUNG "), Color: domain.StringPtr("")},
		{Color: domain.StringPtr("black"), PriceMax: domain.IntPtr(0)},
	}
	for _, in := range inputs {
		once := Canonicalize(in)
		twice := Canonicalize(once)
		if !reflect.DeepEqual(once, twice) {
			t.Errorf("Canonicalize not idempotent for %+v: %+v vs %+v", in, once, twice)
		}
	}

	got := Canonicalize(inputs[2])
	if got.Brand == nil || *got.Brand != "Samsung" {
		t.Errorf("expected brand Samsung, got %v", got.Brand)
	}
	if got.Color != nil {
		t.Errorf("expected empty color to be dropped, got %q", *got.Color)
	}
}

func TestFromRawCoercesValues(t *testing.T) {
	t.Parallel()

	got := FromRaw(map[string]any{
		"price_max": "50,000",
		"price_min": 1999.6,
		"brand":     "apple",
		"color":     42,
	})
	want := domain.Filters{
		PriceMax: domain.IntPtr(50000),
		PriceMin: domain.IntPtr(2000),
		Brand:    domain.StringPtr("Apple"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromRaw = %+v, want %+v", got, want)
	}

	if f := FromRaw(map[string]any{"price_max": -1, "price_min": "cheap"}); !f.IsEmpty() {
		t.Errorf("expected invalid prices to be dropped, got %+v", f)
	}
}

func TestMergeDoesNotAliasPrevious(t *testing.T) {
	t.Parallel()

	prev := domain.Filters{PriceMax: domain.IntPtr(50000)}
	merged := Merge(prev, domain.Filters{Color: domain.StringPtr("Red")})
	*merged.PriceMax = 1

	if *prev.PriceMax != 50000 {
		t.Errorf("merge aliased previous filters: %d", *prev.PriceMax)
	}
}

func TestParseReply(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    domain.Intent
		wantErr bool
	}{
		{
			name: "plain product search",
			raw:  `{"type":"product_search","category":"Laptop","filters":{"price_max":50000}}`,
			want: domain.ProductSearch("laptop", domain.Filters{PriceMax: domain.IntPtr(50000)}),
		},
		{
			name: "fenced conversation",
			raw:  "```json\n{\"type\":\"conversation\",\"message\":\"Hi there!\"}\n```",
			want: domain.Conversation("Hi there!"),
		},
		{
			name: "surrounding prose",
			raw:  `Sure! {"type":"product_search","category":"phone","filters":{"brand":"samsung"}} Hope that helps.`,
			want: domain.ProductSearch("phone", domain.Filters{Brand: domain.StringPtr("Samsung")}),
		},
		{name: "empty", raw: "  ", wantErr: true},
		{name: "not json", raw: "I think you want a laptop", wantErr: true},
		{name: "unknown type", raw: `{"type":"order_status"}`, wantErr: true},
		{name: "search without category", raw: `{"type":"product_search","filters":{}}`, wantErr: true},
		{name: "conversation without message", raw: `{"type":"conversation"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReply(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedReply) {
					t.Fatalf("expected ErrMalformedReply, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseReply = %+v, want %+v", got, tt.want)
			}
		})
	}
}

type fakeCompleter struct {
	reply      string
	err        error
	gotSystem  string
	gotPrompt  string
	sawTimeout bool
}

func (f *fakeCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	f.gotSystem = system
	f.gotPrompt = prompt
	_, f.sawTimeout = ctx.Deadline()
	return f.reply, f.err
}

func TestModelRefinementAugmentsPromptAndMerges(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: `{"type":"product_search","category":"laptop","filters":{"price_max":30000}}`}
	m := NewModel(completer, lexicon.NewExtractor(lexicon.DefaultVocabulary()), time.Second)
	sess := sessionWith("laptop", domain.Filters{Brand: domain.StringPtr("Dell")})

	got, err := m.Resolve(context.Background(), "under 30k", sess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completer.gotPrompt != "Previous search was for laptop. Now user says: under 30k" {
		t.Errorf("unexpected prompt %q", completer.gotPrompt)
	}
	if completer.gotSystem != SystemInstruction {
		t.Error("expected system instruction to be sent")
	}
	if !completer.sawTimeout {
		t.Error("expected completion context to carry a deadline")
	}
	want := domain.ProductSearch("laptop", domain.Filters{
		PriceMax: domain.IntPtr(30000),
		Brand:    domain.StringPtr("Dell"),
	})
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Resolve = %+v, want %+v", got, want)
	}
}

func TestModelFreshQueryIsNotAugmented(t *testing.T) {
	t.Parallel()

	completer := &fakeCompleter{reply: `{"type":"conversation","message":"Hello!"}`}
	m := NewModel(completer, lexicon.NewExtractor(lexicon.DefaultVocabulary()), 0)

	got, err := m.Resolve(context.Background(), "hi", sessionWith("laptop", domain.Filters{}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if completer.gotPrompt != "hi" {
		t.Errorf("unexpected prompt %q", completer.gotPrompt)
	}
	if got != domain.Conversation("Hello!") {
		t.Errorf("unexpected intent %+v", got)
	}
}

func TestModelWithoutCompleterFails(t *testing.T) {
	t.Parallel()

	m := NewModel(nil, lexicon.NewExtractor(lexicon.DefaultVocabulary()), 0)
	if _, err := m.Resolve(context.Background(), "laptops", domain.Session{}); !errors.Is(err, ErrNoCompleter) {
		t.Errorf("expected ErrNoCompleter, got %v", err)
	}
}

func TestChainFallsBackToRules(t *testing.T) {
	t.Parallel()

	rules := newRules()
	tests := []struct {
		name       string
		completer  *fakeCompleter
		wantSource string
	}{
		{name: "transport error", completer: &fakeCompleter{err: errors.New("connection refused")}, wantSource: "rules"},
		{name: "malformed reply", completer: &fakeCompleter{reply: "laptops, probably"}, wantSource: "rules"},
		{
			name:       "model answers",
			completer:  &fakeCompleter{reply: `{"type":"product_search","category":"laptop","filters":{"price_max":50000}}`},
			wantSource: "model",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			chain := NewChain(nil, rules, NewModel(tt.completer, lexicon.NewExtractor(lexicon.DefaultVocabulary()), time.Second))
			got, source := chain.ResolveWithSource(context.Background(), "Show me laptops under 50000", domain.Session{ID: "tab"})
			if source != tt.wantSource {
				t.Errorf("expected source %q, got %q", tt.wantSource, source)
			}
			want := domain.ProductSearch("laptop", domain.Filters{PriceMax: domain.IntPtr(50000)})
			if !reflect.DeepEqual(got, want) {
				t.Errorf("ResolveWithSource = %+v, want %+v", got, want)
			}
		})
	}
}

func TestChainWithoutPrimaryUsesRules(t *testing.T) {
	t.Parallel()

	chain := NewChain(nil, newRules(), nil)
	got, err := chain.Resolve(context.Background(), "hello", domain.Session{})
	if err != nil {
		t.Fatalf("chain returned error: %v", err)
	}
	if got.Kind != domain.KindConversation {
		t.Errorf("expected conversation, got %+v", got)
	}
}
