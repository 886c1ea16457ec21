package llm

import (
	"context"
	"errors"
	"testing"

	mdl "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

type fakeChatModel struct {
	got   []*schema.Message
	reply *schema.Message
	err   error
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...mdl.Option) (*schema.Message, error) {
	f.got = input
	return f.reply, f.err
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...mdl.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestNewArkRequiresCredentials(t *testing.T) {
	t.Parallel()

	tests := []Config{
		{},
		{APIKey: "key"},
		{Model: "model"},
		{APIKey: "  ", Model: "model"},
	}
	for _, cfg := range tests {
		if _, err := NewArk(context.Background(), cfg); !errors.Is(err, ErrMissingCredentials) {
			t.Errorf("NewArk(%+v) error = %v, want ErrMissingCredentials", cfg, err)
		}
	}
}

func TestCompleteSendsSystemAndUserMessages(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{reply: schema.AssistantMessage(`{"type":"conversation","message":"hi"}`, nil)}
	c := NewChatCompleter(fake)

	out, err := c.Complete(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != `{"type":"conversation","message":"hi"}` {
		t.Errorf("unexpected output %q", out)
	}
	if len(fake.got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fake.got))
	}
	if fake.got[0].Role != schema.System || fake.got[0].Content != "system text" {
		t.Errorf("unexpected system message %+v", fake.got[0])
	}
	if fake.got[1].Role != schema.User || fake.got[1].Content != "user text" {
		t.Errorf("unexpected user message %+v", fake.got[1])
	}
}

func TestCompleteWrapsModelErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("rate limited")
	c := NewChatCompleter(&fakeChatModel{err: boom})
	if _, err := c.Complete(context.Background(), "s", "u"); !errors.Is(err, boom) {
		t.Errorf("expected wrapped model error, got %v", err)
	}

	var nilCompleter *ChatCompleter
	if _, err := nilCompleter.Complete(context.Background(), "s", "u"); !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("expected ErrMissingCredentials, got %v", err)
	}
}
