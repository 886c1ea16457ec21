// Package llm adapts hosted chat models to the intent resolver's Completer.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	mdl "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ErrMissingCredentials is returned when no API key or model is configured.
var ErrMissingCredentials = errors.New("llm credentials not configured")

// Config holds the chat model connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
}

// ChatCompleter sends a system and a user message to an eino chat model and
// returns the reply text.
type ChatCompleter struct {
	model mdl.BaseChatModel
}

// NewChatCompleter wraps an existing chat model.
func NewChatCompleter(model mdl.BaseChatModel) *ChatCompleter {
	return &ChatCompleter{model: model}
}

// NewArk connects to an Ark-compatible endpoint.
func NewArk(ctx context.Context, cfg Config) (*ChatCompleter, error) {
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.Model) == "" {
		return nil, ErrMissingCredentials
	}

	cm, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("init ark chat model: %w", err)
	}
	return NewChatCompleter(cm), nil
}

// Complete implements intent.Completer.
func (c *ChatCompleter) Complete(ctx context.Context, system, prompt string) (string, error) {
	if c == nil || c.model == nil {
		return "", ErrMissingCredentials
	}

	msg, err := c.model.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(prompt),
	}, mdl.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	if msg == nil {
		return "", errors.New("empty model response")
	}
	return msg.Content, nil
}
