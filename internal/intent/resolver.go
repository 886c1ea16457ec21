// Package intent classifies chat messages into conversation or product search
// intents, carrying filters over from the previous query of the session.
package intent

import (
	"context"
	"log/slog"

	"github.com/ashureev/shopassist/internal/domain"
)

// Resolver classifies a message in the context of a session snapshot.
type Resolver interface {
	Name() string
	Resolve(ctx context.Context, message string, sess domain.Session) (domain.Intent, error)
}

// Chain tries each primary resolver in order and falls back to the rules
// resolver when all of them fail. It never returns an error.
type Chain struct {
	primary  []Resolver
	fallback *Rules
	logger   *slog.Logger
}

// NewChain builds a chain ending in fallback. Nil primaries are skipped.
func NewChain(logger *slog.Logger, fallback *Rules, primary ...Resolver) *Chain {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chain{fallback: fallback, logger: logger}
	for _, r := range primary {
		if r != nil {
			c.primary = append(c.primary, r)
		}
	}
	return c
}

// Name implements Resolver.
func (c *Chain) Name() string { return "chain" }

// Resolve implements Resolver.
func (c *Chain) Resolve(ctx context.Context, message string, sess domain.Session) (domain.Intent, error) {
	intent, _ := c.ResolveWithSource(ctx, message, sess)
	return intent, nil
}

// ResolveWithSource resolves message and reports which resolver answered.
func (c *Chain) ResolveWithSource(ctx context.Context, message string, sess domain.Session) (domain.Intent, string) {
	for _, r := range c.primary {
		intent, err := r.Resolve(ctx, message, sess)
		if err == nil {
			return intent, r.Name()
		}
		c.logger.Warn("Intent resolver failed, falling back",
			"resolver", r.Name(),
			"session_id", sess.ID,
			"error", err,
		)
	}
	return c.fallback.Classify(message, sess), c.fallback.Name()
}
