package catalog

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ashureev/shopassist/internal/domain"
)

// DefaultRetryAfter is how long Layered serves the fallback listing after the
// primary fails before asking the primary again.
const DefaultRetryAfter = 30 * time.Second

// Layered lists from the primary source and falls back to the secondary one
// when the primary fails. After a failure the primary is skipped for the
// retry window, so a dead remote costs one timeout per window instead of one
// per request.
type Layered struct {
	primary    Lister
	fallback   Lister
	retryAfter time.Duration
	now        func() time.Time

	mu        sync.Mutex
	downUntil time.Time
}

// LayeredOption configures a Layered listing.
type LayeredOption func(*Layered)

// WithRetryAfter sets how long the primary is skipped after a failure.
// Zero or less asks the primary on every call.
func WithRetryAfter(d time.Duration) LayeredOption {
	return func(l *Layered) { l.retryAfter = d }
}

// WithLayeredClock replaces the clock used for the retry window.
func WithLayeredClock(now func() time.Time) LayeredOption {
	return func(l *Layered) { l.now = now }
}

// NewLayered creates a layered listing. Either source may be nil.
func NewLayered(primary, fallback Lister, opts ...LayeredOption) *Layered {
	l := &Layered{
		primary:    primary,
		fallback:   fallback,
		retryAfter: DefaultRetryAfter,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Products implements Lister.
func (l *Layered) Products(ctx context.Context) ([]domain.Product, error) {
	if l.primary != nil && l.primaryAvailable() {
		products, err := l.primary.Products(ctx)
		if err == nil {
			return products, nil
		}
		// A caller that gave up says nothing about the primary.
		if ctx.Err() == nil {
			l.markDown()
		}
		slog.Warn("Primary catalog failed, using local listing", "error", err, "retry_after", l.retryAfter)
	}

	if l.fallback == nil {
		return nil, &UnavailableError{Message: DefaultUnavailableMessage}
	}
	products, err := l.fallback.Products(ctx)
	if err != nil {
		return nil, &UnavailableError{Message: DefaultUnavailableMessage, Err: err}
	}
	return products, nil
}

func (l *Layered) primaryAvailable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return !l.now().Before(l.downUntil)
}

func (l *Layered) markDown() {
	if l.retryAfter <= 0 {
		return
	}
	l.mu.Lock()
	l.downUntil = l.now().Add(l.retryAfter)
	l.mu.Unlock()
}
