// Package assistant runs one chat message through intent resolution, product
// retrieval and reply composition, keeping per-session context.
package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/ashureev/shopassist/internal/catalog"
	"github.com/ashureev/shopassist/internal/convlog"
	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/reply"
	"github.com/ashureev/shopassist/internal/session"
)

var resetPattern = regexp.MustCompile(`(?i)\b(clear|reset)\b`)

// Resolver classifies a message and names the resolver that answered.
type Resolver interface {
	ResolveWithSource(ctx context.Context, message string, sess domain.Session) (domain.Intent, string)
}

// Catalog lists and searches products.
type Catalog interface {
	catalog.Fetcher
	catalog.Lister
}

// ChatRequest is one incoming chat message.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId,omitempty"`
}

// ChatResponse is the reply to a chat message. Products is never nil.
type ChatResponse struct {
	Reply     string           `json:"reply"`
	Products  []domain.Product `json:"products"`
	SessionID string           `json:"sessionId"`
}

// Service is the chat pipeline.
type Service struct {
	sessions *session.Store
	resolver Resolver
	catalog  Catalog
	convlog  convlog.Logger
	logger   *slog.Logger
}

// NewService wires the pipeline. A nil conversation logger disables logging.
func NewService(sessions *session.Store, resolver Resolver, products Catalog, conv convlog.Logger, logger *slog.Logger) *Service {
	if conv == nil {
		conv = convlog.Noop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		sessions: sessions,
		resolver: resolver,
		catalog:  products,
		convlog:  conv,
		logger:   logger,
	}
}

// IsResetCommand reports whether message asks to clear the session context.
func IsResetCommand(message string) bool {
	return resetPattern.MatchString(message)
}

// Chat handles one message for req.SessionID.
//
// A blank message gets a fixed prompt and leaves the session untouched. A
// reset command clears the carried-over query. Otherwise the message is
// resolved against a snapshot of the session; a product search fetches
// candidates, filters them locally and records the query even when retrieval
// fails, so the next refinement still has context.
func (s *Service) Chat(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	key := req.SessionID
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResponse{Reply: reply.EmptyMessagePrompt, Products: []domain.Product{}, SessionID: key}, nil
	}
	if key == "" {
		return ChatResponse{}, fmt.Errorf("session id is required")
	}

	s.logEvent(key, "inbound", "chat_user_message", message, nil)

	if IsResetCommand(message) {
		s.sessions.Update(key, func(sess *domain.Session) {
			now := s.sessions.Now()
			sess.ClearContext()
			sess.RecordTurn(domain.RoleUser, message, now)
			sess.RecordTurn(domain.RoleAssistant, reply.ResetAck, now)
		})
		s.logger.Info("Session context cleared", "session_id", key)
		s.logEvent(key, "outbound", "chat_reset", reply.ResetAck, nil)
		return ChatResponse{Reply: reply.ResetAck, Products: []domain.Product{}, SessionID: key}, nil
	}

	snap, release := s.sessions.Acquire(key)
	defer release()

	in, source := s.resolver.ResolveWithSource(ctx, message, snap)

	if !in.IsProductSearch() {
		s.sessions.Update(key, func(sess *domain.Session) {
			now := s.sessions.Now()
			sess.RecordTurn(domain.RoleUser, message, now)
			sess.RecordTurn(domain.RoleAssistant, in.Message, now)
		})
		s.logEvent(key, "outbound", "chat_assistant_reply", in.Message, map[string]any{"resolver": source, "intent": in.Kind})
		return ChatResponse{Reply: in.Message, Products: []domain.Product{}, SessionID: key}, nil
	}

	products, text := s.search(ctx, key, message, in)

	s.sessions.Update(key, func(sess *domain.Session) {
		now := s.sessions.Now()
		sess.LastQuery = &domain.Query{Category: in.Category, Filters: in.Filters.Clone(), At: now}
		sess.LastResults = append([]domain.Product(nil), products...)
		sess.RecordTurn(domain.RoleUser, message, now)
		sess.RecordTurn(domain.RoleAssistant, text, now)
	})

	s.logger.Info("Product search resolved",
		"session_id", key,
		"resolver", source,
		"category", in.Category,
		"results", len(products),
	)
	s.logEvent(key, "outbound", "chat_assistant_reply", text, map[string]any{
		"resolver": source,
		"intent":   in.Kind,
		"category": in.Category,
		"filters":  in.Filters,
		"results":  len(products),
	})
	return ChatResponse{Reply: text, Products: products, SessionID: key}, nil
}

func (s *Service) search(ctx context.Context, key, message string, in domain.Intent) ([]domain.Product, string) {
	candidates, err := s.catalog.FetchCandidates(ctx, in.Category)
	if err != nil {
		detail := catalog.DefaultUnavailableMessage
		if ue, ok := catalog.AsUnavailable(err); ok && ue.Message != "" {
			detail = ue.Message
		}
		s.logger.Warn("Product retrieval failed",
			"session_id", key,
			"category", in.Category,
			"error", err,
		)
		return []domain.Product{}, reply.RetrievalFailure(detail)
	}

	products := catalog.ApplyFilters(candidates, in.Filters)
	return products, reply.Compose(message, in.Category, in.Filters, len(products))
}

// Products returns the full catalog listing.
func (s *Service) Products(ctx context.Context) ([]domain.Product, error) {
	products, err := s.catalog.Products(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// Session returns a snapshot of the session for key.
func (s *Service) Session(key string) (domain.Session, bool) {
	return s.sessions.Get(key)
}

func (s *Service) logEvent(key, direction, eventType, content string, meta map[string]any) {
	s.convlog.Log(convlog.Event{
		SessionID:  key,
		Channel:    "chat",
		Direction:  direction,
		EventType:  eventType,
		ContentRaw: content,
		Meta:       meta,
	})
}
