// Package api provides HTTP handlers for the shopping assistant API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/ashureev/shopassist/internal/assistant"
	"github.com/ashureev/shopassist/internal/domain"
	"github.com/ashureev/shopassist/internal/identity"
	"github.com/ashureev/shopassist/internal/reply"
)

const (
	// DefaultMaxBodySize bounds chat request bodies.
	DefaultMaxBodySize = 1 << 20

	badRequestReply = "Sorry, I couldn't read that message. Please try again."
	rateLimitReply  = "You're sending messages a little too fast. Please wait a moment and try again."
)

// ChatService is the chat pipeline behind the handlers.
type ChatService interface {
	Chat(ctx context.Context, req assistant.ChatRequest) (assistant.ChatResponse, error)
	Products(ctx context.Context) ([]domain.Product, error)
	Session(key string) (domain.Session, bool)
}

// Handler serves the chat, catalog and session endpoints.
type Handler struct {
	svc         ChatService
	limiter     *RateLimiter
	maxBodySize int64
}

// NewHandler creates a handler. A nil limiter disables rate limiting.
func NewHandler(svc ChatService, limiter *RateLimiter, maxBodySize int64) *Handler {
	if maxBodySize <= 0 {
		maxBodySize = DefaultMaxBodySize
	}
	return &Handler{svc: svc, limiter: limiter, maxBodySize: maxBodySize}
}

// RegisterRoutes registers the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/api/test", h.Test)
	r.Post("/api/chat", h.Chat)
	r.Get("/api/products", h.Products)
	r.Get("/api/session", h.Session)
}

// RegisterSocket mounts the WebSocket chat endpoint.
func RegisterSocket(r chi.Router, socket *ChatSocket) {
	r.Get("/ws/chat", socket.ServeHTTP)
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

func emptyProducts() []domain.Product { return []domain.Product{} }

func chatReply(w http.ResponseWriter, status int, text, sessionID string) {
	JSON(w, status, assistant.ChatResponse{Reply: text, Products: emptyProducts(), SessionID: sessionID})
}

// Test reports that the backend is up.
func (h *Handler) Test(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]string{
		"message":   "Shopping assistant backend is running",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"apiStatus": "Ready",
	})
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Chat handler panic",
				"session_id", sessionID,
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			chatReply(w, http.StatusInternalServerError, reply.InternalError, sessionID)
		}
	}()

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	var req assistant.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		slog.Warn("Invalid chat request body", "session_id", sessionID, "error", err)
		chatReply(w, http.StatusBadRequest, badRequestReply, sessionID)
		return
	}

	req.SessionID = identity.Resolve(r.Context(), req.SessionID)
	sessionID = req.SessionID

	if h.limiter != nil && !h.limiter.Allow(identity.IPFromRequest(r)) {
		slog.Warn("Chat rate limit exceeded", "session_id", sessionID, "ip", identity.IPFromRequest(r))
		chatReply(w, http.StatusTooManyRequests, rateLimitReply, sessionID)
		return
	}

	slog.Info("Chat request",
		"session_id", sessionID,
		"request_id", chiMiddleware.GetReqID(r.Context()),
		"message_length", len(req.Message),
	)

	resp, err := h.svc.Chat(r.Context(), req)
	if err != nil {
		slog.Error("Chat failed", "session_id", sessionID, "error", err)
		chatReply(w, http.StatusInternalServerError, reply.InternalError, sessionID)
		return
	}
	JSON(w, http.StatusOK, resp)
}

// Products handles GET /api/products. Failures yield an empty list.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	products, err := h.svc.Products(r.Context())
	if err != nil {
		slog.Error("Error getting products", "error", err)
		JSON(w, http.StatusOK, emptyProducts())
		return
	}
	JSON(w, http.StatusOK, products)
}

type sessionView struct {
	SessionID   string        `json:"sessionId"`
	LastQuery   *domain.Query `json:"lastQuery"`
	ResultCount int           `json:"resultCount"`
	History     []domain.Turn `json:"history"`
	UpdatedAt   *time.Time    `json:"updatedAt,omitempty"`
}

// Session handles GET /api/session, returning the context kept for the
// caller's session.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	key := identity.SessionIDFromContext(r.Context())
	view := sessionView{SessionID: key, History: []domain.Turn{}}

	if sess, ok := h.svc.Session(key); ok {
		view.LastQuery = sess.LastQuery
		view.ResultCount = len(sess.LastResults)
		if len(sess.History) > 0 {
			view.History = sess.History
		}
		updated := sess.UpdatedAt
		view.UpdatedAt = &updated
	}
	JSON(w, http.StatusOK, view)
}
