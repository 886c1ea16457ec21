package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"runtime/debug"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/ashureev/shopassist/internal/assistant"
	"github.com/ashureev/shopassist/internal/identity"
	"github.com/ashureev/shopassist/internal/reply"
)

// ChatSocket serves the chat over a WebSocket. Each text frame is a chat
// request and gets exactly one chat response frame back.
type ChatSocket struct {
	svc            ChatService
	limiter        *RateLimiter
	originPatterns []string
}

// NewChatSocket creates the WebSocket chat handler. allowedOrigins are full
// origins such as "http://localhost:3000"; "*" accepts any origin.
func NewChatSocket(svc ChatService, limiter *RateLimiter, allowedOrigins []string) *ChatSocket {
	return &ChatSocket{svc: svc, limiter: limiter, originPatterns: OriginPatterns(allowedOrigins)}
}

// OriginPatterns converts origins into the host patterns websocket.Accept
// matches against.
func OriginPatterns(origins []string) []string {
	patterns := make([]string, 0, len(origins))
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			patterns = append(patterns, o)
			continue
		}
		patterns = append(patterns, u.Host)
	}
	return patterns
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocket) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	ip := identity.IPFromRequest(r)
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", ip)

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "chat ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()

	ctx := r.Context()
	for {
		var req assistant.ChatRequest
		if err := wsjson.Read(ctx, ws, &req); err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Info("WebSocket closed by client", "session_id", sessionID)
			} else if ctx.Err() == nil {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		resp := h.handle(ctx, req, ip)
		if err := wsjson.Write(ctx, ws, resp); err != nil {
			slog.Debug("WebSocket write failed", "error", err, "session_id", sessionID)
			return
		}
	}
}

// handle runs one message. A panic answers that message with the internal
// error reply and keeps the connection open.
func (h *ChatSocket) handle(ctx context.Context, req assistant.ChatRequest, ip string) (resp assistant.ChatResponse) {
	req.SessionID = identity.Resolve(ctx, req.SessionID)
	failed := assistant.ChatResponse{Reply: reply.InternalError, Products: emptyProducts(), SessionID: req.SessionID}

	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("WebSocket chat panic",
				"session_id", req.SessionID,
				"panic", fmt.Sprint(rec),
				"stack", string(debug.Stack()),
			)
			resp = failed
		}
	}()

	if h.limiter != nil && !h.limiter.Allow(ip) {
		slog.Warn("Chat rate limit exceeded", "session_id", req.SessionID, "ip", ip, "channel", "websocket")
		return assistant.ChatResponse{Reply: rateLimitReply, Products: emptyProducts(), SessionID: req.SessionID}
	}

	out, err := h.svc.Chat(ctx, req)
	if err != nil {
		slog.Error("Chat failed", "session_id", req.SessionID, "error", err, "channel", "websocket")
		return failed
	}
	return out
}
