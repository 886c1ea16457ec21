package domain

import (
	"time"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single entry in the conversation history.
type Turn struct {
	Role Role      `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session holds the running context of one conversation.
type Session struct {
	ID          string
	LastQuery   *Query
	LastResults []Product
	History     []Turn
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a deep copy safe to read while the store keeps mutating s.
func (s *Session) Clone() Session {
	out := Session{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.LastQuery != nil {
		q := *s.LastQuery
		q.Filters = s.LastQuery.Filters.Clone()
		out.LastQuery = &q
	}
	if len(s.LastResults) > 0 {
		out.LastResults = append([]Product(nil), s.LastResults...)
	}
	if len(s.History) > 0 {
		out.History = append([]Turn(nil), s.History...)
	}
	return out
}

// RecordTurn appends a turn to the history.
func (s *Session) RecordTurn(role Role, text string, at time.Time) {
	s.History = append(s.History, Turn{Role: role, Text: text, At: at})
}

// ClearContext drops the carried-over query and results.
func (s *Session) ClearContext() {
	s.LastQuery = nil
	s.LastResults = nil
}
