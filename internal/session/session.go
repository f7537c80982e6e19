// Package session manages per-conversation state for placechat.
package session

import (
	"strings"
	"sync"
	"time"
)

// maxHistory bounds a session's stored history. Appends happen in
// (user, assistant) pairs and trimming removes whole pairs, so the
// history always holds complete turns.
const maxHistory = 40

// StoredMessage is one retained conversation message.
type StoredMessage struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// Session holds one conversation's state. All mutating access goes
// through methods; the struct never exposes its fields for ad hoc
// mutation.
type Session struct {
	ID string

	mu          sync.Mutex
	history     []StoredMessage
	lastArea    string
	lastKeyword string
	lastActive  time.Time
}

func newSession(id string) *Session {
	return &Session{ID: id, lastActive: time.Now()}
}

// AppendTurn records a completed (user, assistant) exchange, evicting
// the oldest pair once the history cap is exceeded.
func (s *Session) AppendTurn(userText, assistantText string) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history,
		StoredMessage{Role: "user", Content: strings.TrimSpace(userText), CreatedAt: now},
		StoredMessage{Role: "assistant", Content: strings.TrimSpace(assistantText), CreatedAt: now},
	)
	for len(s.history) > maxHistory {
		s.history = s.history[2:]
	}
	s.lastActive = now
}

// History returns a copy of the full stored history, oldest first.
func (s *Session) History() []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]StoredMessage(nil), s.history...)
}

// RecentHistory returns up to n of the most recent messages, replayed
// oldest-first.
func (s *Session) RecentHistory(n int) []StoredMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n <= 0 || len(s.history) == 0 {
		return nil
	}
	start := len(s.history) - n
	if start < 0 {
		start = 0
	}
	return append([]StoredMessage(nil), s.history[start:]...)
}

// SetLastSearch records the most recent search context.
func (s *Session) SetLastSearch(area, keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastArea = area
	s.lastKeyword = keyword
	s.lastActive = time.Now()
}

// LastSearch returns the most recent search context.
func (s *Session) LastSearch() (area, keyword string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastArea, s.lastKeyword
}

// MemorySummary derives a human-readable digest of the session's state.
// It is recomputed on every read and never persisted.
func (s *Session) MemorySummary() string {
	area, keyword := s.LastSearch()
	return strings.Join([]string{
		"Trích nhớ (session):",
		"- Khu vực gần đây: " + orNone(area),
		"- Từ khoá gần đây: " + orNone(keyword),
	}, "\n")
}

// IdleSince reports how long ago the session was last touched.
func (s *Session) IdleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActive)
}

func orNone(v string) string {
	if strings.TrimSpace(v) == "" {
		return "chưa có"
	}
	return v
}
