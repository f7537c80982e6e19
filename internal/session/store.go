package session

import (
	"log/slog"
	"sync"
	"time"
)

// Store is the single owner of the session map. It exposes atomic
// get-or-create and sweep operations; sessions handle their own
// fine-grained mutation.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	logger   *slog.Logger
}

// NewStore creates an empty in-memory session store.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		sessions: make(map[string]*Session),
		logger:   logger,
	}
}

// GetOrCreate returns the session bound to id, creating it atomically
// when absent. An empty id always produces a new session with a freshly
// generated identifier. Concurrent callers for one id observe a single
// shared session.
func (st *Store) GetOrCreate(id string) *Session {
	st.mu.Lock()
	defer st.mu.Unlock()

	if id == "" {
		sess := newSession(generateID())
		st.sessions[sess.ID] = sess
		return sess
	}

	if sess, ok := st.sessions[id]; ok {
		return sess
	}
	sess := newSession(id)
	st.sessions[id] = sess
	return sess
}

// Get returns the session bound to id, if any.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	sess, ok := st.sessions[id]
	return sess, ok
}

// Len reports the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// Sweep removes sessions idle longer than maxIdle and returns how many
// were evicted. maxIdle <= 0 disables eviction.
func (st *Store) Sweep(maxIdle time.Duration) int {
	if maxIdle <= 0 {
		return 0
	}

	now := time.Now()

	st.mu.Lock()
	var stale []string
	for id, sess := range st.sessions {
		if sess.IdleSince(now) > maxIdle {
			stale = append(stale, id)
		}
	}
	for _, id := range stale {
		delete(st.sessions, id)
	}
	remaining := len(st.sessions)
	st.mu.Unlock()

	if len(stale) > 0 {
		st.logger.Info("evicted idle sessions", "count", len(stale), "remaining", remaining)
	}
	return len(stale)
}
