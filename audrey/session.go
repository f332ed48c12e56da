package audrey

import (
	"log/slog"
	"sync"
)

// TurnRole identifies the author of a conversation turn.
type TurnRole string

const (
	TurnRoleUser      TurnRole = "user"
	TurnRoleAssistant TurnRole = "assistant"
	TurnRoleSystem    TurnRole = "system"
)

// Turn is one role-tagged message in a conversation. Immutable once
// appended to a session.
type Turn struct {
	Role    TurnRole `json:"role"`
	Content string   `json:"content"`
}

func (t Turn) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("role", string(t.Role)),
		slog.String("content", truncate(t.Content, 80)),
	)
}

// Session binds one user to one channel with a bounded history of
// recent turns. A session conceptually exists only while Active; a
// deactivated record is retained for inspection but treated as gone.
type Session struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Active    bool   `json:"active"`
	History   []Turn `json:"history"`
}

// ExchangedMessages is the number of user/assistant exchanges
// currently retained.
func (s Session) ExchangedMessages() int {
	return len(s.History) / 2
}

// SessionStore owns every Session for the process lifetime, keyed by
// user ID, with at most one active session per user. State is held in
// memory only: everything is lost on restart, deliberately.
//
// The zero value is not usable; use NewSessionStore.
type SessionStore struct {
	mu         sync.RWMutex
	sessions   map[string]*Session
	historyCap int

	// userLocks serializes the append/generate/append sequence per
	// user, so overlapping gateway events for the same user can't
	// interleave history writes. Cross-user traffic stays parallel.
	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex

	logger *slog.Logger
}

// NewSessionStore creates a SessionStore retaining at most historyCap
// turns per session.
func NewSessionStore(historyCap int, logger *slog.Logger) *SessionStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionStore{
		sessions:   map[string]*Session{},
		userLocks:  map[string]*sync.Mutex{},
		historyCap: historyCap,
		logger:     logger.With(loggerNameKey, "sessions"),
	}
}

// Start creates a session for userID bound to channelID, seeded with
// firstMessage as the opening user turn. Any existing session for the
// user is replaced outright, active or not - starting over always
// resets state, so a session can't be orphaned in a stale channel.
func (s *SessionStore) Start(userID string, channelID string, firstMessage string) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &Session{
		UserID:    userID,
		ChannelID: channelID,
		Active:    true,
		History:   []Turn{{Role: TurnRoleUser, Content: firstMessage}},
	}
	if prev, ok := s.sessions[userID]; ok {
		s.logger.Info(
			"replacing existing session",
			columnUserID, userID,
			"previous_channel_id", prev.ChannelID,
			"previous_active", prev.Active,
			"channel_id", channelID,
		)
	}
	s.sessions[userID] = session
	return *session
}

// Get returns a snapshot of the user's session, if any. Does not
// mutate anything.
func (s *SessionStore) Get(userID string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	return s.snapshot(session), true
}

// IsActiveInChannel reports whether the user has an active session
// bound to exactly this channel.
func (s *SessionStore) IsActiveInChannel(userID string, channelID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	return ok && session.Active && session.ChannelID == channelID
}

// AppendTurn appends a turn to the user's active session, evicting the
// oldest turns beyond the history cap (order of the rest is kept). If
// the user has no active session this is a silent no-op: callers are
// expected to check IsActiveInChannel first.
func (s *SessionStore) AppendTurn(userID string, turn Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || !session.Active {
		return
	}
	session.History = append(session.History, turn)
	if excess := len(session.History) - s.historyCap; excess > 0 {
		session.History = session.History[excess:]
	}
}

// History returns a copy of the full stored history of the user's
// active session, oldest first. Returns nil when no active session
// exists.
func (s *SessionStore) History(userID string) []Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[userID]
	if !ok || !session.Active {
		return nil
	}
	out := make([]Turn, len(session.History))
	copy(out, session.History)
	return out
}

// Stop deactivates the user's session. Returns whether a deactivation
// actually happened, so callers can give a distinct "nothing to stop"
// response.
func (s *SessionStore) Stop(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[userID]
	if !ok || !session.Active {
		return false
	}
	session.Active = false
	s.logger.Info(
		"stopped session",
		columnUserID, userID,
		"channel_id", session.ChannelID,
		"turns", len(session.History),
	)
	return true
}

// UserLock returns the mutex serializing dialogue handling for one
// user. Locks for distinct users are independent.
func (s *SessionStore) UserLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

func (*SessionStore) snapshot(session *Session) Session {
	out := *session
	out.History = make([]Turn, len(session.History))
	copy(out.History, session.History)
	return out
}
