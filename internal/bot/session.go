package bot

import (
	"sync"
	"time"
)

// State is the multi-step input an admin is in the middle of.
type State int

const (
	Idle State = iota
	AwaitingAccountList
	AwaitingFileUploads
	AwaitingBroadcastText
	AwaitingNewAdminID
	AwaitingGiveawayPool
)

func (s State) String() string {
	switch s {
	case AwaitingAccountList:
		return "awaiting_account_list"
	case AwaitingFileUploads:
		return "awaiting_file_uploads"
	case AwaitingBroadcastText:
		return "awaiting_broadcast_text"
	case AwaitingNewAdminID:
		return "awaiting_new_admin_id"
	case AwaitingGiveawayPool:
		return "awaiting_giveaway_pool"
	default:
		return "idle"
	}
}

// Session is one user's pending input.
type Session struct {
	State State
	// Prefix is the code prefix for account lists and file uploads.
	Prefix string
	// Files are reward files already stored during an upload session.
	Files []string
	// GiveawayID is the giveaway waiting for its pool.
	GiveawayID string
	touched    time.Time
}

// SessionStore keeps at most one session per user. Sessions idle for longer
// than the timeout are dropped, and so are sessions replaced by a new one.
// Every dropped session is handed to onDrop outside the lock; sessions that
// finish normally through End are not.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	timeout  time.Duration
	now      func() time.Time
	onDrop   func(userID int64, s Session)
}

func NewSessionStore(timeout time.Duration, onDrop func(userID int64, s Session)) *SessionStore {
	if onDrop == nil {
		onDrop = func(int64, Session) {}
	}
	return &SessionStore{
		sessions: make(map[int64]*Session),
		timeout:  timeout,
		now:      time.Now,
		onDrop:   onDrop,
	}
}

// Start begins a session for userID, replacing any existing one.
func (s *SessionStore) Start(userID int64, sess Session) {
	sess.touched = s.now()

	s.mu.Lock()
	old, replaced := s.sessions[userID]
	s.sessions[userID] = &sess
	s.mu.Unlock()

	if replaced {
		s.onDrop(userID, *old)
	}
}

// Get returns a copy of the live session for userID.
func (s *SessionStore) Get(userID int64) (Session, bool) {
	s.mu.Lock()
	sess, ok := s.sessions[userID]
	if !ok {
		s.mu.Unlock()
		return Session{}, false
	}
	if s.expired(sess) {
		delete(s.sessions, userID)
		s.mu.Unlock()
		s.onDrop(userID, *sess)
		return Session{}, false
	}
	out := *sess
	s.mu.Unlock()
	return out, true
}

// Touch applies fn to the live session and refreshes its idle timer.
func (s *SessionStore) Touch(userID int64, fn func(*Session)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok || s.expired(sess) {
		return false
	}
	fn(sess)
	sess.touched = s.now()
	return true
}

// End removes the session for userID without calling onDrop.
func (s *SessionStore) End(userID int64) (Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return Session{}, false
	}
	delete(s.sessions, userID)
	return *sess, true
}

// Sweep drops every expired session and returns how many were dropped.
func (s *SessionStore) Sweep() int {
	type dropped struct {
		userID int64
		sess   Session
	}

	s.mu.Lock()
	var out []dropped
	for id, sess := range s.sessions {
		if s.expired(sess) {
			out = append(out, dropped{userID: id, sess: *sess})
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, d := range out {
		s.onDrop(d.userID, d.sess)
	}
	return len(out)
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(sess *Session) bool {
	return s.timeout > 0 && s.now().Sub(sess.touched) > s.timeout
}
