// Package store owns all session, call, and transaction state. It is the
// single source of truth; no business logic lives here.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/amanpal108/Zenno-Concierge/internal/model"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrCallNotFound     = errors.New("call not found")
	ErrNoVendorSelected = errors.New("no vendor selected")
)

// entry pairs a session with its own lock. All mutations to a session and
// its nested call/transaction serialize on this lock; cross-session
// operations proceed in parallel.
type entry struct {
	mu      sync.Mutex
	session *model.Session
}

// Store is an in-memory session store. State is volatile for the lifetime
// of the process.
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	callIndex map[string]string // callID -> sessionID
}

// New creates an empty store.
func New() *Store {
	return &Store{
		sessions:  make(map[string]*entry),
		callIndex: make(map[string]string),
	}
}

// Create creates a new session in the chatting state.
func (s *Store) Create() *model.Session {
	sess := &model.Session{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Journey:   model.JourneyChatting,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.ID] = &entry{session: sess}
	s.mu.Unlock()

	return cloneSession(sess)
}

func (s *Store) lookup(sessionID string) (*entry, bool) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	return e, ok
}

// Get returns a snapshot copy of a session.
func (s *Store) Get(sessionID string) (*model.Session, error) {
	e, ok := s.lookup(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return cloneSession(e.session), nil
}

// Update runs fn with exclusive access to the session. The session passed
// to fn is the live record; fn must not retain it past the call.
func (s *Store) Update(sessionID string, fn func(*model.Session) error) error {
	e, ok := s.lookup(sessionID)
	if !ok {
		return ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(e.session)
}

// SessionIDForCall resolves a call identifier to its owning session.
func (s *Store) SessionIDForCall(callID string) (string, bool) {
	s.mu.RLock()
	sessionID, ok := s.callIndex[callID]
	s.mu.RUnlock()
	return sessionID, ok
}

// UpdateByCall runs fn with exclusive access to the session owning callID.
func (s *Store) UpdateByCall(callID string, fn func(*model.Session) error) error {
	sessionID, ok := s.SessionIDForCall(callID)
	if !ok {
		return ErrCallNotFound
	}
	return s.Update(sessionID, fn)
}

// AttachCall replaces the session's live call with call and maintains the
// callID index in the same critical section. A vendor must be selected.
// Returns the identifier of the call that was replaced, if any, so the
// caller can cancel its outstanding timers.
func (s *Store) AttachCall(sessionID string, call *model.Call) (replacedCallID string, err error) {
	e, ok := s.lookup(sessionID)
	if !ok {
		return "", ErrSessionNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.SelectedVendor == nil {
		return "", ErrNoVendorSelected
	}

	if prev := e.session.Call; prev != nil {
		replacedCallID = prev.ID
	}
	e.session.Call = call

	s.mu.Lock()
	if replacedCallID != "" {
		delete(s.callIndex, replacedCallID)
	}
	s.callIndex[call.ID] = sessionID
	s.mu.Unlock()

	return replacedCallID, nil
}

// AppendMessage appends a chat message to the session and returns a copy.
func (s *Store) AppendMessage(sessionID string, role model.Role, content string) (*model.Message, error) {
	var out *model.Message
	err := s.Update(sessionID, func(sess *model.Session) error {
		msg := model.Message{
			ID:        uuid.Must(uuid.NewV7()).String(),
			SessionID: sessionID,
			Role:      role,
			Content:   content,
			CreatedAt: time.Now(),
		}
		sess.Messages = append(sess.Messages, msg)
		out = &msg
		return nil
	})
	if err != nil {
		return nil, err
	}
	cp := *out
	return &cp, nil
}

func cloneSession(sess *model.Session) *model.Session {
	cp := *sess

	cp.Messages = append([]model.Message(nil), sess.Messages...)
	cp.Vendors = append([]model.Vendor(nil), sess.Vendors...)

	if sess.SelectedVendor != nil {
		v := *sess.SelectedVendor
		cp.SelectedVendor = &v
	}
	if sess.Call != nil {
		c := *sess.Call
		c.Transcript = append([]string(nil), sess.Call.Transcript...)
		cp.Call = &c
	}
	if sess.Transaction != nil {
		t := *sess.Transaction
		cp.Transaction = &t
	}

	return &cp
}
