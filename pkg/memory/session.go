// Package memory implements working memory, session persistence, and
// the message-processor chain of §4.4.
package memory

import (
	"sync"
	"time"

	"github.com/loomrt/loom/pkg/schema"
)

// State is a Session's lifecycle state (§3).
type State string

const (
	StateActive State = "active"
	StatePaused State = "paused"
	StateEnded  State = "ended"
	StateError  State = "error"
)

// validTransitions enforces Active→{Paused↔Active}→Ended/Error.
var validTransitions = map[State]map[State]bool{
	StateActive: {StatePaused: true, StateEnded: true, StateError: true, StateActive: true},
	StatePaused: {StateActive: true, StateEnded: true, StateError: true, StatePaused: true},
	StateEnded:  {},
	StateError:  {},
}

// CanTransition reports whether from→to is a legal state transition.
func CanTransition(from, to State) bool {
	if from == to {
		return true
	}
	allowed, ok := validTransitions[from]
	return ok && allowed[to]
}

// ToolCallRecord is one entry in a session's tool-call history.
type ToolCallRecord struct {
	Call      schema.ToolCall
	Result    schema.ToolResult
	Timestamp time.Time
}

// Session is the persistent conversation container, independent of any
// single turn (§3). Messages are append-only; UpdatedAt is monotonic.
type Session struct {
	SessionID string
	AgentName string
	UserID    string
	State     State
	Messages  []schema.Message
	ToolCalls []ToolCallRecord
	CreatedAt time.Time
	UpdatedAt time.Time

	// lastSeq is the highest operation sequence number applied, used to
	// make append operations idempotent when replayed with the same
	// sequence number (§4.4 "idempotent when given ... the same
	// operation sequence number").
	lastSeq uint64
}

// Store is the abstract session persistence contract (§4.4, §6).
// Implementations must serialize writes per session id.
type Store interface {
	CreateSession(agentName, userID string) (*Session, error)
	GetSession(sessionID string) (*Session, error)
	AppendMessage(sessionID string, msg schema.Message, seq uint64) error
	AppendToolCall(sessionID string, rec ToolCallRecord, seq uint64) error
	UpdateState(sessionID string, state State) error
}

// InMemoryStore is the reference Store implementation: integer
// auto-increment session ids, all state held in a map guarded by a
// mutex. Safe for concurrent use; writes to a given session are
// serialized by the store-wide mu.
type InMemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*Session
	nextID   uint64
}

// NewInMemoryStore creates an empty in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{sessions: make(map[string]*Session)}
}

func (s *InMemoryStore) CreateSession(agentName, userID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	now := time.Now()
	sess := &Session{
		SessionID: sessionIDFor(s.nextID),
		AgentName: agentName,
		UserID:    userID,
		State:     StateActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions[sess.SessionID] = sess
	return cloneSession(sess), nil
}

func sessionIDFor(n uint64) string {
	const prefix = "sess_"
	return prefix + itoa(n)
}

func itoa(n uint64) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

func (s *InMemoryStore) GetSession(sessionID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return nil, errSessionNotFound(sessionID)
	}
	return cloneSession(sess), nil
}

func (s *InMemoryStore) AppendMessage(sessionID string, msg schema.Message, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return errSessionNotFound(sessionID)
	}
	if seq != 0 && seq <= sess.lastSeq {
		return nil // idempotent replay of an already-applied operation
	}
	sess.Messages = append(sess.Messages, msg)
	sess.UpdatedAt = time.Now()
	if seq != 0 {
		sess.lastSeq = seq
	}
	return nil
}

func (s *InMemoryStore) AppendToolCall(sessionID string, rec ToolCallRecord, seq uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return errSessionNotFound(sessionID)
	}
	if seq != 0 && seq <= sess.lastSeq {
		return nil
	}
	sess.ToolCalls = append(sess.ToolCalls, rec)
	sess.UpdatedAt = time.Now()
	if seq != 0 {
		sess.lastSeq = seq
	}
	return nil
}

func (s *InMemoryStore) UpdateState(sessionID string, state State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		return errSessionNotFound(sessionID)
	}
	if !CanTransition(sess.State, state) {
		return errInvalidTransition(sess.State, state)
	}
	sess.State = state
	sess.UpdatedAt = time.Now()
	return nil
}

func cloneSession(s *Session) *Session {
	out := *s
	out.Messages = append([]schema.Message(nil), s.Messages...)
	out.ToolCalls = append([]ToolCallRecord(nil), s.ToolCalls...)
	return &out
}
