// Package chat maintains multi-turn conversation sessions and orchestrates
// model-backed replies over analysis results.
package chat

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a conversation id is unknown. It is a
// recoverable condition: callers start a new session by omitting the id.
var ErrNotFound = errors.New("conversation not found")

// Role identifies the author of a chat message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one immutable turn in a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionSummary describes a conversation without its message bodies.
type SessionSummary struct {
	ConversationID string     `json:"conversation_id"`
	MessageCount   int        `json:"message_count"`
	CreatedAt      time.Time  `json:"created_at"`
	LastMessageAt  *time.Time `json:"last_message_at,omitempty"`
}

// Store is the injectable conversation store. Histories are append-only
// and strictly ordered by append call; implementations must serialize
// appends per conversation id without blocking operations on other ids.
type Store interface {
	// Create returns a fresh conversation id with an empty history.
	Create() string

	// Get returns the full ordered history, or ErrNotFound.
	Get(id string) ([]Message, error)

	// Append atomically adds one or more messages to the end of the
	// history and returns the updated history. Passing both halves of an
	// exchange in one call keeps the session turn atomic.
	Append(id string, msgs ...Message) ([]Message, error)

	// List returns summaries for all sessions, most recently created
	// first.
	List() []SessionSummary
}

// session is one conversation's state. Each session carries its own lock
// so appends on one id never contend with appends on another.
type session struct {
	mu        sync.Mutex
	createdAt time.Time
	messages  []Message
}

// MemoryStore is an in-process Store keyed by generated UUIDs. The outer
// lock guards only the session map; message mutation happens under the
// per-session lock.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
}

// NewMemoryStore creates an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*session)}
}

// Create returns a fresh conversation id with an empty history.
func (s *MemoryStore) Create() string {
	id := uuid.New().String()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &session{createdAt: time.Now().UTC()}
	return id
}

// Get returns a copy of the session's full ordered history.
func (s *MemoryStore) Get(id string) ([]Message, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Message, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

// Append adds messages to the end of the session's history in call order
// and returns the updated history. All messages land in one critical
// section, so a concurrent Append on the same id can never interleave
// within an exchange.
func (s *MemoryStore) Append(id string, msgs ...Message) ([]Message, error) {
	sess, err := s.lookup(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.messages = append(sess.messages, msgs...)
	out := make([]Message, len(sess.messages))
	copy(out, sess.messages)
	return out, nil
}

// List returns summaries for all sessions, most recently created first.
func (s *MemoryStore) List() []SessionSummary {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	summaries := make([]SessionSummary, 0, len(ids))
	for _, id := range ids {
		sess, err := s.lookup(id)
		if err != nil {
			continue
		}
		sess.mu.Lock()
		sum := SessionSummary{
			ConversationID: id,
			MessageCount:   len(sess.messages),
			CreatedAt:      sess.createdAt,
		}
		if n := len(sess.messages); n > 0 {
			ts := sess.messages[n-1].Timestamp
			sum.LastMessageAt = &ts
		}
		sess.mu.Unlock()
		summaries = append(summaries, sum)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ConversationID < summaries[j].ConversationID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries
}

func (s *MemoryStore) lookup(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}
