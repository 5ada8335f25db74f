// Package session provides the ephemeral per-chat state: the current
// state-machine position, navigation data and the rolling LLM history.
// Sessions live in memory only and reset on process restart.
package session

import (
	"sync"

	"github.com/pavlik242002-collab/Pavlik2.3/internal/models"
)

// HistoryLimit bounds the rolling history to the head system message
// plus this many most recent turns.
const HistoryLimit = 19

// RootPath is the sentinel document-tree root; navigation never ascends
// past it.
const RootPath = "/"

// Session is the mutable per-chat state. All access goes through Store,
// which serializes per-chat handling, so no internal locking is needed.
type Session struct {
	ChatID int64
	State  models.ChatState

	// Registration scratch: district chosen while selecting a region.
	District string

	// Document navigation position and the last rendered file listing,
	// buffered so callback tokens like "download:2" can be resolved.
	Dir   string
	Files []models.DiskItem

	// Open report being answered.
	ReportID string

	// Rolling LLM history. History[0] is the pinned system message once
	// one has been set.
	History []models.ChatMessage
}

// Reset returns the session to the canonical main-menu state. The LLM
// history survives; navigation and flow scratch do not.
func (s *Session) Reset() {
	s.State = models.StateIdle
	s.District = ""
	s.Dir = ""
	s.Files = nil
	s.ReportID = ""
}

// SetSystem pins the system message at the head of the history.
func (s *Session) SetSystem(content string) {
	msg := models.ChatMessage{Role: models.RoleSystem, Content: content}
	if len(s.History) > 0 && s.History[0].Role == models.RoleSystem {
		s.History[0] = msg
		return
	}
	s.History = append([]models.ChatMessage{msg}, s.History...)
}

// Append adds a turn and truncates to the head system message plus the
// last HistoryLimit turns, oldest dropped first.
func (s *Session) Append(role, content string) {
	s.History = append(s.History, models.ChatMessage{Role: role, Content: content})
	s.truncate()
}

func (s *Session) truncate() {
	head := 0
	if len(s.History) > 0 && s.History[0].Role == models.RoleSystem {
		head = 1
	}
	if len(s.History)-head <= HistoryLimit {
		return
	}
	tail := s.History[len(s.History)-HistoryLimit:]
	kept := make([]models.ChatMessage, 0, head+HistoryLimit)
	kept = append(kept, s.History[:head]...)
	kept = append(kept, tail...)
	s.History = kept
}

// Store owns every chat's session, replacing the ambient globals the
// original bot shared across requests.
type Store struct {
	mu       sync.RWMutex
	sessions map[int64]*Session
}

// NewStore creates an empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[int64]*Session)}
}

// Get returns the chat's session, creating an idle one on first contact.
func (st *Store) Get(chatID int64) *Session {
	st.mu.RLock()
	s, ok := st.sessions[chatID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok = st.sessions[chatID]; ok {
		return s
	}
	s = &Session{ChatID: chatID, State: models.StateIdle, Dir: RootPath}
	st.sessions[chatID] = s
	return s
}

// Len reports how many chats have sessions.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
