// Package session holds per-conversation state. Sessions live in memory
// only; a finished or idle session is reduced to its report and dropped.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/baitline/baitline/internal/intel"
	"github.com/baitline/baitline/internal/persona"
	"github.com/baitline/baitline/internal/profile"
	"github.com/baitline/baitline/internal/stage"
)

// Message is one logged turn of a conversation.
type Message struct {
	ID   string    `json:"id"`
	Role string    `json:"role"` // "scammer" or "agent"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the full state of one conversation. Callers must hold the
// session lock across a whole message turn; the store only guards its own
// map, not the sessions it hands out.
type Session struct {
	mu sync.Mutex

	ID         string
	CreatedAt  time.Time
	LastActive time.Time

	Messages   []Message
	Detected   bool
	Confidence float64
	Stage      stage.Stage
	Terminated bool

	Intel   *intel.Intelligence
	Profile *profile.Profile
	Tactics *stage.TacticLog

	scamType   persona.ScamType
	personaSet bool
	persona    persona.Persona

	AgentNotes    []string
	FallbackCount int
	TokensUsed    int
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// AddMessage appends a turn and bumps the activity clock.
func (s *Session) AddMessage(role, text string) Message {
	m := Message{
		ID:   uuid.NewString(),
		Role: role,
		Text: text,
		At:   time.Now(),
	}
	s.Messages = append(s.Messages, m)
	s.LastActive = m.At
	return m
}

// SetScamType records the category the first time it is classified.
// Later calls only upgrade an "other" verdict to a specific one.
func (s *Session) SetScamType(st persona.ScamType) {
	if st == "" {
		return
	}
	if s.scamType == "" || (s.scamType == persona.Other && st != persona.Other) {
		s.scamType = st
	}
}

func (s *Session) ScamType() persona.ScamType {
	if s.scamType == "" {
		return persona.Other
	}
	return s.scamType
}

// SetPersonaOnce commits a persona for the session. The first call wins;
// the character never changes mid-conversation.
func (s *Session) SetPersonaOnce(p persona.Persona) {
	if !s.personaSet {
		s.persona = p
		s.personaSet = true
	}
}

func (s *Session) Persona() (persona.Persona, bool) {
	return s.persona, s.personaSet
}

// AddNote keeps at most the last few observations for the report.
func (s *Session) AddNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	s.AgentNotes = append(s.AgentNotes, note)
	if len(s.AgentNotes) > 5 {
		s.AgentNotes = s.AgentNotes[len(s.AgentNotes)-5:]
	}
}

// RecentAgentReplies returns up to n of the latest agent-side texts,
// oldest first.
func (s *Session) RecentAgentReplies(n int) []string {
	var out []string
	for i := len(s.Messages) - 1; i >= 0 && len(out) < n; i-- {
		if s.Messages[i].Role == "agent" {
			out = append(out, s.Messages[i].Text)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// ScammerMessageCount counts inbound turns only.
func (s *Session) ScammerMessageCount() int {
	n := 0
	for _, m := range s.Messages {
		if m.Role == "scammer" {
			n++
		}
	}
	return n
}

// Store is the shared session registry. It guards only the map; session
// internals are the caller's business under the session lock.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for id, creating it on first sight.
func (st *Store) GetOrCreate(id string) (*Session, bool) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if ok {
		return s, false
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[id]; ok {
		return s, false
	}
	now := time.Now()
	s = &Session{
		ID:         id,
		CreatedAt:  now,
		LastActive: now,
		Intel:      intel.NewIntelligence(),
		Profile:    profile.New(),
		Tactics:    stage.NewTacticLog(),
	}
	st.sessions[id] = s
	return s, true
}

func (st *Store) Get(id string) (*Session, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	s, ok := st.sessions[id]
	return s, ok
}

func (st *Store) Delete(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Expired returns sessions idle past ttl. The sweep loop reports and
// deletes them.
func (st *Store) Expired(ttl time.Duration) []*Session {
	cutoff := time.Now().Add(-ttl)

	st.mu.RLock()
	defer st.mu.RUnlock()
	var out []*Session
	for _, s := range st.sessions {
		s.Lock()
		idle := s.LastActive.Before(cutoff)
		s.Unlock()
		if idle {
			out = append(out, s)
		}
	}
	return out
}
