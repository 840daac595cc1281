package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store for tests and database-less runs.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	users    map[int64]*User
	sessions map[int64]*ChatSession
	messages map[int64]*Message
	toolLogs map[int64]*ToolLog
	symptoms map[int64]*Symptom
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[int64]*User),
		sessions: make(map[int64]*ChatSession),
		messages: make(map[int64]*Message),
		toolLogs: make(map[int64]*ToolLog),
		symptoms: make(map[int64]*Symptom),
	}
}

// Close is a no-op.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) CreateUser(_ context.Context, email, name, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("store: email is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return nil, ErrDuplicateEmail
		}
	}
	user := &User{
		ID:           s.id(),
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	s.users[user.ID] = user
	out := *user
	return &out, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) UpdateLastLogin(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	now := time.Now()
	user.LastLogin = &now
	return nil
}

func (s *MemoryStore) CreateSession(_ context.Context, userID int64, title string) (*ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[userID]; !ok {
		return nil, ErrNotFound
	}
	now := time.Now()
	session := &ChatSession{ID: s.id(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}
	s.sessions[session.ID] = session
	out := *session
	return &out, nil
}

func (s *MemoryStore) ListSessions(_ context.Context, userID int64) ([]ChatSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var sessions []ChatSession
	for _, sess := range s.sessions {
		if sess.UserID == userID {
			sessions = append(sessions, *sess)
		}
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	return sessions, nil
}

func (s *MemoryStore) AddMessage(_ context.Context, sessionID int64, role, content string) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	msg := &Message{ID: s.id(), SessionID: sessionID, Role: role, Content: content, CreatedAt: time.Now()}
	s.messages[msg.ID] = msg
	session.UpdatedAt = msg.CreatedAt
	out := *msg
	return &out, nil
}

func (s *MemoryStore) ListMessages(_ context.Context, sessionID int64) ([]Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var messages []Message
	for _, msg := range s.messages {
		if msg.SessionID == sessionID {
			messages = append(messages, *msg)
		}
	}
	sort.Slice(messages, func(i, j int) bool { return messages[i].ID < messages[j].ID })
	return messages, nil
}

func (s *MemoryStore) AddToolLog(_ context.Context, messageID int64, name, input, output string) (*ToolLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[messageID]; !ok {
		return nil, ErrNotFound
	}
	entry := &ToolLog{ID: s.id(), MessageID: messageID, ToolName: name, ToolInput: input, ToolOutput: output, CreatedAt: time.Now()}
	s.toolLogs[entry.ID] = entry
	out := *entry
	return &out, nil
}

func (s *MemoryStore) ListToolLogs(_ context.Context, messageID int64) ([]ToolLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var logs []ToolLog
	for _, entry := range s.toolLogs {
		if entry.MessageID == messageID {
			logs = append(logs, *entry)
		}
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].ID < logs[j].ID })
	return logs, nil
}

func (s *MemoryStore) AddSymptom(_ context.Context, symptom *Symptom) (*Symptom, error) {
	if symptom == nil {
		return nil, errors.New("store: symptom is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[symptom.UserID]; !ok {
		return nil, ErrNotFound
	}
	stored := *symptom
	stored.ID = s.id()
	stored.CreatedAt = time.Now()
	if stored.SymptomTime.IsZero() {
		stored.SymptomTime = stored.CreatedAt
	}
	s.symptoms[stored.ID] = &stored
	out := stored
	return &out, nil
}

func (s *MemoryStore) ListSymptoms(_ context.Context, userID int64, since time.Time) ([]Symptom, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var symptoms []Symptom
	for _, sym := range s.symptoms {
		if sym.UserID == userID && !sym.SymptomTime.Before(since) {
			symptoms = append(symptoms, *sym)
		}
	}
	sort.Slice(symptoms, func(i, j int) bool {
		return symptoms[i].SymptomTime.After(symptoms[j].SymptomTime)
	})
	return symptoms, nil
}
