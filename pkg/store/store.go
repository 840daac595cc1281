// Package store persists DoctHER accounts, chat history, tool logs and
// tracked symptoms. PostgresStore is the production implementation;
// MemoryStore backs tests and database-less runs.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound reports a lookup that matched nothing.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateEmail reports a registration against an email that already has
// an account.
var ErrDuplicateEmail = errors.New("store: email already registered")

// User is an account. Email is unique.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	LastLogin    *time.Time
}

// ChatSession groups the messages of one conversation.
type ChatSession struct {
	ID        int64
	UserID    int64
	Title     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one turn of a chat session.
type Message struct {
	ID        int64
	SessionID int64
	Role      string
	Content   string
	CreatedAt time.Time
}

// ToolLog records one tool invocation performed while producing a message.
type ToolLog struct {
	ID         int64
	MessageID  int64
	ToolName   string
	ToolInput  string
	ToolOutput string
	CreatedAt  time.Time
}

// Symptom is one tracked symptom occurrence. Severity is on a 1-10 scale and
// optional, as are the cycle day and the structured extraction payload.
type Symptom struct {
	ID              int64
	UserID          int64
	SymptomType     string
	BodyPart        string
	Severity        *int
	Duration        string
	Description     string
	Triggers        string
	RelatedSymptoms string
	CycleDay        *int
	RawInput        string
	Extraction      json.RawMessage
	SymptomTime     time.Time
	CreatedAt       time.Time
}

// Store is the persistence surface used by the CLI and the orchestration
// glue.
type Store interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateLastLogin(ctx context.Context, userID int64) error

	CreateSession(ctx context.Context, userID int64, title string) (*ChatSession, error)
	ListSessions(ctx context.Context, userID int64) ([]ChatSession, error)

	AddMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error)
	ListMessages(ctx context.Context, sessionID int64) ([]Message, error)

	AddToolLog(ctx context.Context, messageID int64, name, input, output string) (*ToolLog, error)
	ListToolLogs(ctx context.Context, messageID int64) ([]ToolLog, error)

	AddSymptom(ctx context.Context, symptom *Symptom) (*Symptom, error)
	ListSymptoms(ctx context.Context, userID int64, since time.Time) ([]Symptom, error)

	Close()
}

// HashPassword derives a bcrypt hash for storage.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("store: password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
