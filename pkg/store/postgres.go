package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            BIGSERIAL PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    name          TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL,
    is_active     BOOLEAN NOT NULL DEFAULT TRUE,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    last_login    TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS chat_sessions (
    id         BIGSERIAL PRIMARY KEY,
    user_id    BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title      TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
    id         BIGSERIAL PRIMARY KEY,
    session_id BIGINT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
    role       TEXT NOT NULL,
    content    TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS tool_logs (
    id          BIGSERIAL PRIMARY KEY,
    message_id  BIGINT NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    tool_name   TEXT NOT NULL,
    tool_input  TEXT NOT NULL DEFAULT '',
    tool_output TEXT NOT NULL DEFAULT '',
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS symptoms (
    id               BIGSERIAL PRIMARY KEY,
    user_id          BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    symptom_type     TEXT NOT NULL DEFAULT '',
    body_part        TEXT NOT NULL DEFAULT '',
    severity         INTEGER,
    duration         TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    triggers         TEXT NOT NULL DEFAULT '',
    related_symptoms TEXT NOT NULL DEFAULT '',
    cycle_day        INTEGER,
    raw_input        TEXT NOT NULL DEFAULT '',
    extraction       JSONB,
    symptom_time     TIMESTAMPTZ NOT NULL DEFAULT now(),
    created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_messages_session   ON messages(session_id);
CREATE INDEX IF NOT EXISTS idx_tool_logs_message  ON tool_logs(message_id);
CREATE INDEX IF NOT EXISTS idx_symptoms_user_time ON symptoms(user_id, symptom_time);
`

// PostgresStore persists to Postgres through a pgx connection pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore connects the pool and verifies the database is reachable.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("store: database url is required")
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("store: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// CreateSchema applies the schema. All statements are idempotent.
func (s *PostgresStore) CreateSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("store: create schema: %w", err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) CreateUser(ctx context.Context, email, name, passwordHash string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, errors.New("store: email is required")
	}

	user := &User{Email: email, Name: name, PasswordHash: passwordHash, IsActive: true}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (email, name, password_hash)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		email, name, passwordHash,
	).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("store: create user: %w", err)
	}
	return user, nil
}

func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, is_active, created_at, last_login
		 FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.Name, &user.PasswordHash, &user.IsActive, &user.CreatedAt, &user.LastLogin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) UpdateLastLogin(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET last_login = now() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("store: update last login: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, userID int64, title string) (*ChatSession, error) {
	session := &ChatSession{UserID: userID, Title: title}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO chat_sessions (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at`,
		userID, title,
	).Scan(&session.ID, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: create session: %w", err)
	}
	return session, nil
}

func (s *PostgresStore) ListSessions(ctx context.Context, userID int64) ([]ChatSession, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, title, created_at, updated_at
		 FROM chat_sessions WHERE user_id = $1
		 ORDER BY updated_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []ChatSession
	for rows.Next() {
		var sess ChatSession
		if err := rows.Scan(&sess.ID, &sess.UserID, &sess.Title, &sess.CreatedAt, &sess.UpdatedAt); err != nil {
			return nil, fmt.Errorf("store: scan session: %w", err)
		}
		sessions = append(sessions, sess)
	}
	return sessions, rows.Err()
}

func (s *PostgresStore) AddMessage(ctx context.Context, sessionID int64, role, content string) (*Message, error) {
	msg := &Message{SessionID: sessionID, Role: role, Content: content}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO messages (session_id, role, content)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		sessionID, role, content,
	).Scan(&msg.ID, &msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: add message: %w", err)
	}
	// Sessions surface most-recently-used first.
	if _, err := s.pool.Exec(ctx, `UPDATE chat_sessions SET updated_at = now() WHERE id = $1`, sessionID); err != nil {
		return nil, fmt.Errorf("store: touch session: %w", err)
	}
	return msg, nil
}

func (s *PostgresStore) ListMessages(ctx context.Context, sessionID int64) ([]Message, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, role, content, created_at
		 FROM messages WHERE session_id = $1
		 ORDER BY created_at, id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Role, &msg.Content, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

func (s *PostgresStore) AddToolLog(ctx context.Context, messageID int64, name, input, output string) (*ToolLog, error) {
	entry := &ToolLog{MessageID: messageID, ToolName: name, ToolInput: input, ToolOutput: output}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tool_logs (message_id, tool_name, tool_input, tool_output)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		messageID, name, input, output,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: add tool log: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListToolLogs(ctx context.Context, messageID int64) ([]ToolLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, message_id, tool_name, tool_input, tool_output, created_at
		 FROM tool_logs WHERE message_id = $1
		 ORDER BY id`,
		messageID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list tool logs: %w", err)
	}
	defer rows.Close()

	var logs []ToolLog
	for rows.Next() {
		var entry ToolLog
		if err := rows.Scan(&entry.ID, &entry.MessageID, &entry.ToolName, &entry.ToolInput, &entry.ToolOutput, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan tool log: %w", err)
		}
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

func (s *PostgresStore) AddSymptom(ctx context.Context, symptom *Symptom) (*Symptom, error) {
	if symptom == nil {
		return nil, errors.New("store: symptom is required")
	}
	out := *symptom
	if out.SymptomTime.IsZero() {
		out.SymptomTime = time.Now()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO symptoms
		   (user_id, symptom_type, body_part, severity, duration, description,
		    triggers, related_symptoms, cycle_day, raw_input, extraction, symptom_time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at`,
		out.UserID, out.SymptomType, out.BodyPart, out.Severity, out.Duration, out.Description,
		out.Triggers, out.RelatedSymptoms, out.CycleDay, out.RawInput, out.Extraction, out.SymptomTime,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("store: add symptom: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) ListSymptoms(ctx context.Context, userID int64, since time.Time) ([]Symptom, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, symptom_type, body_part, severity, duration, description,
		        triggers, related_symptoms, cycle_day, raw_input, extraction, symptom_time, created_at
		 FROM symptoms
		 WHERE user_id = $1 AND symptom_time >= $2
		 ORDER BY symptom_time DESC`,
		userID, since,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list symptoms: %w", err)
	}
	defer rows.Close()

	var symptoms []Symptom
	for rows.Next() {
		var sym Symptom
		if err := rows.Scan(&sym.ID, &sym.UserID, &sym.SymptomType, &sym.BodyPart, &sym.Severity,
			&sym.Duration, &sym.Description, &sym.Triggers, &sym.RelatedSymptoms, &sym.CycleDay,
			&sym.RawInput, &sym.Extraction, &sym.SymptomTime, &sym.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan symptom: %w", err)
		}
		symptoms = append(symptoms, sym)
	}
	return symptoms, rows.Err()
}
