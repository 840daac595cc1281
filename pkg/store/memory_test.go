package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestMemoryStoreUsers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	hash, err := HashPassword("hunter2!")
	if err != nil {
		t.Fatalf("HashPassword error: %v", err)
	}

	user, err := s.CreateUser(ctx, "Jo@Example.com", "Jo", hash)
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}
	if user.Email != "jo@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if !user.IsActive {
		t.Fatal("new user should be active")
	}

	if _, err := s.CreateUser(ctx, "jo@example.com", "Other", hash); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	loaded, err := s.GetUserByEmail(ctx, "jo@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail error: %v", err)
	}
	if !VerifyPassword(loaded.PasswordHash, "hunter2!") {
		t.Fatal("password verification failed")
	}
	if VerifyPassword(loaded.PasswordHash, "wrong") {
		t.Fatal("wrong password accepted")
	}

	if _, err := s.GetUserByEmail(ctx, "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := s.UpdateLastLogin(ctx, user.ID); err != nil {
		t.Fatalf("UpdateLastLogin error: %v", err)
	}
	loaded, _ = s.GetUserByEmail(ctx, "jo@example.com")
	if loaded.LastLogin == nil {
		t.Fatal("last login not recorded")
	}
}

func TestMemoryStoreSessionsAndMessages(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := s.CreateUser(ctx, "a@b.c", "A", "hash")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	session, err := s.CreateSession(ctx, user.ID, "IVF questions")
	if err != nil {
		t.Fatalf("CreateSession error: %v", err)
	}

	if _, err := s.CreateSession(ctx, 999, "orphan"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	userMsg, err := s.AddMessage(ctx, session.ID, "user", "What are my chances?")
	if err != nil {
		t.Fatalf("AddMessage error: %v", err)
	}
	assistantMsg, err := s.AddMessage(ctx, session.ID, "assistant", "Here is the outlook.")
	if err != nil {
		t.Fatalf("AddMessage error: %v", err)
	}

	messages, err := s.ListMessages(ctx, session.ID)
	if err != nil {
		t.Fatalf("ListMessages error: %v", err)
	}
	if len(messages) != 2 || messages[0].ID != userMsg.ID || messages[1].ID != assistantMsg.ID {
		t.Fatalf("messages out of order: %#v", messages)
	}

	if _, err := s.AddToolLog(ctx, assistantMsg.ID, "predict_ivf_success", `{"age":38}`, "23.1%"); err != nil {
		t.Fatalf("AddToolLog error: %v", err)
	}
	logs, err := s.ListToolLogs(ctx, assistantMsg.ID)
	if err != nil {
		t.Fatalf("ListToolLogs error: %v", err)
	}
	if len(logs) != 1 || logs[0].ToolName != "predict_ivf_success" {
		t.Fatalf("tool logs = %#v", logs)
	}

	sessions, err := s.ListSessions(ctx, user.ID)
	if err != nil {
		t.Fatalf("ListSessions error: %v", err)
	}
	if len(sessions) != 1 || sessions[0].ID != session.ID {
		t.Fatalf("sessions = %#v", sessions)
	}
	if !sessions[0].UpdatedAt.After(session.UpdatedAt) && !sessions[0].UpdatedAt.Equal(session.UpdatedAt) {
		t.Fatal("session not touched by AddMessage")
	}
}

func TestMemoryStoreSymptoms(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	user, err := s.CreateUser(ctx, "a@b.c", "A", "hash")
	if err != nil {
		t.Fatalf("CreateUser error: %v", err)
	}

	now := time.Now()
	old := &Symptom{
		UserID:      user.ID,
		SymptomType: "pain",
		BodyPart:    "abdomen",
		Severity:    intPtr(7),
		SymptomTime: now.AddDate(0, 0, -40),
	}
	recent := &Symptom{
		UserID:      user.ID,
		SymptomType: "headache",
		BodyPart:    "head",
		Severity:    intPtr(4),
		SymptomTime: now.AddDate(0, 0, -1),
	}
	for _, sym := range []*Symptom{old, recent} {
		if _, err := s.AddSymptom(ctx, sym); err != nil {
			t.Fatalf("AddSymptom error: %v", err)
		}
	}

	all, err := s.ListSymptoms(ctx, user.ID, time.Time{})
	if err != nil {
		t.Fatalf("ListSymptoms error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d symptoms, want 2", len(all))
	}
	if all[0].SymptomType != "headache" {
		t.Fatalf("symptoms not newest-first: %#v", all)
	}

	lastMonth, err := s.ListSymptoms(ctx, user.ID, now.AddDate(0, 0, -30))
	if err != nil {
		t.Fatalf("ListSymptoms error: %v", err)
	}
	if len(lastMonth) != 1 || lastMonth[0].SymptomType != "headache" {
		t.Fatalf("window filter failed: %#v", lastMonth)
	}

	if _, err := s.AddSymptom(ctx, &Symptom{UserID: 999}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}
}

func TestHashPasswordRejectsEmpty(t *testing.T) {
	if _, err := HashPassword(""); err == nil {
		t.Fatal("expected error for empty password")
	}
}
