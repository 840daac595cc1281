package symptoms

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/docther/docther/pkg/models"
	"github.com/docther/docther/pkg/store"
)

func intPtr(v int) *int { return &v }

func TestExtract(t *testing.T) {
	chat := models.NewScriptedChat(&models.Response{Blocks: []models.Block{
		models.TextBlock{Text: `{
			"symptom_type": "pain",
			"body_part": "lower back",
			"duration": "2 days",
			"severity": 7,
			"symptom_time": {"relative_time": "yesterday morning", "date": "2026-08-29", "time": "09:00"},
			"related_symptoms": "fatigue",
			"triggers": "exercise, stress",
			"description": "Severe lower back pain since yesterday morning"
		}`},
	}})

	extractor, err := NewExtractor(chat)
	if err != nil {
		t.Fatalf("NewExtractor error: %v", err)
	}
	extractor.now = func() time.Time {
		return time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	}

	extraction, raw, err := extractor.Extract(context.Background(), "my lower back has been killing me since yesterday morning, I think from exercise")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if extraction.SymptomType != "pain" || extraction.BodyPart != "lower back" {
		t.Fatalf("extraction = %#v", extraction)
	}
	if extraction.Severity == nil || *extraction.Severity != 7 {
		t.Fatalf("severity = %v", extraction.Severity)
	}
	if len(raw) == 0 {
		t.Fatal("raw payload missing")
	}

	// The prompt carries the current timestamp and the user text.
	sent := chat.Calls()[0].Turns[0].Text()
	if !strings.Contains(sent, "2026-08-30 14:30") {
		t.Fatalf("prompt missing current time: %q", sent)
	}
	if !strings.Contains(sent, "killing me") {
		t.Fatal("prompt missing user description")
	}

	resolved := extraction.ResolvedTime(extractor.now())
	want := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)
	if !resolved.Equal(want) {
		t.Fatalf("ResolvedTime = %v, want %v", resolved, want)
	}

	symptom := extraction.ToSymptom(42, "raw text", raw, extractor.now())
	if symptom.UserID != 42 || symptom.SymptomType != "pain" || !symptom.SymptomTime.Equal(want) {
		t.Fatalf("ToSymptom = %#v", symptom)
	}
}

func TestExtractStripsCodeFence(t *testing.T) {
	chat := models.NewScriptedChat(&models.Response{Blocks: []models.Block{
		models.TextBlock{Text: "```json\n{\"symptom_type\": \"headache\", \"body_part\": \"head\"}\n```"},
	}})

	extractor, err := NewExtractor(chat)
	if err != nil {
		t.Fatalf("NewExtractor error: %v", err)
	}

	extraction, _, err := extractor.Extract(context.Background(), "pounding headache")
	if err != nil {
		t.Fatalf("Extract error: %v", err)
	}
	if extraction.SymptomType != "headache" {
		t.Fatalf("extraction = %#v", extraction)
	}
}

func TestExtractRejectsGarbage(t *testing.T) {
	chat := models.NewScriptedChat(&models.Response{Blocks: []models.Block{
		models.TextBlock{Text: "I could not produce JSON for that."},
	}})

	extractor, _ := NewExtractor(chat)
	if _, _, err := extractor.Extract(context.Background(), "something"); err == nil {
		t.Fatal("expected parse error")
	}
	if _, _, err := extractor.Extract(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty description")
	}
}

func TestResolvedTimeFallsBack(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)

	var x Extraction
	if got := x.ResolvedTime(now); !got.Equal(now) {
		t.Fatalf("nil hint: %v", got)
	}

	x.SymptomTime = &TimeHint{Date: "not-a-date"}
	if got := x.ResolvedTime(now); !got.Equal(now) {
		t.Fatalf("bad date: %v", got)
	}

	// Date without a parseable time keeps the current clock.
	x.SymptomTime = &TimeHint{Date: "2026-08-28"}
	got := x.ResolvedTime(now)
	if got.Day() != 28 || got.Hour() != 10 {
		t.Fatalf("date-only hint: %v", got)
	}
}

func TestSummarize(t *testing.T) {
	day := func(offset int) time.Time {
		return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}
	symptoms := []store.Symptom{
		{SymptomType: "Pain", Severity: intPtr(8), Triggers: "stress, caffeine", SymptomTime: day(0)},
		{SymptomType: "pain", Severity: intPtr(4), Triggers: "stress", SymptomTime: day(0)},
		{SymptomType: "headache", Severity: intPtr(6), Triggers: "Caffeine", SymptomTime: day(-1)},
		{SymptomType: "", SymptomTime: day(-2)},
	}

	stats := Summarize(symptoms)

	if stats.Total != 4 {
		t.Fatalf("Total = %d", stats.Total)
	}
	if stats.CountByType["pain"] != 2 || stats.CountByType["headache"] != 1 || stats.CountByType["unspecified"] != 1 {
		t.Fatalf("CountByType = %#v", stats.CountByType)
	}
	if stats.AverageSeverity != 6 {
		t.Fatalf("AverageSeverity = %v, want 6", stats.AverageSeverity)
	}
	if stats.MaxSeverity != 8 {
		t.Fatalf("MaxSeverity = %d", stats.MaxSeverity)
	}
	if stats.PerDay["2026-08-30"] != 2 || stats.PerDay["2026-08-29"] != 1 {
		t.Fatalf("PerDay = %#v", stats.PerDay)
	}
	if len(stats.TopTriggers) != 2 {
		t.Fatalf("TopTriggers = %#v", stats.TopTriggers)
	}
	// stress and caffeine both appear twice; ties break alphabetically.
	if stats.TopTriggers[0].Trigger != "caffeine" || stats.TopTriggers[0].Count != 2 {
		t.Fatalf("TopTriggers[0] = %#v", stats.TopTriggers[0])
	}
	if stats.TopTriggers[1].Trigger != "stress" || stats.TopTriggers[1].Count != 2 {
		t.Fatalf("TopTriggers[1] = %#v", stats.TopTriggers[1])
	}

	empty := Summarize(nil)
	if empty.Total != 0 || empty.AverageSeverity != 0 {
		t.Fatalf("empty stats = %#v", empty)
	}
}
