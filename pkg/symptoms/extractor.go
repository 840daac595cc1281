// Package symptoms turns free-text symptom descriptions into structured
// records via a one-shot model call, and summarizes tracked symptoms.
package symptoms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/docther/docther/pkg/models"
	"github.com/docther/docther/pkg/store"
)

// TimeHint is the model's interpretation of when a symptom occurred.
type TimeHint struct {
	RelativeTime string `json:"relative_time"`
	Date         string `json:"date"`
	Time         string `json:"time"`
}

// Extraction is the structured form of one symptom description. Absent fields
// stay at their zero values.
type Extraction struct {
	SymptomType     string    `json:"symptom_type"`
	BodyPart        string    `json:"body_part"`
	Duration        string    `json:"duration"`
	Severity        *int      `json:"severity"`
	SymptomTime     *TimeHint `json:"symptom_time"`
	RelatedSymptoms string    `json:"related_symptoms"`
	Triggers        string    `json:"triggers"`
	Description     string    `json:"description"`
}

// ResolvedTime converts the model's date/time hint to a concrete timestamp,
// falling back to now when the hint is absent or unparseable.
func (x *Extraction) ResolvedTime(now time.Time) time.Time {
	if x == nil || x.SymptomTime == nil || x.SymptomTime.Date == "" {
		return now
	}
	day, err := time.ParseInLocation("2006-01-02", x.SymptomTime.Date, now.Location())
	if err != nil {
		return now
	}
	if clock, err := time.ParseInLocation("15:04", x.SymptomTime.Time, now.Location()); err == nil {
		return time.Date(day.Year(), day.Month(), day.Day(), clock.Hour(), clock.Minute(), 0, 0, now.Location())
	}
	return time.Date(day.Year(), day.Month(), day.Day(), now.Hour(), now.Minute(), 0, 0, now.Location())
}

// ToSymptom builds the persistable record for a user from the extraction and
// the original input text.
func (x *Extraction) ToSymptom(userID int64, rawInput string, raw json.RawMessage, now time.Time) *store.Symptom {
	return &store.Symptom{
		UserID:          userID,
		SymptomType:     x.SymptomType,
		BodyPart:        x.BodyPart,
		Severity:        x.Severity,
		Duration:        x.Duration,
		Description:     x.Description,
		Triggers:        x.Triggers,
		RelatedSymptoms: x.RelatedSymptoms,
		RawInput:        rawInput,
		Extraction:      raw,
		SymptomTime:     x.ResolvedTime(now),
	}
}

const extractionPromptFormat = `Extract symptom information from the following text and return a JSON object with these fields:

- symptom_type: Type of symptom (e.g., 'pain', 'bleeding', 'fatigue', 'mood', 'digestive', 'headache')
- body_part: Specific body part or location (e.g., 'abdomen', 'lower back', 'head', 'chest')
- duration: How long the symptom has lasted (e.g., '2 hours', '3 days', 'ongoing')
- severity: Severity on a scale of 1-10 (integer). Convert qualitative descriptions to numeric scores:
  * "mild", "slight", "minor", "light" = 2-3
  * "moderate", "medium", "noticeable" = 4-6
  * "severe", "bad", "serious", "strong" = 7-8
  * "extreme", "unbearable", "worst", "intense", "terrible" = 9-10
  * "very mild" = 1
  * If no severity is mentioned, use null
- symptom_time: When the symptom occurred. Return a JSON object with:
  - relative_time: The relative time phrase from the text (e.g., "yesterday morning", "2 hours ago", "now")
  - date: The ACTUAL date the symptom occurred in YYYY-MM-DD format based on the current date/time provided
  - time: Approximate time in HH:MM format (24-hour); use "09:00" for morning, "15:00" for afternoon, "19:00" for evening, "22:00" for night
  If no time is mentioned or it says "now", use null for this field.
- related_symptoms: Any related or concurrent symptoms (comma-separated list)
- triggers: Possible triggers or causes mentioned (comma-separated list)
- description: A brief summary of the symptom

Context: Current date and time is %s

If a field is not mentioned or cannot be determined, use null for that field.

User's symptom description:
%s

Return ONLY a valid JSON object, no other text.`

// Extractor performs one-shot structured extraction through a chat model.
type Extractor struct {
	chat models.Chat
	now  func() time.Time
}

// NewExtractor builds an extractor over the given model.
func NewExtractor(chat models.Chat) (*Extractor, error) {
	if chat == nil {
		return nil, errors.New("symptoms: chat model is required")
	}
	return &Extractor{chat: chat, now: time.Now}, nil
}

// Extract asks the model for a structured record of the description. The raw
// JSON payload is returned alongside the parsed form so callers can persist
// it verbatim.
func (e *Extractor) Extract(ctx context.Context, text string) (*Extraction, json.RawMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil, errors.New("symptoms: empty description")
	}

	prompt := fmt.Sprintf(extractionPromptFormat, e.now().Format("2006-01-02 15:04"), text)
	resp, err := e.chat.Complete(ctx, "", []models.Turn{models.UserText(prompt)}, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("symptoms: extraction call: %w", err)
	}

	payload := stripCodeFence(resp.Text())
	if payload == "" {
		return nil, nil, errors.New("symptoms: model returned no text")
	}

	var extraction Extraction
	if err := json.Unmarshal([]byte(payload), &extraction); err != nil {
		return nil, nil, fmt.Errorf("symptoms: parse extraction: %w", err)
	}
	return &extraction, json.RawMessage(payload), nil
}

// stripCodeFence removes a surrounding markdown code fence, which models
// sometimes wrap JSON in despite instructions.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
