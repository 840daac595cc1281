// Package transcribe converts recorded voice notes to text through the
// OpenAI audio transcription API, feeding the symptom extraction flow.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Options configure a Transcriber.
type Options struct {
	APIKey string

	// Model defaults to Whisper.
	Model string

	// Language is an optional ISO-639-1 hint.
	Language string
}

// Transcriber turns audio files into text.
type Transcriber struct {
	client   *openai.Client
	model    string
	language string
}

// NewTranscriber validates the options and builds the API client.
func NewTranscriber(opts Options) (*Transcriber, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("transcribe: openai api key is required")
	}
	model := opts.Model
	if strings.TrimSpace(model) == "" {
		model = openai.Whisper1
	}
	return &Transcriber{
		client:   openai.NewClient(opts.APIKey),
		model:    model,
		language: opts.Language,
	}, nil
}

// File transcribes the audio file at path and returns the recognized text.
func (t *Transcriber) File(ctx context.Context, path string) (string, error) {
	if t == nil {
		return "", errors.New("transcribe: transcriber is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", errors.New("transcribe: audio path is required")
	}

	resp, err := t.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    t.model,
		FilePath: path,
		Language: t.language,
	})
	if err != nil {
		return "", fmt.Errorf("transcribe: %s: %w", path, err)
	}
	return strings.TrimSpace(resp.Text), nil
}
