package ai

import (
	"context"
	"strings"
)

// Transcription is recognized speech plus a rough reliability score.
type Transcription struct {
	Text       string
	Confidence float64
}

// Transcriber converts voice notes to text.
type Transcriber struct {
	client *Client
}

func NewTranscriber(client *Client) *Transcriber {
	return &Transcriber{client: client}
}

// Transcribe runs speech recognition on an audio payload. The API does
// not report confidence, so a heuristic score is derived from the output:
// empty or near-empty transcripts score low enough to trigger a
// "please type instead" reply upstream.
func (t *Transcriber) Transcribe(ctx context.Context, filename string, audio []byte) (Transcription, error) {
	text, err := t.client.TranscribeAudio(ctx, filename, audio)
	if err != nil {
		return Transcription{}, err
	}
	return Transcription{Text: text, Confidence: scoreTranscript(text)}, nil
}

func scoreTranscript(text string) float64 {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0
	}
	words := len(strings.Fields(trimmed))
	switch {
	case words >= 3:
		return 0.9
	case words == 2:
		return 0.75
	default:
		return 0.6
	}
}
