package application

import (
	"context"
	"fmt"
)

// SpeechToText transcribes audio and reports the detected language as an
// ISO-639-1 code (empty when the backend cannot tell).
type SpeechToText interface {
	Transcribe(ctx context.Context, audio []byte) (text, language string, err error)
}

// Synthesizer renders a reply as audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, language string) ([]byte, error)
}

// Translator converts a reply into the speaker's language.
type Translator interface {
	Translate(ctx context.Context, text, targetLanguage string) (string, error)
}

// NoopSTT is for text-only deployments. It fails if handed actual audio.
type NoopSTT struct{}

func (n *NoopSTT) Transcribe(_ context.Context, _ []byte) (string, string, error) {
	return "", "", fmt.Errorf("speech-to-text not configured: set openai.api_key to enable audio transcription")
}

// NoopSynthesizer disables audio replies.
type NoopSynthesizer struct{}

func (n *NoopSynthesizer) Synthesize(_ context.Context, _, _ string) ([]byte, error) {
	return nil, nil
}

// NoopTranslator leaves replies in English.
type NoopTranslator struct{}

func (n *NoopTranslator) Translate(_ context.Context, text, _ string) (string, error) {
	return text, nil
}
