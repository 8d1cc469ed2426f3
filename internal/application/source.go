package application

import "context"

// Request is one incoming command: either raw audio to transcribe or text
// that skips transcription. Reply, when non-nil, delivers the answer back to
// the waiting caller; fire-and-forget sources leave it nil and the assistant
// falls back to the Notifier.
type Request struct {
	Audio []byte
	Text  string
	Reply func(Reply)
}

// Reply carries the answer text and, when synthesis succeeded, spoken audio.
type Reply struct {
	Text  string
	Audio []byte
}

// CommandSource produces requests, one at a time.
type CommandSource interface {
	Start(ctx context.Context) error
	Stop() error
	Next(ctx context.Context) (*Request, error)
	Name() string
}
