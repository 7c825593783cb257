// File: internal/infra/adapters/transcribe/noop.go
package transcribe

import (
	"context"
	"fmt"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*NoopTranscriber)(nil)

// NoopTranscriber implements adapter.Transcriber for local/dev runs where
// no speech provider is configured. It returns a fixed placeholder text.
type NoopTranscriber struct{}

func NewNoopTranscriber() *NoopTranscriber {
	return &NoopTranscriber{}
}

func (n *NoopTranscriber) Name() string { return "noop" }

func (n *NoopTranscriber) TranscribeBytes(ctx context.Context, audio []byte, suffix string) (string, error) {
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if len(audio) == 0 {
		return "", domain.ErrEmptyAudio
	}
	return fmt.Sprintf("Placeholder transcript for a %d byte recording. This environment has no speech provider configured.", len(audio)), nil
}
