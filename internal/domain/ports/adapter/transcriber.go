package adapter

import "context"

// Transcriber turns raw audio bytes into text. Implementations are synchronous;
// the worker decides where the call runs.
type Transcriber interface {
	Name() string
	// TranscribeBytes transcribes one recording. suffix is the file extension
	// hint derived from the storage path (".webm", ".mp3", ...).
	TranscribeBytes(ctx context.Context, audio []byte, suffix string) (string, error)
}
