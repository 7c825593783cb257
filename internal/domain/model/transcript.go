package model

import "time"

// AudioAsset is immutable once created by the intake API.
type AudioAsset struct {
	ID          string
	StoragePath string
	ContentType string
	CreatedAt   time.Time
}

// Transcript is produced either by the intake API (pre-supplied) or by the
// worker when it invokes transcription on downloaded audio.
type Transcript struct {
	ID        string
	AudioID   string
	Text      string
	Provider  string
	CreatedAt time.Time
}
