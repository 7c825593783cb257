package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound          = errors.New("entity not found")
	ErrAlreadyExists     = errors.New("entity already exists")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid SQL execution context")
	ErrReadDatabaseRow   = errors.New("failed to read database row")

	// Per-job pipeline errors. Each one is fatal to the single job it
	// occurred on and is routed through the processor's failure handler.
	ErrNoTranscriptSource = errors.New("no transcript or audio reference available")
	ErrEmptyAudio         = errors.New("downloaded audio is empty")
	ErrEmptyTranscript    = errors.New("transcription produced an empty transcript")

	// Email dispatch errors, classified by the mailjet adapter.
	ErrEmailTransport = errors.New("email transport failure")
	ErrEmailAuth      = errors.New("email provider authentication failed")
	ErrEmailProvider  = errors.New("email provider rejected the message")
)
