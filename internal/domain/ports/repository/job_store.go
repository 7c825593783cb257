package repository

import (
	"context"

	"voice-summary-service/internal/domain/model"
)

// JobStore owns every piece of durable pipeline state. The worker itself keeps
// nothing across cycles, so any number of worker instances can run against the
// same store; cross-process safety rests entirely on the lock-token guard in
// MarkSent and HandleFailure.
type JobStore interface {
	// ClaimDueRequests atomically moves up to batchSize pending, due requests
	// to processing, stamping each with a fresh lock token and incrementing
	// attempts. A row handed to one caller is never handed to a concurrent
	// caller. Transport failures are retried internally with backoff; after
	// exhausting retries an empty batch is returned, never an error.
	ClaimDueRequests(ctx context.Context, batchSize int) ([]model.ClaimedRequest, error)

	// GetTranscriptText returns domain.ErrNotFound when no transcript row exists.
	GetTranscriptText(ctx context.Context, transcriptID string) (string, error)

	// GetAudioAsset returns domain.ErrNotFound when no asset row exists.
	GetAudioAsset(ctx context.Context, audioID string) (*model.AudioAsset, error)

	// DownloadAudioBytes fetches raw audio from blob storage.
	// Returns domain.ErrEmptyAudio when the object is empty.
	DownloadAudioBytes(ctx context.Context, storagePath string) ([]byte, error)

	InsertTranscript(ctx context.Context, audioID, text, provider string) (string, error)

	// MarkSent is a compare-and-swap: it applies only while the stored lock
	// token still matches, and is a silent no-op otherwise.
	MarkSent(ctx context.Context, requestID, lockToken string, transcriptID *string, transcriptText string, summary *model.Summary) error

	// InsertEmailDelivery appends one delivery record; rows are never updated.
	InsertEmailDelivery(ctx context.Context, requestID, provider string, status model.DeliveryStatus, messageID, sendErr *string) error

	// HandleFailure either reschedules the request with exponential backoff
	// (attempts < maxAttempts) or marks it permanently failed. Like MarkSent
	// it is guarded by the lock token and no-ops on a stale one.
	HandleFailure(ctx context.Context, requestID, lockToken string, attempts int, errMsg string, maxAttempts int) error
}
