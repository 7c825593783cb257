package postgres

import (
	"context"
	"fmt"
	"time"

	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/repository"
	"voice-summary-service/internal/infra/metrics"
	red "voice-summary-service/internal/infra/redis"
)

var _ repository.JobStore = (*jobStoreCacheDecorator)(nil)

// jobStoreCacheDecorator fronts transcript-text reads with Redis. Retried jobs
// re-resolve the same transcript every cycle; the cache absorbs those reads.
// Transcript rows are immutable, so no invalidation is needed. Cache failures
// degrade to the inner store.
type jobStoreCacheDecorator struct {
	inner repository.JobStore
	cache red.RedisClient
	ttl   time.Duration
}

func NewJobStoreCacheDecorator(inner repository.JobStore, cache red.RedisClient, ttl time.Duration) repository.JobStore {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &jobStoreCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func transcriptKey(id string) string {
	return fmt.Sprintf("transcript:text:%s", id)
}

func (d *jobStoreCacheDecorator) GetTranscriptText(ctx context.Context, transcriptID string) (string, error) {
	key := transcriptKey(transcriptID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		metrics.IncCacheRequest("transcript", "hit")
		return val, nil
	}

	metrics.IncCacheRequest("transcript", "miss")
	text, err := d.inner.GetTranscriptText(ctx, transcriptID)
	if err != nil {
		return "", err
	}
	_ = d.cache.Set(ctx, key, text, d.ttl)
	return text, nil
}

// InsertTranscript warms the cache: the worker reads the text right back on
// the next retry of the same request.
func (d *jobStoreCacheDecorator) InsertTranscript(ctx context.Context, audioID, text, provider string) (string, error) {
	id, err := d.inner.InsertTranscript(ctx, audioID, text, provider)
	if err != nil {
		return "", err
	}
	_ = d.cache.Set(ctx, transcriptKey(id), text, d.ttl)
	return id, nil
}

func (d *jobStoreCacheDecorator) ClaimDueRequests(ctx context.Context, batchSize int) ([]model.ClaimedRequest, error) {
	return d.inner.ClaimDueRequests(ctx, batchSize)
}

func (d *jobStoreCacheDecorator) GetAudioAsset(ctx context.Context, audioID string) (*model.AudioAsset, error) {
	return d.inner.GetAudioAsset(ctx, audioID)
}

func (d *jobStoreCacheDecorator) DownloadAudioBytes(ctx context.Context, storagePath string) ([]byte, error) {
	return d.inner.DownloadAudioBytes(ctx, storagePath)
}

func (d *jobStoreCacheDecorator) MarkSent(ctx context.Context, requestID, lockToken string, transcriptID *string, transcriptText string, summary *model.Summary) error {
	return d.inner.MarkSent(ctx, requestID, lockToken, transcriptID, transcriptText, summary)
}

func (d *jobStoreCacheDecorator) InsertEmailDelivery(ctx context.Context, requestID, provider string, status model.DeliveryStatus, messageID, sendErr *string) error {
	return d.inner.InsertEmailDelivery(ctx, requestID, provider, status, messageID, sendErr)
}

func (d *jobStoreCacheDecorator) HandleFailure(ctx context.Context, requestID, lockToken string, attempts int, errMsg string, maxAttempts int) error {
	return d.inner.HandleFailure(ctx, requestID, lockToken, attempts, errMsg, maxAttempts)
}
