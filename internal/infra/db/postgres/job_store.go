package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/rs/zerolog"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/domain/ports/repository"
	"voice-summary-service/internal/infra/metrics"
)

const maxStoredErrorLen = 2000

var _ repository.JobStore = (*jobStore)(nil)

type jobStore struct {
	pool         *pgxpool.Pool
	tm           repository.TransactionManager
	blobs        adapter.BlobStorage
	claimRetries int
	claimBase    time.Duration
	log          *zerolog.Logger
}

func NewJobStore(
	pool *pgxpool.Pool,
	tm repository.TransactionManager,
	blobs adapter.BlobStorage,
	claimRetries int,
	claimRetryBase time.Duration,
	logger *zerolog.Logger,
) *jobStore {
	jsLog := logger.With().Str("component", "JobStore").Logger()
	return &jobStore{
		pool:         pool,
		tm:           tm,
		blobs:        blobs,
		claimRetries: claimRetries,
		claimBase:    claimRetryBase,
		log:          &jsLog,
	}
}

// ClaimDueRequests retries transient store failures with exponential backoff
// and reports an empty batch once retries are exhausted: a store outage means
// "no work available now", never a job failure.
func (r *jobStore) ClaimDueRequests(ctx context.Context, batchSize int) ([]model.ClaimedRequest, error) {
	maxRetries := r.claimRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	baseDelay := r.claimBase
	if baseDelay < 100*time.Millisecond {
		baseDelay = 100 * time.Millisecond
	}

	for attempt := 1; attempt <= maxRetries; attempt++ {
		claimed, err := r.claimOnce(ctx, batchSize)
		if err == nil {
			metrics.ObserveClaimBatch(len(claimed))
			return claimed, nil
		}

		metrics.IncClaimRetry()
		if attempt >= maxRetries {
			r.log.Warn().Err(err).
				Int("attempt", attempt).
				Int("max_retries", maxRetries).
				Msg("claim transport unavailable, treating as empty batch")
			return nil, nil
		}
		r.log.Warn().Err(err).Int("attempt", attempt).Msg("claim failed, retrying")

		// Ping lets the pool discard broken connections before the next try.
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_ = r.pool.Ping(pingCtx)
		cancel()

		select {
		case <-ctx.Done():
			return nil, nil
		case <-time.After(baseDelay << (attempt - 1)):
		}
	}
	return nil, nil
}

func (r *jobStore) claimOnce(ctx context.Context, batchSize int) ([]model.ClaimedRequest, error) {
	var claimed []model.ClaimedRequest

	err := r.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		const q = `
WITH due AS (
    SELECT id FROM summary_requests
    WHERE status = 'pending' AND send_at <= now()
    ORDER BY send_at
    LIMIT $1
    FOR UPDATE SKIP LOCKED
)
UPDATE summary_requests sr
SET status = 'processing',
    lock_token = gen_random_uuid(),
    locked_at = now(),
    attempts = sr.attempts + 1,
    updated_at = now()
FROM due
WHERE sr.id = due.id
RETURNING sr.id::text, sr.email, sr.audio_id::text, sr.transcript_id::text,
          sr.raw_transcript, sr.lock_token::text, sr.attempts;`

		rows, err := pickRows(ctx, r.pool, tx, q, batchSize)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var (
				req           model.ClaimedRequest
				rawTranscript *string
			)
			if err := rows.Scan(
				&req.ID, &req.Email, &req.AudioID, &req.TranscriptID,
				&rawTranscript, &req.LockToken, &req.Attempts,
			); err != nil {
				return domain.ErrReadDatabaseRow
			}
			if rawTranscript != nil {
				req.RawTranscript = *rawTranscript
			}
			claimed = append(claimed, req)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobStore) GetTranscriptText(ctx context.Context, transcriptID string) (string, error) {
	const q = `SELECT text FROM transcripts WHERE id = $1::uuid LIMIT 1`

	row, err := pickRow(ctx, r.pool, nil, q, transcriptID)
	if err != nil {
		return "", err
	}
	var text string
	if err := row.Scan(&text); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", domain.ErrReadDatabaseRow
	}
	return text, nil
}

func (r *jobStore) GetAudioAsset(ctx context.Context, audioID string) (*model.AudioAsset, error) {
	const q = `SELECT storage_path, content_type FROM audio_assets WHERE id = $1::uuid LIMIT 1`

	row, err := pickRow(ctx, r.pool, nil, q, audioID)
	if err != nil {
		return nil, err
	}
	asset := model.AudioAsset{ID: audioID}
	if err := row.Scan(&asset.StoragePath, &asset.ContentType); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &asset, nil
}

func (r *jobStore) DownloadAudioBytes(ctx context.Context, storagePath string) ([]byte, error) {
	data, err := r.blobs.Download(ctx, storagePath)
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyAudio
	}
	return data, nil
}

func (r *jobStore) InsertTranscript(ctx context.Context, audioID, text, provider string) (string, error) {
	const q = `
INSERT INTO transcripts (id, audio_id, text, provider)
VALUES ($1::uuid, $2::uuid, $3, $4)`

	id := uuid.NewString()
	if _, err := execSQL(ctx, r.pool, nil, q, id, audioID, text, provider); err != nil {
		return "", err
	}
	return id, nil
}

// MarkSent applies only while the stored lock token still matches. A stale
// token (another claim superseded this one) makes it a silent no-op.
func (r *jobStore) MarkSent(ctx context.Context, requestID, lockToken string, transcriptID *string, transcriptText string, summary *model.Summary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	const q = `
UPDATE summary_requests
SET status = 'sent',
    transcript_id = $3::uuid,
    transcript_text = $4,
    summary_json = $5,
    last_error = NULL,
    lock_token = NULL,
    locked_at = NULL,
    updated_at = now()
WHERE id = $1::uuid AND lock_token = $2::uuid`

	_, err = execSQL(ctx, r.pool, nil, q, requestID, lockToken, transcriptID, transcriptText, summaryJSON)
	return err
}

func (r *jobStore) InsertEmailDelivery(ctx context.Context, requestID, provider string, status model.DeliveryStatus, messageID, sendErr *string) error {
	const q = `
INSERT INTO email_deliveries (id, request_id, provider, status, message_id, error, sent_at)
VALUES ($1::uuid, $2::uuid, $3, $4, $5, $6, $7)`

	var sentAt *time.Time
	if status == model.DeliveryStatusSent {
		now := time.Now().UTC()
		sentAt = &now
	}
	_, err := execSQL(ctx, r.pool, nil, q,
		uuid.NewString(), requestID, provider, string(status), messageID, sendErr, sentAt)
	return err
}

// HandleFailure reschedules with send_at = now + 2^attempts minutes while
// attempts < maxAttempts, and marks the request failed otherwise. Both paths
// are guarded by the lock token.
func (r *jobStore) HandleFailure(ctx context.Context, requestID, lockToken string, attempts int, errMsg string, maxAttempts int) error {
	safeErr := errMsg
	if len(safeErr) > maxStoredErrorLen {
		safeErr = safeErr[:maxStoredErrorLen]
	}

	if attempts < maxAttempts {
		const q = `
UPDATE summary_requests
SET status = 'pending',
    send_at = now() + make_interval(mins => $3),
    last_error = $4,
    lock_token = NULL,
    locked_at = NULL,
    updated_at = now()
WHERE id = $1::uuid AND lock_token = $2::uuid`

		backoffMinutes := 1 << attempts
		_, err := execSQL(ctx, r.pool, nil, q, requestID, lockToken, backoffMinutes, safeErr)
		return err
	}

	const q = `
UPDATE summary_requests
SET status = 'failed',
    last_error = $3,
    lock_token = NULL,
    locked_at = NULL,
    updated_at = now()
WHERE id = $1::uuid AND lock_token = $2::uuid`

	_, err := execSQL(ctx, r.pool, nil, q, requestID, lockToken, safeErr)
	return err
}
