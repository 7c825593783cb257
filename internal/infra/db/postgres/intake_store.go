package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/repository"
)

var _ repository.IntakeStore = (*intakeStore)(nil)

type intakeStore struct {
	pool *pgxpool.Pool
}

func NewIntakeStore(pool *pgxpool.Pool) *intakeStore {
	return &intakeStore{pool: pool}
}

func (r *intakeStore) CheckReady(ctx context.Context) error {
	row, err := pickRow(ctx, r.pool, nil, `SELECT 1`)
	if err != nil {
		return err
	}
	var one int
	return row.Scan(&one)
}

func (r *intakeStore) InsertAudioAsset(ctx context.Context, asset *model.AudioAsset) error {
	const q = `
INSERT INTO audio_assets (id, storage_path, content_type)
VALUES ($1::uuid, $2, $3)`

	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	_, err := execSQL(ctx, r.pool, nil, q, asset.ID, asset.StoragePath, asset.ContentType)
	return mapUniqueViolation(err)
}

// mapUniqueViolation turns a Postgres duplicate-key error into the domain
// sentinel so handlers can answer with a conflict instead of a 500.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

func (r *intakeStore) InsertSummaryRequest(ctx context.Context, email, audioID string, sendAt time.Time) (*model.SummaryRequest, error) {
	const q = `
INSERT INTO summary_requests (id, email, audio_id, status, send_at)
VALUES ($1::uuid, $2, $3::uuid, 'pending', $4)
RETURNING id::text, status, send_at`

	row, err := pickRow(ctx, r.pool, nil, q, uuid.NewString(), email, audioID, sendAt.UTC())
	if err != nil {
		return nil, mapUniqueViolation(err)
	}

	req := model.SummaryRequest{Email: email, AudioID: &audioID}
	var status string
	if err := row.Scan(&req.ID, &status, &req.SendAt); err != nil {
		// pgx surfaces insert errors at scan time on RETURNING queries
		if mapped := mapUniqueViolation(err); errors.Is(mapped, domain.ErrAlreadyExists) {
			return nil, mapped
		}
		return nil, domain.ErrReadDatabaseRow
	}
	req.Status = model.RequestStatus(status)
	return &req, nil
}

func (r *intakeStore) GetSummaryRequest(ctx context.Context, id string) (*model.SummaryRequest, error) {
	const q = `
SELECT id::text, email, status, send_at, attempts, last_error, summary_json, transcript_text
FROM summary_requests
WHERE id = $1::uuid
LIMIT 1`

	row, err := pickRow(ctx, r.pool, nil, q, id)
	if err != nil {
		return nil, err
	}

	var (
		req            model.SummaryRequest
		status         string
		lastError      *string
		summaryJSON    []byte
		transcriptText *string
	)
	if err := row.Scan(&req.ID, &req.Email, &status, &req.SendAt, &req.Attempts,
		&lastError, &summaryJSON, &transcriptText); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}

	req.Status = model.RequestStatus(status)
	if lastError != nil {
		req.LastError = *lastError
	}
	if transcriptText != nil {
		req.TranscriptText = *transcriptText
	}
	if len(summaryJSON) > 0 {
		var summary model.Summary
		if err := json.Unmarshal(summaryJSON, &summary); err == nil {
			req.Summary = &summary
		}
	}
	return &req, nil
}
