package repository

import (
	"context"
	"time"

	"voice-summary-service/internal/domain/model"
)

// IntakeStore backs the request-intake API: it creates the rows the worker
// pipeline later claims.
type IntakeStore interface {
	// CheckReady performs a cheap round trip to the backing store.
	CheckReady(ctx context.Context) error

	InsertAudioAsset(ctx context.Context, asset *model.AudioAsset) error

	InsertSummaryRequest(ctx context.Context, email, audioID string, sendAt time.Time) (*model.SummaryRequest, error)

	// GetSummaryRequest returns domain.ErrNotFound when no row exists.
	GetSummaryRequest(ctx context.Context, id string) (*model.SummaryRequest, error)
}
