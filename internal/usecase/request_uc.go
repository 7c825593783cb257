// File: internal/usecase/request_uc.go
package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/domain/ports/repository"
	"voice-summary-service/internal/infra/logging"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ RequestUseCase = (*requestUC)(nil)

// RequestUseCase exposes the intake operations: upload audio, queue a summary
// request, inspect its state.
type RequestUseCase interface {
	CheckReady(ctx context.Context) error
	CreateAudioAsset(ctx context.Context, contentType string, data []byte) (*model.AudioAsset, error)
	CreateSummaryRequest(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error)
	GetSummaryRequest(ctx context.Context, id string) (*model.SummaryRequest, error)
}

type requestUC struct {
	store repository.IntakeStore
	blobs adapter.BlobStorage
	log   *zerolog.Logger
}

func NewRequestUseCase(store repository.IntakeStore, blobs adapter.BlobStorage, logger *zerolog.Logger) *requestUC {
	return &requestUC{
		store: store,
		blobs: blobs,
		log:   logger,
	}
}

func (u *requestUC) CheckReady(ctx context.Context) error {
	return u.store.CheckReady(ctx)
}

// CreateAudioAsset uploads the audio under a date-prefixed path and records
// the asset row the pipeline later resolves.
func (u *requestUC) CreateAudioAsset(ctx context.Context, contentType string, data []byte) (*model.AudioAsset, error) {
	defer logging.TraceDuration(u.log, "RequestUC.CreateAudioAsset")()

	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty audio upload", domain.ErrInvalidArgument)
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	path := fmt.Sprintf("%s/%s%s", now.Format("2006/01/02"), id, extForContentType(contentType))

	if err := u.blobs.Upload(ctx, path, data, contentType); err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	asset := &model.AudioAsset{
		ID:          id,
		StoragePath: path,
		ContentType: contentType,
		CreatedAt:   now,
	}
	if err := u.store.InsertAudioAsset(ctx, asset); err != nil {
		return nil, err
	}
	u.log.Info().Str("audio_id", asset.ID).Str("path", path).Int("bytes", len(data)).Msg("audio asset created")
	return asset, nil
}

// CreateSummaryRequest queues a request; a nil sendAt means "due immediately".
func (u *requestUC) CreateSummaryRequest(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error) {
	defer logging.TraceDuration(u.log, "RequestUC.CreateSummaryRequest")()

	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: invalid recipient email", domain.ErrInvalidArgument)
	}
	if audioID == "" {
		return nil, fmt.Errorf("%w: audio_id is required", domain.ErrInvalidArgument)
	}

	at := time.Now().UTC()
	if sendAt != nil {
		at = sendAt.UTC()
	}
	req, err := u.store.InsertSummaryRequest(ctx, email, audioID, at)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("request_id", req.ID).Time("send_at", req.SendAt).Msg("summary request queued")
	return req, nil
}

func (u *requestUC) GetSummaryRequest(ctx context.Context, id string) (*model.SummaryRequest, error) {
	defer logging.TraceDuration(u.log, "RequestUC.GetSummaryRequest")()
	if id == "" {
		return nil, fmt.Errorf("%w: empty request id", domain.ErrInvalidArgument)
	}
	return u.store.GetSummaryRequest(ctx, id)
}

func extForContentType(contentType string) string {
	switch strings.ToLower(contentType) {
	case "audio/webm":
		return ".webm"
	case "audio/ogg":
		return ".ogg"
	case "audio/wav":
		return ".wav"
	case "audio/mpeg":
		return ".mp3"
	default:
		return ".bin"
	}
}
