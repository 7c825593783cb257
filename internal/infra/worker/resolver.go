// File: internal/infra/worker/resolver.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

const defaultAudioSuffix = ".webm"

// ResolvedTranscript is what the rest of the pipeline consumes: the text to
// summarize plus the transcript row it came from, when one exists.
type ResolvedTranscript struct {
	Text         string
	TranscriptID *string
	Source       string // "raw" | "stored" | "transcribed"
}

// TranscriptResolver turns a claimed request into transcript text, falling
// back from the cheapest source to the most expensive: raw text on the
// request, then a stored transcript row, then audio download + transcription.
// It never writes job-status state; any error here aborts the job and is
// handled by the processor's failure path.
type TranscriptResolver struct {
	store       repository.JobStore
	transcriber adapter.Transcriber
	pool        *Pool
	log         zerolog.Logger
}

func NewTranscriptResolver(store repository.JobStore, transcriber adapter.Transcriber, pool *Pool, logger *zerolog.Logger) *TranscriptResolver {
	return &TranscriptResolver{
		store:       store,
		transcriber: transcriber,
		pool:        pool,
		log:         logger.With().Str("component", "resolver").Logger(),
	}
}

func (r *TranscriptResolver) Resolve(ctx context.Context, claim model.ClaimedRequest) (*ResolvedTranscript, error) {
	if text := strings.TrimSpace(claim.RawTranscript); text != "" {
		return &ResolvedTranscript{Text: text, TranscriptID: claim.TranscriptID, Source: "raw"}, nil
	}

	if claim.TranscriptID != nil {
		text, err := r.store.GetTranscriptText(ctx, *claim.TranscriptID)
		switch {
		case err == nil:
			if text = strings.TrimSpace(text); text != "" {
				return &ResolvedTranscript{Text: text, TranscriptID: claim.TranscriptID, Source: "stored"}, nil
			}
			r.log.Warn().Str("request_id", claim.ID).Str("transcript_id", *claim.TranscriptID).Msg("stored transcript is blank, falling back to audio")
		case errors.Is(err, domain.ErrNotFound):
			r.log.Warn().Str("request_id", claim.ID).Str("transcript_id", *claim.TranscriptID).Msg("stored transcript missing, falling back to audio")
		default:
			return nil, fmt.Errorf("load transcript: %w", err)
		}
	}

	if claim.AudioID == nil {
		return nil, domain.ErrNoTranscriptSource
	}
	return r.transcribeAudio(ctx, claim)
}

func (r *TranscriptResolver) transcribeAudio(ctx context.Context, claim model.ClaimedRequest) (*ResolvedTranscript, error) {
	asset, err := r.store.GetAudioAsset(ctx, *claim.AudioID)
	if err != nil {
		return nil, fmt.Errorf("load audio asset: %w", err)
	}
	if asset.StoragePath == "" {
		return nil, fmt.Errorf("audio asset %s has no storage path", asset.ID)
	}

	var audio []byte
	err = r.pool.Do(ctx, func(ctx context.Context) error {
		var derr error
		audio, derr = r.store.DownloadAudioBytes(ctx, asset.StoragePath)
		return derr
	})
	if err != nil {
		return nil, fmt.Errorf("download audio: %w", err)
	}

	suffix := path.Ext(asset.StoragePath)
	if suffix == "" {
		suffix = defaultAudioSuffix
	}

	var text string
	err = r.pool.Do(ctx, func(ctx context.Context) error {
		var terr error
		text, terr = r.transcriber.TranscribeBytes(ctx, audio, suffix)
		return terr
	})
	if err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyTranscript
	}

	transcriptID, err := r.store.InsertTranscript(ctx, asset.ID, text, r.transcriber.Name())
	if err != nil {
		return nil, fmt.Errorf("persist transcript: %w", err)
	}
	r.log.Debug().Str("request_id", claim.ID).Str("transcript_id", transcriptID).Str("provider", r.transcriber.Name()).Msg("audio transcribed")
	return &ResolvedTranscript{Text: text, TranscriptID: &transcriptID, Source: "transcribed"}, nil
}
