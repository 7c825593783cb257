// File: internal/infra/worker/processor.go
package worker

import (
	"context"
	"fmt"
	"time"

	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/domain/ports/repository"
	"voice-summary-service/internal/infra/logging"
	"voice-summary-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

// Summarizer is the slice of internal/summarizer the processor needs.
type Summarizer interface {
	Summarize(transcript string) *model.Summary
}

// Processor drives the whole pipeline: claim due requests, resolve a
// transcript, summarize, email, persist the outcome. Jobs in a batch run
// strictly sequentially; blocking calls inside a job go through the pool.
type Processor struct {
	store        repository.JobStore
	resolver     *TranscriptResolver
	summarizer   Summarizer
	sender       adapter.EmailSender
	pollInterval time.Duration
	batchSize    int
	maxAttempts  int
	dev          bool
	log          zerolog.Logger
}

func NewProcessor(
	store repository.JobStore,
	resolver *TranscriptResolver,
	summarizer Summarizer,
	sender adapter.EmailSender,
	pollInterval time.Duration,
	batchSize int,
	maxAttempts int,
	dev bool,
	logger *zerolog.Logger,
) *Processor {
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	return &Processor{
		store:        store,
		resolver:     resolver,
		summarizer:   summarizer,
		sender:       sender,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		maxAttempts:  maxAttempts,
		dev:          dev,
		log:          logger.With().Str("component", "processor").Logger(),
	}
}

// Run polls until ctx is cancelled. Each cycle is followed by a fixed sleep
// regardless of how long the cycle took.
func (p *Processor) Run(ctx context.Context) {
	p.log.Info().Dur("poll_interval", p.pollInterval).Int("batch_size", p.batchSize).Msg("summary worker started")
	for {
		if err := p.cycle(ctx); err != nil && ctx.Err() == nil {
			p.log.Error().Err(err).Msg("processing cycle failed")
		}
		select {
		case <-ctx.Done():
			p.log.Info().Msg("summary worker stopping")
			return
		case <-time.After(p.pollInterval):
		}
	}
}

func (p *Processor) cycle(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panic: %v", r)
		}
	}()
	return p.ProcessOnce(ctx)
}

// ProcessOnce claims one batch and processes every claim in it.
func (p *Processor) ProcessOnce(ctx context.Context) error {
	claims, err := p.store.ClaimDueRequests(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("claim due requests: %w", err)
	}
	if len(claims) == 0 {
		return nil
	}
	p.log.Debug().Int("claimed", len(claims)).Msg("processing batch")
	for _, claim := range claims {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.processClaim(ctx, claim)
	}
	return nil
}

type pipelineResult struct {
	stage          string
	emailAttempted bool
	err            error
}

func (p *Processor) processClaim(ctx context.Context, claim model.ClaimedRequest) {
	start := time.Now()
	ctx = logging.WithJobID(ctx, claim.ID)
	log := logging.With(ctx, &p.log).With().Int("attempts", claim.Attempts).Logger()

	res := p.runPipeline(ctx, claim)
	elapsed := time.Since(start)

	if res.err != nil {
		metrics.IncJob("failed")
		metrics.ObserveJobDuration("failed", float64(elapsed.Milliseconds()))
		log.Error().Err(res.err).Str("stage", res.stage).Dur("duration", elapsed).Msg("summary job failed")
		p.handleFailure(ctx, claim, res, &log)
		return
	}
	metrics.IncJob("sent")
	metrics.ObserveJobDuration("sent", float64(elapsed.Milliseconds()))
	log.Info().Str("recipient", logging.Redact(claim.Email, p.dev)).Dur("duration", elapsed).Msg("summary job sent")
}

func (p *Processor) runPipeline(ctx context.Context, claim model.ClaimedRequest) (res pipelineResult) {
	// a panic in one job must not take the batch down with it
	defer func() {
		if r := recover(); r != nil {
			res.err = fmt.Errorf("job panic: %v", r)
		}
	}()

	res.stage = "resolve"
	resolved, err := p.resolver.Resolve(ctx, claim)
	if err != nil {
		res.err = err
		return res
	}

	res.stage = "summarize"
	summary := p.summarizer.Summarize(resolved.Text)

	res.stage = "send"
	res.emailAttempted = true
	sent, err := p.sender.SendSummaryEmail(ctx, claim.Email, summary, claim.ID)
	if err != nil {
		res.err = err
		return res
	}

	res.stage = "record"
	messageID := sent.MessageID
	if err := p.store.InsertEmailDelivery(ctx, claim.ID, p.sender.Provider(), model.DeliveryStatusSent, &messageID, nil); err != nil {
		res.err = err
		return res
	}

	res.stage = "finalize"
	if err := p.store.MarkSent(ctx, claim.ID, claim.LockToken, resolved.TranscriptID, resolved.Text, summary); err != nil {
		res.err = err
		return res
	}
	return res
}

// handleFailure is the single funnel for every per-job error: record the
// failed delivery when an email send was already in flight, then hand the
// retry/terminal decision to the store.
func (p *Processor) handleFailure(ctx context.Context, claim model.ClaimedRequest, res pipelineResult, log *zerolog.Logger) {
	if res.emailAttempted {
		msg := res.err.Error()
		if err := p.store.InsertEmailDelivery(ctx, claim.ID, p.sender.Provider(), model.DeliveryStatusFailed, nil, &msg); err != nil {
			log.Warn().Err(err).Msg("could not record failed delivery")
		}
	}
	if err := p.store.HandleFailure(ctx, claim.ID, claim.LockToken, claim.Attempts, res.err.Error(), p.maxAttempts); err != nil {
		log.Error().Err(err).Msg("could not persist failure state")
	}
}
