package adapter

import (
	"context"

	"voice-summary-service/internal/domain/model"
)

// EmailSendResult carries the provider-echoed state of a successful send.
type EmailSendResult struct {
	MessageID      string
	ProviderStatus string
	MessageHref    string
	RecipientState string
}

// EmailSender formats and dispatches one summary email. Failures are
// classified onto the domain email error sentinels.
type EmailSender interface {
	Provider() string
	// SendSummaryEmail sends the summary to recipient. correlationID, when
	// non-empty, is attached as an opaque tracking field.
	SendSummaryEmail(ctx context.Context, recipient string, summary *model.Summary, correlationID string) (*EmailSendResult, error)
}
