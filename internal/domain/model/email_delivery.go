package model

import "time"

type DeliveryStatus string

const (
	DeliveryStatusSent   DeliveryStatus = "sent"
	DeliveryStatusFailed DeliveryStatus = "failed"
)

// EmailDelivery is an append-only record of one send attempt. Rows are never
// updated; a request may accumulate several across retries.
type EmailDelivery struct {
	ID        string
	RequestID string
	Provider  string
	Status    DeliveryStatus
	MessageID *string
	Error     *string
	SentAt    *time.Time
}
