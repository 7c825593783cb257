package model

import "time"

type RequestStatus string

const (
	RequestStatusPending    RequestStatus = "pending"
	RequestStatusProcessing RequestStatus = "processing"
	RequestStatusSent       RequestStatus = "sent"
	RequestStatusFailed     RequestStatus = "failed"
)

// SummaryRequest is one queued "summarize this conversation" job.
// The lock token is non-nil exactly while status is processing; a row is
// claim-eligible iff status is pending and SendAt <= now.
type SummaryRequest struct {
	ID             string
	Email          string
	AudioID        *string
	TranscriptID   *string
	RawTranscript  string
	Status         RequestStatus
	Attempts       int
	LockToken      *string
	LockedAt       *time.Time
	SendAt         time.Time
	LastError      string
	Summary        *Summary
	TranscriptText string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ClaimedRequest is the snapshot a worker receives for a request it owns.
// Attempts is the value after the claim-time increment.
type ClaimedRequest struct {
	ID            string
	Email         string
	AudioID       *string
	TranscriptID  *string
	RawTranscript string
	LockToken     string
	Attempts      int
}
