// File: internal/infra/worker/mocks_test.go
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"

	"github.com/google/uuid"
)

// memJobStore is a small in-memory JobStore used by unit tests. It keeps the
// real claim and lock-token semantics so processor tests exercise the same
// state machine as the postgres store.
type memJobStore struct {
	mu          sync.Mutex
	requests    map[string]*memRequest
	transcripts map[string]*model.Transcript
	assets      map[string]*model.AudioAsset
	blobs       map[string][]byte
	deliveries  []model.EmailDelivery

	claimErr          error
	insertDeliveryErr error // applied to failed-status inserts only
}

type memRequest struct {
	id             string
	email          string
	audioID        *string
	transcriptID   *string
	rawTranscript  string
	status         model.RequestStatus
	sendAt         time.Time
	attempts       int
	lockToken      *string
	lastError      string
	summary        *model.Summary
	transcriptText string
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		requests:    make(map[string]*memRequest),
		transcripts: make(map[string]*model.Transcript),
		assets:      make(map[string]*model.AudioAsset),
		blobs:       make(map[string][]byte),
	}
}

func (m *memJobStore) addRequest(r *memRequest) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.id == "" {
		r.id = uuid.NewString()
	}
	if r.status == "" {
		r.status = model.RequestStatusPending
	}
	if r.sendAt.IsZero() {
		r.sendAt = time.Now().Add(-time.Minute)
	}
	m.requests[r.id] = r
	return r.id
}

func (m *memJobStore) addAudio(storagePath, contentType string, data []byte) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.assets[id] = &model.AudioAsset{ID: id, StoragePath: storagePath, ContentType: contentType, CreatedAt: time.Now()}
	if storagePath != "" {
		m.blobs[storagePath] = data
	}
	return id
}

func (m *memJobStore) request(id string) memRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.requests[id]
}

func (m *memJobStore) deliveryRows() []model.EmailDelivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.EmailDelivery, len(m.deliveries))
	copy(out, m.deliveries)
	return out
}

func (m *memJobStore) ClaimDueRequests(ctx context.Context, batchSize int) ([]model.ClaimedRequest, error) {
	if m.claimErr != nil {
		return nil, m.claimErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.requests))
	for id := range m.requests {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := m.requests[ids[i]], m.requests[ids[j]]
		if !a.sendAt.Equal(b.sendAt) {
			return a.sendAt.Before(b.sendAt)
		}
		return a.id < b.id
	})

	now := time.Now()
	var out []model.ClaimedRequest
	for _, id := range ids {
		if len(out) >= batchSize {
			break
		}
		r := m.requests[id]
		if r.status != model.RequestStatusPending || r.sendAt.After(now) {
			continue
		}
		token := uuid.NewString()
		r.status = model.RequestStatusProcessing
		r.lockToken = &token
		r.attempts++
		out = append(out, model.ClaimedRequest{
			ID:            r.id,
			Email:         r.email,
			AudioID:       r.audioID,
			TranscriptID:  r.transcriptID,
			RawTranscript: r.rawTranscript,
			LockToken:     token,
			Attempts:      r.attempts,
		})
	}
	return out, nil
}

func (m *memJobStore) GetTranscriptText(ctx context.Context, transcriptID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transcripts[transcriptID]
	if !ok {
		return "", domain.ErrNotFound
	}
	return t.Text, nil
}

func (m *memJobStore) GetAudioAsset(ctx context.Context, audioID string) (*model.AudioAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assets[audioID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memJobStore) DownloadAudioBytes(ctx context.Context, storagePath string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[storagePath]
	if !ok {
		return nil, fmt.Errorf("storage object %q: not found", storagePath)
	}
	if len(data) == 0 {
		return nil, domain.ErrEmptyAudio
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *memJobStore) InsertTranscript(ctx context.Context, audioID, text, provider string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	m.transcripts[id] = &model.Transcript{ID: id, AudioID: audioID, Text: text, Provider: provider, CreatedAt: time.Now()}
	return id, nil
}

func (m *memJobStore) MarkSent(ctx context.Context, requestID, lockToken string, transcriptID *string, transcriptText string, summary *model.Summary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok || r.lockToken == nil || *r.lockToken != lockToken {
		return nil // stale token: silent no-op
	}
	r.status = model.RequestStatusSent
	r.transcriptID = transcriptID
	r.transcriptText = transcriptText
	r.summary = summary
	r.lastError = ""
	r.lockToken = nil
	return nil
}

func (m *memJobStore) InsertEmailDelivery(ctx context.Context, requestID, provider string, status model.DeliveryStatus, messageID, sendErr *string) error {
	if status == model.DeliveryStatusFailed && m.insertDeliveryErr != nil {
		return m.insertDeliveryErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	row := model.EmailDelivery{
		ID:        uuid.NewString(),
		RequestID: requestID,
		Provider:  provider,
		Status:    status,
		MessageID: messageID,
		Error:     sendErr,
	}
	if status == model.DeliveryStatusSent {
		row.SentAt = &now
	}
	m.deliveries = append(m.deliveries, row)
	return nil
}

func (m *memJobStore) HandleFailure(ctx context.Context, requestID, lockToken string, attempts int, errMsg string, maxAttempts int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[requestID]
	if !ok || r.lockToken == nil || *r.lockToken != lockToken {
		return nil
	}
	r.lastError = errMsg
	r.lockToken = nil
	if attempts < maxAttempts {
		r.status = model.RequestStatusPending
		r.sendAt = time.Now().Add(time.Duration(1<<attempts) * time.Minute)
	} else {
		r.status = model.RequestStatusFailed
	}
	return nil
}

// fakeTranscriber records calls; transcribeFn overrides the canned reply.
type fakeTranscriber struct {
	mu           sync.Mutex
	name         string
	reply        string
	transcribeFn func(ctx context.Context, audio []byte, suffix string) (string, error)
	suffixes     []string
	calls        int
}

func (f *fakeTranscriber) Name() string {
	if f.name == "" {
		return "fake"
	}
	return f.name
}

func (f *fakeTranscriber) TranscribeBytes(ctx context.Context, audio []byte, suffix string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.suffixes = append(f.suffixes, suffix)
	f.mu.Unlock()
	if f.transcribeFn != nil {
		return f.transcribeFn(ctx, audio, suffix)
	}
	return f.reply, nil
}

type sendCall struct {
	recipient     string
	summary       *model.Summary
	correlationID string
}

// fakeSender records calls; sendFn overrides the canned success.
type fakeSender struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, recipient string, summary *model.Summary, correlationID string) (*adapter.EmailSendResult, error)
	calls  []sendCall
}

func (f *fakeSender) Provider() string { return "fake-mail" }

func (f *fakeSender) SendSummaryEmail(ctx context.Context, recipient string, summary *model.Summary, correlationID string) (*adapter.EmailSendResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, sendCall{recipient: recipient, summary: summary, correlationID: correlationID})
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, recipient, summary, correlationID)
	}
	return &adapter.EmailSendResult{MessageID: "msg-1", ProviderStatus: "success", RecipientState: "queued"}, nil
}

func (f *fakeSender) sentCalls() []sendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sendCall, len(f.calls))
	copy(out, f.calls)
	return out
}
