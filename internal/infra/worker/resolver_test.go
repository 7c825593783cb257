// File: internal/infra/worker/resolver_test.go
package worker

import (
	"context"
	"errors"
	"testing"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"

	"github.com/rs/zerolog"
)

func newTestPool(t *testing.T) *Pool {
	t.Helper()
	pool := NewPool(2)
	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)
	t.Cleanup(func() {
		cancel()
		pool.Stop()
	})
	return pool
}

func newTestResolver(t *testing.T, store *memJobStore, tr *fakeTranscriber) *TranscriptResolver {
	t.Helper()
	log := zerolog.Nop()
	return NewTranscriptResolver(store, tr, newTestPool(t), &log)
}

func TestResolveRawTranscriptWins(t *testing.T) {
	store := newMemJobStore()
	audioID := store.addAudio("2026/01/02/a.webm", "audio/webm", []byte("bytes"))
	tr := &fakeTranscriber{reply: "should not be called"}
	r := newTestResolver(t, store, tr)

	claim := model.ClaimedRequest{ID: "req-1", AudioID: &audioID, RawTranscript: "  We agreed to ship on Friday.  "}
	got, err := r.Resolve(context.Background(), claim)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Source != "raw" {
		t.Errorf("Source = %q, want raw", got.Source)
	}
	if got.Text != "We agreed to ship on Friday." {
		t.Errorf("Text = %q, want trimmed raw transcript", got.Text)
	}
	if got.TranscriptID != nil {
		t.Errorf("TranscriptID = %v, want nil (request carried none)", *got.TranscriptID)
	}
	if tr.calls != 0 {
		t.Errorf("transcriber called %d times, want 0", tr.calls)
	}
}

func TestResolveStoredTranscript(t *testing.T) {
	store := newMemJobStore()
	tid, err := store.InsertTranscript(context.Background(), "audio-1", "Stored transcript text here.", "fake")
	if err != nil {
		t.Fatal(err)
	}
	r := newTestResolver(t, store, &fakeTranscriber{})

	got, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", TranscriptID: &tid})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Source != "stored" {
		t.Errorf("Source = %q, want stored", got.Source)
	}
	if got.Text != "Stored transcript text here." {
		t.Errorf("Text = %q", got.Text)
	}
	if got.TranscriptID == nil || *got.TranscriptID != tid {
		t.Errorf("TranscriptID = %v, want %s", got.TranscriptID, tid)
	}
}

func TestResolveMissingStoredTranscriptFallsBackToAudio(t *testing.T) {
	store := newMemJobStore()
	audioID := store.addAudio("2026/01/02/rec.ogg", "audio/ogg", []byte("audio bytes"))
	missing := "00000000-0000-0000-0000-000000000000"
	tr := &fakeTranscriber{reply: "Transcribed from audio."}
	r := newTestResolver(t, store, tr)

	got, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", TranscriptID: &missing, AudioID: &audioID})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got.Source != "transcribed" {
		t.Errorf("Source = %q, want transcribed", got.Source)
	}
	if got.TranscriptID == nil {
		t.Fatal("expected a new transcript id")
	}
	text, err := store.GetTranscriptText(context.Background(), *got.TranscriptID)
	if err != nil || text != "Transcribed from audio." {
		t.Errorf("persisted transcript = %q, %v", text, err)
	}
	if len(tr.suffixes) != 1 || tr.suffixes[0] != ".ogg" {
		t.Errorf("suffixes = %v, want [.ogg]", tr.suffixes)
	}
}

func TestResolveSuffixDefaultsToWebm(t *testing.T) {
	store := newMemJobStore()
	audioID := store.addAudio("2026/01/02/no-extension", "audio/webm", []byte("audio bytes"))
	tr := &fakeTranscriber{reply: "Hello."}
	r := newTestResolver(t, store, tr)

	if _, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", AudioID: &audioID}); err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(tr.suffixes) != 1 || tr.suffixes[0] != defaultAudioSuffix {
		t.Errorf("suffixes = %v, want [%s]", tr.suffixes, defaultAudioSuffix)
	}
}

func TestResolveNoSources(t *testing.T) {
	r := newTestResolver(t, newMemJobStore(), &fakeTranscriber{})
	_, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1"})
	if !errors.Is(err, domain.ErrNoTranscriptSource) {
		t.Fatalf("expected ErrNoTranscriptSource, got %v", err)
	}
}

func TestResolveMissingAudioAsset(t *testing.T) {
	store := newMemJobStore()
	missing := "11111111-1111-1111-1111-111111111111"
	r := newTestResolver(t, store, &fakeTranscriber{})

	_, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", AudioID: &missing})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveEmptyAudio(t *testing.T) {
	store := newMemJobStore()
	audioID := store.addAudio("2026/01/02/empty.webm", "audio/webm", nil)
	r := newTestResolver(t, store, &fakeTranscriber{reply: "unused"})

	_, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", AudioID: &audioID})
	if !errors.Is(err, domain.ErrEmptyAudio) {
		t.Fatalf("expected ErrEmptyAudio, got %v", err)
	}
}

func TestResolveBlankTranscription(t *testing.T) {
	store := newMemJobStore()
	audioID := store.addAudio("2026/01/02/rec.webm", "audio/webm", []byte("audio"))
	tr := &fakeTranscriber{reply: "   "}
	r := newTestResolver(t, store, tr)

	_, err := r.Resolve(context.Background(), model.ClaimedRequest{ID: "req-1", AudioID: &audioID})
	if !errors.Is(err, domain.ErrEmptyTranscript) {
		t.Fatalf("expected ErrEmptyTranscript, got %v", err)
	}
	// nothing should be persisted for a blank transcription
	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.transcripts) != 0 {
		t.Errorf("transcripts persisted = %d, want 0", len(store.transcripts))
	}
}
