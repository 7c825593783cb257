//go:build !integration

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/infra/api"

	"github.com/google/uuid"
)

// fakeRequestUC lets each test override just the operations it exercises.
type fakeRequestUC struct {
	readyErr      error
	createAssetFn func(ctx context.Context, contentType string, data []byte) (*model.AudioAsset, error)
	createReqFn   func(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error)
	getReqFn      func(ctx context.Context, id string) (*model.SummaryRequest, error)
}

func (f *fakeRequestUC) CheckReady(ctx context.Context) error { return f.readyErr }

func (f *fakeRequestUC) CreateAudioAsset(ctx context.Context, contentType string, data []byte) (*model.AudioAsset, error) {
	if f.createAssetFn != nil {
		return f.createAssetFn(ctx, contentType, data)
	}
	return &model.AudioAsset{ID: uuid.NewString(), StoragePath: "2026/01/02/x.webm", ContentType: contentType}, nil
}

func (f *fakeRequestUC) CreateSummaryRequest(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error) {
	if f.createReqFn != nil {
		return f.createReqFn(ctx, email, audioID, sendAt)
	}
	at := time.Now().UTC()
	if sendAt != nil {
		at = *sendAt
	}
	return &model.SummaryRequest{ID: uuid.NewString(), Email: email, AudioID: &audioID, Status: model.RequestStatusPending, SendAt: at}, nil
}

func (f *fakeRequestUC) GetSummaryRequest(ctx context.Context, id string) (*model.SummaryRequest, error) {
	if f.getReqFn != nil {
		return f.getReqFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func newRouter(uc *fakeRequestUC) *chi.Mux {
	log := zerolog.Nop()
	return api.NewServer(uc, 1, &log).Router(nil) // 1 MB cap keeps the 413 test small
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) (code, message, requestID string) {
	t.Helper()
	var body struct {
		Error struct {
			Code      string `json:"code"`
			Message   string `json:"message"`
			RequestID string `json:"request_id"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error envelope: %v (body=%s)", err, rec.Body.String())
	}
	return body.Error.Code, body.Error.Message, body.Error.RequestID
}

func TestHealthAndReady(t *testing.T) {
	t.Run("healthz 200", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})

	t.Run("readyz 200", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d", rec.Code)
		}
	})

	t.Run("readyz 503 when store down", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{readyErr: errors.New("no database")})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		if rec.Code != http.StatusServiceUnavailable {
			t.Fatalf("want 503, got %d", rec.Code)
		}
		code, _, _ := decodeError(t, rec)
		if code != "not_ready" {
			t.Errorf("code = %q", code)
		}
	})
}

func TestUploadAudio(t *testing.T) {
	t.Run("201 created", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		req := httptest.NewRequest(http.MethodPost, "/v1/audio", bytes.NewReader([]byte("audio bytes")))
		req.Header.Set("Content-Type", "audio/webm")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			ID          string `json:"id"`
			StoragePath string `json:"storage_path"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.ID == "" || body.StoragePath == "" {
			t.Errorf("response incomplete: %+v", body)
		}
	})

	t.Run("content type with parameters accepted", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		req := httptest.NewRequest(http.MethodPost, "/v1/audio", bytes.NewReader([]byte("audio")))
		req.Header.Set("Content-Type", "audio/webm; codecs=opus")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d, body=%s", rec.Code, rec.Body.String())
		}
	})

	t.Run("415 disallowed type", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		req := httptest.NewRequest(http.MethodPost, "/v1/audio", bytes.NewReader([]byte("x")))
		req.Header.Set("Content-Type", "video/mp4")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnsupportedMediaType {
			t.Fatalf("want 415, got %d", rec.Code)
		}
	})

	t.Run("413 oversized", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		big := bytes.Repeat([]byte("a"), 2<<20) // 2 MB against a 1 MB cap
		req := httptest.NewRequest(http.MethodPost, "/v1/audio", bytes.NewReader(big))
		req.Header.Set("Content-Type", "audio/webm")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("want 413, got %d", rec.Code)
		}
	})

	t.Run("400 empty body", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		req := httptest.NewRequest(http.MethodPost, "/v1/audio", nil)
		req.Header.Set("Content-Type", "audio/wav")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
		code, _, requestID := decodeError(t, rec)
		if code != "invalid_request" {
			t.Errorf("code = %q", code)
		}
		if requestID == "" {
			t.Error("error envelope missing request_id")
		}
	})
}

func TestCreateRequest(t *testing.T) {
	t.Run("201 with explicit send_at", func(t *testing.T) {
		var gotSendAt *time.Time
		uc := &fakeRequestUC{
			createReqFn: func(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error) {
				gotSendAt = sendAt
				return &model.SummaryRequest{ID: "r-1", Email: email, Status: model.RequestStatusPending, SendAt: *sendAt}, nil
			},
		}
		r := newRouter(uc)
		body := fmt.Sprintf(`{"email":"user@example.com","audio_id":%q,"send_at":"2026-09-01T10:00:00Z"}`, uuid.NewString())
		req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("want 201, got %d, body=%s", rec.Code, rec.Body.String())
		}
		if gotSendAt == nil || !gotSendAt.Equal(time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)) {
			t.Errorf("send_at = %v", gotSendAt)
		}
	})

	t.Run("400 bad send_at", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		body := `{"email":"user@example.com","audio_id":"a-1","send_at":"tomorrow"}`
		req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("400 missing body", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		req := httptest.NewRequest(http.MethodPost, "/v1/requests", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("400 invalid email from usecase", func(t *testing.T) {
		uc := &fakeRequestUC{
			createReqFn: func(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error) {
				return nil, fmt.Errorf("%w: invalid recipient email", domain.ErrInvalidArgument)
			},
		}
		r := newRouter(uc)
		req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(`{"email":"nope","audio_id":"a-1"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("want 400, got %d", rec.Code)
		}
	})

	t.Run("409 duplicate from usecase", func(t *testing.T) {
		uc := &fakeRequestUC{
			createReqFn: func(ctx context.Context, email, audioID string, sendAt *time.Time) (*model.SummaryRequest, error) {
				return nil, domain.ErrAlreadyExists
			},
		}
		r := newRouter(uc)
		body := fmt.Sprintf(`{"email":"user@example.com","audio_id":%q}`, uuid.NewString())
		req := httptest.NewRequest(http.MethodPost, "/v1/requests", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusConflict {
			t.Fatalf("want 409, got %d", rec.Code)
		}
		code, _, _ := decodeError(t, rec)
		if code != "conflict" {
			t.Errorf("error code = %q", code)
		}
	})
}

func TestGetRequest(t *testing.T) {
	t.Run("200 full detail", func(t *testing.T) {
		summary := &model.Summary{Bullets: []string{"Revenue is on track.", "Launch moved to June.", "Hiring paused."}, NextStep: "Confirm the June date."}
		uc := &fakeRequestUC{
			getReqFn: func(ctx context.Context, id string) (*model.SummaryRequest, error) {
				return &model.SummaryRequest{
					ID:             id,
					Email:          "user@example.com",
					Status:         model.RequestStatusSent,
					SendAt:         time.Now().UTC(),
					Attempts:       1,
					Summary:        summary,
					TranscriptText: "full transcript",
				}, nil
			},
		}
		r := newRouter(uc)
		id := uuid.NewString()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/requests/"+id, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("want 200, got %d, body=%s", rec.Code, rec.Body.String())
		}
		var body struct {
			ID      string         `json:"id"`
			Status  string         `json:"status"`
			Summary *model.Summary `json:"summary"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.ID != id || body.Status != "sent" || body.Summary == nil || len(body.Summary.Bullets) != 3 {
			t.Errorf("detail mismatch: %+v", body)
		}
	})

	t.Run("404 unknown id", func(t *testing.T) {
		r := newRouter(&fakeRequestUC{})
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/requests/"+uuid.NewString(), nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("want 404, got %d", rec.Code)
		}
		code, _, _ := decodeError(t, rec)
		if code != "not_found" {
			t.Errorf("code = %q", code)
		}
	})
}

func TestCORSPreflight(t *testing.T) {
	log := zerolog.Nop()
	r := api.NewServer(&fakeRequestUC{}, 1, &log).Router([]string{"https://app.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/v1/audio", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("want 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
		t.Errorf("allow-origin = %q", got)
	}
}
