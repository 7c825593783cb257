// File: internal/infra/adapters/transcribe/whisper.go
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*WhisperTranscriber)(nil)

// WhisperTranscriber implements adapter.Transcriber against the OpenAI
// audio transcription endpoint.
type WhisperTranscriber struct {
	apiKey string
	base   string // e.g., https://api.openai.com/v1
	model  string
	client *http.Client
}

func NewWhisperTranscriber(apiKey, model string) (*WhisperTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "whisper-1"
	}
	return &WhisperTranscriber{
		apiKey: apiKey,
		base:   "https://api.openai.com/v1",
		model:  model,
		client: &http.Client{Timeout: 120 * time.Second},
	}, nil
}

func (w *WhisperTranscriber) Name() string { return "openai-whisper" }

// TranscribeBytes uploads the audio as multipart form data and returns the
// recognized text. suffix carries the file extension so the API can pick
// the right decoder ("audio.webm", "audio.wav", ...).
func (w *WhisperTranscriber) TranscribeBytes(ctx context.Context, audio []byte, suffix string) (string, error) {
	if len(audio) == 0 {
		return "", domain.ErrEmptyAudio
	}
	if suffix == "" {
		suffix = ".webm"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio"+suffix)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(audio); err != nil {
		return "", err
	}
	if err := mw.WriteField("model", w.model); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.base+"/audio/transcriptions", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 400))
		return "", fmt.Errorf("whisper http %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	text := strings.TrimSpace(payload.Text)
	if text == "" {
		return "", domain.ErrEmptyTranscript
	}
	return text, nil
}
