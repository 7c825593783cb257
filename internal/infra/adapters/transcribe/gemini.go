// File: internal/infra/adapters/transcribe/gemini.go
package transcribe

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/ports/adapter"
)

var _ adapter.Transcriber = (*GeminiTranscriber)(nil)

const transcribePrompt = "Transcribe this audio recording verbatim. Return only the spoken words, no commentary."

// GeminiTranscriber implements adapter.Transcriber using the official SDK
// with the audio passed inline.
type GeminiTranscriber struct {
	client *genai.Client
	model  string
}

func NewGeminiTranscriber(ctx context.Context, apiKey, baseURL, model string) (*GeminiTranscriber, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	return &GeminiTranscriber{client: c, model: model}, nil
}

func (g *GeminiTranscriber) Name() string { return "gemini" }

func (g *GeminiTranscriber) TranscribeBytes(ctx context.Context, audio []byte, suffix string) (string, error) {
	if len(audio) == 0 {
		return "", domain.ErrEmptyAudio
	}
	contents := []*genai.Content{{
		Role: genai.RoleUser,
		Parts: []*genai.Part{
			{Text: transcribePrompt},
			{InlineData: &genai.Blob{MIMEType: mimeForSuffix(suffix), Data: audio}},
		},
	}}
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", err
	}
	text := ""
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var b strings.Builder
		for _, p := range resp.Candidates[0].Content.Parts {
			if p.Text != "" {
				b.WriteString(p.Text)
			}
		}
		text = strings.TrimSpace(b.String())
	}
	if text == "" {
		return "", domain.ErrEmptyTranscript
	}
	return text, nil
}

func mimeForSuffix(suffix string) string {
	switch strings.ToLower(suffix) {
	case ".ogg":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".m4a":
		return "audio/mp4"
	default:
		return "audio/webm"
	}
}
