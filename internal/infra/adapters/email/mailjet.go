// File: internal/infra/adapters/email/mailjet.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"

	"voice-summary-service/internal/domain"
	"voice-summary-service/internal/domain/model"
	"voice-summary-service/internal/domain/ports/adapter"
	"voice-summary-service/internal/infra/metrics"

	"github.com/rs/zerolog"
)

var _ adapter.EmailSender = (*MailjetSender)(nil)

const maxErrorBodyLen = 400

// MailjetSender sends summary emails through the Mailjet v3.1 send API
// using basic auth with the API key pair.
type MailjetSender struct {
	apiKey    string
	apiSecret string
	baseURL   string
	fromEmail string
	fromName  string
	subject   string
	replyTo   string
	client    *http.Client
	log       zerolog.Logger
}

func NewMailjetSender(apiKey, apiSecret, baseURL, fromEmail, fromName, subject, replyTo string, timeout time.Duration, logger *zerolog.Logger) (*MailjetSender, error) {
	if apiKey == "" || apiSecret == "" {
		return nil, errors.New("mailjet api key and secret are required")
	}
	if fromEmail == "" {
		return nil, errors.New("mailjet from address is required")
	}
	if baseURL == "" {
		baseURL = "https://api.mailjet.com"
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &MailjetSender{
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   strings.TrimRight(baseURL, "/"),
		fromEmail: fromEmail,
		fromName:  fromName,
		subject:   subject,
		replyTo:   replyTo,
		client:    &http.Client{Timeout: timeout},
		log:       logger.With().Str("component", "mailjet").Logger(),
	}, nil
}

func (m *MailjetSender) Provider() string { return "mailjet" }

type mailjetMessage struct {
	From     mailjetAddress  `json:"From"`
	To       []mailjetAddress `json:"To"`
	ReplyTo  *mailjetAddress  `json:"ReplyTo,omitempty"`
	Subject  string           `json:"Subject"`
	TextPart string           `json:"TextPart"`
	HTMLPart string           `json:"HTMLPart"`
	CustomID string           `json:"CustomID,omitempty"`
}

type mailjetAddress struct {
	Email string `json:"Email"`
	Name  string `json:"Name,omitempty"`
}

type mailjetResponse struct {
	Messages []struct {
		Status string `json:"Status"`
		Errors []struct {
			ErrorCode    string `json:"ErrorCode"`
			ErrorMessage string `json:"ErrorMessage"`
		} `json:"Errors"`
		To []struct {
			Email        string `json:"Email"`
			MessageID    int64  `json:"MessageID"`
			MessageUUID  string `json:"MessageUUID"`
			MessageHref  string `json:"MessageHref"`
			MessageState string `json:"MessageState"`
		} `json:"To"`
	} `json:"Messages"`
}

// SendSummaryEmail delivers the summary to recipient and classifies failures
// so callers can distinguish transport, auth and provider-side errors.
func (m *MailjetSender) SendSummaryEmail(ctx context.Context, recipient string, summary *model.Summary, correlationID string) (*adapter.EmailSendResult, error) {
	start := time.Now()
	res, err := m.send(ctx, recipient, summary, correlationID)
	metrics.ObserveEmailSendLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.IncEmailSend("failed")
		return nil, err
	}
	metrics.IncEmailSend("sent")
	m.log.Debug().
		Str("message_id", res.MessageID).
		Str("provider_status", res.ProviderStatus).
		Str("correlation_id", correlationID).
		Msg("summary email accepted by provider")
	return res, nil
}

func (m *MailjetSender) send(ctx context.Context, recipient string, summary *model.Summary, correlationID string) (*adapter.EmailSendResult, error) {
	msg := mailjetMessage{
		From:     mailjetAddress{Email: m.fromEmail, Name: m.fromName},
		To:       []mailjetAddress{{Email: recipient}},
		Subject:  m.subject,
		TextPart: renderText(summary),
		HTMLPart: renderHTML(summary),
		CustomID: correlationID,
	}
	if m.replyTo != "" {
		msg.ReplyTo = &mailjetAddress{Email: m.replyTo}
	}
	body, _ := json.Marshal(map[string]any{"Messages": []mailjetMessage{msg}})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/v3.1/send", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(m.apiKey, m.apiSecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrEmailTransport, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: mailjet rejected credentials (key %s / secret %s); verify the configured API key pair",
			domain.ErrEmailAuth, maskSecret(m.apiKey), maskSecret(m.apiSecret))
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("%w: http %d: %s", domain.ErrEmailProvider, resp.StatusCode, truncate(string(raw), maxErrorBodyLen))
	}

	var out mailjetResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: unparseable response: %s", domain.ErrEmailProvider, truncate(string(raw), maxErrorBodyLen))
	}
	if len(out.Messages) == 0 {
		return nil, fmt.Errorf("%w: empty Messages in response", domain.ErrEmailProvider)
	}
	first := out.Messages[0]
	if !strings.EqualFold(first.Status, "success") || len(first.Errors) > 0 {
		detail := first.Status
		if len(first.Errors) > 0 {
			detail = fmt.Sprintf("%s: %s %s", first.Status, first.Errors[0].ErrorCode, first.Errors[0].ErrorMessage)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrEmailProvider, truncate(detail, maxErrorBodyLen))
	}
	if len(first.To) == 0 || (first.To[0].MessageID == 0 && first.To[0].MessageUUID == "") {
		return nil, fmt.Errorf("%w: success status without message id", domain.ErrEmailProvider)
	}

	to := first.To[0]
	messageID := to.MessageUUID
	if messageID == "" {
		messageID = fmt.Sprintf("%d", to.MessageID)
	}
	return &adapter.EmailSendResult{
		MessageID:      messageID,
		ProviderStatus: strings.ToLower(first.Status),
		MessageHref:    to.MessageHref,
		RecipientState: to.MessageState,
	}, nil
}

func renderText(summary *model.Summary) string {
	var b strings.Builder
	b.WriteString("Your conversation summary\n\n")
	b.WriteString("Key points:\n")
	for _, bullet := range summary.Bullets {
		b.WriteString("- " + bullet + "\n")
	}
	b.WriteString("\nNext step: " + summary.NextStep + "\n")
	return b.String()
}

func renderHTML(summary *model.Summary) string {
	var b strings.Builder
	b.WriteString("<h2>Your conversation summary</h2>")
	b.WriteString("<p>Key points:</p><ul>")
	for _, bullet := range summary.Bullets {
		b.WriteString("<li>" + html.EscapeString(bullet) + "</li>")
	}
	b.WriteString("</ul>")
	b.WriteString("<p><strong>Next step:</strong> " + html.EscapeString(summary.NextStep) + "</p>")
	return b.String()
}

// maskSecret keeps just enough of a credential to identify which key was used.
func maskSecret(s string) string {
	if len(s) <= 8 {
		return strings.Repeat("*", len(s))
	}
	return s[:4] + "..." + s[len(s)-4:]
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
