package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"github.com/factoryop/platform/internal/config"
	"github.com/factoryop/platform/internal/models"
)

// Transport sends one rendered alert notification to a channel's configured
// target. One implementation per NotificationChannelKind, grounded on the
// teacher's per-provider file layout (discord.go/telegram.go implementing a
// shared AlertProvider interface).
type Transport interface {
	Send(ctx context.Context, target, subject, body string) error
}

// Transports resolves a channel kind to its transport. No SMTP library or
// WhatsApp SDK binding exists anywhere in the examples, so these are
// justified stdlib/plain-HTTP implementations (see design ledger).
func Transports(cfg config.NotificationConfig) map[models.NotificationChannelKind]Transport {
	return map[models.NotificationChannelKind]Transport{
		models.ChannelEmail:    newEmailTransport(cfg.SMTP),
		models.ChannelWhatsApp: newWhatsAppTransport(cfg.WhatsApp),
	}
}

type emailTransport struct {
	addr string
	auth smtp.Auth
	from string
}

func newEmailTransport(cfg config.SMTPConfig) *emailTransport {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return &emailTransport{
		addr: fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth: auth,
		from: cfg.From,
	}
}

func (t *emailTransport) Send(ctx context.Context, target, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n", t.from, target, subject, body)
	return smtp.SendMail(t.addr, t.auth, t.from, []string{target}, []byte(msg))
}

type whatsAppTransport struct {
	apiBaseURL string
	apiToken   string
	fromPhone  string
	httpClient *http.Client
}

func newWhatsAppTransport(cfg config.WhatsAppConfig) *whatsAppTransport {
	return &whatsAppTransport{
		apiBaseURL: cfg.APIBaseURL,
		apiToken:   cfg.APIToken,
		fromPhone:  cfg.FromPhone,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *whatsAppTransport) Send(ctx context.Context, target, subject, body string) error {
	payload := fmt.Sprintf(`{"from":%q,"to":%q,"message":%q}`, t.fromPhone, target, subject+": "+body)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.apiBaseURL+"/messages", bytes.NewBufferString(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if t.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiToken)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("whatsapp api: unexpected status %d", resp.StatusCode)
	}
	return nil
}
