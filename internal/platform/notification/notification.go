// Package notification renders and delivers SMS messages to patients.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Template ids.
const (
	TemplateSignupOTP  = "patient-signup-otp"
	TemplateLoginOTP   = "patient-login-otp"
	TemplatePINChanged = "patient-pin-changed"
)

// SMSSender delivers a single SMS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// Template is a reusable message body with {{key}} placeholders.
type Template struct {
	ID   string
	Body string
}

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range []Template{
		{ID: TemplateSignupOTP, Body: "{{code}} is your Bhishak Med verification code. It expires in {{minutes}} minutes. Do not share it with anyone."},
		{ID: TemplateLoginOTP, Body: "{{code}} is your Bhishak Med login code. It expires in {{minutes}} minutes."},
		{ID: TemplatePINChanged, Body: "Hi {{name}}, your Bhishak Med PIN was changed. If this was not you, contact support immediately."},
	} {
		e.templates[t.ID] = t
	}
	return e
}

// RegisterTemplate adds or replaces a template.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

// Render performs {{key}} replacement. Placeholders absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (string, error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("template %q not found", templateID)
	}

	body := t.Body
	for k, v := range data {
		body = strings.ReplaceAll(body, "{{"+k+"}}", v)
	}
	return body, nil
}

// Notifier renders templates and sends them, retrying transient failures.
type Notifier struct {
	sender    SMSSender
	templates *TemplateEngine
	attempts  int
	backoff   time.Duration
}

// NewNotifier creates a Notifier making up to attempts delivery tries.
func NewNotifier(sender SMSSender, templates *TemplateEngine, attempts int, backoff time.Duration) *Notifier {
	if attempts < 1 {
		attempts = 1
	}
	return &Notifier{sender: sender, templates: templates, attempts: attempts, backoff: backoff}
}

// Send renders templateID with data and delivers it to phone.
func (n *Notifier) Send(ctx context.Context, phone, templateID string, data map[string]string) error {
	body, err := n.templates.Render(templateID, data)
	if err != nil {
		return err
	}

	var lastErr error
	for i := 0; i < n.attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(lastErr, ctx.Err())
			case <-time.After(n.backoff * time.Duration(i)):
			}
		}
		if lastErr = n.sender.SendSMS(ctx, phone, body); lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("send sms after %d attempts: %w", n.attempts, lastErr)
}

// LogSender writes messages to the log instead of an SMS gateway. It is the
// sender used in development.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info().Str("to", to).Str("body", body).Msg("sms (log sender)")
	return nil
}

// MaskPhone hides all but the last four digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return strings.Repeat("*", len(phone))
	}
	return strings.Repeat("*", len(phone)-4) + phone[len(phone)-4:]
}
