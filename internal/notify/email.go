package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/rs-systems/healthwatch/internal/models"
)

const emailTimeout = 30 * time.Second

type EmailNotifier struct {
	dialer *gomail.Dialer
	from   string
	to     []string
}

func NewEmailNotifier(host string, port int, user, password, from string, to []string) *EmailNotifier {
	return &EmailNotifier{
		dialer: gomail.NewDialer(host, port, user, password),
		from:   from,
		to:     to,
	}
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, emailTimeout)
	defer cancel()

	m := gomail.NewMessage()
	m.SetHeader("From", e.from)
	m.SetHeader("To", e.to...)
	m.SetHeader("Subject", fmt.Sprintf("[RS Systems Alert] %s: %s",
		strings.ToUpper(string(alert.Severity)), alert.Title))
	m.SetBody("text/html", e.htmlBody(alert))

	// gomail has no context support; the send runs in a goroutine and the
	// deadline bounds the whole SMTP exchange, not just the dial.
	done := make(chan error, 1)
	go func() { done <- e.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("send alert email: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *EmailNotifier) htmlBody(alert *models.Alert) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<html><body style="font-family: Arial, sans-serif;">`)
	fmt.Fprintf(&b, `<div style="background-color: %s; color: white; padding: 10px; border-radius: 5px;">`,
		severityColor(alert.Severity))
	fmt.Fprintf(&b, "<h2>%s: %s</h2></div>", strings.ToUpper(string(alert.Severity)), alert.Title)
	fmt.Fprintf(&b, `<div style="padding: 20px;">`)
	fmt.Fprintf(&b, "<p><strong>Component:</strong> %s</p>", alert.Component)
	fmt.Fprintf(&b, "<p><strong>Message:</strong> %s</p>", alert.Message)
	fmt.Fprintf(&b, "<p><strong>Time:</strong> %s</p>", alert.CreatedAt.Format("2006-01-02 15:04:05"))
	if alert.ActualValue != nil {
		fmt.Fprintf(&b, "<p><strong>Actual Value:</strong> %s</p>", formatValue(*alert.ActualValue))
	}
	if alert.ThresholdValue != nil {
		fmt.Fprintf(&b, "<p><strong>Threshold:</strong> %s</p>", formatValue(*alert.ThresholdValue))
	}
	fmt.Fprintf(&b, `<hr><p style="font-size: 12px; color: #666;">This alert was generated by RS Systems Health Monitor</p>`)
	fmt.Fprintf(&b, "</div></body></html>")
	return b.String()
}
