package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"encoding/json"

	"github.com/slack-go/slack"

	"github.com/rs-systems/healthwatch/internal/models"
)

const slackTimeout = 10 * time.Second

type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
}

func NewSlackNotifier(webhookURL, channel, username string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		channel:    channel,
		username:   username,
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

func (s *SlackNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	ctx, cancel := context.WithTimeout(ctx, slackTimeout)
	defer cancel()

	fields := []slack.AttachmentField{
		{Title: "Component", Value: string(alert.Component), Short: true},
		{Title: "Time", Value: alert.CreatedAt.Format("2006-01-02 15:04:05"), Short: true},
	}
	if alert.ActualValue != nil && alert.ThresholdValue != nil {
		fields = append(fields,
			slack.AttachmentField{Title: "Actual Value", Value: formatValue(*alert.ActualValue), Short: true},
			slack.AttachmentField{Title: "Threshold", Value: formatValue(*alert.ThresholdValue), Short: true},
		)
	}

	attachment := slack.Attachment{
		Color:  severityColor(alert.Severity),
		Title:  fmt.Sprintf("%s: %s", strings.ToUpper(string(alert.Severity)), alert.Title),
		Text:   alert.Message,
		Fields: fields,
		Footer: "RS Systems Health Monitor",
		Ts:     json.Number(strconv.FormatInt(alert.CreatedAt.Unix(), 10)),
	}

	msg := &slack.WebhookMessage{
		Channel:     s.channel,
		Username:    s.username,
		IconEmoji:   severityEmoji(alert.Severity),
		Text:        fmt.Sprintf("Alert: %s", alert.Title),
		Attachments: []slack.Attachment{attachment},
	}

	if err := slack.PostWebhookContext(ctx, s.webhookURL, msg); err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	return nil
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
