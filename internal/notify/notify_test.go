package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs-systems/healthwatch/internal/models"
)

func sampleAlert() *models.Alert {
	return &models.Alert{
		ID:             "a1b2",
		Type:           "high_queue_depth",
		Severity:       models.SeverityWarning,
		Component:      models.ComponentQueue,
		Title:          "High Queue Depth",
		Message:        "Queue depth (150) exceeds threshold (100)",
		ThresholdValue: models.Float(100),
		ActualValue:    models.Float(150),
		CreatedAt:      time.Date(2026, 8, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestSlackNotifierPostsWebhook(t *testing.T) {
	var payload struct {
		Channel     string `json:"channel"`
		Username    string `json:"username"`
		Text        string `json:"text"`
		Attachments []struct {
			Color  string `json:"color"`
			Title  string `json:"title"`
			Text   string `json:"text"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"attachments"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &payload))
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "#rs-systems-alerts", "RS Health Monitor")
	require.NoError(t, n.Notify(context.Background(), sampleAlert()))

	assert.Equal(t, "#rs-systems-alerts", payload.Channel)
	assert.Equal(t, "RS Health Monitor", payload.Username)
	assert.Contains(t, payload.Text, "High Queue Depth")

	require.Len(t, payload.Attachments, 1)
	att := payload.Attachments[0]
	assert.Equal(t, "#ffc107", att.Color)
	assert.Equal(t, "WARNING: High Queue Depth", att.Title)
	require.Len(t, att.Fields, 4)
	assert.Equal(t, "queue", att.Fields[0].Value)
	assert.Equal(t, "150", att.Fields[2].Value)
	assert.Equal(t, "100", att.Fields[3].Value)
}

func TestSlackNotifierServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid_payload", http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "#alerts", "bot")
	assert.Error(t, n.Notify(context.Background(), sampleAlert()))
}

func TestEmailHTMLBody(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "user", "pass",
		"monitoring@rssystems.com", []string{"ops@rssystems.com"})

	body := n.htmlBody(sampleAlert())
	assert.Contains(t, body, "WARNING: High Queue Depth")
	assert.Contains(t, body, "#ffc107")
	assert.Contains(t, body, "queue")
	assert.Contains(t, body, "Queue depth (150) exceeds threshold (100)")
	assert.Contains(t, body, "<strong>Actual Value:</strong> 150")
	assert.Contains(t, body, "<strong>Threshold:</strong> 100")
	assert.Contains(t, body, "2026-08-01 10:30:00")
}

func TestEmailHTMLBodyWithoutValues(t *testing.T) {
	n := NewEmailNotifier("smtp.example.com", 587, "", "", "from@x", []string{"to@x"})

	alert := sampleAlert()
	alert.ActualValue = nil
	alert.ThresholdValue = nil

	body := n.htmlBody(alert)
	assert.NotContains(t, body, "Actual Value")
	assert.NotContains(t, body, "Threshold")
}

func TestSeverityPresentation(t *testing.T) {
	assert.Equal(t, "#dc3545", severityColor(models.SeverityCritical))
	assert.Equal(t, "#ffc107", severityColor(models.SeverityWarning))
	assert.Equal(t, "#28a745", severityColor(models.SeverityInfo))
	assert.Equal(t, ":red_circle:", severityEmoji(models.SeverityCritical))
	assert.Equal(t, ":warning:", severityEmoji(models.SeverityWarning))
}

func TestEmailNotifySendIsDeadlineBounded(t *testing.T) {
	// 203.0.113.1 is reserved for documentation and never answers, so the
	// send can only return through the deadline.
	n := NewEmailNotifier("203.0.113.1", 25, "", "", "from@x", []string{"to@x"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := n.Notify(ctx, sampleAlert())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}
