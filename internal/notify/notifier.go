package notify

import (
	"context"

	"github.com/rs-systems/healthwatch/internal/models"
)

// Notifier is an outbound alert channel. Implementations are best-effort:
// they apply their own timeout and return an error instead of panicking, and
// a failed send never blocks the alert pipeline.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, alert *models.Alert) error
}

func severityColor(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return "#dc3545"
	case models.SeverityWarning:
		return "#ffc107"
	case models.SeverityInfo:
		return "#28a745"
	default:
		return "#808080"
	}
}

func severityEmoji(severity models.Severity) string {
	switch severity {
	case models.SeverityCritical:
		return ":red_circle:"
	case models.SeverityWarning:
		return ":warning:"
	case models.SeverityInfo:
		return ":information_source:"
	default:
		return ":bell:"
	}
}
