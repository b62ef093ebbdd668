package monitor

import (
	"context"

	"github.com/rs-systems/healthwatch/internal/models"
)

// Probe observes one external subsystem. Implementations are read-only
// against the subsystem and must never let a failure escape as an error or
// panic: CheckHealth converts internal failures to status=unhealthy, and
// Monitor fills the report's Error field instead of returning one. Probes
// hold no mutable state across calls beyond small bounded rolling counters.
type Probe interface {
	Component() models.Component
	CheckHealth(ctx context.Context) models.HealthCheckResult
	Monitor(ctx context.Context) *models.ComponentReport
}

func errorReport(component models.Component, err error) *models.ComponentReport {
	health := models.NewHealthCheckResult(component, models.StatusUnhealthy, err.Error())
	return &models.ComponentReport{
		Component: component,
		Health:    health,
		Error:     err.Error(),
		Timestamp: health.Timestamp,
	}
}
