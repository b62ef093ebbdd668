package models

import "time"

// ComponentReport is one probe's slot in a monitoring cycle. Metrics holds
// the component's typed payload; Error is set when the probe itself failed
// and carries no metrics.
type ComponentReport struct {
	Component Component         `json:"component"`
	Health    HealthCheckResult `json:"health"`
	Metrics   interface{}       `json:"metrics,omitempty"`
	Issues    []Issue           `json:"issues"`
	HasIssues bool              `json:"has_issues"`
	Error     string            `json:"error,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

// CycleReport aggregates one full monitoring sweep.
type CycleReport struct {
	Components   map[Component]*ComponentReport `json:"components"`
	Issues       []Issue                        `json:"issues"`
	AlertSummary AlertSummary                   `json:"alert_summary"`
	Timestamp    time.Time                      `json:"timestamp"`
}

// SystemHealthSummary is the control surface's top-level health view.
type SystemHealthSummary struct {
	OverallStatus      HealthStatus                    `json:"overall_status"`
	OverallHealthScore float64                         `json:"overall_health_score"`
	Components         map[Component]HealthCheckResult `json:"components"`
	ActiveAlertsCount  int                             `json:"active_alerts_count"`
	Timestamp          time.Time                       `json:"timestamp"`
}
