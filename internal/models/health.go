package models

import "time"

type Component string

const (
	ComponentDatabase Component = "database"
	ComponentAPI      Component = "api"
	ComponentQueue    Component = "queue"
	ComponentStorage  Component = "storage"
	ComponentActivity Component = "activity"
)

// AllComponents lists every monitorable component in cycle order.
func AllComponents() []Component {
	return []Component{
		ComponentDatabase,
		ComponentAPI,
		ComponentQueue,
		ComponentStorage,
		ComponentActivity,
	}
}

func IsValidComponent(c Component) bool {
	switch c {
	case ComponentDatabase, ComponentAPI, ComponentQueue, ComponentStorage, ComponentActivity:
		return true
	}
	return false
}

type HealthStatus string

const (
	StatusHealthy   HealthStatus = "healthy"
	StatusDegraded  HealthStatus = "degraded"
	StatusUnhealthy HealthStatus = "unhealthy"
	StatusDisabled  HealthStatus = "disabled"
)

// HealthCheckResult is the normalized outcome of one probe health check.
// One instance is produced per probe per cycle and never mutated afterwards.
type HealthCheckResult struct {
	Component      Component              `json:"component"`
	Status         HealthStatus           `json:"status"`
	Message        string                 `json:"message"`
	Details        map[string]interface{} `json:"details,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	ResponseTimeMs *float64               `json:"response_time_ms,omitempty"`
}

func NewHealthCheckResult(component Component, status HealthStatus, message string) HealthCheckResult {
	return HealthCheckResult{
		Component: component,
		Status:    status,
		Message:   message,
		Timestamp: time.Now(),
	}
}
