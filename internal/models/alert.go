package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// Alert is the durable (process-lifetime) record of a detected problem.
// At most one unresolved alert exists per (component, type) key; the alert
// manager owns that invariant. CreatedAt is set once and never updated;
// LastSeenAt tracks refreshes within the cooldown window.
type Alert struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	Type           string     `json:"type" gorm:"index"`
	Severity       Severity   `json:"severity"`
	Component      Component  `json:"component" gorm:"index"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	ThresholdValue *float64   `json:"threshold_value,omitempty"`
	ActualValue    *float64   `json:"actual_value,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	LastSeenAt     time.Time  `json:"last_seen_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	IsResolved     bool       `json:"is_resolved"`
	Metadata       JSONMap    `json:"metadata,omitempty" gorm:"type:text"`
}

// JSONMap stores opaque key-value metadata as a JSON text column.
type JSONMap map[string]interface{}

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	}
	return json.Unmarshal(data, m)
}

// AlertSummary aggregates the active registry for the control surface.
type AlertSummary struct {
	ActiveAlertsCount  int                `json:"active_alerts_count"`
	SeverityBreakdown  map[Severity]int   `json:"severity_breakdown"`
	ComponentBreakdown map[Component]int  `json:"component_breakdown"`
	AlertsLast24h      int                `json:"alerts_last_24h"`
	MostRecentAlert    *Alert             `json:"most_recent_alert,omitempty"`
	Timestamp          time.Time          `json:"timestamp"`
}
