package models

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Issue is an ephemeral threshold-violation candidate. Issues are recomputed
// every cycle and consumed immediately by the alert manager; they are never
// persisted.
type Issue struct {
	Type      string                 `json:"type"`
	Severity  Severity               `json:"severity"`
	Component Component              `json:"component"`
	Message   string                 `json:"message"`
	Value     *float64               `json:"value,omitempty"`
	Threshold *float64               `json:"threshold,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func Float(v float64) *float64 { return &v }
