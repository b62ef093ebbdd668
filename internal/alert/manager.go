package alert

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rs-systems/healthwatch/internal/models"
	"github.com/rs-systems/healthwatch/internal/notify"
)

const historyCapacity = 1000

// Manager owns the alert lifecycle: creation, cooldown deduplication,
// resolution, the active registry and notification dispatch. It is the only
// component with shared mutable state; every mutation of the registry goes
// through its mutex, so concurrent cycles can never create two active alerts
// for the same (component, type) key.
type Manager struct {
	mu        sync.Mutex
	enabled   bool
	cooldown  time.Duration
	notifiers []notify.Notifier
	store     *gorm.DB
	log       *logrus.Logger

	active  map[string]*activeEntry // keyed component:type
	byID    map[string]*activeEntry
	history []*models.Alert
}

type activeEntry struct {
	alert        *models.Alert
	lastNotified time.Time
}

type ManagerOptions struct {
	Enabled         bool
	CooldownMinutes int
	Notifiers       []notify.Notifier
	// Store persists alert history when set; nil keeps history in memory only.
	Store *gorm.DB
}

func NewManager(opts ManagerOptions, log *logrus.Logger) *Manager {
	if log == nil {
		log = logrus.New()
	}
	return &Manager{
		enabled:   opts.Enabled,
		cooldown:  time.Duration(opts.CooldownMinutes) * time.Minute,
		notifiers: opts.Notifiers,
		store:     opts.Store,
		log:       log,
		active:    make(map[string]*activeEntry),
		byID:      make(map[string]*activeEntry),
	}
}

func alertKey(component models.Component, issueType string) string {
	return string(component) + ":" + issueType
}

// CreateOrRefresh applies one issue to the registry. A new key creates an
// alert and notifies; an existing key refreshes actual value and metadata in
// place, re-notifying only once the cooldown window has elapsed. The alert id
// and CreatedAt survive refreshes; LastSeenAt tracks them.
func (m *Manager) CreateOrRefresh(ctx context.Context, issue models.Issue) *models.Alert {
	now := time.Now()
	key := alertKey(issue.Component, issue.Type)

	m.mu.Lock()
	entry, exists := m.active[key]
	var snapshot models.Alert
	notifyNow := false

	if exists {
		entry.alert.ActualValue = issue.Value
		if issue.Metadata != nil {
			entry.alert.Metadata = issue.Metadata
		}
		entry.alert.Message = issue.Message
		entry.alert.LastSeenAt = now
		if now.Sub(entry.lastNotified) >= m.cooldown {
			entry.lastNotified = now
			notifyNow = true
		}
		snapshot = *entry.alert
	} else {
		alert := &models.Alert{
			ID:             uuid.NewString(),
			Type:           issue.Type,
			Severity:       issue.Severity,
			Component:      issue.Component,
			Title:          titleForIssue(issue.Type),
			Message:        issue.Message,
			ThresholdValue: issue.Threshold,
			ActualValue:    issue.Value,
			CreatedAt:      now,
			LastSeenAt:     now,
			Metadata:       issue.Metadata,
		}
		entry = &activeEntry{alert: alert, lastNotified: now}
		m.active[key] = entry
		m.byID[alert.ID] = entry
		m.appendHistory(alert)
		notifyNow = true
		snapshot = *alert

		m.log.WithFields(logrus.Fields{
			"alert_id":  alert.ID,
			"component": alert.Component,
			"type":      alert.Type,
			"severity":  alert.Severity,
		}).Info("alert created")
	}
	m.mu.Unlock()

	m.persist(&snapshot)
	if notifyNow {
		m.dispatch(ctx, &snapshot)
	}
	return &snapshot
}

// Resolve marks an alert resolved and drops it from the active registry.
// An unknown or already-resolved id is a no-op.
func (m *Manager) Resolve(alertID string) {
	m.mu.Lock()
	entry, ok := m.byID[alertID]
	if !ok {
		m.mu.Unlock()
		return
	}
	m.resolveLocked(entry)
	snapshot := *entry.alert
	m.mu.Unlock()

	m.persist(&snapshot)
}

// Reconcile auto-resolves every active alert for component whose issue type
// is absent from the current cycle's set. This is how transient problems
// self-heal without manual intervention.
func (m *Manager) Reconcile(component models.Component, currentTypes map[string]bool) []models.Alert {
	m.mu.Lock()
	var resolved []models.Alert
	for _, entry := range m.active {
		if entry.alert.Component != component {
			continue
		}
		if currentTypes[entry.alert.Type] {
			continue
		}
		m.resolveLocked(entry)
		resolved = append(resolved, *entry.alert)
	}
	m.mu.Unlock()

	for i := range resolved {
		m.persist(&resolved[i])
	}
	return resolved
}

// resolveLocked must run with m.mu held.
func (m *Manager) resolveLocked(entry *activeEntry) {
	now := time.Now()
	entry.alert.IsResolved = true
	entry.alert.ResolvedAt = &now
	delete(m.active, alertKey(entry.alert.Component, entry.alert.Type))
	delete(m.byID, entry.alert.ID)

	m.log.WithFields(logrus.Fields{
		"alert_id":  entry.alert.ID,
		"component": entry.alert.Component,
		"type":      entry.alert.Type,
	}).Info("alert resolved")
}

// GetActiveAlerts returns copies of all unresolved alerts, newest first.
func (m *Manager) GetActiveAlerts() []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	alerts := make([]models.Alert, 0, len(m.active))
	for _, entry := range m.active {
		alerts = append(alerts, *entry.alert)
	}
	sort.Slice(alerts, func(i, j int) bool {
		return alerts[i].CreatedAt.After(alerts[j].CreatedAt)
	})
	return alerts
}

// GetHistory returns up to limit recent alerts, newest first.
func (m *Manager) GetHistory(limit int) []models.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()

	if limit <= 0 || limit > len(m.history) {
		limit = len(m.history)
	}
	out := make([]models.Alert, 0, limit)
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, *m.history[i])
	}
	return out
}

func (m *Manager) GetAlertSummary() models.AlertSummary {
	m.mu.Lock()
	defer m.mu.Unlock()

	summary := models.AlertSummary{
		ActiveAlertsCount: len(m.active),
		SeverityBreakdown: map[models.Severity]int{
			models.SeverityCritical: 0,
			models.SeverityWarning:  0,
			models.SeverityInfo:     0,
		},
		ComponentBreakdown: make(map[models.Component]int),
		Timestamp:          time.Now(),
	}

	var newest *models.Alert
	for _, entry := range m.active {
		summary.SeverityBreakdown[entry.alert.Severity]++
		summary.ComponentBreakdown[entry.alert.Component]++
		if newest == nil || entry.alert.CreatedAt.After(newest.CreatedAt) {
			newest = entry.alert
		}
	}
	if newest != nil {
		cp := *newest
		summary.MostRecentAlert = &cp
	}

	cutoff := time.Now().Add(-24 * time.Hour)
	for _, a := range m.history {
		if a.CreatedAt.After(cutoff) {
			summary.AlertsLast24h++
		}
	}

	return summary
}

// ActiveTypes returns the set of unresolved issue types for one component.
func (m *Manager) ActiveTypes(component models.Component) map[string]bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	types := make(map[string]bool)
	for _, entry := range m.active {
		if entry.alert.Component == component {
			types[entry.alert.Type] = true
		}
	}
	return types
}

// appendHistory must run with m.mu held.
func (m *Manager) appendHistory(alert *models.Alert) {
	m.history = append(m.history, alert)
	if len(m.history) > historyCapacity {
		m.history = m.history[len(m.history)-historyCapacity:]
	}
}

// dispatch sends the alert to every configured channel. A failing channel is
// logged and skipped; alert state is never rolled back on send failure.
func (m *Manager) dispatch(ctx context.Context, alert *models.Alert) {
	if !m.enabled {
		return
	}
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, alert); err != nil {
			m.log.WithFields(logrus.Fields{
				"channel":  n.Name(),
				"alert_id": alert.ID,
			}).WithError(err).Error("notification failed")
		}
	}
}

func (m *Manager) persist(alert *models.Alert) {
	if m.store == nil {
		return
	}
	if err := m.store.Save(alert).Error; err != nil {
		m.log.WithError(err).WithField("alert_id", alert.ID).Warn("failed to persist alert")
	}
}

// titleForIssue turns an issue type tag into a human-readable title,
// e.g. "high_queue_depth" -> "High Queue Depth".
func titleForIssue(issueType string) string {
	words := strings.Split(issueType, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
