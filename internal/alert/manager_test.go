package alert

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs-systems/healthwatch/internal/models"
	"github.com/rs-systems/healthwatch/internal/notify"
)

type recordingNotifier struct {
	mu    sync.Mutex
	sends []models.Alert
	err   error
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(ctx context.Context, alert *models.Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sends = append(r.sends, *alert)
	return r.err
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sends)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestManager(notifiers ...notify.Notifier) *Manager {
	return NewManager(ManagerOptions{
		Enabled:         true,
		CooldownMinutes: 60,
		Notifiers:       notifiers,
	}, quietLogger())
}

func queueIssue(issueType string) models.Issue {
	return models.Issue{
		Type:      issueType,
		Severity:  models.SeverityWarning,
		Component: models.ComponentQueue,
		Message:   "test issue",
		Value:     models.Float(150),
		Threshold: models.Float(100),
	}
}

func TestCreateOrRefreshDeduplicates(t *testing.T) {
	n := &recordingNotifier{}
	m := newTestManager(n)
	ctx := context.Background()

	first := m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	second := m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))

	// Same key refreshes in place: identity and CreatedAt survive.
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
	assert.False(t, second.LastSeenAt.Before(first.LastSeenAt))

	active := m.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "High Queue Depth", active[0].Title)

	// Within cooldown only the creation notifies.
	assert.Equal(t, 1, n.count())
}

func TestCooldownElapsedRenotifies(t *testing.T) {
	n := &recordingNotifier{}
	m := NewManager(ManagerOptions{
		Enabled:         true,
		CooldownMinutes: 0, // every refresh is past the cooldown window
		Notifiers:       []notify.Notifier{n},
	}, quietLogger())
	ctx := context.Background()

	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))

	assert.Equal(t, 3, n.count())
	assert.Len(t, m.GetActiveAlerts(), 1)
}

func TestDistinctTypesAreDistinctAlerts(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.CreateOrRefresh(ctx, queueIssue("stuck_repairs"))

	issue := queueIssue("high_queue_depth")
	issue.Component = models.ComponentDatabase
	m.CreateOrRefresh(ctx, issue)

	assert.Len(t, m.GetActiveAlerts(), 3)
}

func TestResolveUnknownIDIsNoop(t *testing.T) {
	m := newTestManager()

	m.Resolve("no-such-alert")

	a := m.CreateOrRefresh(context.Background(), queueIssue("high_queue_depth"))
	m.Resolve(a.ID)
	m.Resolve(a.ID) // second resolve of the same id is also a no-op

	assert.Empty(t, m.GetActiveAlerts())

	history := m.GetHistory(0)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsResolved)
	require.NotNil(t, history[0].ResolvedAt)
}

func TestResolvedKeyCanFireAgain(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	first := m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.Resolve(first.ID)

	second := m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	assert.NotEqual(t, first.ID, second.ID)
	assert.Len(t, m.GetActiveAlerts(), 1)
	assert.Len(t, m.GetHistory(0), 2)
}

func TestReconcileResolvesAbsentTypes(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.CreateOrRefresh(ctx, queueIssue("stuck_repairs"))

	dbIssue := queueIssue("slow_queries")
	dbIssue.Component = models.ComponentDatabase
	m.CreateOrRefresh(ctx, dbIssue)

	// The new cycle still sees stuck repairs but the depth recovered.
	resolved := m.Reconcile(models.ComponentQueue, map[string]bool{"stuck_repairs": true})
	require.Len(t, resolved, 1)
	assert.Equal(t, "high_queue_depth", resolved[0].Type)
	assert.True(t, resolved[0].IsResolved)

	// Other components are untouched.
	active := m.GetActiveAlerts()
	require.Len(t, active, 2)
	assert.Equal(t, map[string]bool{"slow_queries": true},
		m.ActiveTypes(models.ComponentDatabase))
}

func TestReconcileEmptyCycleResolvesAll(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
	m.CreateOrRefresh(ctx, queueIssue("stuck_repairs"))

	resolved := m.Reconcile(models.ComponentQueue, map[string]bool{})
	assert.Len(t, resolved, 2)
	assert.Empty(t, m.ActiveTypes(models.ComponentQueue))
}

func TestNotifierFailureDoesNotRollBackState(t *testing.T) {
	n := &recordingNotifier{err: assert.AnError}
	m := newTestManager(n)

	m.CreateOrRefresh(context.Background(), queueIssue("high_queue_depth"))

	assert.Equal(t, 1, n.count())
	assert.Len(t, m.GetActiveAlerts(), 1)
}

func TestDisabledManagerTracksButStaysSilent(t *testing.T) {
	n := &recordingNotifier{}
	m := NewManager(ManagerOptions{
		Enabled:         false,
		CooldownMinutes: 60,
		Notifiers:       []notify.Notifier{n},
	}, quietLogger())

	m.CreateOrRefresh(context.Background(), queueIssue("high_queue_depth"))

	assert.Equal(t, 0, n.count())
	assert.Len(t, m.GetActiveAlerts(), 1)
}

func TestGetHistoryLimit(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	for _, issueType := range []string{"a", "b", "c", "d"} {
		m.CreateOrRefresh(ctx, queueIssue(issueType))
	}

	history := m.GetHistory(2)
	require.Len(t, history, 2)
	// Newest first.
	assert.Equal(t, "d", history[0].Type)
	assert.Equal(t, "c", history[1].Type)

	assert.Len(t, m.GetHistory(0), 4)
	assert.Len(t, m.GetHistory(100), 4)
}

func TestGetAlertSummary(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	critical := queueIssue("low_completion_rate")
	critical.Severity = models.SeverityCritical
	m.CreateOrRefresh(ctx, critical)
	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))

	dbIssue := queueIssue("slow_queries")
	dbIssue.Component = models.ComponentDatabase
	m.CreateOrRefresh(ctx, dbIssue)

	summary := m.GetAlertSummary()
	assert.Equal(t, 3, summary.ActiveAlertsCount)
	assert.Equal(t, 1, summary.SeverityBreakdown[models.SeverityCritical])
	assert.Equal(t, 2, summary.SeverityBreakdown[models.SeverityWarning])
	assert.Equal(t, 2, summary.ComponentBreakdown[models.ComponentQueue])
	assert.Equal(t, 1, summary.ComponentBreakdown[models.ComponentDatabase])
	assert.Equal(t, 3, summary.AlertsLast24h)
	require.NotNil(t, summary.MostRecentAlert)
}

func TestConcurrentCreateOrRefreshSingleAlert(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))
		}()
	}
	wg.Wait()

	// The registry invariant: one active alert per (component, type) key no
	// matter how many cycles race.
	assert.Len(t, m.GetActiveAlerts(), 1)
	assert.Len(t, m.GetHistory(0), 1)
}

func TestTitleForIssue(t *testing.T) {
	assert.Equal(t, "High Queue Depth", titleForIssue("high_queue_depth"))
	assert.Equal(t, "Slow Queries", titleForIssue("slow_queries"))
	assert.Equal(t, "Lock Contention", titleForIssue("lock_contention"))
}

func TestRefreshUpdatesActualValue(t *testing.T) {
	m := newTestManager()
	ctx := context.Background()

	m.CreateOrRefresh(ctx, queueIssue("high_queue_depth"))

	bumped := queueIssue("high_queue_depth")
	bumped.Value = models.Float(220)
	bumped.Message = "Queue depth (220) exceeds threshold (100)"
	refreshed := m.CreateOrRefresh(ctx, bumped)

	require.NotNil(t, refreshed.ActualValue)
	assert.Equal(t, 220.0, *refreshed.ActualValue)
	assert.Equal(t, "Queue depth (220) exceeds threshold (100)", refreshed.Message)

	active := m.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, 220.0, *active[0].ActualValue)
}

func TestCreatedAtPrecedesResolvedAt(t *testing.T) {
	m := newTestManager()

	a := m.CreateOrRefresh(context.Background(), queueIssue("high_queue_depth"))
	time.Sleep(time.Millisecond)
	m.Resolve(a.ID)

	history := m.GetHistory(1)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].ResolvedAt)
	assert.True(t, history[0].ResolvedAt.After(history[0].CreatedAt))
}
