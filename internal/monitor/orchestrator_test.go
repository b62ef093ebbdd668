package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs-systems/healthwatch/internal/alert"
	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

type fakeProbe struct {
	component models.Component
	metrics   interface{}
	status    models.HealthStatus
	panics    bool

	monitorCalls int32
	healthCalls  int32
}

func (f *fakeProbe) Component() models.Component { return f.component }

func (f *fakeProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	atomic.AddInt32(&f.healthCalls, 1)
	if f.panics {
		panic("boom")
	}
	return models.NewHealthCheckResult(f.component, f.status, "fake")
}

func (f *fakeProbe) Monitor(ctx context.Context) *models.ComponentReport {
	atomic.AddInt32(&f.monitorCalls, 1)
	if f.panics {
		panic("boom")
	}
	return &models.ComponentReport{
		Component: f.component,
		Health:    models.NewHealthCheckResult(f.component, f.status, "fake"),
		Metrics:   f.metrics,
		Timestamp: time.Now(),
	}
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func newTestOrchestrator(t *testing.T, probes []Probe, disabled ...models.Component) (*Orchestrator, *alert.Manager) {
	t.Helper()
	thresholds := config.Thresholds{QueueDepth: 100, PendingRepairs: 50}
	alerts := alert.NewManager(alert.ManagerOptions{Enabled: true, CooldownMinutes: 60}, testLogger())
	o := NewOrchestrator(OrchestratorOptions{
		Probes:                probes,
		Disabled:              disabled,
		Evaluator:             alert.NewEvaluator(thresholds),
		Alerts:                alerts,
		MaxConcurrentMonitors: 2,
	}, testLogger())
	return o, alerts
}

func TestRunCycleEvaluatesAndAlerts(t *testing.T) {
	probe := &fakeProbe{
		component: models.ComponentQueue,
		status:    models.StatusHealthy,
		metrics: models.QueueMetrics{
			StatusCounts: map[string]models.QueueStatusStat{
				"REQUESTED": {Count: 150},
			},
		},
	}
	o, alerts := newTestOrchestrator(t, []Probe{probe})

	report, err := o.RunCycle(context.Background(), nil)
	require.NoError(t, err)

	cr := report.Components[models.ComponentQueue]
	require.NotNil(t, cr)
	assert.True(t, cr.HasIssues)
	require.Len(t, cr.Issues, 1)
	assert.Equal(t, "high_queue_depth", cr.Issues[0].Type)

	active := alerts.GetActiveAlerts()
	require.Len(t, active, 1)
	assert.Equal(t, "high_queue_depth", active[0].Type)
	assert.Equal(t, 1, report.AlertSummary.ActiveAlertsCount)
}

func TestRunCycleReconcilesRecoveredIssues(t *testing.T) {
	probe := &fakeProbe{
		component: models.ComponentQueue,
		status:    models.StatusHealthy,
		metrics: models.QueueMetrics{
			StatusCounts: map[string]models.QueueStatusStat{"REQUESTED": {Count: 150}},
		},
	}
	o, alerts := newTestOrchestrator(t, []Probe{probe})
	ctx := context.Background()

	_, err := o.RunCycle(ctx, nil)
	require.NoError(t, err)
	require.Len(t, alerts.GetActiveAlerts(), 1)

	// Next cycle the depth has recovered; the alert must auto-resolve.
	probe.metrics = models.QueueMetrics{
		StatusCounts: map[string]models.QueueStatusStat{"REQUESTED": {Count: 10}},
	}
	report, err := o.RunCycle(ctx, nil)
	require.NoError(t, err)

	assert.Empty(t, report.Issues)
	assert.Empty(t, alerts.GetActiveAlerts())

	history := alerts.GetHistory(0)
	require.Len(t, history, 1)
	assert.True(t, history[0].IsResolved)
}

func TestRunCycleDisabledComponentNeverProbed(t *testing.T) {
	probe := &fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy}
	o, _ := newTestOrchestrator(t, []Probe{probe}, models.ComponentStorage)

	report, err := o.RunCycle(context.Background(), nil)
	require.NoError(t, err)

	cr := report.Components[models.ComponentStorage]
	require.NotNil(t, cr)
	assert.Equal(t, models.StatusDisabled, cr.Health.Status)
	assert.Empty(t, cr.Issues)
	assert.Empty(t, cr.Error)
}

func TestRunCyclePanicIsolated(t *testing.T) {
	broken := &fakeProbe{component: models.ComponentDatabase, panics: true}
	healthy := &fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy,
		metrics: models.QueueMetrics{}}
	o, _ := newTestOrchestrator(t, []Probe{broken, healthy})

	report, err := o.RunCycle(context.Background(), nil)
	require.NoError(t, err)

	db := report.Components[models.ComponentDatabase]
	require.NotNil(t, db)
	assert.Equal(t, models.StatusUnhealthy, db.Health.Status)
	assert.Contains(t, db.Error, "panic")

	queue := report.Components[models.ComponentQueue]
	require.NotNil(t, queue)
	assert.Equal(t, models.StatusHealthy, queue.Health.Status)
}

func TestRunCycleSingleComponent(t *testing.T) {
	queueProbe := &fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy,
		metrics: models.QueueMetrics{}}
	dbProbe := &fakeProbe{component: models.ComponentDatabase, status: models.StatusHealthy,
		metrics: models.DatabaseMetrics{}}
	o, _ := newTestOrchestrator(t, []Probe{queueProbe, dbProbe})

	report, err := o.RunCycle(context.Background(), []models.Component{models.ComponentQueue})
	require.NoError(t, err)

	assert.Len(t, report.Components, 1)
	assert.Equal(t, int32(1), atomic.LoadInt32(&queueProbe.monitorCalls))
	assert.Equal(t, int32(0), atomic.LoadInt32(&dbProbe.monitorCalls))
}

func TestRunCycleUnknownComponent(t *testing.T) {
	o, _ := newTestOrchestrator(t, []Probe{
		&fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy},
	})

	_, err := o.RunCycle(context.Background(), []models.Component{models.ComponentStorage})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown component")
}

func TestStartStopIdempotent(t *testing.T) {
	probe := &fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy,
		metrics: models.QueueMetrics{}}
	o, _ := newTestOrchestrator(t, []Probe{probe})

	o.Start(3600)
	o.Start(3600) // second start is a no-op
	assert.True(t, o.IsRunning())

	o.Stop()
	o.Stop() // second stop is a no-op
	assert.False(t, o.IsRunning())

	// Start after stop works again.
	o.Start(3600)
	assert.True(t, o.IsRunning())
	o.Stop()
}

func TestLastCycle(t *testing.T) {
	probe := &fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy,
		metrics: models.QueueMetrics{}}
	o, _ := newTestOrchestrator(t, []Probe{probe})

	assert.Nil(t, o.LastCycle())

	report, err := o.RunCycle(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, report, o.LastCycle())
}

func TestHealthSummaryScoring(t *testing.T) {
	probes := []Probe{
		&fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy},
		&fakeProbe{component: models.ComponentDatabase, status: models.StatusDegraded},
	}
	o, _ := newTestOrchestrator(t, probes, models.ComponentStorage)

	summary := o.HealthSummary(context.Background())

	// (100 + 50) / 2; the disabled component does not drag the score down.
	assert.Equal(t, 75.0, summary.OverallHealthScore)
	assert.Equal(t, models.StatusDegraded, summary.OverallStatus)
	assert.Equal(t, models.StatusDisabled, summary.Components[models.ComponentStorage].Status)
	assert.Len(t, summary.Components, 3)
}

func TestHealthSummaryAllHealthy(t *testing.T) {
	o, _ := newTestOrchestrator(t, []Probe{
		&fakeProbe{component: models.ComponentQueue, status: models.StatusHealthy},
		&fakeProbe{component: models.ComponentDatabase, status: models.StatusHealthy},
	})

	summary := o.HealthSummary(context.Background())
	assert.Equal(t, 100.0, summary.OverallHealthScore)
	assert.Equal(t, models.StatusHealthy, summary.OverallStatus)
}

func TestHealthSummaryPanicUnhealthy(t *testing.T) {
	o, _ := newTestOrchestrator(t, []Probe{
		&fakeProbe{component: models.ComponentQueue, panics: true},
	})

	summary := o.HealthSummary(context.Background())
	assert.Equal(t, models.StatusUnhealthy, summary.Components[models.ComponentQueue].Status)
	assert.Equal(t, models.StatusUnhealthy, summary.OverallStatus)
}
