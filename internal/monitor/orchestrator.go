package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/rs-systems/healthwatch/internal/alert"
	"github.com/rs-systems/healthwatch/internal/models"
)

// Orchestrator runs the registered probes on a schedule or on demand,
// feeds their metrics through the threshold evaluator and keeps the alert
// manager's view of each component current.
type Orchestrator struct {
	probes    map[models.Component]Probe
	disabled  map[models.Component]bool
	evaluator *alert.Evaluator
	alerts    *alert.Manager
	sem       *semaphore.Weighted
	log       *logrus.Logger

	mu        sync.Mutex
	running   bool
	interval  int
	stopChan  chan struct{}
	lastCycle *models.CycleReport
}

type OrchestratorOptions struct {
	Probes []Probe
	// Disabled marks components that stay registered but are never probed.
	// They appear in every cycle with status "disabled".
	Disabled              []models.Component
	Evaluator             *alert.Evaluator
	Alerts                *alert.Manager
	MaxConcurrentMonitors int
}

func NewOrchestrator(opts OrchestratorOptions, log *logrus.Logger) *Orchestrator {
	maxConcurrent := opts.MaxConcurrentMonitors
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}

	probes := make(map[models.Component]Probe, len(opts.Probes))
	for _, p := range opts.Probes {
		probes[p.Component()] = p
	}
	disabled := make(map[models.Component]bool, len(opts.Disabled))
	for _, c := range opts.Disabled {
		disabled[c] = true
	}

	return &Orchestrator{
		probes:    probes,
		disabled:  disabled,
		evaluator: opts.Evaluator,
		alerts:    opts.Alerts,
		sem:       semaphore.NewWeighted(int64(maxConcurrent)),
		log:       log,
	}
}

// Components lists everything the orchestrator knows about, probed or not.
func (o *Orchestrator) Components() []models.Component {
	out := []models.Component{}
	for _, c := range models.AllComponents() {
		if _, ok := o.probes[c]; ok || o.disabled[c] {
			out = append(out, c)
		}
	}
	return out
}

// Start launches the scheduled monitoring loop. Calling Start while the loop
// is already running is a no-op.
func (o *Orchestrator) Start(intervalSeconds int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		o.log.Debug("monitoring loop already running")
		return
	}
	if intervalSeconds <= 0 {
		intervalSeconds = 300
	}

	o.interval = intervalSeconds
	o.running = true
	o.stopChan = make(chan struct{})
	go o.loop(time.Duration(intervalSeconds)*time.Second, o.stopChan)
	o.log.WithField("interval_seconds", intervalSeconds).Info("monitoring loop started")
}

// Stop halts the scheduled loop. Stopping a stopped orchestrator is a no-op.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return
	}
	o.running = false
	close(o.stopChan)
	o.log.Info("monitoring loop stopped")
}

// IsRunning reports whether the scheduled loop is active.
func (o *Orchestrator) IsRunning() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// IntervalSeconds returns the interval of the most recent Start call, or 0
// when the loop has never been started.
func (o *Orchestrator) IntervalSeconds() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.interval
}

func (o *Orchestrator) loop(interval time.Duration, stop <-chan struct{}) {
	// Run once immediately so a fresh start is not blind for a full interval.
	o.runScheduled()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			o.runScheduled()
		case <-stop:
			return
		}
	}
}

func (o *Orchestrator) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	if _, err := o.RunCycle(ctx, nil); err != nil {
		o.log.WithError(err).Error("scheduled monitoring cycle failed")
	}
}

// RunCycle probes the requested components (all registered ones when the
// slice is empty), evaluates thresholds and reconciles alert state. Probes
// run concurrently under the configured limit; evaluation and alerting run
// sequentially afterwards so alert ordering is stable.
func (o *Orchestrator) RunCycle(ctx context.Context, components []models.Component) (*models.CycleReport, error) {
	if len(components) == 0 {
		components = o.Components()
	}
	for _, c := range components {
		if _, ok := o.probes[c]; !ok && !o.disabled[c] {
			return nil, fmt.Errorf("unknown component %q", c)
		}
	}

	report := &models.CycleReport{
		Components: make(map[models.Component]*models.ComponentReport, len(components)),
		Issues:     []models.Issue{},
		Timestamp:  time.Now(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, component := range components {
		if o.disabled[component] {
			report.Components[component] = disabledReport(component)
			continue
		}

		probe := o.probes[component]
		wg.Add(1)
		go func(component models.Component, probe Probe) {
			defer wg.Done()
			if err := o.sem.Acquire(ctx, 1); err != nil {
				mu.Lock()
				report.Components[component] = errorReport(component, err)
				mu.Unlock()
				return
			}
			defer o.sem.Release(1)

			cr := o.runProbe(ctx, probe)
			mu.Lock()
			report.Components[component] = cr
			mu.Unlock()
		}(component, probe)
	}
	wg.Wait()

	for _, component := range components {
		cr := report.Components[component]
		if cr.Error != "" || o.disabled[component] {
			continue
		}

		issues := o.evaluator.Evaluate(cr.Metrics)
		cr.Issues = issues
		cr.HasIssues = len(issues) > 0
		report.Issues = append(report.Issues, issues...)

		currentTypes := make(map[string]bool, len(issues))
		for _, issue := range issues {
			currentTypes[issue.Type] = true
			o.alerts.CreateOrRefresh(ctx, issue)
		}
		resolved := o.alerts.Reconcile(component, currentTypes)
		if len(resolved) > 0 {
			o.log.WithFields(logrus.Fields{
				"component": component,
				"resolved":  len(resolved),
			}).Info("alerts auto-resolved")
		}
	}

	report.AlertSummary = o.alerts.GetAlertSummary()

	o.mu.Lock()
	o.lastCycle = report
	o.mu.Unlock()

	o.log.WithFields(logrus.Fields{
		"components": len(report.Components),
		"issues":     len(report.Issues),
	}).Info("monitoring cycle complete")
	return report, nil
}

// runProbe isolates probe panics so one broken collector cannot take down
// the whole cycle.
func (o *Orchestrator) runProbe(ctx context.Context, probe Probe) (cr *models.ComponentReport) {
	defer func() {
		if r := recover(); r != nil {
			o.log.WithFields(logrus.Fields{
				"component": probe.Component(),
				"panic":     r,
			}).Error("probe panicked")
			cr = errorReport(probe.Component(), fmt.Errorf("probe panic: %v", r))
		}
	}()
	cr = probe.Monitor(ctx)
	return cr
}

// LastCycle returns the most recent cycle report, or nil before the first
// cycle completes.
func (o *Orchestrator) LastCycle() *models.CycleReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastCycle
}

// HealthSummary runs the lightweight health checks across all components and
// scores the system: healthy components count fully, degraded half.
func (o *Orchestrator) HealthSummary(ctx context.Context) models.SystemHealthSummary {
	summary := models.SystemHealthSummary{
		Components: make(map[models.Component]models.HealthCheckResult),
		Timestamp:  time.Now(),
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, component := range o.Components() {
		if o.disabled[component] {
			summary.Components[component] = models.NewHealthCheckResult(component,
				models.StatusDisabled, "Monitoring disabled")
			continue
		}
		probe := o.probes[component]
		wg.Add(1)
		go func(component models.Component, probe Probe) {
			defer wg.Done()
			result := o.checkProbe(ctx, probe)
			mu.Lock()
			summary.Components[component] = result
			mu.Unlock()
		}(component, probe)
	}
	wg.Wait()

	scored := 0
	score := 0.0
	for _, result := range summary.Components {
		switch result.Status {
		case models.StatusHealthy:
			score += 100
			scored++
		case models.StatusDegraded:
			score += 50
			scored++
		case models.StatusUnhealthy:
			scored++
		}
	}
	if scored > 0 {
		summary.OverallHealthScore = score / float64(scored)
	} else {
		summary.OverallHealthScore = 100
	}
	switch {
	case summary.OverallHealthScore >= 90:
		summary.OverallStatus = models.StatusHealthy
	case summary.OverallHealthScore >= 70:
		summary.OverallStatus = models.StatusDegraded
	default:
		summary.OverallStatus = models.StatusUnhealthy
	}
	summary.ActiveAlertsCount = len(o.alerts.GetActiveAlerts())
	return summary
}

func (o *Orchestrator) checkProbe(ctx context.Context, probe Probe) (result models.HealthCheckResult) {
	defer func() {
		if r := recover(); r != nil {
			result = models.NewHealthCheckResult(probe.Component(), models.StatusUnhealthy,
				fmt.Sprintf("health check panic: %v", r))
		}
	}()
	return probe.CheckHealth(ctx)
}

func disabledReport(component models.Component) *models.ComponentReport {
	health := models.NewHealthCheckResult(component, models.StatusDisabled, "Monitoring disabled")
	return &models.ComponentReport{
		Component: component,
		Health:    health,
		Issues:    []models.Issue{},
		Timestamp: health.Timestamp,
	}
}
