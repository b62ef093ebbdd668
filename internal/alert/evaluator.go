package alert

import (
	"fmt"
	"sort"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// Evaluator turns a component's typed metrics payload into an ordered list
// of issues. Evaluation is pure: no side effects, and the same metrics with
// the same thresholds always yield the same issue list. Rules within one
// component run in a fixed declared order and never depend on each other.
type Evaluator struct {
	thresholds config.Thresholds
}

func NewEvaluator(thresholds config.Thresholds) *Evaluator {
	return &Evaluator{thresholds: thresholds}
}

// Evaluate dispatches on the payload type. Unknown payloads produce no
// issues; the probe that made them owns their interpretation.
func (e *Evaluator) Evaluate(metrics interface{}) []models.Issue {
	switch m := metrics.(type) {
	case models.DatabaseMetrics:
		return e.EvaluateDatabase(m)
	case models.QueueMetrics:
		return e.EvaluateQueue(m)
	case models.APIMetrics:
		return e.EvaluateAPI(m)
	case models.StorageMetrics:
		return e.EvaluateStorage(m)
	case models.ActivityMetrics:
		return e.EvaluateActivity(m)
	}
	return nil
}

func (e *Evaluator) EvaluateDatabase(m models.DatabaseMetrics) []models.Issue {
	var issues []models.Issue

	if n := len(m.SlowQueries); n > 0 {
		issues = append(issues, models.Issue{
			Type:      "slow_queries",
			Severity:  models.SeverityWarning,
			Component: models.ComponentDatabase,
			Message:   fmt.Sprintf("Found %d queries slower than %.0fms", n, e.thresholds.DBQueryMs),
			Value:     models.Float(float64(n)),
		})
	}

	if m.ConnectionStats.PoolUsagePct > e.thresholds.DBConnectionsPct {
		issues = append(issues, models.Issue{
			Type:      "high_connection_usage",
			Severity:  models.SeverityWarning,
			Component: models.ComponentDatabase,
			Message: fmt.Sprintf("Connection pool usage (%.1f%%) exceeds threshold (%.0f%%)",
				m.ConnectionStats.PoolUsagePct, e.thresholds.DBConnectionsPct),
			Value:     models.Float(m.ConnectionStats.PoolUsagePct),
			Threshold: models.Float(e.thresholds.DBConnectionsPct),
		})
	}

	var maxWait float64
	var waiting int
	for _, lock := range m.Locks {
		if lock.Granted && lock.WaitMs > e.thresholds.DBLockWaitMs {
			waiting++
			if lock.WaitMs > maxWait {
				maxWait = lock.WaitMs
			}
		}
	}
	if waiting > 0 {
		issues = append(issues, models.Issue{
			Type:      "lock_contention",
			Severity:  models.SeverityWarning,
			Component: models.ComponentDatabase,
			Message: fmt.Sprintf("%d locks held longer than %.0fms (max %.0fms)",
				waiting, e.thresholds.DBLockWaitMs, maxWait),
			Value:     models.Float(maxWait),
			Threshold: models.Float(e.thresholds.DBLockWaitMs),
		})
	}

	return issues
}

func (e *Evaluator) EvaluateQueue(m models.QueueMetrics) []models.Issue {
	var issues []models.Issue

	if n := len(m.StuckRepairs); n > 0 {
		// One batched issue listing the first 5 affected repairs.
		ids := make([]int64, 0, 5)
		for _, r := range m.StuckRepairs {
			if len(ids) == 5 {
				break
			}
			ids = append(ids, r.RepairID)
		}
		issues = append(issues, models.Issue{
			Type:      "stuck_repairs",
			Severity:  models.SeverityWarning,
			Component: models.ComponentQueue,
			Message: fmt.Sprintf("Found %d repairs stuck for over %.0f hours",
				n, e.thresholds.QueueStuckHours),
			Value:     models.Float(float64(n)),
			Threshold: models.Float(e.thresholds.QueueStuckHours),
			Metadata:  map[string]interface{}{"repairs": ids},
		})
	}

	if depth := m.TotalDepth(); float64(depth) > e.thresholds.QueueDepth {
		issues = append(issues, models.Issue{
			Type:      "high_queue_depth",
			Severity:  models.SeverityWarning,
			Component: models.ComponentQueue,
			Message: fmt.Sprintf("Queue depth (%d) exceeds threshold (%.0f)",
				depth, e.thresholds.QueueDepth),
			Value:     models.Float(float64(depth)),
			Threshold: models.Float(e.thresholds.QueueDepth),
		})
	}

	if pending := m.StatusCounts["PENDING"].Count; float64(pending) > e.thresholds.PendingRepairs {
		issues = append(issues, models.Issue{
			Type:      "high_pending_count",
			Severity:  models.SeverityWarning,
			Component: models.ComponentQueue,
			Message: fmt.Sprintf("Pending repairs (%d) exceeds threshold (%.0f)",
				pending, e.thresholds.PendingRepairs),
			Value:     models.Float(float64(pending)),
			Threshold: models.Float(e.thresholds.PendingRepairs),
		})
	}

	// Completion rate below 50% is always critical; the threshold is fixed.
	// Only meaningful once the 7-day window saw any requests at all.
	if m.Throughput.TotalRequests7d > 0 && m.Throughput.CompletionRatePct < 50 {
		issues = append(issues, models.Issue{
			Type:      "low_completion_rate",
			Severity:  models.SeverityCritical,
			Component: models.ComponentQueue,
			Message:   fmt.Sprintf("Low completion rate: %.1f%%", m.Throughput.CompletionRatePct),
			Value:     models.Float(m.Throughput.CompletionRatePct),
			Threshold: models.Float(50),
		})
	}

	return issues
}

func (e *Evaluator) EvaluateAPI(m models.APIMetrics) []models.Issue {
	var issues []models.Issue

	if m.Summary.ErrorRatePct > e.thresholds.APIErrorRatePct {
		issues = append(issues, models.Issue{
			Type:      "high_error_rate",
			Severity:  models.SeverityCritical,
			Component: models.ComponentAPI,
			Message: fmt.Sprintf("API error rate (%.1f%%) exceeds threshold (%.0f%%)",
				m.Summary.ErrorRatePct, e.thresholds.APIErrorRatePct),
			Value:     models.Float(m.Summary.ErrorRatePct),
			Threshold: models.Float(e.thresholds.APIErrorRatePct),
		})
	}

	if m.Summary.AverageResponseTimeMs > e.thresholds.APIResponseMs {
		issues = append(issues, models.Issue{
			Type:      "slow_response",
			Severity:  models.SeverityWarning,
			Component: models.ComponentAPI,
			Message: fmt.Sprintf("Average API response time (%.0fms) exceeds threshold (%.0fms)",
				m.Summary.AverageResponseTimeMs, e.thresholds.APIResponseMs),
			Value:     models.Float(m.Summary.AverageResponseTimeMs),
			Threshold: models.Float(e.thresholds.APIResponseMs),
		})
	}

	// One issue per breaching endpoint, in path order so re-evaluation of the
	// same metrics yields an identical list.
	paths := make([]string, 0, len(m.Endpoints))
	for path := range m.Endpoints {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	for _, path := range paths {
		em := m.Endpoints[path]
		if em.AverageResponseTimeMs > e.thresholds.APIResponseMs {
			issues = append(issues, models.Issue{
				Type:      "slow_endpoint",
				Severity:  models.SeverityWarning,
				Component: models.ComponentAPI,
				Message: fmt.Sprintf("Endpoint %s response time (%.0fms) exceeds threshold (%.0fms)",
					path, em.AverageResponseTimeMs, e.thresholds.APIResponseMs),
				Value:     models.Float(em.AverageResponseTimeMs),
				Threshold: models.Float(e.thresholds.APIResponseMs),
				Metadata:  map[string]interface{}{"endpoint": path},
			})
		}
	}

	return issues
}

func (e *Evaluator) EvaluateStorage(m models.StorageMetrics) []models.Issue {
	var issues []models.Issue

	if m.BucketSize.TotalSizeGB > e.thresholds.S3StorageGB {
		issues = append(issues, models.Issue{
			Type:      "high_storage_usage",
			Severity:  models.SeverityWarning,
			Component: models.ComponentStorage,
			Message: fmt.Sprintf("S3 storage (%.1fGB) exceeds threshold (%.0fGB)",
				m.BucketSize.TotalSizeGB, e.thresholds.S3StorageGB),
			Value:     models.Float(m.BucketSize.TotalSizeGB),
			Threshold: models.Float(e.thresholds.S3StorageGB),
		})
	}

	if n := len(m.LargeFiles); n > 0 {
		meta := map[string]interface{}{"count": n}
		// LargeFiles is size-sorted; the first entry is the largest.
		meta["largest_file"] = m.LargeFiles[0]
		issues = append(issues, models.Issue{
			Type:      "large_files_detected",
			Severity:  models.SeverityInfo,
			Component: models.ComponentStorage,
			Message: fmt.Sprintf("Found %d files exceeding %.0fMB",
				n, e.thresholds.PhotoSizeMB),
			Value:     models.Float(float64(n)),
			Threshold: models.Float(e.thresholds.PhotoSizeMB),
			Metadata:  meta,
		})
	}

	if m.EstimatedCosts.TotalEstimated > e.thresholds.S3CostUSD {
		issues = append(issues, models.Issue{
			Type:      "high_storage_cost",
			Severity:  models.SeverityWarning,
			Component: models.ComponentStorage,
			Message: fmt.Sprintf("Estimated S3 cost ($%.2f) exceeds threshold ($%.0f)",
				m.EstimatedCosts.TotalEstimated, e.thresholds.S3CostUSD),
			Value:     models.Float(m.EstimatedCosts.TotalEstimated),
			Threshold: models.Float(e.thresholds.S3CostUSD),
		})
	}

	return issues
}

func (e *Evaluator) EvaluateActivity(m models.ActivityMetrics) []models.Issue {
	var issues []models.Issue

	if m.UserActivity.TotalTechnicians > 0 && m.UserActivity.ActiveTechniciansToday == 0 {
		issues = append(issues, models.Issue{
			Type:      "no_technician_activity",
			Severity:  models.SeverityWarning,
			Component: models.ComponentActivity,
			Message:   "No technician activity in the current period",
			Value:     models.Float(0),
		})
	}

	if m.UserActivity.TotalUsers > 0 && m.UserActivity.ActivityRatePct < 20 {
		issues = append(issues, models.Issue{
			Type:      "low_activity_rate",
			Severity:  models.SeverityWarning,
			Component: models.ComponentActivity,
			Message:   fmt.Sprintf("Low user activity rate: %.1f%%", m.UserActivity.ActivityRatePct),
			Value:     models.Float(m.UserActivity.ActivityRatePct),
			Threshold: models.Float(20),
		})
	}

	if n := len(m.InactiveTechnicians); n > 0 {
		names := m.InactiveTechnicians
		if len(names) > 5 {
			names = names[:5]
		}
		issues = append(issues, models.Issue{
			Type:      "inactive_technicians",
			Severity:  models.SeverityWarning,
			Component: models.ComponentActivity,
			Message:   fmt.Sprintf("Found %d inactive technicians", n),
			Value:     models.Float(float64(n)),
			Metadata:  map[string]interface{}{"technicians": names},
		})
	}

	return issues
}
