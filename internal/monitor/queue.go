package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// QueueProbe observes the repair queue tables of the business database:
// status distribution, stuck repairs, completion times, per-technician load
// and weekly throughput.
type QueueProbe struct {
	db         *gorm.DB
	thresholds config.Thresholds
	timeout    time.Duration
	log        *logrus.Logger
}

func NewQueueProbe(db *gorm.DB, cfg config.DatabaseConfig, thresholds config.Thresholds, log *logrus.Logger) *QueueProbe {
	return &QueueProbe{
		db:         db,
		thresholds: thresholds,
		timeout:    time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		log:        log,
	}
}

func (p *QueueProbe) Component() models.Component { return models.ComponentQueue }

func (p *QueueProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.healthFromMetrics(models.QueueMetrics{
		StatusCounts: p.queueStatus(ctx),
		StuckRepairs: p.stuckRepairs(ctx),
	})
}

func (p *QueueProbe) Monitor(ctx context.Context) *models.ComponentReport {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		metrics models.QueueMetrics
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		metrics.StatusCounts = p.queueStatus(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.StuckRepairs = p.stuckRepairs(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.ProcessingTimes = p.processingTimes(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.TechnicianLoad = p.technicianLoad(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.Throughput = p.throughput(ctx)
	}()
	wg.Wait()

	health := p.healthFromMetrics(metrics)
	now := time.Now()
	return &models.ComponentReport{
		Component: models.ComponentQueue,
		Health:    health,
		Metrics:   metrics,
		Timestamp: now,
	}
}

// healthFromMetrics derives queue health from already-collected metrics so a
// Monitor call does not re-query what it just fetched.
func (p *QueueProbe) healthFromMetrics(m models.QueueMetrics) models.HealthCheckResult {
	totalPending := 0
	for _, s := range []string{"PENDING", "REQUESTED", "APPROVED"} {
		totalPending += m.StatusCounts[s].Count
	}

	result := models.NewHealthCheckResult(models.ComponentQueue, models.StatusHealthy,
		"Queue is processing normally")
	switch {
	case len(m.StuckRepairs) > 0:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("Found %d stuck repairs", len(m.StuckRepairs))
	case float64(totalPending) > p.thresholds.PendingRepairs:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("High pending repair count: %d", totalPending)
	}
	result.Details = map[string]interface{}{
		"total_pending":       totalPending,
		"stuck_repairs_count": len(m.StuckRepairs),
	}
	return result
}

func (p *QueueProbe) queueStatus(ctx context.Context) map[string]models.QueueStatusStat {
	var rows []struct {
		QueueStatus string
		CreatedAt   time.Time
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT queue_status, created_at
		FROM technician_portal_repair
		WHERE queue_status != 'COMPLETED'`).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get queue status")
		return map[string]models.QueueStatusStat{}
	}

	now := time.Now()
	type agg struct {
		count    int
		sum, min, max float64
	}
	byStatus := make(map[string]*agg)
	for _, row := range rows {
		age := now.Sub(row.CreatedAt).Hours()
		a, ok := byStatus[row.QueueStatus]
		if !ok {
			a = &agg{min: age, max: age}
			byStatus[row.QueueStatus] = a
		}
		a.count++
		a.sum += age
		if age < a.min {
			a.min = age
		}
		if age > a.max {
			a.max = age
		}
	}

	out := make(map[string]models.QueueStatusStat, len(byStatus))
	for status, a := range byStatus {
		out[status] = models.QueueStatusStat{
			Count:           a.count,
			AverageAgeHours: round2(a.sum / float64(a.count)),
			MaxAgeHours:     round2(a.max),
			MinAgeHours:     round2(a.min),
		}
	}
	return out
}

func (p *QueueProbe) stuckRepairs(ctx context.Context) []models.StuckRepair {
	cutoff := time.Now().Add(-time.Duration(p.thresholds.QueueStuckHours * float64(time.Hour)))

	rows := []models.StuckRepair{}
	err := p.db.WithContext(ctx).Raw(`
		SELECT
			r.id AS repair_id,
			r.unit_number,
			r.queue_status AS status,
			COALESCE(c.name, '') AS customer_name,
			COALESCE(u.username, '') AS technician_name,
			r.updated_at
		FROM technician_portal_repair r
		LEFT JOIN core_customer c ON r.customer_id = c.id
		LEFT JOIN technician_portal_technician t ON r.technician_id = t.id
		LEFT JOIN auth_user u ON t.user_id = u.id
		WHERE r.queue_status NOT IN ('COMPLETED', 'DENIED')
			AND r.updated_at < ?
		ORDER BY r.updated_at ASC
		LIMIT 50`, cutoff).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get stuck repairs")
		return []models.StuckRepair{}
	}

	now := time.Now()
	for i := range rows {
		rows[i].StuckHours = round2(now.Sub(rows[i].UpdatedAt).Hours())
	}
	return rows
}

func (p *QueueProbe) processingTimes(ctx context.Context) models.ProcessingTimes {
	var rows []struct {
		CreatedAt time.Time
		UpdatedAt time.Time
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT created_at, updated_at
		FROM technician_portal_repair
		WHERE queue_status = 'COMPLETED' AND created_at > ?`,
		time.Now().AddDate(0, 0, -30)).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get processing times")
		return models.ProcessingTimes{}
	}
	if len(rows) == 0 {
		return models.ProcessingTimes{}
	}

	hours := make([]float64, 0, len(rows))
	for _, row := range rows {
		hours = append(hours, row.UpdatedAt.Sub(row.CreatedAt).Hours())
	}
	sort.Float64s(hours)

	sum := 0.0
	for _, h := range hours {
		sum += h
	}
	return models.ProcessingTimes{
		AverageCompletionHours: round2(sum / float64(len(hours))),
		MinCompletionHours:     round2(hours[0]),
		MaxCompletionHours:     round2(hours[len(hours)-1]),
		MedianCompletionHours:  round2(percentile(hours, 0.5)),
		P95CompletionHours:     round2(percentile(hours, 0.95)),
	}
}

func (p *QueueProbe) technicianLoad(ctx context.Context) []models.TechnicianLoad {
	var rows []struct {
		TechnicianID   int64
		TechnicianName string
		QueueStatus    string
		UpdatedAt      time.Time
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT
			t.id AS technician_id,
			u.username AS technician_name,
			r.queue_status,
			r.updated_at
		FROM technician_portal_technician t
		JOIN auth_user u ON t.user_id = u.id
		JOIN technician_portal_repair r ON t.id = r.technician_id
		WHERE r.queue_status NOT IN ('COMPLETED', 'DENIED')`).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get technician load")
		return []models.TechnicianLoad{}
	}

	now := time.Now()
	type agg struct {
		load            models.TechnicianLoad
		inProgressHours float64
	}
	byTech := make(map[int64]*agg)
	for _, row := range rows {
		a, ok := byTech[row.TechnicianID]
		if !ok {
			a = &agg{load: models.TechnicianLoad{
				TechnicianID:   row.TechnicianID,
				TechnicianName: row.TechnicianName,
			}}
			byTech[row.TechnicianID] = a
		}
		a.load.TotalActiveRepairs++
		switch row.QueueStatus {
		case "IN_PROGRESS":
			a.load.InProgress++
			a.inProgressHours += now.Sub(row.UpdatedAt).Hours()
		case "PENDING":
			a.load.Pending++
		case "APPROVED":
			a.load.Approved++
		}
	}

	out := make([]models.TechnicianLoad, 0, len(byTech))
	for _, a := range byTech {
		if a.load.InProgress > 0 {
			a.load.AvgInProgressHours = round2(a.inProgressHours / float64(a.load.InProgress))
		}
		out = append(out, a.load)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TotalActiveRepairs > out[j].TotalActiveRepairs
	})
	return out
}

func (p *QueueProbe) throughput(ctx context.Context) models.QueueThroughput {
	var rows []struct {
		QueueStatus string
		CreatedAt   time.Time
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT queue_status, created_at
		FROM technician_portal_repair
		WHERE created_at > ?`, time.Now().AddDate(0, 0, -7)).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get queue throughput")
		return models.QueueThroughput{}
	}

	days := make(map[string]bool)
	var t models.QueueThroughput
	for _, row := range rows {
		days[row.CreatedAt.Format("2006-01-02")] = true
		switch row.QueueStatus {
		case "REQUESTED":
			t.TotalRequests7d++
		case "COMPLETED":
			t.TotalCompletions7d++
		}
	}
	if n := len(days); n > 0 {
		t.AvgDailyRequests = round2(float64(t.TotalRequests7d) / float64(n))
		t.AvgDailyCompletions = round2(float64(t.TotalCompletions7d) / float64(n))
	}
	// Guard the zero denominator: no requests means a 0% rate, not a fault.
	if t.TotalRequests7d > 0 {
		t.CompletionRatePct = round2(float64(t.TotalCompletions7d) / float64(t.TotalRequests7d) * 100)
	}
	return t
}

func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := q * float64(len(sorted)-1)
	lo := int(idx)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
