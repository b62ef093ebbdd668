package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// ActivityProbe tracks who is actually using the system: portal logins,
// customer growth and per-technician output.
type ActivityProbe struct {
	db         *gorm.DB
	thresholds config.Thresholds
	timeout    time.Duration
	log        *logrus.Logger
}

func NewActivityProbe(db *gorm.DB, cfg config.DatabaseConfig, thresholds config.Thresholds, log *logrus.Logger) *ActivityProbe {
	return &ActivityProbe{
		db:         db,
		thresholds: thresholds,
		timeout:    time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		log:        log,
	}
}

func (p *ActivityProbe) Component() models.Component { return models.ComponentActivity }

func (p *ActivityProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.healthFromUserActivity(p.userActivity(ctx))
}

func (p *ActivityProbe) Monitor(ctx context.Context) *models.ComponentReport {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		metrics models.ActivityMetrics
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		metrics.UserActivity = p.userActivity(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.CustomerActivity = p.customerActivity(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.TechnicianPerformance = p.technicianPerformance(ctx)
	}()
	wg.Wait()

	metrics.InactiveTechnicians = p.inactiveTechnicians(metrics.TechnicianPerformance)

	return &models.ComponentReport{
		Component: models.ComponentActivity,
		Health:    p.healthFromUserActivity(metrics.UserActivity),
		Metrics:   metrics,
		Timestamp: time.Now(),
	}
}

func (p *ActivityProbe) healthFromUserActivity(users models.UserActivity) models.HealthCheckResult {
	result := models.NewHealthCheckResult(models.ComponentActivity, models.StatusHealthy,
		fmt.Sprintf("%d users active today", users.ActiveToday))
	switch {
	case users.TotalTechnicians > 0 && users.ActiveTechniciansToday == 0:
		result.Status = models.StatusDegraded
		result.Message = "No technician activity today"
	case users.ActivityRatePct < 20 && users.TotalUsers > 0:
		result.Status = models.StatusDegraded
		result.Message = fmt.Sprintf("Low activity rate: %.1f%%", users.ActivityRatePct)
	}
	result.Details = map[string]interface{}{
		"active_today":      users.ActiveToday,
		"activity_rate_pct": users.ActivityRatePct,
	}
	return result
}

func (p *ActivityProbe) userActivity(ctx context.Context) models.UserActivity {
	var row struct {
		TotalUsers             int
		ActiveUsers30d         int `gorm:"column:active_users_30d"`
		ActiveToday            int
		ActiveWeek             int
		TotalTechnicians       int
		ActiveTechniciansToday int
	}
	now := time.Now()
	dayAgo := now.Add(-24 * time.Hour)
	weekAgo := now.AddDate(0, 0, -7)
	monthAgo := now.AddDate(0, 0, -30)

	err := p.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS total_users,
			SUM(CASE WHEN last_login > ? THEN 1 ELSE 0 END) AS active_users_30d,
			SUM(CASE WHEN last_login > ? THEN 1 ELSE 0 END) AS active_today,
			SUM(CASE WHEN last_login > ? THEN 1 ELSE 0 END) AS active_week,
			SUM(CASE WHEN t.id IS NOT NULL THEN 1 ELSE 0 END) AS total_technicians,
			SUM(CASE WHEN t.id IS NOT NULL AND last_login > ? THEN 1 ELSE 0 END) AS active_technicians_today
		FROM auth_user u
		LEFT JOIN technician_portal_technician t ON t.user_id = u.id
		WHERE u.is_active`, monthAgo, dayAgo, weekAgo, dayAgo).Scan(&row).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get user activity")
		return models.UserActivity{}
	}

	activity := models.UserActivity{
		TotalUsers:             row.TotalUsers,
		ActiveUsers30d:         row.ActiveUsers30d,
		ActiveToday:            row.ActiveToday,
		ActiveWeek:             row.ActiveWeek,
		TotalTechnicians:       row.TotalTechnicians,
		ActiveTechniciansToday: row.ActiveTechniciansToday,
	}
	if activity.TotalUsers > 0 {
		activity.ActivityRatePct = round2(float64(activity.ActiveUsers30d) /
			float64(activity.TotalUsers) * 100)
	}
	return activity
}

func (p *ActivityProbe) customerActivity(ctx context.Context) models.CustomerActivity {
	var row struct {
		TotalCustomers     int
		NewCustomersToday  int
		NewCustomersWeek   int
		ActiveCustomers30d int `gorm:"column:active_customers_30d"`
		TotalRepairs       int
	}
	now := time.Now()
	err := p.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(DISTINCT c.id) AS total_customers,
			SUM(CASE WHEN c.created_at > ? THEN 1 ELSE 0 END) AS new_customers_today,
			SUM(CASE WHEN c.created_at > ? THEN 1 ELSE 0 END) AS new_customers_week,
			COUNT(DISTINCT CASE WHEN r.created_at > ? THEN r.customer_id END) AS active_customers_30d,
			COUNT(r.id) AS total_repairs
		FROM core_customer c
		LEFT JOIN technician_portal_repair r ON r.customer_id = c.id`,
		now.Add(-24*time.Hour), now.AddDate(0, 0, -7), now.AddDate(0, 0, -30)).Scan(&row).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get customer activity")
		return models.CustomerActivity{}
	}

	activity := models.CustomerActivity{
		TotalCustomers:     row.TotalCustomers,
		ActiveCustomers30d: row.ActiveCustomers30d,
		NewCustomersToday:  row.NewCustomersToday,
		NewCustomersWeek:   row.NewCustomersWeek,
	}
	if activity.TotalCustomers > 0 {
		activity.AvgRepairsPerCustomer = round2(float64(row.TotalRepairs) /
			float64(activity.TotalCustomers))
		activity.EngagementRatePct = round2(float64(activity.ActiveCustomers30d) /
			float64(activity.TotalCustomers) * 100)
	}
	return activity
}

func (p *ActivityProbe) technicianPerformance(ctx context.Context) []models.TechnicianPerformance {
	var techs []struct {
		TechnicianID int64
		Username     string
		LastLogin    *time.Time
	}
	err := p.db.WithContext(ctx).Raw(`
		SELECT t.id AS technician_id, u.username, u.last_login
		FROM technician_portal_technician t
		JOIN auth_user u ON t.user_id = u.id
		WHERE u.is_active`).Scan(&techs).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get technicians")
		return []models.TechnicianPerformance{}
	}

	var repairs []struct {
		TechnicianID int64
		QueueStatus  string
		CreatedAt    time.Time
		UpdatedAt    time.Time
	}
	err = p.db.WithContext(ctx).Raw(`
		SELECT technician_id, queue_status, created_at, updated_at
		FROM technician_portal_repair
		WHERE technician_id IS NOT NULL`).Scan(&repairs).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get repairs for technician performance")
		return []models.TechnicianPerformance{}
	}

	weekAgo := time.Now().AddDate(0, 0, -7)
	type agg struct {
		total, completed, lastWeek int
		completionHours            float64
	}
	byTech := make(map[int64]*agg, len(techs))
	for _, r := range repairs {
		a, ok := byTech[r.TechnicianID]
		if !ok {
			a = &agg{}
			byTech[r.TechnicianID] = a
		}
		a.total++
		if r.QueueStatus == "COMPLETED" {
			a.completed++
			a.completionHours += r.UpdatedAt.Sub(r.CreatedAt).Hours()
			if r.UpdatedAt.After(weekAgo) {
				a.lastWeek++
			}
		}
	}

	out := make([]models.TechnicianPerformance, 0, len(techs))
	for _, tech := range techs {
		perf := models.TechnicianPerformance{
			TechnicianID: tech.TechnicianID,
			Username:     tech.Username,
			LastLogin:    tech.LastLogin,
		}
		if a, ok := byTech[tech.TechnicianID]; ok {
			perf.TotalRepairs = a.total
			perf.CompletedRepairs = a.completed
			perf.RepairsLastWeek = a.lastWeek
			if a.completed > 0 {
				perf.AvgCompletionHours = round2(a.completionHours / float64(a.completed))
			}
			if a.total > 0 {
				perf.CompletionRatePct = round2(float64(a.completed) / float64(a.total) * 100)
			}
		}
		out = append(out, perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalRepairs > out[j].TotalRepairs })
	return out
}

// inactiveTechnicians flags technicians whose last portal login is older than
// the configured inactivity window.
func (p *ActivityProbe) inactiveTechnicians(perf []models.TechnicianPerformance) []string {
	cutoff := time.Now().Add(-time.Duration(p.thresholds.InactiveTechniciansHours * float64(time.Hour)))

	names := []string{}
	for _, tech := range perf {
		if tech.LastLogin == nil || tech.LastLogin.Before(cutoff) {
			names = append(names, tech.Username)
		}
	}
	sort.Strings(names)
	return names
}
