package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

// DatabaseProbe observes the business database: slow queries, connection
// pool pressure, table growth and lock contention. The four sub-queries are
// independent and run concurrently; a failing sub-query degrades to a zero
// default and never aborts the others.
type DatabaseProbe struct {
	db         *gorm.DB
	driver     string
	thresholds config.Thresholds
	timeout    time.Duration
	log        *logrus.Logger
}

func NewDatabaseProbe(db *gorm.DB, cfg config.DatabaseConfig, thresholds config.Thresholds, log *logrus.Logger) *DatabaseProbe {
	return &DatabaseProbe{
		db:         db,
		driver:     cfg.Driver,
		thresholds: thresholds,
		timeout:    time.Duration(cfg.QueryTimeoutSeconds) * time.Second,
		log:        log,
	}
}

func (p *DatabaseProbe) Component() models.Component { return models.ComponentDatabase }

func (p *DatabaseProbe) CheckHealth(ctx context.Context) models.HealthCheckResult {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	var one int
	if err := p.db.WithContext(ctx).Raw("SELECT 1").Scan(&one).Error; err != nil {
		return models.NewHealthCheckResult(models.ComponentDatabase, models.StatusUnhealthy,
			fmt.Sprintf("Database health check failed: %v", err))
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	result := models.NewHealthCheckResult(models.ComponentDatabase, models.StatusHealthy,
		"Database is responding normally")
	result.ResponseTimeMs = &elapsed
	result.Details = map[string]interface{}{"driver": p.driver}
	return result
}

func (p *DatabaseProbe) Monitor(ctx context.Context) *models.ComponentReport {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var (
		wg      sync.WaitGroup
		metrics models.DatabaseMetrics
		health  models.HealthCheckResult
	)

	wg.Add(5)
	go func() {
		defer wg.Done()
		metrics.SlowQueries = p.slowQueries(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.ConnectionStats = p.connectionStats(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.TableStats = p.tableStats(ctx)
	}()
	go func() {
		defer wg.Done()
		metrics.Locks = p.checkLocks(ctx)
	}()
	go func() {
		defer wg.Done()
		health = p.CheckHealth(ctx)
	}()
	wg.Wait()

	now := time.Now()
	return &models.ComponentReport{
		Component: models.ComponentDatabase,
		Health:    health,
		Metrics:   metrics,
		Timestamp: now,
	}
}

func (p *DatabaseProbe) slowQueries(ctx context.Context) []models.SlowQuery {
	// Slow query statistics are a PostgreSQL feature (pg_stat_statements);
	// sqlite deployments report none.
	if p.driver != "postgres" {
		return []models.SlowQuery{}
	}

	rows := []models.SlowQuery{}
	err := p.db.WithContext(ctx).Raw(`
		SELECT query, mean_exec_time AS duration_ms, calls
		FROM pg_stat_statements
		WHERE mean_exec_time > ?
		ORDER BY mean_exec_time DESC
		LIMIT 20`, p.thresholds.DBQueryMs).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to get slow queries")
		return []models.SlowQuery{}
	}
	return rows
}

func (p *DatabaseProbe) connectionStats(ctx context.Context) models.ConnectionStats {
	if p.driver == "postgres" {
		var row struct {
			Active int
			Idle   int
			Max    int
		}
		err := p.db.WithContext(ctx).Raw(`
			SELECT
				count(*) FILTER (WHERE state = 'active') AS active,
				count(*) FILTER (WHERE state = 'idle') AS idle,
				(SELECT setting::int FROM pg_settings WHERE name = 'max_connections') AS max
			FROM pg_stat_activity`).Scan(&row).Error
		if err != nil {
			p.log.WithError(err).Debug("failed to get connection stats")
			return models.ConnectionStats{}
		}
		stats := models.ConnectionStats{
			ActiveConnections: row.Active,
			IdleConnections:   row.Idle,
			MaxConnections:    row.Max,
		}
		if row.Max > 0 {
			stats.PoolUsagePct = float64(row.Active+row.Idle) / float64(row.Max) * 100
		}
		return stats
	}

	// sqlite has no server-side connection view; use the local pool.
	sqlDB, err := p.db.DB()
	if err != nil {
		p.log.WithError(err).Debug("failed to get connection stats")
		return models.ConnectionStats{}
	}
	s := sqlDB.Stats()
	stats := models.ConnectionStats{
		ActiveConnections: s.InUse,
		IdleConnections:   s.Idle,
		MaxConnections:    s.MaxOpenConnections,
	}
	if s.MaxOpenConnections > 0 {
		stats.PoolUsagePct = float64(s.OpenConnections) / float64(s.MaxOpenConnections) * 100
	}
	return stats
}

func (p *DatabaseProbe) tableStats(ctx context.Context) []models.TableStat {
	rows := []models.TableStat{}
	var err error
	if p.driver == "postgres" {
		err = p.db.WithContext(ctx).Raw(`
			SELECT
				relname AS table_name,
				n_live_tup AS row_count,
				pg_total_relation_size(relid) AS size_bytes
			FROM pg_stat_user_tables
			ORDER BY n_live_tup DESC
			LIMIT 20`).Scan(&rows).Error
	} else {
		var tables []string
		err = p.db.WithContext(ctx).Raw(`
			SELECT name FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`).Scan(&tables).Error
		if err == nil {
			for _, table := range tables {
				var count int64
				if countErr := p.db.WithContext(ctx).Table(table).Count(&count).Error; countErr != nil {
					p.log.WithError(countErr).WithField("table", table).Debug("failed to count table rows")
					continue
				}
				rows = append(rows, models.TableStat{TableName: table, RowCount: count})
			}
		}
	}
	if err != nil {
		p.log.WithError(err).Debug("failed to get table stats")
		return []models.TableStat{}
	}
	return rows
}

func (p *DatabaseProbe) checkLocks(ctx context.Context) []models.LockInfo {
	if p.driver != "postgres" {
		return []models.LockInfo{}
	}

	rows := []models.LockInfo{}
	err := p.db.WithContext(ctx).Raw(`
		SELECT
			COALESCE(c.relname, '') AS relation,
			l.mode,
			l.granted,
			EXTRACT(EPOCH FROM (now() - a.query_start)) * 1000 AS wait_ms
		FROM pg_locks l
		JOIN pg_stat_activity a ON l.pid = a.pid
		LEFT JOIN pg_class c ON l.relation = c.oid
		WHERE a.query_start IS NOT NULL
		ORDER BY wait_ms DESC
		LIMIT 50`).Scan(&rows).Error
	if err != nil {
		p.log.WithError(err).Debug("failed to check locks")
		return []models.LockInfo{}
	}
	return rows
}
