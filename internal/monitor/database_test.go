package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs-systems/healthwatch/internal/config"
	"github.com/rs-systems/healthwatch/internal/models"
)

func newDatabaseProbe(t *testing.T) *DatabaseProbe {
	t.Helper()
	db := openTestDB(t)
	return NewDatabaseProbe(db, config.DatabaseConfig{Driver: "sqlite", QueryTimeoutSeconds: 5},
		config.Thresholds{DBQueryMs: 500, DBConnectionsPct: 80}, testLogger())
}

func TestDatabaseCheckHealth(t *testing.T) {
	probe := newDatabaseProbe(t)

	result := probe.CheckHealth(context.Background())
	assert.Equal(t, models.StatusHealthy, result.Status)
	require.NotNil(t, result.ResponseTimeMs)
	assert.Equal(t, "sqlite", result.Details["driver"])
}

func TestDatabaseMonitorSqlite(t *testing.T) {
	probe := newDatabaseProbe(t)
	now := time.Now()
	insertRepair(t, probe.db, 1, "U-1", "PENDING", nil, nil, now, now)
	insertRepair(t, probe.db, 2, "U-2", "COMPLETED", nil, nil, now, now)

	report := probe.Monitor(context.Background())
	assert.Equal(t, models.ComponentDatabase, report.Component)
	assert.Equal(t, models.StatusHealthy, report.Health.Status)

	metrics, ok := report.Metrics.(models.DatabaseMetrics)
	require.True(t, ok)

	// pg_stat views do not exist on sqlite; those sections degrade to empty.
	assert.Empty(t, metrics.SlowQueries)
	assert.Empty(t, metrics.Locks)

	var repairStat *models.TableStat
	for i := range metrics.TableStats {
		if metrics.TableStats[i].TableName == "technician_portal_repair" {
			repairStat = &metrics.TableStats[i]
		}
	}
	require.NotNil(t, repairStat)
	assert.Equal(t, int64(2), repairStat.RowCount)
}

func TestDatabaseConnectionStatsSqlite(t *testing.T) {
	probe := newDatabaseProbe(t)

	sqlDB, err := probe.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)

	stats := probe.connectionStats(context.Background())
	assert.Equal(t, 10, stats.MaxConnections)
	assert.GreaterOrEqual(t, stats.PoolUsagePct, 0.0)
}

func TestDatabaseCheckHealthClosedConnection(t *testing.T) {
	probe := newDatabaseProbe(t)

	sqlDB, err := probe.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	result := probe.CheckHealth(context.Background())
	assert.Equal(t, models.StatusUnhealthy, result.Status)
	assert.Contains(t, result.Message, "health check failed")
}
