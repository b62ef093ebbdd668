package monitor

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB creates a throwaway sqlite database with the portal schema the
// probes query against.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	for _, ddl := range []string{
		`CREATE TABLE auth_user (
			id INTEGER PRIMARY KEY,
			username TEXT NOT NULL,
			last_login DATETIME,
			is_active BOOLEAN NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE core_customer (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE technician_portal_technician (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL
		)`,
		`CREATE TABLE technician_portal_repair (
			id INTEGER PRIMARY KEY,
			unit_number TEXT NOT NULL,
			queue_status TEXT NOT NULL,
			customer_id INTEGER,
			technician_id INTEGER,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func insertUser(t *testing.T, db *gorm.DB, id int64, username string, lastLogin *time.Time, active bool) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO auth_user (id, username, last_login, is_active) VALUES (?, ?, ?, ?)`,
		id, username, lastLogin, active).Error)
}

func insertTechnician(t *testing.T, db *gorm.DB, id, userID int64) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO technician_portal_technician (id, user_id) VALUES (?, ?)`,
		id, userID).Error)
}

func insertCustomer(t *testing.T, db *gorm.DB, id int64, name string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO core_customer (id, name, created_at) VALUES (?, ?, ?)`,
		id, name, createdAt).Error)
}

func insertRepair(t *testing.T, db *gorm.DB, id int64, unit, status string, customerID, technicianID *int64, createdAt, updatedAt time.Time) {
	t.Helper()
	require.NoError(t, db.Exec(
		`INSERT INTO technician_portal_repair
			(id, unit_number, queue_status, customer_id, technician_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, unit, status, customerID, technicianID, createdAt, updatedAt).Error)
}

func ptrID(v int64) *int64 { return &v }
