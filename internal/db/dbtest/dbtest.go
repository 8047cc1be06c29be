// Package dbtest opens migrated SQLite databases and seeds fixtures for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/openmapping/tasking/internal/db"
	"github.com/openmapping/tasking/internal/db/models"
)

// NewSQLite returns a migrated database in the test's temp dir. It is closed
// when the test ends.
func NewSQLite(tb testing.TB) *gorm.DB {
	tb.Helper()

	path := filepath.Join(tb.TempDir(), "tasking_test.db")
	gdb, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Silent),
	})
	require.NoError(tb, err, "Failed to open test database")

	sqlDB, err := gdb.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(tb, db.Migrate(gdb), "Failed to run database migrations")
	return gdb
}

// Square returns an axis aligned lon/lat square as a task geometry
func Square(minLon, minLat, size float64) models.MultiPolygon {
	return models.MultiPolygon{{orb.Ring{
		{minLon, minLat},
		{minLon + size, minLat},
		{minLon + size, minLat + size},
		{minLon, minLat + size},
		{minLon, minLat},
	}}}
}

// CreateUser inserts a user
func CreateUser(tb testing.TB, gdb *gorm.DB, username string) *models.User {
	tb.Helper()
	u := &models.User{Username: username}
	require.NoError(tb, gdb.WithContext(context.Background()).Create(u).Error)
	return u
}

// CreateProject inserts a project with an English info row
func CreateProject(tb testing.TB, gdb *gorm.DB, name, instructions string) *models.Project {
	tb.Helper()
	p := &models.Project{
		Name:          name,
		Status:        models.ProjectStatusPublished,
		DefaultLocale: models.DefaultLocale,
		Infos: []models.ProjectInfo{{
			Locale:              models.DefaultLocale,
			Name:                name,
			PerTaskInstructions: instructions,
		}},
	}
	require.NoError(tb, gdb.WithContext(context.Background()).Create(p).Error)
	return p
}

// CreateTask inserts a READY task unless the given task sets a status
func CreateTask(tb testing.TB, gdb *gorm.DB, task *models.Task) *models.Task {
	tb.Helper()
	require.NoError(tb, gdb.WithContext(context.Background()).Create(task).Error)
	return task
}
