// Package testdb opens migrated databases for tests: in-memory SQLite always, Postgres when
// FORMDESK_TEST_DATABASE_URL is set.
package testdb

import (
	"fmt"
	"os"
	"strings"
	"sync/atomic"
	"testing"

	"formdesk.link/database/migrations"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// Open returns a fresh schema on a single connection. Each call gets its own named
// shared-cache database so parallel tests never see each other's rows.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:testdb%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.MigrateFormsTables(db))
	require.NoError(t, migrations.MigrateResponsesTables(db))
	return db
}

// PostgresURLEnv names the connection string of a disposable Postgres database.
const PostgresURLEnv = "FORMDESK_TEST_DATABASE_URL"

// OpenPostgres returns a migrated schema of its own on the database named by PostgresURLEnv and
// skips the test when the variable is unset. The schema is dropped on cleanup.
func OpenPostgres(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := strings.TrimSpace(os.Getenv(PostgresURLEnv))
	if dsn == "" {
		t.Skipf("%s is not set", PostgresURLEnv)
	}
	silent := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}

	admin, err := gorm.Open(postgres.Open(dsn), silent)
	require.NoError(t, err)
	adminDB, err := admin.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = adminDB.Close() })

	schema := fmt.Sprintf("formdesk_test_%d_%d", os.Getpid(), seq.Add(1))
	require.NoError(t, admin.Exec("CREATE SCHEMA " + schema).Error)
	t.Cleanup(func() { _ = admin.Exec("DROP SCHEMA IF EXISTS " + schema + " CASCADE").Error })

	db, err := gorm.Open(postgres.Open(withSearchPath(dsn, schema)), silent)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(10)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrations.MigrateFormsTables(db))
	require.NoError(t, migrations.MigrateResponsesTables(db))
	return db
}

// withSearchPath adds search_path to a URL or keyword/value connection string.
func withSearchPath(dsn, schema string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		return dsn + sep + "search_path=" + schema
	}
	return dsn + " search_path=" + schema
}
