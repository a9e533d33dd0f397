// Package dbtest opens throwaway migrated databases for tests.
package dbtest

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db"
	"github.com/trackify-io/trackify/db/dao"
	"github.com/trackify-io/trackify/db/migrator"
	"go.uber.org/zap"
)

// Config returns a sqlite configuration rooted in dir.
func Config(dir string) modules.DatabaseConfig {
	return modules.DatabaseConfig{
		Driver:      modules.DriverSQLite,
		Path:        filepath.Join(dir, "trackify.db"),
		MaxLifetime: 1800,
	}
}

// NewSQLite returns a migrated sqlite database closed when the test ends.
func NewSQLite(t testing.TB) *db.DB {
	t.Helper()
	sqlDB, err := db.NewSqlDB(Config(t.TempDir()))
	if err != nil {
		t.Fatal(err)
	}
	err = migrator.New(sqlDB, dao.DialectSQLite, &migrator.Options{Quiet: true}).Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		t.Fatal(err)
	}
	d, err := db.NewDB(sqlDB, dao.DialectSQLite, zap.S())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}
