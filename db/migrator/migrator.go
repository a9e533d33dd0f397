package migrator

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/trackify-io/trackify/db/dao"
	"github.com/trackify-io/trackify/db/migrations"
	"go.uber.org/zap"
)

type Options struct {
	Quiet bool
}

// Migrator is a database migrator
type Migrator struct {
	db      *sql.DB
	dialect dao.Dialect
	opts    *Options
}

func New(db *sql.DB, dialect dao.Dialect, opts *Options) *Migrator {
	if opts == nil {
		opts = &Options{}
	}
	return &Migrator{
		db:      db,
		dialect: dialect,
		opts:    opts,
	}
}

type logger struct {
	quiet bool
}

func (l *logger) Printf(format string, v ...interface{}) {
	if !l.quiet {
		zap.S().Named("migrator").Infof(format, v...)
	}
}

func (l *logger) Verbose() bool {
	return false
}

func (m *Migrator) init() (*migrate.Migrate, error) {
	var (
		driver database.Driver
		err    error
	)
	switch m.dialect {
	case dao.DialectPostgres:
		driver, err = postgres.WithInstance(m.db, &postgres.Config{})
	case dao.DialectSQLite:
		driver, err = sqlite3.WithInstance(m.db, &sqlite3.Config{})
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", m.dialect)
	}
	if err != nil {
		return nil, err
	}

	d, err := iofs.New(migrations.SQLs, string(m.dialect))
	if err != nil {
		return nil, err
	}

	mg, err := migrate.NewWithInstance("iofs", d, string(m.dialect), driver)
	if err != nil {
		return nil, err
	}
	mg.Log = &logger{quiet: m.opts.Quiet}
	return mg, nil
}

// Reset drops every table
func (m *Migrator) Reset() error {
	migrate, err := m.init()
	if err != nil {
		return err
	}
	return migrate.Drop()
}

func (m *Migrator) Up() error {
	migrate, err := m.init()
	if err != nil {
		return err
	}
	return migrate.Up()
}

func (m *Migrator) Down() error {
	migrate, err := m.init()
	if err != nil {
		return err
	}
	return migrate.Down()
}

// Status returns the current status
func (m *Migrator) Status() (version uint, dirty bool, err error) {
	migrate, err := m.init()
	if err != nil {
		return 0, false, err
	}
	return migrate.Version()
}

type Migration struct {
	Version  uint
	Name     string
	Executed bool
}

// Migrations lists the embedded migrations in order and marks the ones
// already applied.
func (m *Migrator) Migrations() ([]*Migration, error) {
	current, _, err := m.Status()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return nil, err
	}

	source, err := iofs.New(migrations.SQLs, string(m.dialect))
	if err != nil {
		return nil, err
	}
	defer source.Close()

	var list []*Migration
	version, err := source.First()
	for err == nil {
		r, name, readErr := source.ReadUp(version)
		if readErr != nil {
			return nil, readErr
		}
		_ = r.Close()
		list = append(list, &Migration{
			Version:  version,
			Name:     name,
			Executed: version <= current,
		})
		version, err = source.Next(version)
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return list, nil
}

// Pending reports whether migrations newer than the applied version exist.
func (m *Migrator) Pending() (bool, error) {
	list, err := m.Migrations()
	if err != nil {
		return false, err
	}
	for _, migration := range list {
		if !migration.Executed {
			return true, nil
		}
	}
	return false, nil
}
