package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/trackify-io/trackify/config/modules"
	"github.com/trackify-io/trackify/db/dao"
	"github.com/trackify-io/trackify/db/transaction"
	"go.uber.org/zap"
)

type DB struct {
	DB      *sqlx.DB
	Dialect dao.Dialect
	log     *zap.SugaredLogger

	EventLogs dao.EventLogDAO
	Analytics dao.AnalyticsDAO
	Settings  dao.SettingDAO
}

var driverNames = map[modules.DatabaseDriver]string{
	modules.DriverPostgres: "pgx",
	modules.DriverSQLite:   "sqlite3",
}

func DialectOf(cfg modules.DatabaseConfig) dao.Dialect {
	if cfg.Driver == modules.DriverSQLite {
		return dao.DialectSQLite
	}
	return dao.DialectPostgres
}

func NewSqlDB(cfg modules.DatabaseConfig) (*sql.DB, error) {
	driverName, ok := driverNames[cfg.Driver]
	if !ok {
		return nil, errors.Errorf("unsupported driver: %s", cfg.Driver)
	}
	db, err := sql.Open(driverName, cfg.GetDSN())
	if err != nil {
		return nil, err
	}
	if cfg.Driver == modules.DriverSQLite {
		// sqlite allows a single writer
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(int(cfg.MaxPoolSize))
		db.SetMaxIdleConns(int(cfg.MaxPoolSize))
	}
	db.SetConnMaxLifetime(time.Second * time.Duration(cfg.MaxLifetime))
	return db, nil
}

func NewDB(sqlDB *sql.DB, dialect dao.Dialect, log *zap.SugaredLogger) (*DB, error) {
	driverName := "pgx"
	if dialect == dao.DialectSQLite {
		driverName = "sqlite3"
	}
	sqlxDB := sqlx.NewDb(sqlDB, driverName)

	db := &DB{
		DB:        sqlxDB,
		Dialect:   dialect,
		log:       log,
		EventLogs: dao.NewEventLogDAO(sqlxDB, dialect),
		Analytics: dao.NewAnalyticsDAO(sqlxDB, dialect),
		Settings:  dao.NewSettingDAO(sqlxDB, dialect),
	}

	return db, nil
}

func (db *DB) Ping() error {
	return db.DB.Ping()
}

func (db *DB) Stats() map[string]interface{} {
	stats := db.DB.Stats()
	return map[string]interface{}{
		"database.total_connections":  stats.OpenConnections,
		"database.active_connections": stats.InUse,
	}
}

// TX runs fn in a transaction carried by ctx, DAOs called with that ctx join it.
func (db *DB) TX(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := db.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err := recover(); err != nil {
			db.log.Errorf("panic recovered: %v", err)
			if rbErr := tx.Rollback(); rbErr != nil {
				db.log.Errorf("failed to rollback the tx: %v", rbErr)
			}
			panic(err)
		}
	}()

	ctx = transaction.WithTx(ctx, tx)

	err = fn(ctx)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(err, rbErr.Error())
		}
		return err
	}

	return tx.Commit()
}

func (db *DB) SqlDB() *sql.DB {
	return db.DB.DB
}

func (db *DB) Close() error {
	return db.DB.Close()
}
