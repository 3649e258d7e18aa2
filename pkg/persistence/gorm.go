package persistence

import (
	"context"
	"database/sql"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hyperledger/firefly-common/pkg/i18n"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/NicolasMassart/tessera/internal/msgs"
	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/log"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

func newInvalidDBType(ctx context.Context, dbType string) error {
	return i18n.NewError(ctx, msgs.MsgInvalidDBType, dbType)
}

// SQLDBProvider is the small per-engine seam: everything engine-specific
// (driver open, migration source, advisory locking) lives behind it, and
// everything else (pool sizing, AutoMigrate, the DBTX wrapper) is shared.
type SQLDBProvider interface {
	Name() string
	Open(uri string) (gorm.Dialector, error)
	MigrationDatabaseURL(uri string) string
	TakeNamedLock(ctx context.Context, dbTX DBTX, hashedLockName int64) error
}

type provider struct {
	p   SQLDBProvider
	db  *gorm.DB
	sql *sql.DB
	uri string
}

func newSQLProvider(ctx context.Context, p SQLDBProvider, conf *tmconf.DBConfig) (*provider, error) {
	sqlConf := sqlConfigFor(p.Name(), conf)
	uri := confutil.StringNotEmpty(sqlConf.URI, "")
	dialector, err := p.Open(uri)
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgDBError, err.Error())
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormLogLevel()),
	})
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgDBError, err.Error())
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, i18n.NewError(ctx, msgs.MsgDBError, err.Error())
	}
	sqlDB.SetMaxOpenConns(confutil.IntMin(sqlConf.MaxOpenConns, 1, 5))
	sqlDB.SetMaxIdleConns(confutil.IntMin(sqlConf.MaxIdleConns, 0, 2))
	sqlDB.SetConnMaxLifetime(confutil.DurationMin(sqlConf.ConnMaxLifetime, 0, "1h"))

	gp := &provider{p: p, db: gdb, sql: sqlDB, uri: uri}

	if confutil.Bool(sqlConf.AutoMigrate, false) {
		if err := gp.runMigration(ctx, sqlConf); err != nil {
			return nil, err
		}
	}

	return gp, nil
}

func sqlConfigFor(name string, conf *tmconf.DBConfig) *tmconf.SQLDBConfig {
	switch name {
	case tmconf.TypePostgres:
		return &conf.Postgres.SQLDBConfig
	default:
		return &conf.SQLite.SQLDBConfig
	}
}

func gormLogLevel() gormlogger.LogLevel {
	if log.IsTraceEnabled() {
		return gormlogger.Info
	}
	return gormlogger.Silent
}

func (gp *provider) runMigration(ctx context.Context, conf *tmconf.SQLDBConfig) error {
	dir := confutil.StringOrEmpty(conf.MigrationsDir)
	if dir == "" {
		return i18n.NewError(ctx, msgs.MsgMissingMigrationsDir)
	}
	return gp.runMigrationFn(ctx, dir, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return err
		}
		return nil
	})
}

// runMigrationFn runs an arbitrary migrate.Migrate operation against dir,
// used directly by tests to exercise the Down() side of the migration
// source that AutoMigrate never drives in normal operation.
func (gp *provider) runMigrationFn(ctx context.Context, dir string, fn func(*migrate.Migrate) error) error {
	m, err := gp.getMigrate(dir)
	if err != nil {
		return i18n.NewError(ctx, msgs.MsgMigrationError, err.Error())
	}
	defer func() { _, _ = m.Close() }()
	if err := fn(m); err != nil {
		return i18n.NewError(ctx, msgs.MsgMigrationError, err.Error())
	}
	return nil
}

func (gp *provider) getMigrate(dir string) (*migrate.Migrate, error) {
	return migrate.New(fmt.Sprintf("file://%s", dir), gp.p.MigrationDatabaseURL(gp.uri))
}

func (gp *provider) DB() *gorm.DB { return gp.db }

func (gp *provider) Close() {
	if gp.sql != nil {
		_ = gp.sql.Close()
	}
}

func (gp *provider) TakeNamedLock(ctx context.Context, dbTX DBTX, lockName string) error {
	return gp.p.TakeNamedLock(ctx, dbTX, hashCode(lockName))
}
