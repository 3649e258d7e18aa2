package persistence

import (
	"context"

	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

// NewUnitTestPersistence builds an ephemeral in-memory sqlite Persistence
// with migrations already applied, for use by package tests across the
// module (txstore, rawtxstore, txnmgr) that need a real DB rather than a
// fake. The migrations directory is resolved relative to the calling
// package, so callers two directories below the module root pass
// "../../db/migrations/sqlite".
func NewUnitTestPersistence(ctx context.Context, migrationsDir string) (Persistence, func(), error) {
	p, err := newSQLProvider(ctx, &sqliteProvider{}, &tmconf.DBConfig{
		Type: tmconf.TypeSQLite,
		SQLite: tmconf.SQLiteConfig{SQLDBConfig: tmconf.SQLDBConfig{
			URI:           confutil.P("file::memory:?cache=shared"),
			AutoMigrate:   confutil.P(true),
			MigrationsDir: confutil.P(migrationsDir),
			MaxOpenConns:  confutil.P(1),
		}},
	})
	if err != nil {
		return nil, nil, err
	}
	return p, func() { p.Close() }, nil
}
