package persistence

import (
	"context"
	"testing"

	migrate "github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NicolasMassart/tessera/pkg/confutil"
	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

func TestSQLiteProviderBasics(t *testing.T) {
	p := &sqliteProvider{}
	assert.Equal(t, "sqlite", p.Name())
	assert.Equal(t, "sqlite3://:memory:", p.MigrationDatabaseURL(":memory:"))
	d, err := p.Open(":memory:")
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.NoError(t, p.TakeNamedLock(context.Background(), nil, 1))
}

func TestPostgresProviderBasics(t *testing.T) {
	p := &postgresProvider{}
	assert.Equal(t, "postgres", p.Name())
	assert.Equal(t, "postgres://host/db", p.MigrationDatabaseURL("postgres://host/db"))
	d, err := p.Open("postgres://host/db")
	require.NoError(t, err)
	assert.NotNil(t, d)
}

func TestNewPersistenceRejectsUnknownType(t *testing.T) {
	_, err := NewPersistence(context.Background(), &tmconf.DBConfig{Type: "mongo"})
	require.Error(t, err)
}

func TestMigrateUpDown(t *testing.T) {
	ctx := context.Background()

	p, done, err := NewUnitTestPersistence(ctx, "../../db/migrations/sqlite")
	require.NoError(t, err)
	defer done()
	assert.NotNil(t, p.DB())

	// run the migration source's Down() directly to prove the reverse
	// migrations are valid, distinct from the Up() AutoMigrate already ran.
	err = p.(*provider).runMigrationFn(ctx, "../../db/migrations/sqlite", func(m *migrate.Migrate) error { return m.Down() })
	assert.NoError(t, err)
}

func TestNewSQLProviderRejectsMissingMigrationsDir(t *testing.T) {
	ctx := context.Background()
	_, err := newSQLProvider(ctx, &sqliteProvider{}, &tmconf.DBConfig{
		Type: tmconf.TypeSQLite,
		SQLite: tmconf.SQLiteConfig{SQLDBConfig: tmconf.SQLDBConfig{
			URI:         confutil.P("file::memory:?cache=shared"),
			AutoMigrate: confutil.P(true),
		}},
	})
	require.Error(t, err)
}

func TestHashCodeIsDeterministic(t *testing.T) {
	assert.Equal(t, hashCode("lock-name"), hashCode("lock-name"))
	assert.NotEqual(t, hashCode("lock-name"), hashCode("other-lock"))
}
