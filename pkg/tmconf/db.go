package tmconf

import "github.com/NicolasMassart/tessera/pkg/confutil"

// DSNParamLocation controls how DSN parameters are appended for
// providers that need special handling of the separator character.
type DSNParamLocation string

const (
	DSNParamLocationQuery DSNParamLocation = "query"
	DSNParamLocationNone  DSNParamLocation = "none"
)

// SQLDBConfig is the common pool/migration configuration shared by every
// SQL provider.
type SQLDBConfig struct {
	URI                   *string `json:"uri"`
	AutoMigrate           *bool   `json:"autoMigrate"`
	MigrationsDir         *string `json:"migrationsDir"`
	MaxOpenConns          *int    `json:"maxOpenConns"`
	MaxIdleConns          *int    `json:"maxIdleConns"`
	ConnMaxLifetime       *string `json:"connMaxLifetime"`
	StatementCacheEnabled *bool   `json:"statementCacheEnabled"`
}

// SQLiteConfig configures the sqlite provider.
type SQLiteConfig struct {
	SQLDBConfig
}

// PostgresConfig configures the postgres provider.
type PostgresConfig struct {
	SQLDBConfig
}

// DBConfig selects and configures one SQL provider.
type DBConfig struct {
	Type     string         `json:"type"`
	SQLite   SQLiteConfig   `json:"sqlite"`
	Postgres PostgresConfig `json:"postgres"`
}

const (
	TypeSQLite   = "sqlite"
	TypePostgres = "postgres"
)

// SQLiteDefaults is an in-memory/ephemeral sqlite setup. The persistence
// package does not apply it on its own; a caller passes it in explicitly.
var SQLiteDefaults = &SQLiteConfig{SQLDBConfig{
	URI:           confutil.P("file::memory:?cache=shared"),
	AutoMigrate:   confutil.P(true),
	MigrationsDir: confutil.P("./db/migrations/sqlite"),
	MaxOpenConns:  confutil.P(1),
}}

// PostgresDefaults is a connection-pool sizing for postgres. The
// persistence package does not apply it on its own: with the pool fields
// unset it falls back to 5 open and 2 idle connections.
var PostgresDefaults = &PostgresConfig{SQLDBConfig{
	AutoMigrate:   confutil.P(true),
	MigrationsDir: confutil.P("./db/migrations/postgres"),
	MaxOpenConns:  confutil.P(25),
	MaxIdleConns:  confutil.P(5),
}}
