// Package persistence wires the gorm database handle, schema migrations,
// and the transaction wrapper every store in this module persists
// through.
package persistence

import (
	"context"
	"hash/fnv"

	"gorm.io/gorm"

	"github.com/NicolasMassart/tessera/pkg/tmconf"
)

// Persistence is the handle every DAO is built on top of.
type Persistence interface {
	DB() *gorm.DB
	Transaction(ctx context.Context, fn func(ctx context.Context, dbTX DBTX) error) error
	TakeNamedLock(ctx context.Context, dbTX DBTX, lockName string) error
	Close()
}

// NewPersistence dispatches to the configured SQL provider.
func NewPersistence(ctx context.Context, conf *tmconf.DBConfig) (Persistence, error) {
	var p SQLDBProvider
	switch conf.Type {
	case tmconf.TypeSQLite:
		p = &sqliteProvider{}
	case tmconf.TypePostgres:
		p = &postgresProvider{}
	default:
		return nil, newInvalidDBType(ctx, conf.Type)
	}
	return newSQLProvider(ctx, p, conf)
}

// hashCode turns an arbitrary string lock name into the int64 postgres
// advisory locks take.
func hashCode(s string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return int64(h.Sum64())
}
