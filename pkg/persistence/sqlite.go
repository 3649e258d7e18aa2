package persistence

import (
	"context"
	"fmt"

	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type sqliteProvider struct{}

func (s *sqliteProvider) Name() string { return "sqlite" }

func (s *sqliteProvider) Open(uri string) (gorm.Dialector, error) {
	return sqlitedriver.Open(uri), nil
}

func (s *sqliteProvider) MigrationDatabaseURL(uri string) string {
	return fmt.Sprintf("sqlite3://%s", uri)
}

// TakeNamedLock is a no-op on sqlite: a single-writer database has no
// need for an advisory lock, and sqlite has no such primitive anyway.
func (s *sqliteProvider) TakeNamedLock(ctx context.Context, dbTX DBTX, hashedLockName int64) error {
	return nil
}
